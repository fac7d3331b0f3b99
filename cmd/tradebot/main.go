package main

import (
	"steamtrade/cmd/tradebot/commands"
	"steamtrade/lib/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()
	commands.ExecuteContext(ctx)
}
