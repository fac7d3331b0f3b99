package commands

import (
	"os"

	"steamtrade/lib/scrapers/steam/economy"
	"steamtrade/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var pricesApiKey *string
var pricesLanguage *string

func init() {
	pricesApiKey = pricesCmd.Flags().String("api-key", "", "Steam web API key.")
	pricesLanguage = pricesCmd.Flags().String("language", "", "Optional catalog language.")
	pricesCmd.MarkFlagRequired("api-key")
	rootCmd.AddCommand(pricesCmd)
}

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Fetches the asset price catalogs for every supported app.",
	Run: func(cmd *cobra.Command, args []string) {
		client := economy.NewClient(economy.ClientOptions{ApiKey: *pricesApiKey})

		catalogs, err := client.FetchAllAssetPrices(cmd.Context(), *pricesLanguage)
		if err != nil {
			serviceutil.Fatal("failed to fetch asset prices", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"App", "Assets"})
		for _, catalog := range catalogs.Values() {
			t.AppendRow(table.Row{catalog.AppId, len(catalog.Result.Assets)})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
