package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"steamtrade/lib/configuration"
	"steamtrade/lib/restyutil"
	"steamtrade/lib/scrapers/steam/community"
	"steamtrade/lib/scrapers/steam/trade"
	"steamtrade/lib/serviceutil"
	"steamtrade/lib/telemetry"
	"steamtrade/lib/tradestore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type Config struct {
	SessionId  string `json:"session_id"`
	LoginToken string `json:"login_token"`
	MySteamId  uint64 `json:"my_steam_id"`
	PartnerId  uint64 `json:"partner_id"`

	// milliseconds between status polls, defaults to 800
	PollInterval int `json:"poll_interval_ms"`

	// the app/context items get offered from when the operator does
	// not say otherwise; historically 440/2
	DefaultAppId     int `json:"default_app_id"`
	DefaultContextId int `json:"default_context_id"`

	// when set, this item is offered into the window right after the
	// local inventory is reconciled
	OfferItemId uint64 `json:"offer_item_id"`

	Store      configuration.Sqlite `json:"store"`
	CaptureDir string               `json:"capture_dir"`
}

var configPath *string

func init() {
	configPath = runCmd.Flags().String("config", "config.json5", "Path to the trade session config.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs a trade session against the configured partner until it reaches a terminal state.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		telemetry.InstrumentPerfStats(ctx)

		config, err := configuration.ReadConfig[Config](*configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		if config.PollInterval <= 0 {
			config.PollInterval = 800
		}
		if config.DefaultAppId == 0 {
			config.DefaultAppId = 440
		}
		if config.DefaultContextId == 0 {
			config.DefaultContextId = 2
		}

		db, err := config.Store.OpenDB()
		if err != nil {
			serviceutil.Fatal("failed to open trade event store", err)
		}
		store, err := tradestore.NewStore(db)
		if err != nil {
			serviceutil.Fatal("failed to initialize trade event store", err)
		}

		client, err := community.NewClient(community.ClientOptions{})
		if err != nil {
			serviceutil.Fatal("failed to initialize community client", err)
		}
		if *verbose && config.CaptureDir != "" {
			client.SetCaptureOutput(restyutil.NewFilesystemOutput(config.CaptureDir))
		}

		session, err := trade.NewSession(client, trade.SessionOptions{
			SessionId:  config.SessionId,
			LoginToken: config.LoginToken,
			PartnerId:  config.PartnerId,
		})
		if err != nil {
			serviceutil.Fatal("failed to initialize trade session", err)
		}

		runSession(ctx, config, session, store)
	},
}

func runSession(ctx context.Context, config Config, session *trade.Session, store tradestore.Store) {
	added, err := session.EnsureMine(ctx, config.MySteamId)
	if err != nil {
		serviceutil.Fatal("failed to reconcile local inventory", err)
	}
	slog.InfoContext(ctx, "local inventory reconciled", "added", added)
	renderTree(ctx, "mine", session)

	if config.OfferItemId != 0 {
		ok, err := session.AddItem(
			ctx, config.DefaultAppId, config.DefaultContextId,
			config.OfferItemId, 0,
		)
		if err != nil {
			serviceutil.Fatal("failed to offer item", err)
		}
		if !ok {
			slog.WarnContext(ctx, "service declined the offered item",
				"itemid", config.OfferItemId)
		}
	}

	sessionLabel := time.Now().UTC().Format(time.RFC3339)
	ticker := time.NewTicker(time.Duration(config.PollInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "session interrupted, cancelling trade")
			session.Cancel(context.Background())
			return
		case <-ticker.C:
		}

		status, err := session.Poll(ctx)
		if errors.Is(err, community.ErrTransport) {
			slog.WarnContext(ctx, "poll failed, will retry", "err", err)
			continue
		}
		if err != nil {
			slog.ErrorContext(ctx, "poll failed", "err", err)
			continue
		}

		handleEvents(ctx, config, session, status)

		err = store.Push(ctx, sessionLabel, status.Events)
		if err != nil {
			slog.WarnContext(ctx, "failed to record trade events", "err", err)
		}

		session.Adopt(status)

		if status.TradeStatusCode != 0 {
			slog.InfoContext(ctx, "trade reached terminal state",
				"trade_status", status.TradeStatusCode)
			renderTree(ctx, "theirs", session)
			return
		}
	}
}

func handleEvents(ctx context.Context, config Config, session *trade.Session, status trade.TradeStatus) {
	for _, ev := range status.Events {
		switch ev.Action {
		case trade.ActionAddedItem, trade.ActionRemovedItem:
			fetched, err := session.EnsureForeign(
				ctx, session.PartnerId(), int(ev.AppId), int(ev.ContextId),
			)
			if err != nil {
				slog.WarnContext(ctx, "failed to fetch foreign inventory",
					"appid", int(ev.AppId), "contextid", int(ev.ContextId), "err", err)
				continue
			}
			if fetched {
				renderTree(ctx, "theirs", session)
			}
		case trade.ActionChat:
			slog.InfoContext(ctx, "partner says", "text", ev.Text)
		case trade.ActionOtherUserAccept:
			slog.InfoContext(ctx, "partner accepted the trade")
		case trade.ActionToggleReady, trade.ActionToggleNotReady:
			slog.InfoContext(ctx, "partner toggled ready state", "action", int(ev.Action))
		}
	}
}

func renderTree(ctx context.Context, label string, session *trade.Session) {
	tree := session.Mine()
	if label == "theirs" {
		tree = session.Theirs()
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(label)
	t.AppendHeader(table.Row{"App", "Context", "Items"})
	for _, app := range tree.Apps() {
		for _, appCtx := range app.Contexts.Values() {
			t.AppendRow(table.Row{app.AppId, appCtx.ContextId, len(appCtx.Items)})
		}
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
