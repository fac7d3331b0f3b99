package trade

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"steamtrade/lib/scrapers/steam/community"
	"steamtrade/lib/scrapers/steam/inventory"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// EnsureMine fills the local inventory tree from the scraped context
// map: every (app, context) pair with a nonzero asset count that is
// not already present gets fetched. Fetches for distinct pairs are
// independent and run concurrently, bounded so as not to trip the
// service's abuse defenses. Returns whether anything new was added;
// calling it again with no new nonzero-asset contexts is a no-op.
func (s *Session) EnsureMine(ctx context.Context, mySteamId uint64) (bool, error) {
	ctx, span := tracer.Start(ctx, "EnsureMine")
	defer span.End()

	if s.contextData == nil {
		_, err := s.GetTradePage(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "trade page scrape failed")
			return false, err
		}
	}

	var added atomic.Bool
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.fetchLimit)

	for _, app := range s.contextData.Apps.Values() {
		for _, meta := range app.RgContexts {
			if meta.AssetCount == 0 {
				continue
			}
			contextId, err := strconv.Atoi(meta.Id)
			if err != nil {
				slog.WarnContext(ctx, "skipping non-numeric context id",
					"appid", app.AppId, "contextid", meta.Id)
				continue
			}
			if s.mine.Contains(app.AppId, contextId) {
				continue
			}

			appId := app.AppId
			group.Go(func() error {
				fetched, err := s.client.FetchInventory(
					groupCtx, mySteamId,
					appId, contextId,
					s.contextData.InventoryLoadUrl,
				)
				if err != nil {
					return fmt.Errorf("app %d context %d: %w", appId, contextId, err)
				}
				err = s.mine.Insert(appId, fetched)
				if err != nil {
					return fmt.Errorf("app %d context %d: %w", appId, contextId, err)
				}
				added.Store(true)
				return nil
			})
		}
	}

	err := group.Wait()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "local inventory reconciliation failed")
		return added.Load(), err
	}
	return added.Load(), nil
}

// fetchForeignInventory is the only fetch path that needs the live
// trade session: an authenticated POST scoped to the trade, not a
// public profile GET. Comparatively expensive and rate-sensitive,
// which is why EnsureForeign guards it with a fetch-once check.
func (s *Session) fetchForeignInventory(ctx context.Context, steamId uint64, appId, contextId int) (inventory.AppContext, error) {
	ctx, span := tracer.Start(ctx, "fetchForeignInventory")
	defer span.End()
	span.SetAttributes(
		attribute.Int("appid", appId),
		attribute.Int("contextid", contextId),
	)

	res, err := s.client.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			// this endpoint wants the raw session id, unlike
			// the command endpoints
			"sessionid": s.sessionId,
			"steamid":   strconv.FormatUint(steamId, 10),
			"appid":     strconv.Itoa(appId),
			"contextid": strconv.Itoa(contextId),
		}).
		Post(s.baseTradeUrl + "foreigninventory")
	if err != nil {
		span.SetStatus(codes.Error, "foreigninventory request failed")
		return inventory.AppContext{}, fmt.Errorf("%w: %v", community.ErrTransport, err)
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, "foreigninventory returned non-200")
		return inventory.AppContext{}, fmt.Errorf("%w: status %d", community.ErrTransport, res.StatusCode())
	}

	fetched, err := community.DecodeAppContext(res.Body(), contextId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode foreign inventory")
		return inventory.AppContext{}, err
	}
	return fetched, nil
}

// EnsureForeign lazily fetches one (app, context) slice of the
// counterparty's inventory, exactly once per pair for the lifetime of
// the session. Returns false when the pair was already present (no
// network traffic), true when new data was fetched and inserted.
func (s *Session) EnsureForeign(ctx context.Context, steamId uint64, appId, contextId int) (bool, error) {
	ctx, span := tracer.Start(ctx, "EnsureForeign")
	defer span.End()

	if s.theirs.Contains(appId, contextId) {
		return false, nil
	}

	fetched, err := s.fetchForeignInventory(ctx, steamId, appId, contextId)
	if err != nil {
		return false, err
	}

	err = s.theirs.Insert(appId, fetched)
	if err != nil {
		// a duplicate here means we double-fetched, which the
		// contains check above is supposed to prevent
		span.RecordError(err)
		span.SetStatus(codes.Error, "invariant violation inserting foreign inventory")
		return false, err
	}

	slog.DebugContext(ctx, "fetched foreign inventory",
		"appid", appId,
		"contextid", contextId,
		"items", len(fetched.Items),
	)
	return true, nil
}
