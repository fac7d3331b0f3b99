package community

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"steamtrade/lib/scrapers/steam/inventory"
	"steamtrade/lib/scrapers/steam/wire"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrUnavailable means the inventory was not fetched. Callers must
// never mistake it for an inventory that was fetched and is empty.
var ErrUnavailable = errors.New("inventory unavailable")

var (
	ErrTransport      = fmt.Errorf("%w: transport failure", ErrUnavailable)
	ErrDecode         = fmt.Errorf("%w: malformed response", ErrUnavailable)
	ErrServiceRefused = fmt.Errorf("%w: service reported failure", ErrUnavailable)
)

// the inventory endpoint keys its items by asset id; the map has no
// fixed schema so it must be decoded as one
type inventoryPayload struct {
	Success wire.Truthy               `json:"success"`
	Items   map[string]inventory.Item `json:"rgInventory"`
}

// DecodeAppContext turns a raw inventory payload into an AppContext
// stamped with the requested context id, since the payload itself does
// not echo it reliably. Items come out ordered by their inventory
// position.
func DecodeAppContext(body []byte, contextId int) (inventory.AppContext, error) {
	var payload inventoryPayload
	err := json.Unmarshal(body, &payload)
	if err != nil {
		return inventory.AppContext{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !bool(payload.Success) {
		return inventory.AppContext{}, ErrServiceRefused
	}

	items := make([]inventory.Item, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Pos < items[j].Pos
	})

	return inventory.AppContext{
		ContextId: contextId,
		Items:     items,
	}, nil
}

// FetchInventory retrieves one (app, context) slice of a user's own
// inventory. With no loadUrlHint (before the trade page has been
// scraped) the profile URL is resolved through the vanity alias probe,
// falling back to the numeric id. With a hint, app and context are
// appended to it directly.
func (c *Client) FetchInventory(ctx context.Context, steamId uint64, appId, contextId int, loadUrlHint string) (inventory.AppContext, error) {
	ctx, span := tracer.Start(ctx, "FetchInventory")
	defer span.End()
	span.SetAttributes(
		attribute.Int("appid", appId),
		attribute.Int("contextid", contextId),
	)

	var target string
	if loadUrlHint == "" {
		alias, hasVanity, err := c.ResolveVanityAlias(ctx, steamId)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "vanity alias probe failed")
			return inventory.AppContext{}, err
		}
		if !hasVanity {
			alias = fmt.Sprintf("%d", steamId)
		}
		target = fmt.Sprintf(
			"%s/id/%s/inventory/json/%d/%d/?trading=1",
			c.BaseUrl, alias, appId, contextId,
		)
	} else {
		target = fmt.Sprintf("%s%d/%d/?trading=1", loadUrlHint, appId, contextId)
	}

	res, err := c.Http.R().
		SetContext(ctx).
		Get(target)
	if err != nil {
		span.SetStatus(codes.Error, "inventory request failed")
		return inventory.AppContext{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, "inventory request returned non-200")
		return inventory.AppContext{}, fmt.Errorf("%w: status %d", ErrTransport, res.StatusCode())
	}

	appContext, err := DecodeAppContext(res.Body(), contextId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode inventory payload")
		return inventory.AppContext{}, err
	}
	return appContext, nil
}
