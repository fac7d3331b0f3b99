package trade

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"steamtrade/lib/scrapers/steam/community"
	"steamtrade/lib/scrapers/steam/wire"

	"go.opentelemetry.io/otel/codes"
)

// postCommand issues one trade mutation. The service's answer shape is
// ad hoc: success is reported only when the response parses and
// carries an explicit truthy success field, every other shape is a
// plain failure rather than a fault. Transport errors surface
// separately so the caller can tell "try again" from "declined".
func (s *Session) postCommand(ctx context.Context, endpoint string, form map[string]string) (bool, error) {
	ctx, span := tracer.Start(ctx, "command:"+endpoint)
	defer span.End()

	res, err := s.client.Http.R().
		SetContext(ctx).
		SetFormData(form).
		Post(s.baseTradeUrl + endpoint)
	if err != nil {
		span.SetStatus(codes.Error, "command request failed")
		return false, fmt.Errorf("%w: %v", community.ErrTransport, err)
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, "command returned non-200")
		return false, fmt.Errorf("%w: status %d", community.ErrTransport, res.StatusCode())
	}

	var result struct {
		Success wire.Truthy `json:"success"`
	}
	err = json.Unmarshal(res.Body(), &result)
	if err != nil {
		span.SetStatus(codes.Error, "command response did not parse")
		return false, nil
	}
	if !bool(result.Success) {
		span.SetStatus(codes.Error, "service declined command")
		return false, nil
	}
	return true, nil
}

// AddItem offers an item into the trade window. The item must belong
// to the given app and context.
func (s *Session) AddItem(ctx context.Context, appId, contextId int, itemId uint64, slot int) (bool, error) {
	return s.postCommand(ctx, "additem", map[string]string{
		"sessionid": s.sessionIdEsc,
		"appid":     strconv.Itoa(appId),
		"contextid": strconv.Itoa(contextId),
		"itemid":    strconv.FormatUint(itemId, 10),
		"slot":      strconv.Itoa(slot),
	})
}

// RemoveItem withdraws a previously offered item.
func (s *Session) RemoveItem(ctx context.Context, appId, contextId int, itemId uint64, slot int) (bool, error) {
	return s.postCommand(ctx, "removeitem", map[string]string{
		"sessionid": s.sessionIdEsc,
		"appid":     strconv.Itoa(appId),
		"contextid": strconv.Itoa(contextId),
		"itemid":    strconv.FormatUint(itemId, 10),
		"slot":      strconv.Itoa(slot),
	})
}

func (s *Session) SetReady(ctx context.Context, ready bool) (bool, error) {
	return s.postCommand(ctx, "toggleready", map[string]string{
		"sessionid": s.sessionIdEsc,
		"ready":     strconv.FormatBool(ready),
		"version":   strconv.Itoa(s.Version),
	})
}

func (s *Session) Accept(ctx context.Context) (bool, error) {
	return s.postCommand(ctx, "confirm", map[string]string{
		"sessionid": s.sessionIdEsc,
		"version":   strconv.Itoa(s.Version),
	})
}

func (s *Session) Cancel(ctx context.Context) (bool, error) {
	return s.postCommand(ctx, "cancel", map[string]string{
		"sessionid": s.sessionIdEsc,
	})
}

// SendChat posts a message to the trade window chat.
func (s *Session) SendChat(ctx context.Context, message string) (bool, error) {
	return s.postCommand(ctx, "chat", map[string]string{
		"sessionid": s.sessionIdEsc,
		"message":   message,
		"logpos":    strconv.Itoa(s.LogPos),
		"version":   strconv.Itoa(s.Version),
	})
}
