package trade

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"steamtrade/lib/scrapers/steam/community"
	"steamtrade/lib/scrapers/steam/wire"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TradeAction discriminates the events the status endpoint reports.
type TradeAction int

const (
	ActionAddedItem       TradeAction = 0
	ActionRemovedItem     TradeAction = 1
	ActionToggleReady     TradeAction = 2
	ActionToggleNotReady  TradeAction = 3
	ActionOtherUserAccept TradeAction = 4
	ActionCurrencyAdded   TradeAction = 5
	ActionChat            TradeAction = 7
)

type TradeEvent struct {
	SteamId   string      `json:"steamid"`
	Action    TradeAction `json:"action"`
	Timestamp wire.Uint64 `json:"timestamp"`
	AppId     wire.Int    `json:"appid"`
	ContextId wire.Int    `json:"contextid"`
	AssetId   wire.Uint64 `json:"assetid"`
	Text      string      `json:"text"`
	Amount    string      `json:"amount"`
	OldAmount string      `json:"old_amount"`
}

type TradeCurrency struct {
	AppId      string `json:"appid"`
	CurrencyId string `json:"currencyid"`
	Amount     string `json:"amount"`
	ContextId  string `json:"contextid"`
}

// PartyStatus is one side's view within a poll response. Assets has no
// stable shape across apps, hence the loose decode.
type PartyStatus struct {
	Ready             wire.Int          `json:"ready"`
	Confirmed         wire.Int          `json:"confirmed"`
	SecSinceTouch     wire.Int          `json:"sec_since_touch"`
	ConnectionPending bool              `json:"connection_pending"`
	Assets            wire.LooseStrings `json:"assets"`
	Currency          []TradeCurrency   `json:"currency"`
}

// TradeStatus is the decoded tradestatus response. Transient: produced
// per poll, only the events and counters outlive it.
type TradeStatus struct {
	Error           string       `json:"error"`
	Success         wire.Truthy  `json:"success"`
	NewVersion      bool         `json:"newversion"`
	TradeStatusCode int64        `json:"trade_status"`
	Version         int          `json:"version"`
	LogPos          int          `json:"logpos"`
	Me              PartyStatus  `json:"me"`
	Them            PartyStatus  `json:"them"`
	Events          []TradeEvent `json:"events"`
}

// Poll asks the status endpoint what happened since the current
// logpos/version. It reports; it does not adopt. Call Adopt with the
// result before the next Poll or the service will redeliver events.
func (s *Session) Poll(ctx context.Context) (TradeStatus, error) {
	ctx, span := tracer.Start(ctx, "Poll")
	defer span.End()
	span.SetAttributes(
		attribute.Int("logpos", s.LogPos),
		attribute.Int("version", s.Version),
	)

	res, err := s.client.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"sessionid": s.sessionIdEsc,
			"logpos":    strconv.Itoa(s.LogPos),
			"version":   strconv.Itoa(s.Version),
		}).
		Post(s.baseTradeUrl + "tradestatus")
	if err != nil {
		span.SetStatus(codes.Error, "tradestatus request failed")
		return TradeStatus{}, fmt.Errorf("%w: %v", community.ErrTransport, err)
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, "tradestatus returned non-200")
		return TradeStatus{}, fmt.Errorf("%w: status %d", community.ErrTransport, res.StatusCode())
	}

	var status TradeStatus
	err = json.Unmarshal(res.Body(), &status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode tradestatus")
		return TradeStatus{}, fmt.Errorf("%w: %v", community.ErrDecode, err)
	}

	return status, nil
}

// Adopt moves the session's event-log cursor forward to what the poll
// reported. Only ever called by the session's driving loop, never by
// Poll itself.
func (s *Session) Adopt(status TradeStatus) {
	if status.Version > s.Version {
		s.Version = status.Version
	}
	if status.LogPos > s.LogPos {
		s.LogPos = status.LogPos
	}
}
