// Package trade drives the web-based Steam trade window protocol:
// scraping the trade page for inventory context data, polling the
// status endpoint, reconciling both parties' inventories and issuing
// trade commands. The protocol has no documented contract; everything
// here was inferred from the traffic the official web client produces.
package trade

import (
	"fmt"
	"net/url"

	"steamtrade/lib/scrapers/steam/community"
	"steamtrade/lib/scrapers/steam/inventory"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("scrapers/steam/trade")

const defaultFetchLimit = 4

// Session is one active trade window against one partner. It owns the
// session identity, the monotonic logpos/version counters and the two
// inventory trees. It is driven by a single caller loop: poll, react,
// command; the individual calls never mutate logpos/version behind the
// caller's back, adoption of a new version is an explicit step.
type Session struct {
	client *community.Client

	sessionId string
	// the unescaped form, most command endpoints want this one
	sessionIdEsc string
	partnerId    uint64
	baseTradeUrl string

	LogPos  int
	Version int

	mine   *inventory.Tree
	theirs *inventory.Tree

	// set by the first successful trade page scrape
	contextData *AppContextData

	// bound on concurrent inventory fetches during reconciliation
	fetchLimit int
}

type SessionOptions struct {
	SessionId  string
	LoginToken string
	PartnerId  uint64
	// defaults to 4
	FetchLimit int
}

// NewSession bootstraps the cookie state for a trade against the given
// partner. The session id arrives percent-escaped from the cookie it
// was lifted out of; the command endpoints want it unescaped.
func NewSession(client *community.Client, opts SessionOptions) (*Session, error) {
	sessionIdEsc, err := url.QueryUnescape(opts.SessionId)
	if err != nil {
		return nil, fmt.Errorf("malformed session id: %w", err)
	}

	client.SetSessionCookies(community.SessionCredentials{
		SessionId:  opts.SessionId,
		LoginToken: opts.LoginToken,
	})

	fetchLimit := opts.FetchLimit
	if fetchLimit <= 0 {
		fetchLimit = defaultFetchLimit
	}

	return &Session{
		client:       client,
		sessionId:    opts.SessionId,
		sessionIdEsc: sessionIdEsc,
		partnerId:    opts.PartnerId,
		baseTradeUrl: fmt.Sprintf("%s/trade/%d/", client.BaseUrl, opts.PartnerId),
		Version:      1,
		mine:         inventory.NewTree(),
		theirs:       inventory.NewTree(),
		fetchLimit:   fetchLimit,
	}, nil
}

func (s *Session) PartnerId() uint64 {
	return s.partnerId
}

// Mine is the local party's inventory tree.
func (s *Session) Mine() *inventory.Tree {
	return s.mine
}

// Theirs is the counterparty's inventory tree, filled lazily by
// EnsureForeign.
func (s *Session) Theirs() *inventory.Tree {
	return s.theirs
}

// ContextData returns the result of the last trade page scrape, or
// false if GetTradePage has not succeeded yet.
func (s *Session) ContextData() (AppContextData, bool) {
	if s.contextData == nil {
		return AppContextData{}, false
	}
	return *s.contextData, true
}
