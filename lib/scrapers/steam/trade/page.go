package trade

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"steamtrade/lib/htmlutil"
	"steamtrade/lib/keyedindex"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

// ErrMalformedContextData means the trade page carried a context map
// that did not decode. Fatal to the scrape that hit it, not to the
// session; the next scrape attempt is independent.
var ErrMalformedContextData = errors.New("malformed app context data")

// ContextMeta describes one context of an app as advertised by the
// trade page; AssetCount decides whether the context is worth fetching.
type ContextMeta struct {
	Id         string `json:"id"`
	Name       string `json:"name"`
	AssetCount int    `json:"asset_count"`
}

type AppMeta struct {
	AppId int    `json:"appid"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Link  string `json:"link"`
	// keyed by textual context id
	RgContexts map[string]ContextMeta `json:"rgContexts"`
}

// AppContextData is the structured state the trade page embeds as
// inline script variables.
type AppContextData struct {
	Apps                 *keyedindex.Index[int, AppMeta]
	IsPartnerOnProbation bool
	InventoryLoadUrl     string
}

func NewAppMetaIndex() *keyedindex.Index[int, AppMeta] {
	return keyedindex.New(func(m AppMeta) int { return m.AppId })
}

// the index keeps the app id inside each AppMeta, so the wire shape is
// just the values in insertion order
type appContextDataWire struct {
	Apps                 []AppMeta `json:"apps"`
	IsPartnerOnProbation bool      `json:"is_partner_on_probation"`
	InventoryLoadUrl     string    `json:"inventory_load_url"`
}

func (d AppContextData) MarshalJSON() ([]byte, error) {
	var apps []AppMeta
	if d.Apps != nil {
		apps = d.Apps.Values()
	}
	return json.Marshal(appContextDataWire{
		Apps:                 apps,
		IsPartnerOnProbation: d.IsPartnerOnProbation,
		InventoryLoadUrl:     d.InventoryLoadUrl,
	})
}

func (d *AppContextData) UnmarshalJSON(b []byte) error {
	var w appContextDataWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	d.Apps = NewAppMetaIndex()
	for _, app := range w.Apps {
		if err := d.Apps.Insert(app); err != nil {
			return err
		}
	}
	d.IsPartnerOnProbation = w.IsPartnerOnProbation
	d.InventoryLoadUrl = w.InventoryLoadUrl
	return nil
}

// the three assignments the official trade page inlines into script
// blocks; everything else in those scripts is noise
const (
	contextDataPrefix  = "var g_rgAppContextData = "
	probationPrefix    = "var g_bTradePartnerProbation = "
	inventoryUrlPrefix = "var g_strInventoryLoadURL = '"
)

// ParseTradePage recovers AppContextData from the raw trade page HTML.
// Pure parse: statements are script text split on ";", matched against
// the three known assignment prefixes. A page with no matching
// statements yields the zero-ish default without error, partial data
// is normal; a context map that fails to decode is an error.
func ParseTradePage(html []byte) (AppContextData, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return AppContextData{}, err
	}

	data := AppContextData{Apps: NewAppMetaIndex()}

	for _, script := range htmlutil.ScriptTexts(doc) {
		for _, statement := range strings.Split(script, ";") {
			if idx := strings.Index(statement, contextDataPrefix); idx >= 0 {
				payload := statement[idx+len(contextDataPrefix):]
				// root is a bare object keyed by textual
				// app ids, there is no named field to
				// decode into
				var apps map[string]AppMeta
				err := json.Unmarshal([]byte(payload), &apps)
				if err != nil {
					return AppContextData{}, fmt.Errorf("%w: %v", ErrMalformedContextData, err)
				}
				for _, meta := range apps {
					err := data.Apps.Insert(meta)
					if err != nil {
						return AppContextData{}, fmt.Errorf("%w: %v", ErrMalformedContextData, err)
					}
				}
			}

			if idx := strings.Index(statement, probationPrefix); idx >= 0 {
				payload := strings.TrimSpace(statement[idx+len(probationPrefix):])
				probation, err := strconv.ParseBool(payload)
				if err == nil {
					data.IsPartnerOnProbation = probation
				}
			}

			if idx := strings.Index(statement, inventoryUrlPrefix); idx >= 0 {
				payload := statement[idx+len(inventoryUrlPrefix):]
				// the URL is single-quoted; the terminator is
				// the last quote in the statement, not the
				// next one
				end := strings.LastIndex(payload, "'")
				if end > 0 {
					data.InventoryLoadUrl = payload[:end]
				}
			}
		}
	}

	return data, nil
}

// GetTradePage fetches the trade window HTML and scrapes the app
// context map, the partner probation flag and the inventory load URL
// out of its inline scripts. The result is retained on the session for
// reconciliation.
func (s *Session) GetTradePage(ctx context.Context) (AppContextData, error) {
	ctx, span := tracer.Start(ctx, "GetTradePage")
	defer span.End()

	res, err := s.client.Http.R().
		SetContext(ctx).
		Get(s.baseTradeUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch trade page")
		return AppContextData{}, err
	}

	data, err := ParseTradePage(res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to scrape trade page")
		return AppContextData{}, err
	}

	s.contextData = &data
	return data, nil
}
