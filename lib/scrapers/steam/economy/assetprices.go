// Package economy fetches the read-only asset price catalogs published
// by the ISteamEconomy web API. Catalogs are built once by the
// orchestration layer and injected into whatever needs to map a remote
// class id onto a local definition index.
package economy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"steamtrade/lib/keyedindex"
	"steamtrade/lib/scrapers/steam/wire"
	"steamtrade/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/steam/economy")

const DefaultApiBaseUrl = "http://api.steampowered.com"

// ValidAppIds is the fixed whitelist of apps the price API publishes
// catalogs for.
var ValidAppIds = []int{440, 520, 570, 620, 816, 205790}

var ErrUnsupportedApp = errors.New("app id is not in the supported price catalog whitelist")

type Client struct {
	Http   *resty.Client
	apiKey string
}

type ClientOptions struct {
	ApiKey string
	// defaults to DefaultApiBaseUrl
	BaseUrl string
}

func NewClient(opts ClientOptions) *Client {
	base := opts.BaseUrl
	if base == "" {
		base = DefaultApiBaseUrl
	}

	client := resty.New()
	client.SetBaseURL(base)
	client.SetTimeout(time.Second * 30)
	telemetry.InstrumentResty(client, "scrapers/steam/economy/http")

	return &Client{Http: client, apiKey: opts.ApiKey}
}

type Currencies struct {
	USD int `json:"USD"`
	GBP int `json:"GBP"`
	EUR int `json:"EUR"`
	RUB int `json:"RUB"`
	BRL int `json:"BRL"`
}

type AssetClass struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Asset struct {
	Prices         Currencies   `json:"prices"`
	OriginalPrices Currencies   `json:"original_prices"`
	Name           string       `json:"name"`
	Date           string       `json:"date"`
	Class          []AssetClass `json:"class"`
	ClassId        string       `json:"classid"`
	// tag shapes differ between apps, appid 816 in particular
	Tags   wire.LooseStrings `json:"tags"`
	TagIds wire.LooseStrings `json:"tag_ids"`
}

type PriceResult struct {
	Success wire.Truthy       `json:"success"`
	Assets  []Asset           `json:"assets"`
	Tags    wire.LooseStrings `json:"tags"`
	TagIds  wire.LooseStrings `json:"tag_ids"`
}

// AssetPrices is one app's price catalog plus the derived
// classid → def_index mapping.
type AssetPrices struct {
	AppId  int         `json:"-"`
	Result PriceResult `json:"result"`

	classIds map[string]int
}

// DefindexForClassId maps a remote class id onto the local definition
// index. A miss is a normal condition, it usually just means the local
// schema is stale.
func (p *AssetPrices) DefindexForClassId(classId string) (int, bool) {
	defindex, ok := p.classIds[classId]
	if !ok {
		return -1, false
	}
	return defindex, true
}

// buildClassIds derives the classid → def_index map from the asset
// classes named def_index.
func (p *AssetPrices) buildClassIds() {
	p.classIds = map[string]int{}
	for _, asset := range p.Result.Assets {
		for _, class := range asset.Class {
			if class.Name != "def_index" {
				continue
			}
			defindex, err := strconv.Atoi(class.Value)
			if err != nil {
				continue
			}
			p.classIds[asset.ClassId] = defindex
		}
	}
}

// FetchAssetPrices retrieves and indexes the price catalog of one
// whitelisted app.
func (c *Client) FetchAssetPrices(ctx context.Context, appId int, language string) (*AssetPrices, error) {
	ctx, span := tracer.Start(ctx, "FetchAssetPrices")
	defer span.End()
	span.SetAttributes(attribute.Int("appid", appId))

	if !slices.Contains(ValidAppIds, appId) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedApp, appId)
	}

	req := c.Http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetQueryParam("appid", strconv.Itoa(appId))
	if language != "" {
		req.SetQueryParam("language", language)
	}

	res, err := req.Get("/ISteamEconomy/GetAssetPrices/v0001/")
	if err != nil {
		span.SetStatus(codes.Error, "asset price request failed")
		return nil, err
	}

	prices := &AssetPrices{AppId: appId}
	err = json.Unmarshal(res.Body(), prices)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode asset prices")
		return nil, err
	}
	if !bool(prices.Result.Success) {
		span.SetStatus(codes.Error, "asset price api reported failure")
		return nil, fmt.Errorf("asset price api reported failure for app %d", appId)
	}

	prices.buildClassIds()
	return prices, nil
}

func NewCatalogIndex() *keyedindex.Index[int, *AssetPrices] {
	return keyedindex.New(func(p *AssetPrices) int { return p.AppId })
}

// FetchAllAssetPrices builds the full catalog table across the
// whitelist, keyed by app id.
func (c *Client) FetchAllAssetPrices(ctx context.Context, language string) (*keyedindex.Index[int, *AssetPrices], error) {
	ctx, span := tracer.Start(ctx, "FetchAllAssetPrices")
	defer span.End()

	catalogs := NewCatalogIndex()
	for _, appId := range ValidAppIds {
		prices, err := c.FetchAssetPrices(ctx, appId, language)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch catalog")
			return nil, err
		}
		err = catalogs.Insert(prices)
		if err != nil {
			return nil, err
		}
	}
	return catalogs, nil
}
