package community

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"steamtrade/lib/restyutil"
	"steamtrade/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/steam/community")

const DefaultBaseUrl = "https://steamcommunity.com"

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	// same jar as Http but never follows redirects, the vanity
	// probe needs to observe the 302 itself
	probe *resty.Client
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl
	BaseUrl string
}

func NewClient(opts ClientOptions) (*Client, error) {
	rawBase := opts.BaseUrl
	if rawBase == "" {
		rawBase = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(rawBase)
	if err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(rawBase)
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/steam/community/http")

	probe := resty.New()
	probe.SetBaseURL(rawBase)
	probe.SetCookieJar(jar)
	probe.SetRedirectPolicy(resty.NoRedirectPolicy())
	probe.SetTimeout(time.Second * 30)

	c := &Client{
		BaseUrl: baseUrl,
		Http:    client,
		probe:   probe,
	}
	return c, nil
}

// SetCaptureOutput enables raw exchange capture for debugging,
// see restyutil.InstrumentClient.
func (c *Client) SetCaptureOutput(output restyutil.InstrumentOutput) {
	restyutil.InstrumentClient(c.Http, output)
}

// SessionCredentials are the cookie-borne credentials of an already
// authenticated Steam web session.
type SessionCredentials struct {
	SessionId  string
	LoginToken string
}

// SetSessionCookies installs the trade session cookies on the shared
// jar. The tutorial and language cookies match what the official web
// client sends; the trade endpoints misbehave without them.
func (c *Client) SetSessionCookies(creds SessionCredentials) {
	cookieUrl := &url.URL{Scheme: c.BaseUrl.Scheme, Host: c.BaseUrl.Host}
	c.Http.GetClient().Jar.SetCookies(cookieUrl, []*http.Cookie{
		{Name: "sessionid", Value: creds.SessionId, Domain: c.BaseUrl.Hostname()},
		{Name: "steamLogin", Value: creds.LoginToken, Domain: c.BaseUrl.Hostname()},
		{Name: "bCompletedTradeTutorial", Value: "true", Domain: c.BaseUrl.Hostname()},
		{Name: "Steam_Language", Value: "english", Domain: c.BaseUrl.Hostname()},
	})
}

// ResolveVanityAlias checks whether the profile with the given 64-bit
// id redirects to a claimed vanity name. The redirect is inspected,
// not followed. Returns ("", false, nil) when the profile has no
// vanity alias.
func (c *Client) ResolveVanityAlias(ctx context.Context, steamId uint64) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "ResolveVanityAlias")
	defer span.End()

	res, err := c.probe.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/profiles/%d", steamId))
	if err != nil && res.StatusCode() == 0 {
		span.RecordError(err)
		span.SetStatus(codes.Error, "vanity probe request failed")
		return "", false, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	if res.StatusCode() < 300 || res.StatusCode() >= 400 {
		return "", false, nil
	}

	location := res.Header().Get("Location")
	idPrefix := c.BaseUrl.String() + "/id/"
	if !strings.HasPrefix(location, idPrefix) {
		return "", false, nil
	}
	alias := strings.TrimSuffix(strings.TrimPrefix(location, idPrefix), "/")
	return alias, alias != "", nil
}
