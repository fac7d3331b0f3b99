package community

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"steamtrade/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	cleanup := telemetry.SetupForTesting(t, "test:scrapers/steam/community")
	t.Cleanup(cleanup)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)
	return client, server
}

func TestResolveVanityAliasRedirect(t *testing.T) {
	var server *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/profiles/76561198000000002", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", server.URL+"/id/somename/")
		w.WriteHeader(http.StatusFound)
	})

	client, s := newTestClient(t, mux)
	server = s

	alias, hasVanity, err := client.ResolveVanityAlias(context.Background(), 76561198000000002)
	require.NoError(t, err)
	require.True(t, hasVanity)
	require.Equal(t, "somename", alias)
}

func TestResolveVanityAliasNoRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/profiles/76561198000000002", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>profile</html>")
	})

	client, _ := newTestClient(t, mux)

	alias, hasVanity, err := client.ResolveVanityAlias(context.Background(), 76561198000000002)
	require.NoError(t, err)
	require.False(t, hasVanity)
	require.Equal(t, "", alias)
}

func TestFetchInventoryFallsBackToNumericId(t *testing.T) {
	var fetchedPath string

	mux := http.NewServeMux()
	mux.HandleFunc("/profiles/76561198000000002", func(w http.ResponseWriter, r *http.Request) {
		// no redirect: the profile has no vanity alias
		fmt.Fprint(w, "<html>profile</html>")
	})
	mux.HandleFunc("/id/76561198000000002/inventory/json/440/2/", func(w http.ResponseWriter, r *http.Request) {
		fetchedPath = r.URL.Path
		require.Equal(t, "1", r.URL.Query().Get("trading"))
		fmt.Fprint(w, `{"success":true,"rgInventory":{"1":{"id":"1","classid":"2","instanceid":"0","amount":"1","pos":1}}}`)
	})

	client, _ := newTestClient(t, mux)

	appCtx, err := client.FetchInventory(context.Background(), 76561198000000002, 440, 2, "")
	require.NoError(t, err)
	require.Equal(t, "/id/76561198000000002/inventory/json/440/2/", fetchedPath)
	require.Equal(t, 2, appCtx.ContextId)
	require.Len(t, appCtx.Items, 1)
}

func TestFetchInventoryUsesVanityAlias(t *testing.T) {
	var server *httptest.Server

	mux := http.NewServeMux()
	mux.HandleFunc("/profiles/76561198000000002", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", server.URL+"/id/somename/")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/id/somename/inventory/json/440/2/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"rgInventory":{}}`)
	})

	client, s := newTestClient(t, mux)
	server = s

	appCtx, err := client.FetchInventory(context.Background(), 76561198000000002, 440, 2, "")
	require.NoError(t, err)
	require.Equal(t, 2, appCtx.ContextId)
	require.Empty(t, appCtx.Items)
}

func TestFetchInventoryLoadUrlHintSkipsProbe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/profiles/76561198000000002", func(w http.ResponseWriter, r *http.Request) {
		t.Error("the vanity probe must not run when a load URL hint is present")
	})
	mux.HandleFunc("/hinted/inventory/json/440/2/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"rgInventory":{}}`)
	})

	client, server := newTestClient(t, mux)

	hint := server.URL + "/hinted/inventory/json/"
	_, err := client.FetchInventory(context.Background(), 76561198000000002, 440, 2, hint)
	require.NoError(t, err)
}

func TestFetchInventoryFailureIsNotEmptyInventory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/hinted/inventory/json/440/2/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false}`)
	})

	client, server := newTestClient(t, mux)
	hint := server.URL + "/hinted/inventory/json/"

	_, err := client.FetchInventory(context.Background(), 76561198000000002, 440, 2, hint)
	require.True(t, errors.Is(err, ErrServiceRefused))
	require.True(t, errors.Is(err, ErrUnavailable))
}

func TestFetchInventoryDecodeFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/hinted/inventory/json/440/2/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>not json</html>`)
	})

	client, server := newTestClient(t, mux)
	hint := server.URL + "/hinted/inventory/json/"

	_, err := client.FetchInventory(context.Background(), 76561198000000002, 440, 2, hint)
	require.True(t, errors.Is(err, ErrDecode))
	require.True(t, errors.Is(err, ErrUnavailable))
}

func TestFetchInventoryEmptyIsNotFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/hinted/inventory/json/440/2/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"rgInventory":{}}`)
	})

	client, server := newTestClient(t, mux)
	hint := server.URL + "/hinted/inventory/json/"

	appCtx, err := client.FetchInventory(context.Background(), 76561198000000002, 440, 2, hint)
	require.NoError(t, err)
	require.Empty(t, appCtx.Items)
}
