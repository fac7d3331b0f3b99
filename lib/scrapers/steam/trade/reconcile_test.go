package trade

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testInventoryPayload = `{
	"success": true,
	"rgInventory": {
		"101": {"id":"101","classid":"11","instanceid":"0","amount":"1","pos":2},
		"100": {"id":"100","classid":"10","instanceid":"0","amount":"1","pos":1}
	}
}`

func TestEnsureMineFetchesNonzeroContextsOnce(t *testing.T) {
	var inventoryFetches atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/trade/76561198000000001/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><script>var g_rgAppContextData = {"440":{"appid":440,"rgContexts":{"2":{"id":"2","asset_count":5},"3":{"id":"3","asset_count":0}}}};var g_strInventoryLoadURL = 'http://%s/profiles/me/inventory/json/';</script></html>`, r.Host)
	})
	mux.HandleFunc("/profiles/me/inventory/json/440/2/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1", r.URL.Query().Get("trading"))
		inventoryFetches.Add(1)
		fmt.Fprint(w, testInventoryPayload)
	})
	mux.HandleFunc("/profiles/me/inventory/json/440/3/", func(w http.ResponseWriter, r *http.Request) {
		t.Error("zero-asset context must not be fetched")
	})

	session, _ := newTestSession(t, mux)
	ctx := context.Background()

	added, err := session.EnsureMine(ctx, 76561198000000002)
	require.NoError(t, err)
	require.True(t, added)
	require.Equal(t, int64(1), inventoryFetches.Load())

	stored, ok := session.Mine().Get(440, 2)
	require.True(t, ok)
	require.Equal(t, 2, stored.ContextId)
	require.Len(t, stored.Items, 2)
	// items come out ordered by inventory position
	require.Equal(t, "100", stored.Items[0].Id)
	require.Equal(t, "101", stored.Items[1].Id)

	// second call with no new nonzero-asset contexts is a no-op
	added, err = session.EnsureMine(ctx, 76561198000000002)
	require.NoError(t, err)
	require.False(t, added)
	require.Equal(t, int64(1), inventoryFetches.Load())
}

func TestEnsureForeignFetchesExactlyOnce(t *testing.T) {
	var foreignFetches atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/trade/76561198000000001/foreigninventory", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		// this endpoint wants the raw session id
		require.Equal(t, "c2Vzc2lvbg%3d%3d", r.PostFormValue("sessionid"))
		require.Equal(t, "76561198000000001", r.PostFormValue("steamid"))
		require.Equal(t, "440", r.PostFormValue("appid"))
		require.Equal(t, "2", r.PostFormValue("contextid"))

		foreignFetches.Add(1)
		fmt.Fprint(w, testInventoryPayload)
	})

	session, _ := newTestSession(t, mux)
	ctx := context.Background()

	fetched, err := session.EnsureForeign(ctx, 76561198000000001, 440, 2)
	require.NoError(t, err)
	require.True(t, fetched)

	first, ok := session.Theirs().Get(440, 2)
	require.True(t, ok)

	fetched, err = session.EnsureForeign(ctx, 76561198000000001, 440, 2)
	require.NoError(t, err)
	require.False(t, fetched)
	require.Equal(t, int64(1), foreignFetches.Load())

	second, ok := session.Theirs().Get(440, 2)
	require.True(t, ok)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("stored context changed across EnsureForeign calls (-first +second):\n%s", diff)
	}
}

func TestEnsureForeignDistinctContextsFetchSeparately(t *testing.T) {
	var foreignFetches atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/trade/76561198000000001/foreigninventory", func(w http.ResponseWriter, r *http.Request) {
		foreignFetches.Add(1)
		fmt.Fprint(w, `{"success":true,"rgInventory":{}}`)
	})

	session, _ := newTestSession(t, mux)
	ctx := context.Background()

	fetched, err := session.EnsureForeign(ctx, 76561198000000001, 440, 2)
	require.NoError(t, err)
	require.True(t, fetched)

	fetched, err = session.EnsureForeign(ctx, 76561198000000001, 440, 6)
	require.NoError(t, err)
	require.True(t, fetched)

	fetched, err = session.EnsureForeign(ctx, 76561198000000001, 570, 2)
	require.NoError(t, err)
	require.True(t, fetched)

	require.Equal(t, int64(3), foreignFetches.Load())
	require.True(t, session.Theirs().Contains(440, 6))
	require.True(t, session.Theirs().Contains(570, 2))
}
