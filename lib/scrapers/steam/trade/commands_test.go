package trade

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddItemSendsExplicitAppContext(t *testing.T) {
	var form map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/trade/76561198000000001/additem", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = map[string]string{
			"sessionid": r.PostFormValue("sessionid"),
			"appid":     r.PostFormValue("appid"),
			"contextid": r.PostFormValue("contextid"),
			"itemid":    r.PostFormValue("itemid"),
			"slot":      r.PostFormValue("slot"),
		}
		fmt.Fprint(w, `{"success":"true"}`)
	})

	session, _ := newTestSession(t, mux)

	ok, err := session.AddItem(context.Background(), 570, 9, 1234567890123, 0)
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, map[string]string{
		"sessionid": "c2Vzc2lvbg==",
		"appid":     "570",
		"contextid": "9",
		"itemid":    "1234567890123",
		"slot":      "0",
	}, form)
}

func TestCommandMissingSuccessFieldIsFailureNotFault(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/trade/76561198000000001/additem", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"something":"else"}`)
	})

	session, _ := newTestSession(t, mux)

	ok, err := session.AddItem(context.Background(), 440, 2, 1, 0)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommandUnparseableResponseIsFailureNotFault(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/trade/76561198000000001/removeitem", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>the service fell over</html>`)
	})

	session, _ := newTestSession(t, mux)

	ok, err := session.RemoveItem(context.Background(), 440, 2, 1, 0)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommandFalseSuccessSentinel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/trade/76561198000000001/toggleready", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "true", r.PostFormValue("ready"))
		fmt.Fprint(w, `{"success":false}`)
	})

	session, _ := newTestSession(t, mux)

	ok, err := session.SetReady(context.Background(), true)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestChatSendsCursorFields(t *testing.T) {
	var gotLogPos, gotVersion, gotMessage string

	mux := http.NewServeMux()
	mux.HandleFunc("/trade/76561198000000001/chat", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotLogPos = r.PostFormValue("logpos")
		gotVersion = r.PostFormValue("version")
		gotMessage = r.PostFormValue("message")
		fmt.Fprint(w, `{"success":true}`)
	})

	session, _ := newTestSession(t, mux)
	session.Version = 5
	session.LogPos = 9

	ok, err := session.SendChat(context.Background(), "one sec")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "9", gotLogPos)
	require.Equal(t, "5", gotVersion)
	require.Equal(t, "one sec", gotMessage)
}

func TestAcceptAndCancel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/trade/76561198000000001/confirm", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.NotEmpty(t, r.PostFormValue("version"))
		fmt.Fprint(w, `{"success":1}`)
	})
	mux.HandleFunc("/trade/76561198000000001/cancel", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":"1"}`)
	})

	session, _ := newTestSession(t, mux)

	ok, err := session.Accept(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = session.Cancel(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
}
