package cd

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/formgate/internal/fault"
	"github.com/dropDatabas3/formgate/internal/forms"
)

func testSubmission() forms.Submission {
	return forms.Submission{
		AppID:   "newsletter",
		Confirm: "a@x.com",
		Lang:    "de",
		Fields: map[string]string{
			"appid":   "newsletter",
			"confirm": "a@x.com",
			"lang":    "de",
			"name":    "Ada",
		},
	}
}

func TestSubscribe_TwoSteps(t *testing.T) {
	var subscribeForm url.Values
	var confirmQuery url.Values
	var confirmForm url.Values

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.URL.Path {
		case "/subscribe-api":
			subscribeForm = r.PostForm
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id": 42}`))
		case "/command/confirm":
			confirmQuery = r.URL.Query()
			confirmForm = r.PostForm
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", time.Second)
	cfg := map[string]string{
		"name1":              "name",
		"signed_petition_on": "<date>",
		"wants_news_info":    "confirm", // presente → diferido al confirm
		"absent":             "nope",    // campo ausente → se saltea
	}
	require.NoError(t, c.Subscribe(context.Background(), cfg, testSubmission()))

	// Paso 1: datos de registración, sin los parámetros diferidos.
	require.Equal(t, "campaign:newsletter", subscribeForm.Get("referrer"))
	require.Equal(t, "a@x.com", subscribeForm.Get("email1"))
	require.Equal(t, "de", subscribeForm.Get("language"))
	require.Equal(t, "Ada", subscribeForm.Get("name1"))
	require.Empty(t, subscribeForm.Get("signed_petition_on"))
	require.Empty(t, subscribeForm.Get("absent"))

	// Paso 2: diferidos + persona + firma en el query; "go" en el form.
	require.Equal(t, "42", confirmQuery.Get("person"))
	require.Equal(t, time.Now().Format("2006-01-02"), confirmQuery.Get("signed_petition_on"))
	require.Equal(t, "a@x.com", confirmQuery.Get("wants_news_info"))
	require.Equal(t, "1", confirmForm.Get("go"))

	// La firma cubre los parámetros diferidos ordenados más la passphrase.
	parts := []string{"command=persons.confirm", "record_id=42"}
	keys := []string{"signed_petition_on", "wants_news_info"}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+"="+confirmQuery.Get(k))
	}
	parts = append(parts, "secret")
	sum := sha256.Sum256([]byte(strings.Join(parts, ";")))
	require.Equal(t, hex.EncodeToString(sum[:]), confirmQuery.Get("signature"))
}

func TestSubscribe_SubscribeErrorPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("<html>already exists</html>"))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", time.Second)
	err := c.Subscribe(context.Background(), nil, testSubmission())

	up, ok := fault.AsUpstream(err)
	require.True(t, ok)
	require.Equal(t, http.StatusConflict, up.StatusCode)
	require.Equal(t, "<html>already exists</html>", up.Body)
}

func TestSubscribe_ConfirmErrorPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/subscribe-api" {
			_, _ = w.Write([]byte(`{"id": "p-7"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad signature"))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", time.Second)
	err := c.Subscribe(context.Background(), nil, testSubmission())

	up, ok := fault.AsUpstream(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, up.StatusCode)
	require.Equal(t, "bad signature", up.Body)
}

func TestSubscribe_TimeoutBecomesUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", 20*time.Millisecond)
	err := c.Subscribe(context.Background(), nil, testSubmission())

	up, ok := fault.AsUpstream(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadGateway, up.StatusCode)
}
