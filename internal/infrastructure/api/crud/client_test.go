package crud

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/svarogrud/ctrlup-aht/internal/infrastructure/logger"
)

type captured struct {
	method string
	path   string
	query  string
	host   string
	auth   []string
	body   map[string]any
}

func newServer(t *testing.T, got *captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.host = r.Host
		got.auth = r.Header.Values("Authorization")
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &got.body)
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[]}`)
	}))
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T, serviceURL, token string) *Client {
	t.Helper()
	c, err := New(ServiceConfig{ServiceURL: serviceURL, Token: token, Timeout: 5 * time.Second}, logger.NewNop())
	require.NoError(t, err)
	return c
}

func TestNew_InvalidServiceURL(t *testing.T) {
	for _, raw := range []string{"", "airportgap.com", "/api", "://bad"} {
		_, err := New(ServiceConfig{ServiceURL: raw}, logger.NewNop())
		assert.ErrorIs(t, err, ErrInvalidServiceURL, raw)
	}
}

func TestClient_Get(t *testing.T) {
	var got captured
	server := newServer(t, &got)
	c := newClient(t, server.URL, "")

	resp, err := c.Get(context.Background(), "/api/airports", url.Values{"page": {"2"}})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/api/airports", got.path)
	assert.Equal(t, "page=2", got.query)
	assert.Empty(t, got.auth, "no token, no header")
}

func TestClient_Post_SendsJSONAndToken(t *testing.T) {
	var got captured
	server := newServer(t, &got)
	c := newClient(t, server.URL, "Bearer token=xyz")

	resp, err := c.Post(context.Background(), "/api/airports/distance",
		map[string]string{"from": "KIX", "to": "NRT"}, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, []string{"Bearer token=xyz"}, got.auth, "token is sent verbatim")
	assert.Equal(t, map[string]any{"from": "KIX", "to": "NRT"}, got.body)
}

func TestClient_URL_KeepsServiceHost(t *testing.T) {
	c := newClient(t, "https://airportgap.com/ignored/base?x=1", "")

	assert.Equal(t, "https://airportgap.com/api/airports", c.URL("/api/airports", nil))
	assert.Equal(t, "https://airportgap.com/api/airports", c.URL("api/airports", nil))
	assert.Equal(t, "https://airportgap.com/api/airports?page=3", c.URL("/api/airports", url.Values{"page": {"3"}}))

	hijack, err := url.Parse(c.URL("https://evil.example/steal", nil))
	require.NoError(t, err)
	assert.Equal(t, "airportgap.com", hijack.Host)
	assert.Equal(t, "https", hijack.Scheme)

	hijack, err = url.Parse(c.URL("//evil.example/steal", nil))
	require.NoError(t, err)
	assert.Equal(t, "airportgap.com", hijack.Host)
}

func TestClient_HostOverrideNeverReachesAnotherServer(t *testing.T) {
	var got captured
	server := newServer(t, &got)
	c := newClient(t, server.URL, "")

	resp, err := c.Get(context.Background(), "http://example.invalid/api/airports", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "/http://example.invalid/api/airports", got.path)
}

func TestClient_UnsupportedVerbs(t *testing.T) {
	c := newClient(t, "https://airportgap.com", "")
	ctx := context.Background()

	_, err := c.Put(ctx, "/api/favorites/1", map[string]string{"note": "x"}, nil)
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = c.Patch(ctx, "/api/favorites/1", nil, nil)
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = c.Delete(ctx, "/api/favorites/1", nil)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestClient_KeepsCookiesAcrossRequests(t *testing.T) {
	var cookies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil {
			cookies = append(cookies, c.Value)
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
	}))
	defer server.Close()
	c := newClient(t, server.URL, "")

	for i := 0; i < 2; i++ {
		resp, err := c.Get(context.Background(), "/", nil)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, []string{"abc"}, cookies)
}

func TestClient_LogsRequestAndResponse(t *testing.T) {
	var got captured
	server := newServer(t, &got)
	core, logs := observer.New(zapcore.DebugLevel)
	c, err := New(ServiceConfig{ServiceURL: server.URL}, logger.FromZap(zap.New(core)))
	require.NoError(t, err)

	resp, err := c.Post(context.Background(), "/api/airports/distance", map[string]string{"from": "KIX"}, nil)
	require.NoError(t, err)
	resp.Body.Close()

	requests := logs.FilterMessage("HTTP Request").All()
	require.Len(t, requests, 1)
	assert.Equal(t, `{"from":"KIX"}`, requests[0].ContextMap()["body"])
	assert.Equal(t, "api", requests[0].LoggerName)

	responses := logs.FilterMessage("HTTP Response").All()
	require.Len(t, responses, 1)
	assert.EqualValues(t, http.StatusOK, responses[0].ContextMap()["status"])
}

func TestClient_ContextCanceled(t *testing.T) {
	var got captured
	server := newServer(t, &got)
	c := newClient(t, server.URL, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, "/api/airports", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
