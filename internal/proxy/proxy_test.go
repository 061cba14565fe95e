package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method string
	path   string
}

func newUpstream(t *testing.T) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, recordedRequest{method: r.Method, path: r.URL.Path})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"mode":"fever"}`)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), seen...)
	}
}

func TestProxyRewritesAPIPrefix(t *testing.T) {
	upstream, seen := newUpstream(t)

	e, err := New(upstream.URL + "/")
	require.NoError(t, err)
	front := httptest.NewServer(e)
	t.Cleanup(front.Close)

	resp, err := http.Get(front.URL + "/api/mode")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"mode":"fever"}`, string(body))

	resp, err = http.Post(front.URL+"/api/simulate/fever", "application/json", strings.NewReader(""))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []recordedRequest{
		{method: http.MethodGet, path: "/mode"},
		{method: http.MethodPost, path: "/simulate/fever"},
	}, seen())
}

func TestProxyHealthzDoesNotReachUpstream(t *testing.T) {
	upstream, seen := newUpstream(t)

	e, err := New(upstream.URL)
	require.NoError(t, err)
	front := httptest.NewServer(e)
	t.Cleanup(front.Close)

	resp, err := http.Get(front.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
	assert.Empty(t, seen())
}

func TestProxyUnreachableUpstream(t *testing.T) {
	upstream, _ := newUpstream(t)
	addr := upstream.URL
	upstream.Close()

	e, err := New(addr)
	require.NoError(t, err)
	front := httptest.NewServer(e)
	t.Cleanup(front.Close)

	resp, err := http.Get(front.URL + "/api/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestNewRejectsRelativeUpstream(t *testing.T) {
	_, err := New("relay:8000")
	assert.Error(t, err)
	_, err = New("/status")
	assert.Error(t, err)
}
