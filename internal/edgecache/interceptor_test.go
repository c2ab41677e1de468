package edgecache

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/bunbetsu/internal/cachestore"
)

// switchable is an upstream that can be taken offline.
type switchable struct {
	mu      sync.Mutex
	offline error
	calls   atomic.Int32
	next    http.RoundTripper
}

func (s *switchable) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls.Add(1)
	s.mu.Lock()
	err := s.offline
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.next.RoundTrip(req)
}

func (s *switchable) setOffline(err error) {
	s.mu.Lock()
	s.offline = err
	s.mu.Unlock()
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func setup(t *testing.T, handler http.HandlerFunc) (*Interceptor, *switchable, *cachestore.Memory, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	up := &switchable{next: http.DefaultTransport}
	store := cachestore.NewMemory()
	ic := New(store, up, Config{BaseURL: srv.URL, Shell: []string{"/", "/static/app.js"}, MinRequests: 100}, nil)
	return ic, up, store, srv
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func get(t *testing.T, ic *Interceptor, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := ic.RoundTrip(req)
	require.NoError(t, err)
	return resp
}

func echoHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/broken" {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	if r.URL.Path == "/private" {
		w.Header().Set("Cache-Control", "no-store")
	}
	io.WriteString(w, "body:"+r.URL.Path)
}

func TestCacheFirst(t *testing.T) {
	ic, up, _, srv := setup(t, echoHandler)

	first := get(t, ic, srv.URL+"/static/app.js")
	assert.Equal(t, CacheMiss, first.Header.Get(HeaderCache))
	assert.Equal(t, "body:/static/app.js", body(t, first))

	second := get(t, ic, srv.URL+"/static/app.js")
	assert.Equal(t, CacheHit, second.Header.Get(HeaderCache))
	assert.Equal(t, "body:/static/app.js", body(t, second))
	assert.Equal(t, int32(1), up.calls.Load(), "second request must not reach the network")

	up.setOffline(errors.New("connection refused"))
	offline := get(t, ic, srv.URL+"/static/app.js")
	assert.Equal(t, http.StatusOK, offline.StatusCode)
	assert.Equal(t, "body:/static/app.js", body(t, offline))
}

func TestCacheFirst_OfflineWithoutCopy(t *testing.T) {
	ic, up, _, srv := setup(t, echoHandler)

	up.setOffline(timeoutErr{})
	resp := get(t, ic, srv.URL+"/static/missing.css")
	assert.Equal(t, http.StatusRequestTimeout, resp.StatusCode)
	assert.Equal(t, CacheSynthesize, resp.Header.Get(HeaderCache))

	up.setOffline(errors.New("connection refused"))
	resp = get(t, ic, srv.URL+"/static/missing.css")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body(t, resp), "NETWORK_UNAVAILABLE")
}

func TestNetworkFirst(t *testing.T) {
	var version atomic.Int32
	version.Store(1)
	ic, up, _, srv := setup(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, strings.Repeat("v", int(version.Load())))
	})

	resp := get(t, ic, srv.URL+"/items")
	assert.Equal(t, "v", body(t, resp))

	version.Store(2)
	resp = get(t, ic, srv.URL+"/items")
	assert.Equal(t, "vv", body(t, resp), "network-first always prefers fresh data")
	assert.Equal(t, int32(2), up.calls.Load())

	up.setOffline(errors.New("connection refused"))
	resp = get(t, ic, srv.URL+"/items")
	assert.Equal(t, CacheFallback, resp.Header.Get(HeaderCache))
	assert.Equal(t, "vv", body(t, resp), "offline serves the last stored copy")

	resp = get(t, ic, srv.URL+"/categories")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestNetworkFirst_DoesNotStoreFailuresOrNoStore(t *testing.T) {
	ic, up, store, srv := setup(t, echoHandler)

	resp := get(t, ic, srv.URL+"/broken")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()
	resp = get(t, ic, srv.URL+"/private")
	resp.Body.Close()

	b, err := store.Open(context.Background(), DefaultCacheName)
	require.NoError(t, err)
	keys, err := b.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Equal(t, int32(2), up.calls.Load())
}

func TestBypass(t *testing.T) {
	ic, up, store, srv := setup(t, echoHandler)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/admin/items", strings.NewReader("{}"))
	require.NoError(t, err)
	resp, err := ic.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, CacheBypass, resp.Header.Get(HeaderCache))
	resp.Body.Close()

	up.setOffline(errors.New("down"))
	req, err = http.NewRequest(http.MethodPost, srv.URL+"/admin/items", strings.NewReader("{}"))
	require.NoError(t, err)
	_, err = ic.RoundTrip(req)
	assert.Error(t, err, "bypassed requests surface network errors")

	names, err := store.Names(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestInstallAndActivate(t *testing.T) {
	ctx := context.Background()
	ic, up, store, srv := setup(t, echoHandler)

	for _, name := range []string{"bunbetsu-shell-v0", "bunbetsu-data-v4"} {
		_, err := store.Open(ctx, name)
		require.NoError(t, err)
	}

	require.NoError(t, ic.Install(ctx))
	deleted, err := ic.Activate(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bunbetsu-shell-v0"}, deleted)

	names, err := store.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bunbetsu-data-v4", DefaultCacheName}, names)

	up.setOffline(errors.New("down"))
	resp := get(t, ic, srv.URL+"/static/app.js")
	assert.Equal(t, "body:/static/app.js", body(t, resp), "installed shell served offline")
	resp = get(t, ic, srv.URL+"/")
	assert.Equal(t, CacheFallback, resp.Header.Get(HeaderCache))
}

func TestInstall_FailsOnBadShell(t *testing.T) {
	ic, _, _, _ := setup(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	assert.Error(t, ic.Install(context.Background()))
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(echoHandler))
	defer srv.Close()
	up := &switchable{next: http.DefaultTransport}
	ic := New(cachestore.NewMemory(), up, Config{MinRequests: 2, FailureThreshold: 0.5}, nil)

	up.setOffline(errors.New("down"))
	for range 2 {
		resp := get(t, ic, srv.URL+"/items")
		resp.Body.Close()
	}
	calls := up.calls.Load()

	up.setOffline(nil)
	resp := get(t, ic, srv.URL+"/items")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "open breaker short-circuits")
	assert.Equal(t, calls, up.calls.Load())
}

type failingStorage struct{ cachestore.Storage }

func (failingStorage) Open(context.Context, string) (cachestore.Bucket, error) {
	return nil, errors.New("disk full")
}

func TestStorageErrorsFailOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(echoHandler))
	defer srv.Close()
	ic := New(failingStorage{cachestore.NewMemory()}, nil, Config{}, nil)

	resp := get(t, ic, srv.URL+"/static/app.js")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "body:/static/app.js", body(t, resp))
}
