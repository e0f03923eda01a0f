package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immowatch/offcache/internal/cache"
	"github.com/immowatch/offcache/internal/cache/httpcache"
	"github.com/immowatch/offcache/internal/config"
)

func fixtureConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Origin: config.OriginConfig{Timeout: "5s", Retries: 1},
		Cache:  config.CacheConfig{Name: "bungalows-v1", Backend: config.BackendMemory, TTL: "0"},
	}
}

// fixtureGateway starts the gateway as a test proxy and returns a client
// routed through it
func fixtureGateway(t *testing.T, store cache.Store) *http.Client {
	t.Helper()

	server, err := New(fixtureConfig(), store)
	require.NoError(t, err)

	proxyServer := httptest.NewServer(server.GetProxy())
	t.Cleanup(proxyServer.Close)

	proxyURL, err := url.Parse(proxyServer.URL)
	require.NoError(t, err)

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		},
		Timeout: 10 * time.Second,
	}
}

// seedCache stores a canned 200 response for the given URL
func seedCache(t *testing.T, store cache.Store, targetURL, body string) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, targetURL, nil)
	require.NoError(t, err)

	resp := &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}

	require.NoError(t, httpcache.New(store).SetReq(req, resp))
}

func TestNetworkSuccessPassesThrough(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("live response"))
	}))
	defer origin.Close()

	store := cache.NewMemory(0)
	client := fixtureGateway(t, store)

	resp, err := client.Get(origin.URL + "/index.html")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "live response", string(body))
}

func TestErrorStatusPassesThroughWithoutFallback(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer origin.Close()

	// Even with a cached entry for the same URL, a live 404 wins
	store := cache.NewMemory(0)
	seedCache(t, store, origin.URL+"/index.html", "cached copy")

	client := fixtureGateway(t, store)

	resp, err := client.Get(origin.URL + "/index.html")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "cached copy")
}

func TestOfflineFallbackServesCache(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	originURL := origin.URL
	origin.Close() // origin is now unreachable

	store := cache.NewMemory(0)
	seedCache(t, store, originURL+"/index.html", "cached copy")

	client := fixtureGateway(t, store)

	resp, err := client.Get(originURL + "/index.html")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "cached copy", string(body))
}

func TestOfflineMissIsGatewayTimeout(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	originURL := origin.URL
	origin.Close()

	store := cache.NewMemory(0)
	client := fixtureGateway(t, store)

	resp, err := client.Get(originURL + "/never-cached.html")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))
}

func TestFetchPathNeverWritesToStore(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("live response"))
	}))
	defer origin.Close()

	store := cache.NewMemory(0)
	client := fixtureGateway(t, store)

	resp, err := client.Get(origin.URL + "/index.html")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, 0, store.Len(), "live traffic must not refresh the store")

	// The same request offline is still a miss
	origin.Close()
	resp, err = client.Get(origin.URL + "/index.html")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
}
