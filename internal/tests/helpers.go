package tests

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	"github.com/immowatch/offcache/internal/cache"
	"github.com/immowatch/offcache/internal/config"
	"github.com/immowatch/offcache/internal/gateway"
)

// pageAssets is the content served by the test origin, one entry per
// default precache path.
var pageAssets = map[string]string{
	"/":                     "<html>bungalow map</html>",
	"/index.html":           "<html>bungalow map</html>",
	"/manifest.webmanifest": `{"name":"bungalows","start_url":"./"}`,
	"/sw.js":                "// offline worker",
}

// fixture_origin creates a test origin serving the page assets
func fixture_origin() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, requ *http.Request) {
		body, ok := pageAssets[requ.URL.Path]
		if !ok {
			http.NotFound(w, requ)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	}))
}

// fixture_config creates a test config for the given origin and cache folder
func fixture_config(originURL, tempDir string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080},
		Origin: config.OriginConfig{
			BaseURL: originURL,
			Timeout: "5s",
			Retries: 1,
		},
		Cache: config.CacheConfig{
			Name:    config.DefaultStoreName,
			Folder:  tempDir,
			Backend: config.BackendDisk,
			TTL:     "0",
		},
		Precache: config.PrecacheConfig{
			Assets: append([]string(nil), config.DefaultAssets...),
		},
	}
}

// fixture_store creates the disk store described by the config
func fixture_store(cfg *config.Config) *cache.DiskStore {
	ttl, _ := cfg.GetCacheTTL()
	return cache.NewDisk(cfg.Cache.Folder, cfg.Cache.Name, ttl, cfg.Cache.Compress)
}

// fixture_gateway creates a gateway over the store and returns the test
// server running it and an HTTP client routed through it
func fixture_gateway(cfg *config.Config, store cache.Store) (*httptest.Server, *http.Client, error) {
	server, err := gateway.New(cfg, store)
	if err != nil {
		return nil, nil, err
	}

	gatewayServer := httptest.NewServer(server.GetProxy())

	proxyURL, _ := url.Parse(gatewayServer.URL)
	client := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		},
		Timeout: 10 * time.Second,
	}

	return gatewayServer, client, nil
}
