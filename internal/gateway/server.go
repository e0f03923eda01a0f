// Offline-first gateway: every request is tried against the live network
// first, and only a transport-level failure falls back to the precached
// store. The fetch path never writes to the store.
package gateway

import (
	"fmt"
	"net/http"

	"github.com/elazarl/goproxy"
	"github.com/sirupsen/logrus"

	"github.com/immowatch/offcache/internal/cache"
	"github.com/immowatch/offcache/internal/cache/httpcache"
	"github.com/immowatch/offcache/internal/config"
)

// Server represents the offline gateway proxy server
type Server struct {
	config    *config.Config
	cache     *httpcache.HTTPCache
	proxy     *goproxy.ProxyHttpServer
	transport http.RoundTripper
}

// New creates a new gateway server backed by the given store
func New(cfg *config.Config, store cache.Store) (*Server, error) {
	timeout, err := cfg.GetOriginTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid origin timeout: %w", err)
	}

	s := &Server{
		config: cfg,
		cache:  httpcache.New(store),
		proxy:  goproxy.NewProxyHttpServer(),
		transport: &http.Transport{
			ResponseHeaderTimeout: timeout,
		},
	}

	s.setupHTTPSProxyHandler()
	s.proxy.OnRequest().DoFunc(s.handleFetch)

	return s, nil
}

// GetProxy returns the underlying goproxy handler (exported for testing)
func (s *Server) GetProxy() *goproxy.ProxyHttpServer {
	return s.proxy
}

// Start starts the gateway server
func (s *Server) Start() error {
	if addr := s.config.Server.HTTPS.TransparentAddr; addr != "" {
		go s.StartTransparentHTTPS(addr)
	}

	logrus.Infof("Starting offline gateway on port %d", s.config.Server.Port)
	logrus.Infof("Cache store: %s (%s backend)", s.config.Cache.Name, s.config.Cache.Backend)

	return http.ListenAndServe(fmt.Sprintf(":%d", s.config.Server.Port), s.proxy)
}

// handleFetch is the per-request path: network first, cache fallback on
// transport failure only. HTTP error statuses from a live network pass
// through untouched.
func (s *Server) handleFetch(req *http.Request, ctx *goproxy.ProxyCtx) (*http.Request, *http.Response) {
	// Server-side requests carry RequestURI, which client transports reject
	outReq := req.Clone(req.Context())
	outReq.RequestURI = ""

	resp, err := s.transport.RoundTrip(outReq)
	if err == nil {
		resp.Header.Set("X-Cache", "MISS")
		logrus.Debugf("Forwarded request: %s %s -> %d", req.Method, req.URL, resp.StatusCode)
		return req, resp
	}

	logrus.Debugf("Network fetch failed for %s %s: %v", req.Method, req.URL, err)

	if cached := s.getCachedResponse(req); cached != nil {
		logrus.Infof("Serving from cache: %s", req.URL)
		return req, cached
	}

	logrus.Warnf("Offline and not cached: %s %s", req.Method, req.URL)
	unresolved := goproxy.NewResponse(req, goproxy.ContentTypeText, http.StatusGatewayTimeout,
		"offline and not cached\n")
	unresolved.Header.Set("X-Cache", "MISS")
	return req, unresolved
}

// getCachedResponse returns the precached response for a request, or nil
func (s *Server) getCachedResponse(req *http.Request) *http.Response {
	resp, err := s.cache.GetReq(req)
	if err != nil {
		logrus.Errorf("Failed to get cached data for %s: %v", req.URL, err)
		return nil
	}
	if resp == nil {
		logrus.Debugf("No cached data found for %s", req.URL)
		return nil
	}

	resp.Header.Set("X-Cache", "HIT")

	return resp
}
