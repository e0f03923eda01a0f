package gateway

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/elazarl/goproxy"
	"github.com/inconshreveable/go-vhost"
	"github.com/sirupsen/logrus"

	"github.com/immowatch/offcache/internal/config"
)

func loadCertificate(cfg *config.Config) (*tls.Certificate, error) {
	if cfg.Server.HTTPS.CACertFile == "" || cfg.Server.HTTPS.CAKeyFile == "" {
		logrus.Debugf("No CA certificate configured, using goproxy default certificate")
		return nil, nil // Use default goproxy certificate
	}

	cert, err := tls.LoadX509KeyPair(cfg.Server.HTTPS.CACertFile, cfg.Server.HTTPS.CAKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load CA certificate and key: %w", err)
	}
	logrus.Debugf("Loaded CA certificate from %s", cfg.Server.HTTPS.CACertFile)
	return &cert, nil
}

func (s *Server) setupHTTPSProxyHandler() {
	s.proxy.CertStore = newCertStore()

	// HTTPS traffic must be intercepted, not tunneled, or the cache
	// fallback never sees the requests
	caCert, err := loadCertificate(s.config)
	if err != nil {
		logrus.Errorf("Failed to load CA certificate: %v", err)
		return
	}

	if caCert == nil {
		// Use goproxy's default certificate
		s.proxy.OnRequest().HandleConnect(goproxy.AlwaysMitm)
	} else {
		// Make goproxy use our provided CA certificate
		customCaMitm := &goproxy.ConnectAction{
			Action:    goproxy.ConnectMitm,
			TLSConfig: goproxy.TLSConfigFromCA(caCert),
		}
		customAlwaysMitm := goproxy.FuncHttpsHandler(func(host string, ctx *goproxy.ProxyCtx) (*goproxy.ConnectAction, string) {
			logrus.Debugf("Handling CONNECT request for %s", host)
			return customCaMitm, host
		})
		s.proxy.OnRequest().HandleConnect(customAlwaysMitm)
	}
}

// StartTransparentHTTPS enables transparent HTTPS proxying
func (s *Server) StartTransparentHTTPS(httpsAddr string) {
	ln, err := net.Listen("tcp", httpsAddr)
	if err != nil {
		logrus.Fatalf("Error listening for https connections - %v", err)
	}
	logrus.Infof("Transparent HTTPS listener on %s", httpsAddr)
	for {
		c, err := ln.Accept()
		if err != nil {
			logrus.Errorf("Error accepting new connection - %v", err)
			continue
		}
		go func(c net.Conn) {
			tlsConn, err := vhost.TLS(c)
			if err != nil {
				logrus.Errorf("Error accepting new connection - %v", err)
				return
			}
			if tlsConn.Host() == "" {
				logrus.Errorf("Cannot support non-SNI enabled clients")
				return
			}
			connectReq := &http.Request{
				Method: http.MethodConnect,
				URL: &url.URL{
					Opaque: tlsConn.Host(),
					Host:   net.JoinHostPort(tlsConn.Host(), "443"),
				},
				Host:       tlsConn.Host(),
				Header:     make(http.Header),
				RemoteAddr: c.RemoteAddr().String(),
			}
			resp := dumbResponseWriter{tlsConn}
			s.proxy.ServeHTTP(resp, connectReq)
		}(c)
	}
}

// dumbResponseWriter feeds a hijacked TLS connection through the proxy's
// CONNECT path
type dumbResponseWriter struct {
	net.Conn
}

func (dumb dumbResponseWriter) Header() http.Header {
	panic("Header() should not be called on this ResponseWriter")
}

func (dumb dumbResponseWriter) Write(buf []byte) (int, error) {
	if bytes.Equal(buf, []byte("HTTP/1.0 200 OK\r\n\r\n")) {
		// throw away the HTTP OK response from the faux CONNECT request
		return len(buf), nil
	}
	return dumb.Conn.Write(buf)
}

func (dumb dumbResponseWriter) WriteHeader(code int) {
	panic("WriteHeader() should not be called on this ResponseWriter")
}

func (dumb dumbResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return dumb.Conn, bufio.NewReadWriter(bufio.NewReader(dumb.Conn), bufio.NewWriter(dumb.Conn)), nil
}
