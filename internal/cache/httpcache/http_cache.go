// Maps HTTP requests onto store keys and (de)serializes responses,
// so a store entry can answer the same request later.
package httpcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/immowatch/offcache/internal/cache"
)

type HTTPCache struct {
	store cache.Store
}

func New(store cache.Store) *HTTPCache {
	return &HTTPCache{
		store: store,
	}
}

// GenerateKey builds the store key for a request: host/path/METHOD[_q<hash>].bin.
// The scheme is ignored and default ports are trimmed, so the same page asset
// keys identically over http and https.
func GenerateKey(request *http.Request) string {
	host := request.URL.Host
	if host == "" {
		host = request.Host
	}
	host = strings.TrimSuffix(strings.TrimSuffix(host, ":80"), ":443")

	pathParts := []string{host}

	if request.URL.Path != "" && request.URL.Path != "/" {
		pathParts = append(pathParts, strings.Trim(request.URL.Path, "/"))
	}

	filename := request.Method
	if request.URL.RawQuery != "" {
		// Hash query parameters to handle complex URLs
		hash := sha256.Sum256([]byte(request.URL.RawQuery))
		filename += "_q" + hex.EncodeToString(hash[:])[:8]
	}
	filename += ".bin"

	pathParts = append(pathParts, filename)

	return filepath.Join(pathParts...)
}

// SetReq stores a response keyed by its request
func (c *HTTPCache) SetReq(request *http.Request, resp *http.Response) error {
	data, err := Serialize(resp)
	if err != nil {
		return fmt.Errorf("failed to serialize response: %w", err)
	}

	if err := c.store.Set(GenerateKey(request), data); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// GetReq retrieves the cached response for a request, or nil on a miss
func (c *HTTPCache) GetReq(req *http.Request) (*http.Response, error) {
	data, err := c.store.Get(GenerateKey(req))
	if err != nil {
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}
	if data == nil {
		return nil, nil // Cache miss
	}

	resp, err := Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize response: %w", err)
	}
	// Associate the original request with the response
	resp.Request = req

	logrus.Debugf("Cache hit for %s %s", req.Method, req.URL.String())
	return resp, nil
}
