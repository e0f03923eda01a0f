// Handles storage of precached HTTP responses
package cache

// Store interface for cache store backends
type Store interface {
	// retrieves cached response data if it exists and is not expired.
	// returns nil, nil when not found or expired
	Get(key string) ([]byte, error)
	// stores response data in the cache at the specified key
	Set(key string, value []byte) error
	// removes a cached entry; removing a missing entry is not an error
	Delete(key string) error
	// initializes the store (e.g., creates necessary directories)
	Init() error
}
