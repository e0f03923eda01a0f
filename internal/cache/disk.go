package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

// zstd frame magic, used to sniff compressed entries on read so a store
// written with compression off can later be read with it on (and back).
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// DiskStore implements Store on the filesystem, one file per entry,
// rooted at <folder>/<name> so each store version gets its own directory.
type DiskStore struct {
	dir      string
	ttl      time.Duration
	compress bool
}

// NewDisk creates a disk store for the given version name under folder.
// A ttl of 0 means entries never expire.
func NewDisk(folder, name string, ttl time.Duration, compress bool) *DiskStore {
	return &DiskStore{
		dir:      filepath.Join(folder, name),
		ttl:      ttl,
		compress: compress,
	}
}

// Dir returns the directory this store version lives in
func (d *DiskStore) Dir() string {
	return d.dir
}

// Get retrieves a cached entry if it exists and is not expired
func (d *DiskStore) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	path := filepath.Join(d.dir, key)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat cache entry: %w", err)
	}

	if d.ttl > 0 && time.Since(info.ModTime()) > d.ttl {
		// Entry expired, remove it
		if err := os.Remove(path); err != nil {
			logrus.Errorf("Failed to remove expired cache entry %s: %v", path, err)
		}
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cache entry: %w", err)
	}

	if bytes.HasPrefix(data, zstdMagic) {
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer decoder.Close()

		data, err = decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress cache entry: %w", err)
		}
	}

	return data, nil
}

// Set stores an entry in the cache
func (d *DiskStore) Set(key string, value []byte) error {
	if key == "" {
		return nil
	}

	path := filepath.Join(d.dir, key)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	if d.compress {
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("create zstd encoder: %w", err)
		}
		value = encoder.EncodeAll(value, nil)
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("close zstd encoder: %w", err)
		}
	}

	if err := os.WriteFile(path, value, 0644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}

	logrus.Debugf("Stored cache entry: %s", path)
	return nil
}

// Delete removes an entry from the cache
func (d *DiskStore) Delete(key string) error {
	if key == "" {
		return nil
	}

	err := os.Remove(filepath.Join(d.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Init ensures the store directory exists
func (d *DiskStore) Init() error {
	return os.MkdirAll(d.dir, 0755)
}
