package cache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Generations lists the store version directories present under folder
func Generations(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache folder: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// PurgeStale deletes every store version directory under folder except
// keep, and returns the names it deleted. The active store is never touched.
func PurgeStale(folder, keep string) ([]string, error) {
	names, err := Generations(folder)
	if err != nil {
		return nil, err
	}

	var purged []string
	for _, name := range names {
		if name == keep {
			continue
		}
		if err := os.RemoveAll(filepath.Join(folder, name)); err != nil {
			return purged, fmt.Errorf("remove stale store %s: %w", name, err)
		}
		logrus.Infof("Purged stale cache store: %s", name)
		purged = append(purged, name)
	}

	return purged, nil
}
