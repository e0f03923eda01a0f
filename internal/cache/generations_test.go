package cache

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestGenerations(t *testing.T) {
	tempDir := t.TempDir()

	for _, name := range []string{"bungalows-v1", "bungalows-v2"} {
		if err := os.MkdirAll(filepath.Join(tempDir, name), 0755); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
	}
	// Stray files are not generations
	if err := os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	names, err := Generations(tempDir)
	if err != nil {
		t.Fatalf("Generations() error = %v", err)
	}

	sort.Strings(names)
	if len(names) != 2 || names[0] != "bungalows-v1" || names[1] != "bungalows-v2" {
		t.Errorf("Generations() = %v, want [bungalows-v1 bungalows-v2]", names)
	}
}

func TestGenerationsMissingFolder(t *testing.T) {
	names, err := Generations(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Generations() error = %v", err)
	}
	if names != nil {
		t.Errorf("Generations() = %v, want nil", names)
	}
}

func TestPurgeStale(t *testing.T) {
	tempDir := t.TempDir()

	// Populate two old generations and the active one
	for _, name := range []string{"bungalows-v1", "bungalows-v2", "bungalows-v3"} {
		store := NewDisk(tempDir, name, 0, false)
		if err := store.Set("index.html/GET.bin", []byte(name)); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	purged, err := PurgeStale(tempDir, "bungalows-v3")
	if err != nil {
		t.Fatalf("PurgeStale() error = %v", err)
	}

	sort.Strings(purged)
	if len(purged) != 2 || purged[0] != "bungalows-v1" || purged[1] != "bungalows-v2" {
		t.Errorf("PurgeStale() = %v, want [bungalows-v1 bungalows-v2]", purged)
	}

	// The active generation survives with its entries
	data, err := NewDisk(tempDir, "bungalows-v3", 0, false).Get("index.html/GET.bin")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != "bungalows-v3" {
		t.Errorf("Active store entry = %q, want %q", data, "bungalows-v3")
	}

	// Stale directories are gone
	if _, err := os.Stat(filepath.Join(tempDir, "bungalows-v1")); !os.IsNotExist(err) {
		t.Errorf("Stale store bungalows-v1 should have been removed")
	}
}

func TestPurgeStaleNothingToDo(t *testing.T) {
	tempDir := t.TempDir()

	store := NewDisk(tempDir, "bungalows-v1", 0, false)
	if err := store.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	purged, err := PurgeStale(tempDir, "bungalows-v1")
	if err != nil {
		t.Fatalf("PurgeStale() error = %v", err)
	}
	if len(purged) != 0 {
		t.Errorf("PurgeStale() = %v, want empty", purged)
	}
}
