package attach

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Cache memoizes attachment analyses as JSON files in a directory, one
// file per attachment, keyed by a hash of the attachment's storage path.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Key derives the cache key for a storage path.
func Key(storagePath string) string {
	sum := md5.Sum([]byte(storagePath))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) entryPath(storagePath string) string {
	return filepath.Join(c.dir, Key(storagePath)+".json")
}

// Lookup returns the cached analysis for a storage path. The boolean is
// the only hit signal; a hit is returned as-is with no revalidation.
func (c *Cache) Lookup(storagePath string) (*Analysis, bool) {
	data, err := os.ReadFile(c.entryPath(storagePath))
	if err != nil {
		return nil, false
	}
	var a Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		// Corrupt entry: treat as a miss so it gets rewritten.
		return nil, false
	}
	return &a, true
}

// Store writes an analysis entry for a storage path.
func (c *Cache) Store(storagePath string, a *Analysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := os.WriteFile(c.entryPath(storagePath), data, 0644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}
