package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/openfoodfacts/nutrieval/internal/models"
)

const entryExt = ".json.gz"

// Cache stores successful predictions on disk so repeated evaluations of the
// same products do not hit the prediction service again.
type Cache struct {
	dir string
	mu  sync.Mutex
}

// Entry is the on-disk form of a cached prediction.
type Entry struct {
	Code       string        `json:"code"`
	Prediction models.Record `json:"prediction"`
	FetchedAt  time.Time     `json:"fetched_at"`
}

// New creates a cache rooted at dir. An empty dir disables caching.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Key derives the cache key of a product. namespace identifies the
// prediction endpoint and settings so that changing them never serves stale
// predictions.
func Key(namespace, code string) string {
	h := sha256.New()
	writeString(h, namespace)
	writeString(h, code)
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached prediction.
func (c *Cache) Get(key string) (*Entry, bool) {
	if c.dir == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.entryPath(key))
	if err != nil {
		return nil, false
	}
	defer f.Close() //nolint:errcheck

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, false
	}
	defer zr.Close() //nolint:errcheck

	var entry Entry
	if err := json.NewDecoder(zr).Decode(&entry); err != nil {
		// Corrupt entries are treated as misses
		return nil, false
	}
	return &entry, true
}

// Put stores a prediction under key.
func (c *Cache) Put(key string, entry *Entry) error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(entry); err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compressing cache entry: %w", err)
	}

	if err := os.WriteFile(c.entryPath(key), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Clear removes the cache directory. It refuses to delete a directory that
// holds anything other than cache entries.
func (c *Cache) Clear() error {
	if c.dir == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			return fmt.Errorf("cache directory contains subdirectories - refusing to delete for safety")
		}
		if !strings.HasSuffix(e.Name(), entryExt) {
			return fmt.Errorf("cache directory contains non-cache file %q - refusing to delete for safety", e.Name())
		}
	}

	return os.RemoveAll(c.dir)
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, key+entryExt)
}

// writeString appends s with a NUL delimiter so that ("ab","c") and
// ("a","bc") hash differently.
func writeString(w io.Writer, s string) {
	_, _ = w.Write([]byte(s + "\x00"))
}
