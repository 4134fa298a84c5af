package trends

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/timmy/trendpipe/internal/domain"
	"github.com/timmy/trendpipe/internal/logger"
)

// ErrCacheMiss is returned when no usable cache entry exists: the
// file is missing, stale beyond the requested age, or unreadable.
var ErrCacheMiss = errors.New("trend cache miss")

// cacheEntry is the persisted wrapper around a candidate set.
// Unknown extra fields in the file are ignored on read.
type cacheEntry struct {
	SavedAt    time.Time               `json:"saved_at"`
	Candidates []domain.Candidate      `json:"candidates"`
	Counts     map[domain.SourceID]int `json:"source_counts,omitempty"`
}

// Cache persists the most recent scored candidate set to a JSON file.
// Entries are replaced wholesale via atomic rename; a stale entry is
// left in place for the next Put to overwrite.
type Cache struct {
	path string

	mu         sync.Mutex
	warnedOnce bool
}

// NewCache creates a file-backed trend cache at path.
func NewCache(path string) *Cache {
	return &Cache{path: path}
}

// Get returns the cached candidate set when its age is within maxAge.
// A missing, stale, or corrupt entry yields ErrCacheMiss; corruption
// is logged once per process and never treated as fatal.
func (c *Cache) Get(maxAge time.Duration) (*domain.CandidateSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.read()
	if err != nil {
		return nil, err
	}

	if time.Since(entry.SavedAt) > maxAge {
		return nil, ErrCacheMiss
	}

	return &domain.CandidateSet{
		Candidates:   entry.Candidates,
		FetchedAt:    entry.SavedAt,
		SourceCounts: entry.Counts,
	}, nil
}

// Put atomically replaces the cached entry with the given set.
func (c *Cache) Put(set *domain.CandidateSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := cacheEntry{
		SavedAt:    time.Now().UTC(),
		Candidates: set.Candidates,
		Counts:     set.SourceCounts,
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Write-then-rename so a reader never observes a partial entry.
	tmp, err := os.CreateTemp(dir, ".trends-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace cache entry: %w", err)
	}

	c.warnedOnce = false
	return nil
}

// Clear removes the cached entry. A missing file is not an error.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Age returns the age of the stored entry, or false when absent.
func (c *Cache) Age() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := c.read()
	if err != nil {
		return 0, false
	}
	return time.Since(entry.SavedAt), true
}

// read loads and decodes the entry; callers hold c.mu.
func (c *Cache) read() (*cacheEntry, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCacheMiss
		}
		c.warnCorrupt(err)
		return nil, ErrCacheMiss
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.warnCorrupt(err)
		return nil, ErrCacheMiss
	}
	if entry.SavedAt.IsZero() {
		c.warnCorrupt(errors.New("missing saved_at"))
		return nil, ErrCacheMiss
	}

	return &entry, nil
}

// warnCorrupt logs a corrupt entry once per process; repeated reads
// of the same bad file stay quiet until the next successful Put.
func (c *Cache) warnCorrupt(err error) {
	if c.warnedOnce {
		return
	}
	c.warnedOnce = true
	logger.GetDefault().WithError(err).WithField("path", c.path).
		Warn("trend cache entry unreadable, treating as miss")
}
