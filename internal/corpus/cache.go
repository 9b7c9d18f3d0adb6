package corpus

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

// Cache serves the dataset to concurrent readers, re-reading the file
// only when its modification time changes. Loaded datasets are treated
// as immutable; callers must not mutate what Load returns.
type Cache struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	dataset *Dataset
	modTime time.Time
}

// NewCache creates a cache over the dataset file at path. The file does
// not need to exist yet.
func NewCache(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{path: path, logger: logger}
}

// Path returns the dataset file location the cache watches.
func (c *Cache) Path() string {
	return c.path
}

// Load returns the current dataset and whether one is available. A
// missing, unreadable, or invalid file clears the cache and reports
// absence; Load never fails. The check-and-reload sequence holds the
// cache lock, so concurrent callers observe either the old dataset or
// the new one, never a mix.
func (c *Cache) Load() (*Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Debug("dataset file not found", "path", c.path)
		} else {
			c.logger.Warn("failed to stat dataset file", "path", c.path, "error", err)
		}
		c.dataset = nil
		c.modTime = time.Time{}
		return nil, false
	}

	if c.dataset != nil && info.ModTime().Equal(c.modTime) {
		return c.dataset, true
	}

	dataset, err := ReadFile(c.path)
	if err != nil {
		c.logger.Warn("failed to load dataset", "path", c.path, "error", err)
		c.dataset = nil
		c.modTime = time.Time{}
		return nil, false
	}

	c.dataset = dataset
	c.modTime = info.ModTime()
	c.logger.Info("dataset loaded",
		"path", c.path,
		"model", dataset.Model,
		"chunks", len(dataset.Chunks))

	return c.dataset, true
}
