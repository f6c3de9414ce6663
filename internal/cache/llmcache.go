package cache

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// LLMCache stores model responses keyed by model name and prompt digest.
type LLMCache struct {
	Dir string
	// StrictPerms enforces 0700 directories and 0600 files.
	StrictPerms bool
}

// KeyFrom builds a cache key from the model and every prompt part.
func KeyFrom(model string, prompt ...string) string {
	return digest(append([]string{model}, prompt...)...)
}

func (c *LLMCache) ensureDir() error {
	if c == nil {
		return errNoDir
	}
	return ensureDir(c.Dir, c.StrictPerms)
}

func (c *LLMCache) pathFor(key string) string {
	return filepath.Join(c.Dir, key+".json")
}

// Get returns cached bytes if present. A miss is not an error.
func (c *LLMCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if err := c.ensureDir(); err != nil {
		return nil, false, err
	}
	p := c.pathFor(key)
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, false, nil
	}
	// mtime doubles as last-use time for eviction
	now := time.Now()
	_ = os.Chtimes(p, now, now)
	return b, true, nil
}

// Save writes bytes to cache.
func (c *LLMCache) Save(_ context.Context, key string, data []byte) error {
	if err := c.ensureDir(); err != nil {
		return err
	}
	return os.WriteFile(c.pathFor(key), data, fileMode(c.StrictPerms))
}
