package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ClearDir removes the directory and all contents, then recreates it empty.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeHTTPCacheByAge removes HTTP cache entries whose SavedAt is older than
// maxAge, deleting both the metadata and the body.
func PurgeHTTPCacheByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := walkFiles(dir, func(path string, _ fs.DirEntry) {
		if !strings.HasSuffix(path, ".meta.json") {
			return
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return
		}
		var e HTTPEntry
		if err := json.Unmarshal(b, &e); err != nil || now.Sub(e.SavedAt) <= maxAge {
			return
		}
		removed++
		_ = os.Remove(path)
		_ = os.Remove(strings.TrimSuffix(path, ".meta.json") + ".body")
	})
	return removed, err
}

// PurgeLLMCacheByAge removes LLM cache entries older than maxAge by
// modification time.
func PurgeLLMCacheByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now()
	removed := 0
	err := walkFiles(dir, func(path string, d fs.DirEntry) {
		if !isLLMEntry(path) {
			return
		}
		info, err := d.Info()
		if err != nil || now.Sub(info.ModTime()) <= maxAge {
			return
		}
		removed++
		_ = os.Remove(path)
	})
	return removed, err
}

// EnforceLimits evicts least recently used entries from dir until it holds
// at most maxEntries entries and maxBytes bytes. Zero disables a limit. An
// HTTP entry (meta plus body) counts once.
func EnforceLimits(dir string, maxBytes int64, maxEntries int) (int, error) {
	if maxBytes <= 0 && maxEntries <= 0 {
		return 0, nil
	}
	type entry struct {
		files []string
		size  int64
		used  time.Time
	}
	byKey := map[string]*entry{}
	err := walkFiles(dir, func(path string, d fs.DirEntry) {
		key, ok := entryKey(path)
		if !ok {
			return
		}
		info, err := d.Info()
		if err != nil {
			return
		}
		e := byKey[key]
		if e == nil {
			e = &entry{}
			byKey[key] = e
		}
		e.files = append(e.files, path)
		e.size += info.Size()
		if info.ModTime().After(e.used) {
			e.used = info.ModTime()
		}
	})
	if err != nil {
		return 0, err
	}
	entries := make([]*entry, 0, len(byKey))
	var total int64
	for _, e := range byKey {
		entries = append(entries, e)
		total += e.size
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].used.Before(entries[j].used) })
	removed := 0
	for _, e := range entries {
		overCount := maxEntries > 0 && len(entries)-removed > maxEntries
		overBytes := maxBytes > 0 && total > maxBytes
		if !overCount && !overBytes {
			break
		}
		for _, f := range e.files {
			_ = os.Remove(f)
		}
		total -= e.size
		removed++
	}
	return removed, nil
}

func entryKey(path string) (string, bool) {
	switch {
	case strings.HasSuffix(path, ".meta.json"):
		return strings.TrimSuffix(path, ".meta.json"), true
	case strings.HasSuffix(path, ".body"):
		return strings.TrimSuffix(path, ".body"), true
	case isLLMEntry(path):
		return strings.TrimSuffix(path, ".json"), true
	}
	return "", false
}

func isLLMEntry(path string) bool {
	return strings.HasSuffix(path, ".json") && !strings.HasSuffix(path, ".meta.json")
}

func walkFiles(dir string, fn func(path string, d fs.DirEntry)) error {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			fn(path, d)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
