// Package cache keeps fetched pages and model responses on disk so repeated
// extractions of the same page avoid the network and the inference service.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
)

var errNoDir = errors.New("cache dir not configured")

// ensureDir creates dir. With strict set it enforces 0700 even when the
// directory already existed.
func ensureDir(dir string, strict bool) error {
	if dir == "" {
		return errNoDir
	}
	perm := os.FileMode(0o755)
	if strict {
		perm = 0o700
	}
	if err := os.MkdirAll(dir, perm); err != nil {
		return err
	}
	if strict {
		if info, err := os.Stat(dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(dir, 0o700)
		}
	}
	return nil
}

func fileMode(strict bool) os.FileMode {
	if strict {
		return 0o600
	}
	return 0o644
}

func digest(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte("\n\n"))
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
