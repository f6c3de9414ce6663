package app

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hyperifyio/gorecipe/internal/render"
)

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// deriveOutputPath returns a stable output path under dir for a recipe. The
// file name is the slugified title plus a short hash of the source so two
// recipes with the same title from different pages do not collide.
func deriveOutputPath(dir, title, source string, f render.Format) string {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	slug := slugify(title)
	h := sha256.Sum256([]byte(strings.TrimSpace(source)))
	short := hex.EncodeToString(h[:])[:8]
	return filepath.Join(dir, slug+"-"+short+f.Ext())
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlug.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = strings.TrimRight(s[:60], "-")
	}
	if s == "" {
		s = "recipe"
	}
	return s
}
