package insightcache

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Cache stores one text blob per (slug, request-type key) as
// <dir>/<slug>__<safeKey>.txt. Entries never expire; they are replaced
// only after an explicit clear.
type Cache struct {
	dir string
}

func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir exposes the cache directory for archiving and health checks.
func (c *Cache) Dir() string {
	return c.dir
}

// Write persists an entry, replacing any previous value for the same pair.
// The blob lands via temp file + rename so concurrent readers never see a
// torn write.
func (c *Cache) Write(slug, key, text string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	path := c.entryPath(slug, key)
	tmp, err := os.CreateTemp(c.dir, ".insight-*.txt")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Exists reports whether an entry is cached for the pair.
func (c *Cache) Exists(slug, key string) bool {
	_, err := os.Stat(c.entryPath(slug, key))
	return err == nil
}

// Read returns the cached text for the pair.
func (c *Cache) Read(slug, key string) (string, error) {
	content, err := os.ReadFile(c.entryPath(slug, key))
	if err != nil {
		return "", err
	}
	return string(content), nil
}

// ClearAll deletes every entry belonging to slug and returns how many were
// removed. Entries of other slugs are untouched.
func (c *Cache) ClearAll(slug string) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	prefix := sanitizeKey(slug) + "__"
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (c *Cache) entryPath(slug, key string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s__%s.txt", sanitizeKey(slug), sanitizeKey(key)))
}

// sanitizeKey replaces every run of characters outside [A-Za-z0-9_-] with
// a single underscore so arbitrary keys map to safe filenames.
func sanitizeKey(raw string) string {
	return unsafeKeyChars.ReplaceAllString(raw, "_")
}
