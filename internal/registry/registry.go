// Package registry persists the snippet metadata map consumed by the site
// build: a JSON object keyed by slug, accumulated across packaging runs.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jkim-dev/vaultpack/internal/checksum"
)

// Entry describes one published snippet.
type Entry struct {
	Title        string `json:"title"`
	Passes       bool   `json:"passes"`
	QualityScore int    `json:"quality_score"`
	Reason       string `json:"reason"`
}

// File is a JSON-backed slug → Entry map. Every update is a full
// read-merge-write cycle under a mutex so concurrent snippet writes within
// one run cannot lose updates.
type File struct {
	path string
	mu   sync.Mutex
}

// New creates a File at path. The file itself is created lazily on the
// first Upsert.
func New(path string) *File {
	return &File{path: path}
}

// Load reads the current registry. A missing or unreadable file yields an
// empty map; a fresh registry must never block packaging.
func (f *File) Load() (map[string]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

// Upsert merges one entry and reports the slug actually used. A slug
// already registered under a different title is disambiguated with a
// deterministic hash suffix instead of being overwritten.
func (f *File) Upsert(slug, title string, e Entry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return "", err
	}

	if existing, ok := entries[slug]; ok && !strings.EqualFold(existing.Title, title) {
		slug = slug + "-" + checksum.Short([]byte(title))
	}

	e.Title = title
	entries[slug] = e

	if err := f.save(entries); err != nil {
		return "", err
	}
	return slug, nil
}

func (f *File) load() (map[string]Entry, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]Entry{}, nil
		}
		return nil, fmt.Errorf("registry: read %s: %w", f.path, err)
	}
	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil || entries == nil {
		// A corrupt registry starts fresh rather than blocking packaging.
		return map[string]Entry{}, nil
	}
	return entries, nil
}

func (f *File) save(entries map[string]Entry) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("registry: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshal: %w", err)
	}
	if err := os.WriteFile(f.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("registry: write %s: %w", f.path, err)
	}
	return nil
}
