// Package vault provides read access to an Obsidian-style document vault on
// the local file system: documents are located by title, images by filename,
// both case-insensitively.
package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jkim-dev/vaultpack/internal/apperr"
	"github.com/jkim-dev/vaultpack/internal/wikilink"
)

// Store is a vault rooted at a directory. The vault is read-only except for
// review notes written back next to their source documents.
type Store struct {
	root string // absolute path to the vault directory
}

// Open creates a Store rooted at the given directory, which must exist.
func Open(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: root is not a directory: %s", abs)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute vault root path.
func (s *Store) Root() string {
	return s.root
}

// FindDocument searches the vault recursively for "<title>.md"
// (case-insensitive) and returns its raw content, header block included.
// Returns apperr.ErrNotFound when no such document exists.
func (s *Store) FindDocument(title string) ([]byte, error) {
	want := strings.ToLower(title) + ".md"
	path, err := s.findFile(func(name string) bool {
		return strings.ToLower(name) == want
	})
	if err != nil {
		return nil, fmt.Errorf("vault: document %q: %w", title, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vault: read %q: %w", title, err)
	}
	return data, nil
}

// FindImage locates an image file by name, case-insensitive, restricted to
// the image-extension set. Returns the absolute path, or apperr.ErrNotFound.
func (s *Store) FindImage(name string) (string, error) {
	if !wikilink.IsImageTarget(name) {
		return "", fmt.Errorf("vault: image %q: %w", name, apperr.ErrNotFound)
	}
	want := strings.ToLower(name)
	path, err := s.findFile(func(candidate string) bool {
		return strings.ToLower(candidate) == want
	})
	if err != nil {
		return "", fmt.Errorf("vault: image %q: %w", name, err)
	}
	return path, nil
}

// findFile walks the vault and returns the first regular file whose base
// name satisfies match. Hidden directories (.obsidian and friends) are
// skipped.
func (s *Store) findFile(match func(name string) bool) (string, error) {
	var found string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if match(d.Name()) {
			found = p
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", apperr.ErrNotFound
	}
	return found, nil
}

// WriteNote atomically writes a markdown file at the vault root:
// tmp file, fsync, rename. Used by the review generator.
func (s *Store) WriteNote(name string, content []byte) error {
	abs, err := s.safePath(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.root, ".vaultpack-tmp-*")
	if err != nil {
		return fmt.Errorf("vault: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("vault: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("vault: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("vault: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("vault: rename: %w", err)
	}
	success = true
	return nil
}

// safePath resolves a relative path against the vault root and rejects any
// result that escapes it.
func (s *Store) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if cleaned == "" || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("vault: invalid path: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(s.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("vault: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("vault: path escapes vault root: %s", rel)
	}
	return abs, nil
}
