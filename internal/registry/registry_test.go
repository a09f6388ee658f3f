package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testFile(t *testing.T) *File {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "snippets", "_metadata.json"))
}

func TestUpsertAndLoad(t *testing.T) {
	f := testFile(t)

	slug, err := f.Upsert("target-page", "Target Page", Entry{Passes: true, QualityScore: 8, Reason: "good"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if slug != "target-page" {
		t.Errorf("slug = %q", slug)
	}

	entries, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	e, ok := entries["target-page"]
	if !ok {
		t.Fatalf("entries = %v", entries)
	}
	if e.Title != "Target Page" || !e.Passes || e.QualityScore != 8 {
		t.Errorf("entry = %+v", e)
	}
}

func TestUpsert_MergePreservesOtherEntries(t *testing.T) {
	f := testFile(t)
	_, _ = f.Upsert("one", "One", Entry{QualityScore: 7})
	_, _ = f.Upsert("two", "Two", Entry{QualityScore: 6})
	_, _ = f.Upsert("one", "One", Entry{QualityScore: 9})

	entries, err := f.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %v", entries)
	}
	if entries["one"].QualityScore != 9 {
		t.Errorf("one = %+v, want overwritten score 9", entries["one"])
	}
}

func TestUpsert_CollisionDisambiguatedByHash(t *testing.T) {
	f := testFile(t)
	first, err := f.Upsert("cafe", "Café", Entry{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.Upsert("cafe", "Cafe", Entry{})
	if err != nil {
		t.Fatal(err)
	}
	if first != "cafe" {
		t.Errorf("first = %q", first)
	}
	if second == first || !strings.HasPrefix(second, "cafe-") {
		t.Errorf("second = %q, want hash-suffixed variant of %q", second, first)
	}

	// Same title again keeps its disambiguated slug stable? Same base slug,
	// same conflicting registry state and hash input, so the suffix is deterministic.
	again, err := f.Upsert("cafe", "Cafe", Entry{})
	if err != nil {
		t.Fatal(err)
	}
	if again != second {
		t.Errorf("again = %q, want %q", again, second)
	}
}

func TestUpsert_SameTitleDifferentCaseNoCollision(t *testing.T) {
	f := testFile(t)
	_, _ = f.Upsert("note", "My Note", Entry{})
	slug, err := f.Upsert("note", "my note", Entry{})
	if err != nil {
		t.Fatal(err)
	}
	if slug != "note" {
		t.Errorf("slug = %q, case-insensitive same title must not disambiguate", slug)
	}
}

func TestLoad_MissingAndCorrupt(t *testing.T) {
	f := testFile(t)
	entries, err := f.Load()
	if err != nil || len(entries) != 0 {
		t.Errorf("entries = %v, err = %v", entries, err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err = f.Load()
	if err != nil || len(entries) != 0 {
		t.Errorf("corrupt file: entries = %v, err = %v", entries, err)
	}
}
