package resolver

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jkim-dev/vaultpack/internal/frontmatter"
	"github.com/jkim-dev/vaultpack/internal/quality"
	"github.com/jkim-dev/vaultpack/internal/testutil"
	"github.com/jkim-dev/vaultpack/internal/vault"
	"github.com/jkim-dev/vaultpack/internal/wikilink"
)

type stubGate struct {
	mu      sync.Mutex
	calls   int
	verdict quality.Verdict
	err     error
}

func (g *stubGate) Assess(ctx context.Context, title, body string) (quality.Verdict, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return g.verdict, g.err
}

type stubSnippets struct {
	mu     sync.Mutex
	titles []string
	err    error
}

func (s *stubSnippets) WriteSnippet(ctx context.Context, title string, record frontmatter.Record, body string, verdict quality.Verdict) (string, error) {
	s.mu.Lock()
	s.titles = append(s.titles, title)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return strings.ToLower(strings.ReplaceAll(title, " ", "-")), nil
}

func testLogger() *slog.Logger {
	return testutil.Logger()
}

func testVault(t *testing.T, files map[string]string) *vault.Store {
	t.Helper()
	_, store := testutil.TestVault(t, files)
	return store
}

func TestResolve_DocumentAssessedOncePerTarget(t *testing.T) {
	store := testVault(t, map[string]string{
		"Design Notes.md": "---\ntags: [go]\n---\nActual content.",
	})
	gate := &stubGate{verdict: quality.Verdict{Appropriate: true, TechnicallySound: true, Score: 8, Passes: true, Reason: "solid"}}
	snips := &stubSnippets{}
	r := New(store, gate, snips, testLogger())

	refs := wikilink.Parse("a [[Design Notes]] b [[design notes|again]] c [[DESIGN NOTES]]")
	resolutions, err := r.Resolve(context.Background(), refs)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if gate.calls != 1 {
		t.Errorf("gate called %d times, want 1", gate.calls)
	}
	if len(snips.titles) != 1 {
		t.Errorf("snippet written %d times, want 1", len(snips.titles))
	}

	res, ok := resolutions["design notes"]
	if !ok {
		t.Fatal("missing resolution for design notes")
	}
	if res.Target != "Design Notes" {
		t.Errorf("canonical target %q, want first-seen casing", res.Target)
	}
	if !res.Found || !res.Passes || res.Slug != "design-notes" {
		t.Errorf("unexpected resolution %+v", res)
	}
}

func TestResolve_GateErrorFailsOpen(t *testing.T) {
	store := testVault(t, map[string]string{"Flaky.md": "content"})
	gate := &stubGate{err: errors.New("api timeout")}
	snips := &stubSnippets{}
	r := New(store, gate, snips, testLogger())

	resolutions, err := r.Resolve(context.Background(), wikilink.Parse("[[Flaky]]"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	res := resolutions["flaky"]
	if !res.Found || !res.Passes {
		t.Errorf("fail-open verdict should pass, got %+v", res)
	}
	if !strings.Contains(res.Reason, "auto-passed") {
		t.Errorf("reason %q should record the auto-pass", res.Reason)
	}
	if len(snips.titles) != 1 {
		t.Errorf("snippet still expected under fail-open, wrote %d", len(snips.titles))
	}
}

func TestResolve_MissingDocumentNotFound(t *testing.T) {
	store := testVault(t, nil)
	gate := &stubGate{}
	r := New(store, gate, &stubSnippets{}, testLogger())

	resolutions, err := r.Resolve(context.Background(), wikilink.Parse("[[Ghost Page]]"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	res := resolutions["ghost page"]
	if res.Found {
		t.Errorf("missing document reported as found: %+v", res)
	}
	if gate.calls != 0 {
		t.Errorf("gate consulted for a missing document")
	}
}

func TestResolve_Image(t *testing.T) {
	store := testVault(t, map[string]string{
		filepath.Join("assets", "diagram v2.png"): "png-bytes",
	})
	r := New(store, &stubGate{}, &stubSnippets{}, testLogger())

	resolutions, err := r.Resolve(context.Background(), wikilink.Parse("![[diagram v2.png]] and ![[missing.png]]"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	found := resolutions["diagram v2.png"]
	if !found.Found || found.LocalFilename != "diagram_v2.png" || found.SourcePath == "" {
		t.Errorf("unexpected image resolution %+v", found)
	}
	if resolutions["missing.png"].Found {
		t.Error("missing image reported as found")
	}
}

func TestResolve_SnippetWriteFailureIsHard(t *testing.T) {
	store := testVault(t, map[string]string{"Doc.md": "content"})
	gate := &stubGate{verdict: quality.Verdict{Appropriate: true, TechnicallySound: true, Score: 9, Passes: true}}
	snips := &stubSnippets{err: errors.New("disk full")}
	r := New(store, gate, snips, testLogger())

	if _, err := r.Resolve(context.Background(), wikilink.Parse("[[Doc]]")); err == nil {
		t.Fatal("expected snippet write failure to propagate")
	}
}

func TestResolve_NilSnippetWriter(t *testing.T) {
	store := testVault(t, map[string]string{"My Doc.md": "content"})
	gate := &stubGate{verdict: quality.Verdict{Appropriate: true, TechnicallySound: true, Score: 9, Passes: true}}
	r := New(store, gate, nil, testLogger())

	resolutions, err := r.Resolve(context.Background(), wikilink.Parse("[[My Doc]]"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	res := resolutions["my doc"]
	if !res.Found || !res.Passes {
		t.Fatalf("unexpected resolution %+v", res)
	}
	if res.Slug != "my-doc" {
		t.Errorf("slug = %q, want the deterministic slug even without a snippet writer", res.Slug)
	}
}
