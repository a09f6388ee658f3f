// Package testutil provides shared test helpers for setting up vaults and
// audit databases.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jkim-dev/vaultpack/internal/audit"
	"github.com/jkim-dev/vaultpack/internal/quality"
	"github.com/jkim-dev/vaultpack/internal/vault"
)

// TestAudit creates a temporary audit store that is automatically cleaned up.
func TestAudit(t *testing.T) *audit.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "vaultpack-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := audit.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestVault creates a temporary vault populated with the given files, which
// map relative paths to contents.
func TestVault(t *testing.T, files map[string]string) (string, *vault.Store) {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := vault.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store
}

// Logger returns a logger that discards all output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// GateFunc adapts a plain function to the quality.Gate interface so tests
// can script verdicts without standing up a real assessor.
type GateFunc func(ctx context.Context, title, body string) (quality.Verdict, error)

func (f GateFunc) Assess(ctx context.Context, title, body string) (quality.Verdict, error) {
	return f(ctx, title, body)
}

// PassGate approves everything with the given score.
func PassGate(score int) GateFunc {
	return func(context.Context, string, string) (quality.Verdict, error) {
		return quality.Verdict{Score: score, Passes: true, Reason: "solid"}, nil
	}
}
