package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jkim-dev/vaultpack/internal/packager"
	"github.com/jkim-dev/vaultpack/internal/quality"
	"github.com/jkim-dev/vaultpack/internal/registry"
	"github.com/jkim-dev/vaultpack/internal/vault"
)

func testServer(t *testing.T, files map[string]string) (*Server, string) {
	t.Helper()

	vaultDir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(vaultDir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := vault.Open(vaultDir)
	if err != nil {
		t.Fatal(err)
	}

	outRoot := t.TempDir()
	reg := registry.New(filepath.Join(outRoot, "snippets", "_metadata.json"))
	gate := quality.NewAutoPassGate()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pack := packager.New(store, gate, reg, outRoot, nil, logger)

	return New(store, pack, gate, reg, nil), outRoot
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct call-tool test helper; invoke the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "package_post":
		result, err = srv.packagePost(ctx, req)
	case "assess_quality":
		result, err = srv.assessQuality(ctx, req)
	case "find_document":
		result, err = srv.findDocument(ctx, req)
	case "list_registry":
		result, err = srv.listRegistry(ctx, req)
	case "list_flagged":
		result, err = srv.listFlagged(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestPackagePostTool(t *testing.T) {
	srv, outRoot := testServer(t, map[string]string{
		"My Post.md": "Links to [[Other]].",
		"Other.md":   "Other content.",
	})

	r := callTool(t, srv, "package_post", map[string]interface{}{"title": "My Post"})
	if r.IsError {
		t.Fatalf("package_post errored: %s", resultText(r))
	}
	if text := resultText(r); text != "packaged: my-post" {
		t.Errorf("result = %q", text)
	}

	if _, err := os.Stat(filepath.Join(outRoot, "posts", "my-post", "index.mdx")); err != nil {
		t.Errorf("post not written: %v", err)
	}
}

func TestAssessQualityTool(t *testing.T) {
	srv, _ := testServer(t, map[string]string{"Doc.md": "content"})

	r := callTool(t, srv, "assess_quality", map[string]interface{}{"title": "Doc"})
	if r.IsError {
		t.Fatalf("assess_quality errored: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, `"passes": true`) {
		t.Errorf("verdict missing passes in %q", text)
	}
}

func TestFindDocumentTool(t *testing.T) {
	srv, _ := testServer(t, map[string]string{"Doc.md": "raw body"})

	r := callTool(t, srv, "find_document", map[string]interface{}{"title": "Doc"})
	if text := resultText(r); text != "raw body" {
		t.Errorf("read result = %q", text)
	}

	r = callTool(t, srv, "find_document", map[string]interface{}{"title": "Nope"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestListRegistryTool(t *testing.T) {
	srv, _ := testServer(t, map[string]string{
		"Post.md":   "See [[Linked]].",
		"Linked.md": "Linked content.",
	})

	r := callTool(t, srv, "list_registry", map[string]interface{}{})
	if text := resultText(r); text != "registry is empty" {
		t.Errorf("empty registry result = %q", text)
	}

	callTool(t, srv, "package_post", map[string]interface{}{"title": "Post"})

	r = callTool(t, srv, "list_registry", map[string]interface{}{})
	if text := resultText(r); !strings.Contains(text, `"title": "Linked"`) {
		t.Errorf("registry missing entry in %q", text)
	}
}

func TestListFlaggedWithoutAuditStore(t *testing.T) {
	srv, _ := testServer(t, nil)
	r := callTool(t, srv, "list_flagged", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error when audit store is not configured")
	}
}
