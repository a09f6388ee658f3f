// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes packaging tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jkim-dev/vaultpack/internal/audit"
	"github.com/jkim-dev/vaultpack/internal/packager"
	"github.com/jkim-dev/vaultpack/internal/quality"
	"github.com/jkim-dev/vaultpack/internal/registry"
	"github.com/jkim-dev/vaultpack/internal/review"
	"github.com/jkim-dev/vaultpack/internal/vault"
)

// Server wraps the MCP server with vaultpack tools.
type Server struct {
	mcp    *server.MCPServer
	store  *vault.Store
	pack   *packager.Packager
	gate   quality.Gate
	reg    *registry.File
	audits *audit.Store
}

// New creates a new MCP server with all vaultpack tools registered.
// audits may be nil, in which case the flagged-documents tool reports an
// error instead of querying.
func New(store *vault.Store, pack *packager.Packager, gate quality.Gate, reg *registry.File, audits *audit.Store) *Server {
	s := &Server{store: store, pack: pack, gate: gate, reg: reg, audits: audits}

	s.mcp = server.NewMCPServer(
		"vaultpack",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("package_post",
		mcp.WithDescription("Package a vault document for publishing: resolve its wiki links, "+
			"produce snippets for linked documents, copy images, rewrite the body."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title (filename without .md)")),
	), s.packagePost)

	s.mcp.AddTool(mcp.NewTool("assess_quality",
		mcp.WithDescription("Run the quality gate on a vault document and return the verdict."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title to assess")),
	), s.assessQuality)

	s.mcp.AddTool(mcp.NewTool("find_document",
		mcp.WithDescription("Find a vault document by title and return its raw content."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Document title (filename without .md)")),
	), s.findDocument)

	s.mcp.AddTool(mcp.NewTool("list_registry",
		mcp.WithDescription("List the snippet registry: every linked document packaged so far "+
			"with its quality outcome."),
	), s.listRegistry)

	s.mcp.AddTool(mcp.NewTool("list_flagged",
		mcp.WithDescription("List documents whose latest quality outcome failed or scored at or "+
			"below the threshold."),
		mcp.WithString("threshold", mcp.Description("Score threshold (default 7)")),
	), s.listFlagged)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) packagePost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	slug, err := s.pack.PackagePost(ctx, title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("packaged: %s", slug)), nil
}

func (s *Server) assessQuality(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.FindDocument(title)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", title)), nil
	}
	verdict, err := s.gate.Assess(ctx, title, string(data))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(verdict, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) findDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.FindDocument(title)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", title)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listRegistry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.reg.Load()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("registry is empty"), nil
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listFlagged(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.audits == nil {
		return mcp.NewToolResultError("audit store not configured"), nil
	}

	threshold := review.DefaultThreshold
	if raw, err := req.RequireString("threshold"); err == nil && raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("bad threshold: %s", raw)), nil
		}
		threshold = n
	}

	events, err := s.audits.NeedsReview(ctx, threshold)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("no flagged documents"), nil
	}

	var lines []string
	for _, ev := range events {
		lines = append(lines, fmt.Sprintf("%s: score %d, passes %t, %s", ev.Title, ev.Score, ev.Passes, ev.Reason))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}
