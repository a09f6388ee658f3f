// Package review drafts improvement notes for documents that scored low at
// the quality gate, writing them back into the vault next to their sources.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/jkim-dev/vaultpack/internal/apperr"
	"github.com/jkim-dev/vaultpack/internal/audit"
	"github.com/jkim-dev/vaultpack/internal/frontmatter"
	"github.com/jkim-dev/vaultpack/internal/quality"
	"github.com/jkim-dev/vaultpack/internal/vault"
)

const (
	// DefaultThreshold flags documents whose latest score is at or below it.
	DefaultThreshold = 7

	// DefaultModel is the generation model for review drafts.
	DefaultModel = "gemini-2.5-pro"

	notePrefix      = "REVIEW_SNIPPET_"
	maxSourceChars  = 12000
	generateTimeout = 2 * time.Minute
)

var (
	unsafeCharRe = regexp.MustCompile(`[^\w\s-]`)
	separatorRe  = regexp.MustCompile(`[-\s]+`)
)

// Generator produces review notes from audited gate outcomes.
type Generator struct {
	store  *vault.Store
	audits *audit.Store
	gen    quality.TextGenerator
	model  string
	logger *slog.Logger

	now func() time.Time
}

// New creates a Generator. gen may be nil when no API key is configured, in
// which case Run returns apperr.ErrNoAPIKey.
func New(store *vault.Store, audits *audit.Store, gen quality.TextGenerator, model string, logger *slog.Logger) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{store: store, audits: audits, gen: gen, model: model, logger: logger, now: time.Now}
}

// Run drafts a review note for every document whose latest gate outcome
// failed or scored at or below threshold. Individual failures are logged and
// skipped. Returns the number of notes written.
func (g *Generator) Run(ctx context.Context, threshold int) (int, error) {
	if g.gen == nil {
		return 0, fmt.Errorf("review: %w", apperr.ErrNoAPIKey)
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	events, err := g.audits.NeedsReview(ctx, threshold)
	if err != nil {
		return 0, fmt.Errorf("review: list flagged documents: %w", err)
	}
	if len(events) == 0 {
		g.logger.Info("no documents flagged for review")
		return 0, nil
	}

	written := 0
	for _, ev := range events {
		if err := g.draftOne(ctx, ev); err != nil {
			g.logger.Error("review draft failed",
				slog.String("title", ev.Title),
				slog.String("error", err.Error()))
			continue
		}
		written++
	}
	g.logger.Info("review run complete",
		slog.Int("flagged", len(events)),
		slog.Int("written", written))
	return written, nil
}

func (g *Generator) draftOne(ctx context.Context, ev audit.Event) error {
	data, err := g.store.FindDocument(ev.Title)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return fmt.Errorf("source document no longer in vault: %w", err)
		}
		return err
	}
	split := frontmatter.Split(string(data))

	body := split.Body
	if len(body) > maxSourceChars {
		body = body[:maxSourceChars]
	}

	gctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()
	draft, err := g.gen.Generate(gctx, g.model, reviewPrompt(ev, body))
	if err != nil {
		return fmt.Errorf("generate draft: %w", err)
	}

	note := g.renderNote(ev, draft)
	name := NoteFilename(ev.Title)
	if err := g.store.WriteNote(name, []byte(note)); err != nil {
		return err
	}

	g.logger.Info("review note written",
		slog.String("title", ev.Title),
		slog.String("file", name),
		slog.Int("score", ev.Score))
	return nil
}

// NoteFilename derives the vault filename for a review note: unsafe
// characters stripped, whitespace and hyphen runs collapsed to underscores.
func NoteFilename(title string) string {
	safe := unsafeCharRe.ReplaceAllString(title, "")
	safe = separatorRe.ReplaceAllString(strings.TrimSpace(safe), "_")
	if safe == "" {
		safe = "untitled"
	}
	return notePrefix + safe + ".md"
}

func (g *Generator) renderNote(ev audit.Event, draft string) string {
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString(fmt.Sprintf("title: \"Review - %s\"\n", strings.ReplaceAll(ev.Title, `"`, `\"`)))
	b.WriteString("date: " + g.now().Format("2006-01-02") + "\n")
	b.WriteString("type: review\n")
	b.WriteString(fmt.Sprintf("original_score: %d\n", ev.Score))
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimSpace(draft))
	b.WriteString("\n")
	return b.String()
}

func reviewPrompt(ev audit.Event, body string) string {
	reason := ev.Reason
	if reason == "" {
		reason = "no reason recorded"
	}
	return fmt.Sprintf(`You are reviewing a technical note that scored %d/10 at a quality check.
The stated reason was: %s

Rewrite the note so it would score well: fix technical inaccuracies, add the
missing depth, and keep the author's voice. Return only the improved note
body in Markdown, without a metadata header.

Title: %s

%s`, ev.Score, reason, ev.Title, body)
}
