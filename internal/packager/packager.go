// Package packager turns vault documents into a publishable content tree:
// posts with rewritten references, standalone snippets for linked documents,
// copied images, and a snippet registry.
package packager

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jkim-dev/vaultpack/internal/frontmatter"
	"github.com/jkim-dev/vaultpack/internal/quality"
	"github.com/jkim-dev/vaultpack/internal/registry"
	"github.com/jkim-dev/vaultpack/internal/resolver"
	"github.com/jkim-dev/vaultpack/internal/rewrite"
	"github.com/jkim-dev/vaultpack/internal/slug"
	"github.com/jkim-dev/vaultpack/internal/vault"
	"github.com/jkim-dev/vaultpack/internal/wikilink"
)

const (
	postsDir    = "posts"
	snippetsDir = "snippets"
	pageFile    = "index.mdx"
)

// Packager resolves, rewrites and writes documents under an output root.
type Packager struct {
	store   *vault.Store
	reg     *registry.File
	outRoot string
	blocked []string
	logger  *slog.Logger
	res     *resolver.Resolver

	now func() time.Time
}

// New creates a Packager writing under outRoot. blocked lists tags that are
// stripped from published metadata; nil means frontmatter.DefaultBlockedTags.
func New(store *vault.Store, gate quality.Gate, reg *registry.File, outRoot string, blocked []string, logger *slog.Logger) *Packager {
	if blocked == nil {
		blocked = frontmatter.DefaultBlockedTags
	}
	p := &Packager{
		store:   store,
		reg:     reg,
		outRoot: outRoot,
		blocked: blocked,
		logger:  logger,
		now:     time.Now,
	}
	p.res = resolver.New(store, gate, p, logger)
	return p
}

// PackagePost packages a single document by title: every reference in its
// body is resolved and rewritten, linked documents become snippets, embedded
// images are copied next to the post, and the result lands at
// posts/<slug>/index.mdx. Returns the post slug.
func (p *Packager) PackagePost(ctx context.Context, title string) (string, error) {
	data, err := p.store.FindDocument(title)
	if err != nil {
		return "", fmt.Errorf("packager: %w", err)
	}
	split := frontmatter.Split(string(data))

	refs := wikilink.Parse(split.Body)
	resolutions, err := p.res.Resolve(ctx, refs)
	if err != nil {
		return "", fmt.Errorf("packager: resolve %q: %w", title, err)
	}

	body, err := rewrite.Rewrite(split.Body, refs, resolutions)
	if err != nil {
		return "", fmt.Errorf("packager: rewrite %q: %w", title, err)
	}

	postSlug := slug.Make(title)
	dir := filepath.Join(p.outRoot, postsDir, postSlug)

	for _, res := range resolutions {
		if res.Kind != wikilink.KindImage || !res.Found {
			continue
		}
		if err := copyFile(res.SourcePath, filepath.Join(dir, res.LocalFilename)); err != nil {
			return "", fmt.Errorf("packager: copy image %q: %w", res.Target, err)
		}
	}

	page := p.renderPage(title, split) + "\n" + body
	if err := writeFileAtomic(filepath.Join(dir, pageFile), []byte(page)); err != nil {
		return "", fmt.Errorf("packager: write post %q: %w", title, err)
	}

	p.logger.Info("packaged post",
		slog.String("title", title),
		slog.String("slug", postSlug),
		slog.Int("references", len(refs)))
	return postSlug, nil
}

// PackageAll packages every title, continuing past individual failures.
// Returns an error naming the titles that failed, if any.
func (p *Packager) PackageAll(ctx context.Context, titles []string) error {
	var failed []string
	for _, title := range titles {
		if _, err := p.PackagePost(ctx, title); err != nil {
			p.logger.Error("packaging failed",
				slog.String("title", title),
				slog.String("error", err.Error()))
			failed = append(failed, title)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("packager: %d of %d documents failed: %s",
			len(failed), len(titles), strings.Join(failed, ", "))
	}
	return nil
}

// WriteSnippet records a linked document in the registry and, when its
// verdict passes, publishes it as a standalone snippet page. References
// inside the snippet body are not followed; they degrade to display text.
// Returns the registry slug, which may carry a disambiguation suffix on
// collision.
func (p *Packager) WriteSnippet(ctx context.Context, title string, record frontmatter.Record, body string, verdict quality.Verdict) (string, error) {
	base := slug.Make(title)
	finalSlug, err := p.reg.Upsert(base, title, registry.Entry{
		Title:        title,
		Passes:       verdict.Passes,
		QualityScore: verdict.Score,
		Reason:       verdict.Reason,
	})
	if err != nil {
		return "", fmt.Errorf("packager: register snippet %q: %w", title, err)
	}

	if !verdict.Passes {
		// Failed documents stay in the registry for review but never get a
		// published page.
		p.logger.Info("snippet withheld",
			slog.String("title", title),
			slog.Int("score", verdict.Score),
			slog.String("reason", verdict.Reason))
		return finalSlug, nil
	}

	refs := wikilink.Parse(body)
	flat, err := rewrite.Rewrite(body, refs, nil)
	if err != nil {
		return "", fmt.Errorf("packager: rewrite snippet %q: %w", title, err)
	}

	page := p.renderPage(title, frontmatter.SplitResult{Record: record, Body: body}) + "\n" + flat
	dir := filepath.Join(p.outRoot, snippetsDir, finalSlug)
	if err := writeFileAtomic(filepath.Join(dir, pageFile), []byte(page)); err != nil {
		return "", fmt.Errorf("packager: write snippet %q: %w", title, err)
	}

	p.logger.Info("packaged snippet",
		slog.String("title", title),
		slog.String("slug", finalSlug),
		slog.Bool("passes", verdict.Passes),
		slog.Int("score", verdict.Score))
	return finalSlug, nil
}

// renderPage builds the published header block from a document's metadata
// and body-derived fields.
func (p *Packager) renderPage(title string, split frontmatter.SplitResult) string {
	date := split.Record.DateString("date")
	if date == "" {
		date = p.now().Format("2006-01-02")
	}

	displayDate := split.Record.String("displayDate")
	if displayDate == "" {
		displayDate = frontmatter.ExtractDisplayDate(split.Body)
	}

	explicit := split.Record.StringList("tags")
	inline := frontmatter.ExtractInlineTags(split.Body, p.blocked)

	h := frontmatter.Header{
		Title:       title,
		Date:        date,
		DisplayDate: displayDate,
		Description: split.Record.String("description"),
		Tags:        frontmatter.MergeTags(explicit, inline, p.blocked),
	}
	return h.Render()
}
