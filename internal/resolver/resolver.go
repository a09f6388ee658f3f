// Package resolver maps parsed references onto the vault and the quality
// gate, producing one resolution record per distinct target.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jkim-dev/vaultpack/internal/apperr"
	"github.com/jkim-dev/vaultpack/internal/frontmatter"
	"github.com/jkim-dev/vaultpack/internal/quality"
	"github.com/jkim-dev/vaultpack/internal/slug"
	"github.com/jkim-dev/vaultpack/internal/vault"
	"github.com/jkim-dev/vaultpack/internal/wikilink"
)

// maxInFlight bounds concurrent target resolution; quality-gate calls are
// the only high-latency operation behind it.
const maxInFlight = 4

// Resolution records how a single distinct target resolved. Document
// targets carry Slug/Passes/Reason; image targets carry SourcePath and
// LocalFilename.
type Resolution struct {
	Target string // canonical casing: first occurrence in the document
	Kind   wikilink.Kind
	Found  bool

	Slug   string
	Passes bool
	Reason string

	SourcePath    string // absolute path of the image in the vault
	LocalFilename string // filesystem-safe name used in the post directory
}

// SnippetWriter materialises the standalone artifact for a resolved
// document target and reports the slug it was published under.
type SnippetWriter interface {
	WriteSnippet(ctx context.Context, title string, record frontmatter.Record, body string, verdict quality.Verdict) (slug string, err error)
}

// Resolver resolves references for one document at a time.
type Resolver struct {
	store    *vault.Store
	gate     quality.Gate
	snippets SnippetWriter
	logger   *slog.Logger
}

// New creates a Resolver. snippets may be nil, in which case document
// targets still resolve to their deterministic slug but no snippet
// artifact is produced.
func New(store *vault.Store, gate quality.Gate, snippets SnippetWriter, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, gate: gate, snippets: snippets, logger: logger}
}

// Resolve produces a map keyed by lowercase target with one Resolution per
// distinct target. Each target is resolved exactly once regardless of how
// many references point at it; independent targets resolve concurrently.
func (r *Resolver) Resolve(ctx context.Context, refs []wikilink.Reference) (map[string]Resolution, error) {
	// Distinct targets, first occurrence fixing the canonical casing and kind.
	var order []string
	distinct := make(map[string]wikilink.Reference)
	for _, ref := range refs {
		key := strings.ToLower(ref.Target)
		if _, seen := distinct[key]; seen {
			continue
		}
		distinct[key] = ref
		order = append(order, key)
	}

	results := make(map[string]Resolution, len(order))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)
	for _, key := range order {
		ref := distinct[key]
		g.Go(func() error {
			res, err := r.resolveOne(gctx, ref)
			if err != nil {
				return err
			}
			mu.Lock()
			results[key] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Resolver) resolveOne(ctx context.Context, ref wikilink.Reference) (Resolution, error) {
	if ref.Kind == wikilink.KindImage {
		return r.resolveImage(ref)
	}
	return r.resolveDocument(ctx, ref)
}

func (r *Resolver) resolveImage(ref wikilink.Reference) (Resolution, error) {
	res := Resolution{Target: ref.Target, Kind: wikilink.KindImage}

	path, err := r.store.FindImage(ref.Target)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			r.logger.Warn("image not found", slog.String("target", ref.Target))
			return res, nil
		}
		return res, err
	}

	res.Found = true
	res.SourcePath = path
	res.LocalFilename = strings.ReplaceAll(ref.Target, " ", "_")
	return res, nil
}

func (r *Resolver) resolveDocument(ctx context.Context, ref wikilink.Reference) (Resolution, error) {
	res := Resolution{Target: ref.Target, Kind: wikilink.KindDocument}

	data, err := r.store.FindDocument(ref.Target)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			r.logger.Warn("linked document not found", slog.String("target", ref.Target))
			return res, nil
		}
		return res, err
	}

	split := frontmatter.Split(string(data))

	verdict, gateErr := r.gate.Assess(ctx, ref.Target, split.Body)
	if gateErr != nil {
		// Fail open: a broken gate must not block the pipeline.
		verdict = quality.FailOpen(gateErr)
		r.logger.Warn("quality gate failed, applying fail-open verdict",
			slog.String("target", ref.Target),
			slog.String("error", gateErr.Error()))
	}

	res.Found = true
	res.Passes = verdict.Passes
	res.Reason = verdict.Reason

	if r.snippets == nil {
		res.Slug = slug.Make(ref.Target)
		return res, nil
	}

	slugVal, err := r.snippets.WriteSnippet(ctx, ref.Target, split.Record, split.Body, verdict)
	if err != nil {
		return res, fmt.Errorf("resolver: snippet for %q: %w", ref.Target, err)
	}
	res.Slug = slugVal
	return res, nil
}
