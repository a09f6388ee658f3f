// Package internal provides the main application initialization and runtime
// logic behind the vaultpack commands.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jkim-dev/vaultpack/internal/audit"
	"github.com/jkim-dev/vaultpack/internal/llm"
	"github.com/jkim-dev/vaultpack/internal/mcpserver"
	"github.com/jkim-dev/vaultpack/internal/packager"
	"github.com/jkim-dev/vaultpack/internal/preview"
	"github.com/jkim-dev/vaultpack/internal/quality"
	"github.com/jkim-dev/vaultpack/internal/registry"
	"github.com/jkim-dev/vaultpack/internal/review"
	"github.com/jkim-dev/vaultpack/internal/sse"
	"github.com/jkim-dev/vaultpack/internal/vault"
)

// runtime holds the wired-up components shared by the commands.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *vault.Store
	audits *audit.Store
	reg    *registry.File
	gate   quality.Gate
	gen    quality.TextGenerator // nil when no API key is configured
	pack   *packager.Packager
	titles []string

	closers []func() error
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// buildRuntime opens the vault, audit store and registry, and constructs the
// quality gate and packager. logOut receives structured logs; commands that
// own stdout (MCP) pass stderr.
func buildRuntime(ctx context.Context, app *application, logOut io.Writer) (*runtime, error) {
	cfg := app.config
	logger := newLogger(cfg, logOut)

	logger.Info("Configuration loaded",
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("output_path", cfg.Output.Path),
		slog.String("audit_path", cfg.Audit.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := vault.Open(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}

	rt := &runtime{cfg: cfg, logger: logger, store: store}

	audits, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	rt.audits = audits
	rt.closers = append(rt.closers, audits.Close)

	rt.reg = registry.New(filepath.Join(cfg.Output.Path, "snippets", "_metadata.json"))

	apiKey := cfg.Quality.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}

	var gate quality.Gate
	if apiKey == "" {
		logger.Warn("no API key configured, quality gate will auto-pass")
		gate = quality.NewAutoPassGate()
	} else {
		client, err := llm.New(ctx, apiKey)
		if err != nil {
			return nil, fmt.Errorf("init llm client: %w", err)
		}
		rt.gen = client
		rt.closers = append(rt.closers, client.Close)
		gate = quality.NewGeminiGate(client, cfg.Quality.Model, cfg.Quality.MinScore,
			time.Duration(cfg.Quality.TimeoutSeconds)*time.Second)
	}
	rt.gate = quality.Audited(gate, audits, logger)

	rt.pack = packager.New(store, rt.gate, rt.reg, cfg.Output.Path, cfg.Vault.BlockedTags, logger)

	rt.titles = app.titles
	if len(rt.titles) == 0 {
		rt.titles = cfg.Posts
	}
	return rt, nil
}

// RunPackage packages the configured documents once and exits.
func RunPackage(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := buildRuntime(ctx, app, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.close()

	if len(rt.titles) == 0 {
		return fmt.Errorf("no documents to package: pass titles or set posts in config")
	}
	return rt.pack.PackageAll(ctx, rt.titles)
}

// RunReview drafts review notes for documents flagged by the audit trail.
func RunReview(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := buildRuntime(ctx, app, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.close()

	gen := review.New(rt.store, rt.audits, rt.gen, rt.cfg.Review.Model, rt.logger)
	n, err := gen.Run(ctx, rt.cfg.Review.Threshold)
	if err != nil {
		return err
	}
	rt.logger.Info("review notes written", slog.Int("count", n))
	return nil
}

// RunWatch packages the configured documents, then repackages them whenever
// the vault changes, until ctx is cancelled or a shutdown signal arrives.
func RunWatch(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := buildRuntime(ctx, app, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.close()

	if len(rt.titles) == 0 {
		return fmt.Errorf("no documents to package: pass titles or set posts in config")
	}
	rt.packageOnce(ctx)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return packager.WatchVault(ctx, rt.store.Root(), 0, rt.logger, func(changed []string) {
		rt.packageOnce(ctx)
	})
}

// RunServe packages the configured documents, serves the output tree with a
// live-reload event stream, and repackages on vault changes.
func RunServe(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := buildRuntime(ctx, app, os.Stdout)
	if err != nil {
		return err
	}
	defer rt.close()

	cfg := rt.cfg
	logger := rt.logger

	rt.packageOnce(ctx)

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	srv := preview.NewServer(cfg.Output.Path, rt.reg, rt.audits, logger)
	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: srv.Router(broker),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Repackage and notify preview clients on vault changes.
	g.Go(func() error {
		return packager.WatchVault(gCtx, rt.store.Root(), 0, logger, func(changed []string) {
			for _, title := range rt.titles {
				slug, pkgErr := rt.pack.PackagePost(gCtx, title)
				if pkgErr != nil {
					logger.Error("repackage failed",
						slog.String("title", title),
						slog.String("error", pkgErr.Error()))
					continue
				}
				broker.PublishPackaged("post", slug)
			}
		})
	})

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the packaging tools over MCP stdio. Logs go to stderr since
// stdout carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := buildRuntime(ctx, app, os.Stderr)
	if err != nil {
		return err
	}
	defer rt.close()

	srv := mcpserver.New(rt.store, rt.pack, rt.gate, rt.reg, rt.audits)
	rt.logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}

// packageOnce runs a full packaging pass, logging failures without aborting.
func (rt *runtime) packageOnce(ctx context.Context) {
	if err := rt.pack.PackageAll(ctx, rt.titles); err != nil {
		rt.logger.Error("packaging pass incomplete", slog.String("error", err.Error()))
	}
}
