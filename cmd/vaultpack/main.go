package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/jkim-dev/vaultpack/internal"
	pkgconfig "github.com/jkim-dev/vaultpack/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func buildOptions(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts := []internal.Option{internal.WithConfig(cfg)}
	if titles := cmd.Args().Slice(); len(titles) > 0 {
		opts = append(opts, internal.WithTitles(titles))
	}
	return opts, nil
}

func runPackage(ctx context.Context, cmd *cli.Command) error {
	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunPackage(ctx, opts...)
}

func runReview(ctx context.Context, cmd *cli.Command) error {
	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunReview(ctx, opts...)
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunServe(ctx, opts...)
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunWatch(ctx, opts...)
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func main() {
	cmd := &cli.Command{
		Name:  "vaultpack",
		Usage: "Package an Obsidian vault into publishable posts and snippets with quality-gated links",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("VAULTPACK_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "package",
				Usage:     "Package documents once and exit",
				ArgsUsage: "[title ...]",
				Action:    runPackage,
			},
			{
				Name:   "review",
				Usage:  "Draft review notes for documents flagged by the quality audit",
				Action: runReview,
			},
			{
				Name:      "serve",
				Usage:     "Package documents and serve a live preview of the output tree",
				ArgsUsage: "[title ...]",
				Action:    runServe,
			},
			{
				Name:      "watch",
				Usage:     "Package documents and repackage whenever the vault changes",
				ArgsUsage: "[title ...]",
				Action:    runWatch,
			},
			{
				Name:   "mcp",
				Usage:  "Serve packaging tools over MCP stdio",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
