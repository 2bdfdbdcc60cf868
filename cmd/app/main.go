package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/halvard/vaultsync/internal"
	pkgconfig "github.com/halvard/vaultsync/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func runPull(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunPull(ctx, cfg, cmd.Bool("replace"))
}

func runPush(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunPush(ctx, cfg)
}

func runAffirm(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunAffirm(ctx, cfg, int(cmd.Int("profile")))
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, cfg)
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:  "vaultsync",
		Usage: "Bidirectional sync between a remote media store and a local Markdown vault",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the control API and vault watcher",
				Action: runServe,
			},
			{
				Name:  "pull",
				Usage: "Pull rendered notes from the store into the vault once",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "replace",
						Usage: "Delete existing notes in the destination folder before pulling",
					},
				},
				Action: runPull,
			},
			{
				Name:   "push",
				Usage:  "Push locally edited notes back to the store once",
				Action: runPush,
			},
			{
				Name:  "affirm",
				Usage: "Re-anchor routing to a profile index and enable the write guard",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "profile",
						Usage:    "Profile index to affirm (>= 1)",
						Required: true,
					},
				},
				Action: runAffirm,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: runMCP,
			},
		},
		// Bare invocation behaves like serve.
		Action: runServe,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
