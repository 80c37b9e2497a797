package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/halvard/munin/internal"
	pkgconfig "github.com/halvard/munin/pkg/config"
)

func main() {
	cmd := &cli.Command{
		Name:  "munin",
		Usage: "Bidirectional link index over a Markdown corpus: backlinks, tags, search, and graph queries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "corpus",
				Usage:   "Corpus directory (overrides config)",
				Sources: cli.EnvVars("MUNIN_CORPUS"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			indexCommand(),
			backlinksCommand(),
			tagsCommand(),
			searchCommand(),
			graphCommand(),
			validateCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// loadConfig layers the optional config file and CLI flags over defaults.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if corpus := cmd.String("corpus"); corpus != "" {
		cfg.Corpus.Path = corpus
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
