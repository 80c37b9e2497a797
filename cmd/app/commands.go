package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/halvard/munin/internal"
	"github.com/halvard/munin/internal/corpus"
	"github.com/halvard/munin/internal/graphsvc"
	"github.com/halvard/munin/internal/index"
	"github.com/halvard/munin/internal/mcpserver"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Index the corpus, watch it for changes and serve the HTTP API",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return internal.Run(ctx, internal.WithConfig(cfg))
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Index the corpus and serve MCP tools over stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, cleanup, err := openIndex(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			return mcpserver.New(env.svc).ServeStdio()
		},
	}
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Build the index once and print corpus statistics",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, cleanup, err := openIndex(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			s := env.stats
			fmt.Printf("scanned   %d\n", s.Scanned)
			fmt.Printf("indexed   %d\n", s.Indexed)
			fmt.Printf("resolved  %d\n", s.Resolved)
			if s.Dangling > 0 {
				color.Yellow("dangling  %d", s.Dangling)
			} else {
				fmt.Printf("dangling  %d\n", s.Dangling)
			}
			return nil
		},
	}
}

func backlinksCommand() *cli.Command {
	return &cli.Command{
		Name:      "backlinks",
		Usage:     "List documents linking to the given document",
		ArgsUsage: "<id or path>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ref := cmd.Args().First()
			if ref == "" {
				return fmt.Errorf("missing document argument")
			}
			env, cleanup, err := openIndex(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			sources, err := env.svc.Backlinks(ctx, ref)
			if err != nil {
				return err
			}
			for _, id := range sources {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func tagsCommand() *cli.Command {
	return &cli.Command{
		Name:      "tags",
		Usage:     "List all tags with counts, or the documents carrying one tag",
		ArgsUsage: "[tag]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, cleanup, err := openIndex(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if tag := cmd.Args().First(); tag != "" {
				ids, err := env.svc.TagIndex(ctx, tag)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Println(id)
				}
				return nil
			}

			counts, err := env.svc.Tags(ctx)
			if err != nil {
				return err
			}
			tags := make([]string, 0, len(counts))
			for tag := range counts {
				tags = append(tags, tag)
			}
			sort.Strings(tags)
			for _, tag := range tags {
				fmt.Printf("%-32s %d\n", tag, counts[tag])
			}
			return nil
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search through document content and titles",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum number of results"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := cmd.Args().First()
			if query == "" {
				return fmt.Errorf("missing query argument")
			}
			env, cleanup, err := openIndex(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			results, err := env.svc.Search(ctx, query, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			for _, res := range results {
				color.New(color.Bold).Printf("%s", res.ID)
				if res.Title != "" {
					fmt.Printf("  (%s)", res.Title)
				}
				fmt.Println()
				if res.Snippet != "" {
					fmt.Printf("    %s\n", res.Snippet)
				}
			}
			return nil
		},
	}
}

func graphCommand() *cli.Command {
	return &cli.Command{
		Name:  "graph",
		Usage: "Export the full link graph as JSON",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, cleanup, err := openIndex(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			nodes, edges, err := env.svc.Graph(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"nodes": nodes, "edges": edges})
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Report dangling links and parse diagnostics, exit non-zero when found",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			env, cleanup, err := openIndex(ctx, cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := env.svc.Validate(ctx)
			if err != nil {
				return err
			}
			printReport(report)
			if !report.Clean {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func printReport(report *graphsvc.Report) {
	fmt.Printf("documents  %d\n", report.Documents)

	for _, d := range report.Diagnostics {
		color.Red("%-22s %s", d.Kind, d.Path)
		if d.Detail != "" {
			fmt.Printf("    %s\n", d.Detail)
		}
	}
	for _, link := range report.Dangling {
		color.Yellow("dangling link          %s -> [[%s]]", link.Source, link.Target)
	}

	if report.Clean {
		color.Green("corpus is clean")
	}
}

type queryEnv struct {
	svc   *graphsvc.Service
	stats *index.Stats
}

// openIndex loads config, opens the corpus and index, and runs a full sync.
// The returned cleanup closes the index.
func openIndex(ctx context.Context, cmd *cli.Command) (*queryEnv, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger := internal.NewLogger("text", cfg.App.LogLevel)

	store, err := corpus.NewFS(cfg.Corpus.Path, cfg.Corpus.Ignore...)
	if err != nil {
		return nil, nil, fmt.Errorf("init corpus: %w", err)
	}

	db, err := index.Open(cfg.Index.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}

	stats, err := index.Sync(ctx, db, store, cfg.Index.WorkerCount(), logger)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("sync: %w", err)
	}

	env := &queryEnv{
		svc:   graphsvc.NewService(store, db),
		stats: stats,
	}
	return env, func() { db.Close() }, nil
}
