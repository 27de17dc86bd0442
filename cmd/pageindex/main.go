// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/poiesic/pageindex"
	"github.com/poiesic/pageindex/cache"
	"github.com/poiesic/pageindex/config"
	"github.com/poiesic/pageindex/core"
	"github.com/poiesic/pageindex/history"
	"github.com/poiesic/pageindex/index"
	"github.com/poiesic/pageindex/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// app carries state shared by every command.
type app struct {
	stdout   io.Writer
	stderr   io.Writer
	cfg      *config.File
	closeLog func() error
}

func newApp(stdout, stderr io.Writer) *cli.App {
	a := &app{stdout: stdout, stderr: stderr}
	return &cli.App{
		Name:      "pageindex",
		Usage:     "Reasoning-driven research over podcast transcripts",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"PAGEINDEX_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "index-dir",
				Usage: "Directory holding the transcript index",
			},
			&cli.StringFlag{
				Name:  "db-path",
				Usage: "Path to BadgerDB cache directory",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Also write JSON logs to this file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
		},
		Before: a.setup,
		After:  a.teardown,
		Commands: []*cli.Command{
			{
				Name:      "research",
				Usage:     "Answer a research question from the index",
				ArgsUsage: "<query>",
				Action:    a.researchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "session",
						Aliases: []string{"s"},
						Usage:   "Session id to record the query under",
					},
					&cli.StringFlag{
						Name:  "guest",
						Usage: "Restrict retrieval to one guest's episodes",
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Print navigation decisions to stderr",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full result as JSON",
					},
					&cli.BoolFlag{
						Name:  "no-cache",
						Usage: "Bypass the result cache and session history",
					},
					&cli.BoolFlag{
						Name:    "quick",
						Aliases: []string{"q"},
						Usage:   "Answer directly in one pass, without planning",
					},
				},
			},
			{
				Name:  "cache",
				Usage: "Inspect or clear the result cache",
				Subcommands: []*cli.Command{
					{
						Name:   "top",
						Usage:  "List the most requested cached queries",
						Action: a.cacheTopCommand,
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  "limit",
								Usage: "Number of entries to list (0 for all)",
								Value: 10,
							},
						},
					},
					{
						Name:   "clear",
						Usage:  "Remove every cached result",
						Action: a.cacheClearCommand,
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Show the queries recorded for a session",
				Action: a.historyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "session",
						Aliases:  []string{"s"},
						Usage:    "Session id",
						Required: true,
					},
				},
			},
			{
				Name:  "index",
				Usage: "Inspect the transcript index",
				Subcommands: []*cli.Command{
					{
						Name:   "stats",
						Usage:  "Count themes, episodes, topics and quotes",
						Action: a.indexStatsCommand,
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "json", Usage: "Print as JSON"},
						},
					},
					{
						Name:   "validate",
						Usage:  "Load the index and report the first schema error",
						Action: a.indexValidateCommand,
					},
				},
			},
		},
	}
}

// setup loads configuration (file, then environment, then flags) and
// installs the logger.
func (a *app) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if c.IsSet("index-dir") {
		cfg.IndexDir = c.String("index-dir")
	}
	if c.IsSet("db-path") {
		cfg.DBPath = c.String("db-path")
	}
	if c.IsSet("log-file") {
		cfg.Logging.File = c.String("log-file")
	}
	if c.IsSet("log-level") {
		cfg.Logging.Level = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	logger, closeLog := config.SetupLogger(cfg.Logging.File, level)
	slog.SetDefault(logger)

	a.cfg = cfg
	a.closeLog = closeLog
	return nil
}

func (a *app) teardown(c *cli.Context) error {
	if a.closeLog != nil {
		return a.closeLog()
	}
	return nil
}

func (a *app) loadIndex() (*index.Store, error) {
	store, err := index.LoadDir(a.cfg.IndexDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}
	return store, nil
}

func (a *app) researchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a query is required")
	}

	aiConfig := a.cfg.AIConfig()
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	store, err := a.loadIndex()
	if err != nil {
		return err
	}

	opts := []pageindex.EngineOption{
		pageindex.WithAIConfig(aiConfig),
		pageindex.WithNavigatorOptions(a.cfg.NavigatorOptions()...),
		pageindex.WithResearchOptions(a.cfg.ResearchOptions()...),
		pageindex.WithSynthesisOptions(a.cfg.SynthesisOptions()...),
		pageindex.WithCitationOptions(a.cfg.CitationOptions()...),
		pageindex.WithHistoryOptions(a.cfg.HistoryOptions()...),
	}
	if c.Bool("no-cache") {
		opts = append(opts, pageindex.WithoutCache())
	} else {
		opts = append(opts, pageindex.WithDatabase(a.cfg.DBPath))
	}
	if c.Bool("trace") {
		opts = append(opts, pageindex.WithMonitor(newTraceMonitor(a.stderr, store)))
	}

	engine, err := pageindex.NewEngine(store, opts...)
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out, err := engine.Research(ctx, pageindex.Request{
		Query:     query,
		SessionID: c.String("session"),
		Guest:     c.String("guest"),
		Quick:     c.Bool("quick"),
	})
	if err != nil {
		switch core.CodeOf(err) {
		case core.CodeRetrievalFailed:
			return cli.Exit("no relevant content found for this query", 2)
		case core.CodeInvalidQuery:
			return cli.Exit(err.Error(), 64)
		}
		return err
	}

	if c.Bool("json") {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printResearch(a.stdout, out)
	return nil
}

func printResearch(w io.Writer, out *core.ResearchOutput) {
	if s := out.ExecutiveSummary; s != nil && s.MainInsight != "" {
		fmt.Fprintf(w, "> %s\n\n", s.MainInsight)
	}
	fmt.Fprintln(w, out.Content)
	fmt.Fprintf(w, "\n%d citations, %d verified\n", len(out.Citations), out.VerifiedCount())
	if len(out.UnverifiedQuotes) > 0 {
		fmt.Fprintln(w, "Unverified quotes:")
		for _, q := range out.UnverifiedQuotes {
			fmt.Fprintf(w, "  - %q\n", q)
		}
	}
}

func (a *app) openCache() (*cache.Manager, func(), error) {
	cacheRepo, historyRepo, backend, err := badger.OpenRepositories(a.cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	cleanup := func() {
		historyRepo.Close()
		cacheRepo.Close()
		backend.Close()
	}
	mgr, err := cache.New(cacheRepo)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return mgr, cleanup, nil
}

func (a *app) cacheTopCommand(c *cli.Context) error {
	mgr, cleanup, err := a.openCache()
	if err != nil {
		return err
	}
	defer cleanup()

	entries, err := mgr.TopByAccessCount(c.Context, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list cache: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.stdout, "cache is empty")
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tHITS\tCACHED\tQUERY")
	for i, e := range entries {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", i+1, e.AccessCount, e.CachedAt.Local().Format(time.DateTime), e.Query)
	}
	return tw.Flush()
}

func (a *app) cacheClearCommand(c *cli.Context) error {
	mgr, cleanup, err := a.openCache()
	if err != nil {
		return err
	}
	defer cleanup()

	n, err := mgr.InvalidateAll(c.Context)
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintf(a.stdout, "removed %d cached results\n", n)
	return nil
}

func (a *app) historyCommand(c *cli.Context) error {
	cacheRepo, historyRepo, backend, err := badger.OpenRepositories(a.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()
	defer cacheRepo.Close()
	defer historyRepo.Close()

	rec, err := history.New(historyRepo, a.cfg.HistoryOptions()...)
	if err != nil {
		return err
	}
	defer rec.Close()

	entries, err := rec.Session(c.Context, c.String("session"))
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.stdout, "no history for this session")
		return nil
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tQUERY")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.Timestamp.Local().Format(time.DateTime), e.Query)
	}
	return tw.Flush()
}

func (a *app) indexStatsCommand(c *cli.Context) error {
	store, err := a.loadIndex()
	if err != nil {
		return err
	}
	stats := store.Stats()
	if c.Bool("json") {
		return json.NewEncoder(a.stdout).Encode(stats)
	}
	fmt.Fprintf(a.stdout, "themes:   %d\n", stats.Themes)
	fmt.Fprintf(a.stdout, "episodes: %d\n", stats.Episodes)
	fmt.Fprintf(a.stdout, "topics:   %d\n", stats.Topics)
	fmt.Fprintf(a.stdout, "quotes:   %d\n", stats.Quotes)
	fmt.Fprintf(a.stdout, "guests:   %d\n", len(store.Guests()))
	return nil
}

func (a *app) indexValidateCommand(c *cli.Context) error {
	_, err := index.LoadDir(a.cfg.IndexDir)
	switch {
	case err == nil:
		fmt.Fprintf(a.stdout, "index %s is valid\n", a.cfg.IndexDir)
		return nil
	case errors.Is(err, index.ErrIndexMissing), errors.Is(err, index.ErrIndexMalformed):
		return cli.Exit(err.Error(), 1)
	}
	return err
}
