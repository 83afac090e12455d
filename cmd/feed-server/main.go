package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/robertmeta/feed-server/ai"
	"github.com/robertmeta/feed-server/api"
	"github.com/robertmeta/feed-server/config"
	"github.com/robertmeta/feed-server/model"
	"github.com/robertmeta/feed-server/opml"
	"github.com/robertmeta/feed-server/store"
	"github.com/urfave/cli/v2"
)

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitDataError    = 3
)

func main() {
	cfg := config.Load()

	app := &cli.App{
		Name:    "feed-server",
		Usage:   "A personal RSS/newsletter aggregator backend",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Value:   cfg.DatabasePath,
				Usage:   "Database file path",
				EnvVars: []string{"FEED_SERVER_DB"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP API server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Value:   cfg.ListenAddr,
						Usage:   "Listen address",
						EnvVars: []string{"FEED_SERVER_ADDR"},
					},
				},
				Action: func(c *cli.Context) error {
					return serve(c, cfg)
				},
			},
			{
				Name:      "import",
				Usage:     "Import feeds from an OPML file",
				ArgsUsage: "<opml-file>",
				Action:    importOPML,
			},
			{
				Name:  "export",
				Usage: "Export feeds to OPML",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (default: stdout)",
					},
				},
				Action: exportOPML,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitGeneralError)
	}
}

func getStore(c *cli.Context) (*store.Store, error) {
	dbPath := c.String("db")

	// Create directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	s, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return s, nil
}

func serve(c *cli.Context, cfg *config.Config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := getStore(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.Close()

	aiClient := ai.New(cfg.OpenAIAPIKey, cfg.ChatModel, cfg.SummaryModel)
	if !aiClient.Enabled() {
		logger.Warn("OPENAI_API_KEY not set; chat and summarization endpoints will return 503")
	}

	srv := api.New(s, aiClient, cfg, logger)
	return srv.Start(c.String("addr"))
}

func importOPML(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: feed-server import <opml-file>", ExitUsageError)
	}

	f, err := os.Open(c.Args().Get(0))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to open OPML file: %v", err), ExitDataError)
	}
	defer f.Close()

	feeds, err := opml.Parse(f)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to parse OPML: %v", err), ExitDataError)
	}

	s, err := getStore(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.Close()

	imported, skipped := 0, 0
	for _, feed := range feeds {
		existing, err := s.GetFeedByURL(feed.URL)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to check feed: %v", err), ExitDataError)
		}
		if existing != nil {
			skipped++
			continue
		}
		if err := s.SaveFeed(feed); err != nil {
			return cli.Exit(fmt.Sprintf("Failed to save feed: %v", err), ExitDataError)
		}
		imported++
	}

	fmt.Printf("Imported %d feeds (%d skipped)\n", imported, skipped)
	return nil
}

func exportOPML(c *cli.Context) error {
	s, err := getStore(c)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	defer s.Close()

	feeds, err := s.GetAllFeeds()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to get feeds: %v", err), ExitDataError)
	}
	if feeds == nil {
		feeds = []*model.Feed{}
	}

	out := os.Stdout
	if path := c.String("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to create output file: %v", err), ExitDataError)
		}
		defer f.Close()
		out = f
	}

	if err := opml.Generate(out, feeds); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to generate OPML: %v", err), ExitDataError)
	}

	return nil
}
