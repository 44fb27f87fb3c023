package main

import (
	"fmt"
	"log/slog"

	"github.com/ragweb/ragcrawl/internal/config"
	"github.com/ragweb/ragcrawl/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the crawl API over HTTP",
		Long: `Serve starts an HTTP API for the indexing pipeline.

  POST /crawl    {"start_url": "...", "max_pages": 50, "max_depth": 2, "crawl_delay_ms": 500}
  GET  /pages    raw content of the most recent crawl, keyed by URL
  GET  /pages?url=...  one page from the last crawl or the database
  GET  /healthz  liveness probe

Omitted request fields fall back to the flags below and the config file.
Every run is recorded in the history database.

Examples:
  ragcrawl serve
  ragcrawl serve --listen :8000 --store none`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("listen", config.DefaultListenAddress,
		"Address to listen on")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Default maximum link depth")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Default page budget")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Default pause after each fetched page")
	cmd.Flags().Bool("respect-crawl-delay", false,
		"Use the robots.txt Crawl-delay when it is longer than the delay")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header and robots.txt agent")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Concurrent fetchers per crawl")
	cmd.Flags().String("store", config.StoreFile,
		"Where pages are saved: file, sqlite, both or none")
	cmd.Flags().String("output-dir", config.DefaultOutputDir,
		"Directory of the file store")
	cmd.Flags().Bool("hashed-names", false,
		"Append a URL digest to file names so long URLs cannot collide")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the SQLite database")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, nil)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if stored, err := st.db.CountPages(cmd.Context(), ""); err != nil {
		logger.Warn("failed to count stored pages", "error", err)
	} else {
		logger.Info("database ready", "path", st.db.Path(), "stored_pages", stored)
	}

	srv := newServer(cfg, st, logger)
	return srv.ListenAndServe(cmd.Context(), cfg.ListenAddress)
}

// newServer wires the API to the configured stores and site settings.
func newServer(cfg *config.Config, st *stores, logger *slog.Logger) *server.Server {
	return server.New(
		newCrawlerFactory(cfg, st.pages, logger),
		server.WithLogger(logger),
		server.WithRunStore(st.db),
		server.WithPageReader(st.db),
		server.WithDefaults(func(host string) server.Defaults {
			site := cfg.SettingsFor(host)
			return server.Defaults{
				MaxDepth: site.MaxDepth,
				MaxPages: site.MaxPages,
				Delay:    site.Delay,
			}
		}),
	)
}
