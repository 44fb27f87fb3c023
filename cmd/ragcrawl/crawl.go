package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ragweb/ragcrawl/internal/config"
	"github.com/ragweb/ragcrawl/internal/crawler"
	"github.com/ragweb/ragcrawl/internal/log"
	"github.com/ragweb/ragcrawl/internal/model"
	"github.com/ragweb/ragcrawl/internal/report"
	"github.com/ragweb/ragcrawl/internal/store"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <start-url>...",
		Short: "Crawl one or more sites and store their pages",
		Long: `Crawl fetches the pages reachable from each start URL without leaving its host.

robots.txt is read first; disallowed URLs are skipped, and if robots.txt
cannot be read (missing, error status, timeout) nothing is fetched.
Links are followed depth-first up to --depth, and at most --max-pages
pages are fetched per start URL. Each fetched page is saved to the
selected store and the run is recorded in the history database.

Examples:
  # Crawl a documentation site with the defaults
  ragcrawl crawl https://docs.example.com

  # Small, fast crawl that keeps pages out of the file system
  ragcrawl crawl -d 1 -p 20 --delay 0s --store sqlite https://example.com

  # Crawl several sites, two at a time, and write a Markdown report
  ragcrawl crawl -b 2 -m -o report.md https://a.example https://b.example

Configuration file (.ragcrawl) example:
  sites:
    docs.example.com:
      depth: 3
      cookie: "session=abc123"
      headers:
        Authorization: "Bearer token"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().IntP("depth", "d", config.DefaultCrawlDepth,
		"Maximum link depth from the start URL (0 = start page only)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages to fetch per start URL")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Pause after each fetched page")
	cmd.Flags().Bool("respect-crawl-delay", false,
		"Use the robots.txt Crawl-delay when it is longer than --delay")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header and robots.txt agent")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Concurrent fetchers per site (1 keeps depth-first order)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of start URLs crawled concurrently")

	// Storage flags
	cmd.Flags().String("store", config.StoreFile,
		"Where pages are saved: file, sqlite, both or none")
	cmd.Flags().String("output-dir", config.DefaultOutputDir,
		"Directory of the file store")
	cmd.Flags().Bool("hashed-names", false,
		"Append a URL digest to file names so long URLs cannot collide")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the SQLite database")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("summary", false,
		"Leave the fetched URL list out of the text report")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.ValidateCrawl(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)

	return runCrawl(cmd.Context(), cfg, logger, cmd.OutOrStdout())
}

// buildConfig creates a Config from the flags of cmd. Flags a command
// does not define keep their defaults.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	getters := []struct {
		name string
		get  func() error
	}{
		{"timeout", func() error { cfg.Timeout, err = flags.GetDuration("timeout"); return err }},
		{"depth", func() error { cfg.CrawlDepth, err = flags.GetInt("depth"); return err }},
		{"max-pages", func() error { cfg.MaxPages, err = flags.GetInt("max-pages"); return err }},
		{"delay", func() error { cfg.CrawlDelay, err = flags.GetDuration("delay"); return err }},
		{"respect-crawl-delay", func() error { cfg.RespectCrawlDelay, err = flags.GetBool("respect-crawl-delay"); return err }},
		{"user-agent", func() error { cfg.UserAgent, err = flags.GetString("user-agent"); return err }},
		{"max-body-size", func() error { cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); return err }},
		{"workers", func() error { cfg.Workers, err = flags.GetInt("workers"); return err }},
		{"batch", func() error { cfg.BatchSize, err = flags.GetInt("batch"); return err }},
		{"store", func() error { cfg.Store, err = flags.GetString("store"); return err }},
		{"output-dir", func() error { cfg.OutputDir, err = flags.GetString("output-dir"); return err }},
		{"hashed-names", func() error { cfg.HashedNames, err = flags.GetBool("hashed-names"); return err }},
		{"db-dir", func() error { cfg.DBDir, err = flags.GetString("db-dir"); return err }},
		{"json", func() error { cfg.JSONReport, err = flags.GetBool("json"); return err }},
		{"markdown", func() error { cfg.MarkdownReport, err = flags.GetBool("markdown"); return err }},
		{"output", func() error { cfg.ReportFile, err = flags.GetString("output"); return err }},
		{"summary", func() error { cfg.SummaryOnly, err = flags.GetBool("summary"); return err }},
		{"listen", func() error { cfg.ListenAddress, err = flags.GetString("listen"); return err }},
		{"verbose", func() error { cfg.Verbose, err = flags.GetBool("verbose"); return err }},
		{"log-json", func() error { cfg.JSONLog, err = flags.GetBool("log-json"); return err }},
		{"config", func() error { cfg.ConfigFilePath, err = flags.GetString("config"); return err }},
	}
	for _, g := range getters {
		if flags.Lookup(g.name) == nil {
			continue
		}
		if err := g.get(); err != nil {
			return nil, fmt.Errorf("flag --%s: %w", g.name, err)
		}
	}

	// A missing file is only an error when the user named it.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	cfg.Targets = args
	return cfg, nil
}

// setupLogger creates the application logger on stderr.
func setupLogger(cfg *config.Config) *slog.Logger {
	return log.NewLogger(os.Stderr, log.Options{Verbose: cfg.Verbose, JSON: cfg.JSONLog})
}

// newCrawlerFactory returns a function that builds the Crawler for a job
// with the site settings of the job's host.
func newCrawlerFactory(cfg *config.Config, pages store.PageStore, logger *slog.Logger) func(*model.Job) *crawler.Crawler {
	return func(job *model.Job) *crawler.Crawler {
		site := cfg.SettingsFor(job.Domain)
		opts := []crawler.Option{
			crawler.WithLogger(logger),
			crawler.WithUserAgent(cfg.UserAgent),
			crawler.WithTimeout(cfg.Timeout),
			crawler.WithMaxBodySize(cfg.MaxBodySize),
			crawler.WithWorkers(cfg.Workers),
			crawler.WithRespectCrawlDelay(cfg.RespectCrawlDelay),
			crawler.WithHeaders(site.Headers),
			crawler.WithCookie(site.Cookie),
			crawler.WithIgnorePatterns(site.IgnorePatterns),
			crawler.WithFollowPatterns(site.FollowPatterns),
		}
		if pages != nil {
			opts = append(opts, crawler.WithStore(pages))
		}
		return crawler.New(opts...)
	}
}

// buildJob creates the job for target using the limits configured for its
// host.
func buildJob(cfg *config.Config, target string) (*model.Job, error) {
	job, err := model.NewJob(target, cfg.CrawlDepth, cfg.MaxPages, cfg.CrawlDelay)
	if err != nil {
		return nil, err
	}
	site := cfg.SettingsFor(job.Domain)
	return model.NewJob(job.StartURL, site.MaxDepth, site.MaxPages, site.Delay)
}

// stores holds the open page store and the history database.
type stores struct {
	pages store.PageStore
	db    *store.SQLiteStore
}

// openStores opens the stores selected by cfg.Store. The SQLite database
// is always opened because it holds the run history.
func openStores(cfg *config.Config) (*stores, error) {
	db, err := store.OpenSQLite(cfg.DBDir, store.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &stores{db: db}

	var fileStore *store.FileStore
	if cfg.Store == config.StoreFile || cfg.Store == config.StoreBoth {
		var opts []store.FileOption
		if cfg.HashedNames {
			opts = append(opts, store.WithHashedNames())
		}
		fileStore, err = store.NewFileStore(cfg.OutputDir, opts...)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	switch cfg.Store {
	case config.StoreFile:
		s.pages = fileStore
	case config.StoreSQLite:
		s.pages = db
	case config.StoreBoth:
		s.pages, err = store.NewMultiStore(fileStore, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *stores) Close() error {
	return s.db.Close()
}

// runCrawl crawls every target and writes the reports to out.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	if len(cfg.Targets) == 0 {
		return config.ErrNoTarget
	}

	jobs := make([]*model.Job, len(cfg.Targets))
	for i, target := range cfg.Targets {
		job, err := buildJob(cfg, target)
		if err != nil {
			return fmt.Errorf("invalid target %q: %w", target, err)
		}
		jobs[i] = job
	}

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	logger.Info("starting crawl",
		"targets", len(jobs),
		"store", cfg.Store,
		"batch_size", cfg.BatchSize,
		"workers", cfg.Workers,
	)

	factory := newCrawlerFactory(cfg, st.pages, logger)
	startTime := time.Now()

	var results []*model.Result
	if len(jobs) > 1 && cfg.BatchSize > 1 {
		b := crawler.NewBatch(factory,
			crawler.WithConcurrency(cfg.BatchSize),
			crawler.WithBatchLogger(logger),
		)
		results, err = b.Run(ctx, jobs)
	} else {
		results, err = runSequential(ctx, factory, jobs, logger)
	}

	for _, result := range results {
		if result == nil {
			continue
		}
		if saveErr := st.db.SaveRun(context.WithoutCancel(ctx), result); saveErr != nil {
			logger.Error("failed to save run", "run_id", result.RunID, "error", saveErr)
		}
	}

	logger.Info("crawl complete", "elapsed", time.Since(startTime).Round(time.Millisecond))

	if reportErr := outputReport(cfg, results, out); reportErr != nil {
		return errors.Join(err, reportErr)
	}
	return err
}

// runSequential crawls jobs one at a time. It stops at the first
// cancelled run; later jobs get no result.
func runSequential(ctx context.Context, factory func(*model.Job) *crawler.Crawler, jobs []*model.Job, logger *slog.Logger) ([]*model.Result, error) {
	results := make([]*model.Result, 0, len(jobs))
	for _, job := range jobs {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		result, err := factory(job).Run(ctx, job)
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			logger.Warn("crawl stopped early", "start_url", job.StartURL, "error", err)
			return results, err
		}
	}
	return results, nil
}

// reportFormat returns the report format selected by cfg.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatText
	}
}

// outputReport writes a report for every result to the report file, or to
// out when no file is configured.
func outputReport(cfg *config.Config, results []*model.Result, out io.Writer) error {
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var w report.Writer
	format := reportFormat(cfg)
	if format == report.FormatText && cfg.SummaryOnly {
		w = report.NewSimpleWriter(out, report.WithURLList(false))
	} else {
		var err error
		if w, err = report.NewWriter(out, format); err != nil {
			return err
		}
	}
	for _, result := range results {
		if result == nil {
			continue
		}
		if _, err := w.Write(result); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}
