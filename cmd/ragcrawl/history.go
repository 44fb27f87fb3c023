package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ragweb/ragcrawl/internal/config"
	"github.com/ragweb/ragcrawl/internal/model"
	"github.com/ragweb/ragcrawl/internal/report"
	"github.com/ragweb/ragcrawl/internal/store"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is the number of runs shown without --limit.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [start-url]",
		Short: "List past crawl runs",
		Long: `History lists recorded crawl runs, newest first.

With a start URL, only runs of that URL are listed. The URL is normalized
the same way a crawl normalizes it, so a trailing slash or fragment does
not matter.

Examples:
  ragcrawl history
  ragcrawl history https://docs.example.com --limit 5
  ragcrawl history --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 = all)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the SQLite database")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	var startURL string
	if len(args) == 1 {
		startURL = model.NormalizeURL(args[0])
	}

	runs, err := listRuns(cmd.Context(), cfg.DBDir, startURL, limit)
	if err != nil {
		return err
	}

	w, err := report.NewWriter(cmd.OutOrStdout(), reportFormat(cfg))
	if err != nil {
		return err
	}
	_, err = w.WriteHistory(runs)
	return err
}

// listRuns reads the run history. A database that does not exist yet holds
// no runs.
func listRuns(ctx context.Context, dbDir, startURL string, limit int) ([]*model.Result, error) {
	opts := store.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := store.OpenSQLite(dbDir, opts)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.ListRuns(ctx, startURL, limit)
}
