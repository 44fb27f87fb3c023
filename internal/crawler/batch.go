package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ragweb/ragcrawl/internal/model"
	"golang.org/x/sync/errgroup"
)

// Batch runs several crawl jobs concurrently.
// Each job gets its own Crawler from the factory and its own traversal
// state; jobs never share a visited set or a budget.
type Batch struct {
	// factory creates the Crawler for a job. This lets callers apply
	// per-site settings (headers, patterns) to each job.
	factory func(job *model.Job) *Crawler

	// concurrency is the maximum number of jobs running at once.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithBatchLogger sets a custom logger for batch-level messages.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *Batch) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent jobs.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *Batch) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatch creates a Batch.
func NewBatch(factory func(job *model.Job) *Crawler, opts ...BatchOption) *Batch {
	b := &Batch{
		factory:     factory,
		concurrency: 4,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}

	return b
}

// Run crawls all jobs with at most the configured number running at once.
//
// Results are returned in the order of jobs. A job whose crawl did not
// start because ctx was cancelled has a nil result. The error is ctx.Err()
// when the batch was cancelled and nil otherwise; per-job problems are
// reported inside each result.
func (b *Batch) Run(ctx context.Context, jobs []*model.Job) ([]*model.Result, error) {
	b.logger.Info("starting batch crawl",
		"total_jobs", len(jobs),
		"concurrency", b.concurrency,
	)

	startTime := time.Now()
	results := make([]*model.Result, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(b.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			result, err := b.factory(job).Run(ctx, job)
			// Each goroutine writes its own index.
			results[i] = result
			if err != nil {
				b.logger.Warn("crawl stopped early",
					"start_url", job.StartURL,
					"error", err,
				)
			}
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers never return errors

	b.logger.Info("batch crawl complete",
		"total_jobs", len(jobs),
		"elapsed", time.Since(startTime),
	)

	return results, ctx.Err()
}
