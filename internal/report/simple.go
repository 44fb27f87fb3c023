package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ragweb/ragcrawl/internal/model"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text for terminal display.
type SimpleWriter struct {
	baseWriter

	// listURLs controls whether fetched URLs are printed.
	listURLs bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithURLList controls whether the fetched URLs are listed. Default true.
func WithURLList(list bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.listURLs = list
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		listURLs:   true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the run summary followed by the fetched URLs.
func (w *SimpleWriter) Write(result *model.Result) (int, error) {
	var sb strings.Builder

	writeRule(&sb, "=")
	sb.WriteString("CRAWL RESULT\n")
	writeRule(&sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "Start URL:  %s\n", result.StartURL)
	fmt.Fprintf(&sb, "Run ID:     %s\n", result.RunID)
	if !result.StartedAt.IsZero() {
		fmt.Fprintf(&sb, "Started:    %s\n", result.StartedAt.Format(timeFormat))
		fmt.Fprintf(&sb, "Duration:   %s\n", result.Duration().Round(time.Millisecond))
	}
	fmt.Fprintf(&sb, "Pages:      %d\n", result.PageCount)
	fmt.Fprintf(&sb, "Skipped:    %d\n", result.SkippedCount)
	fmt.Fprintf(&sb, "Status:     %s\n", runStatus(result))
	sb.WriteString("\n")

	if w.listURLs && len(result.URLs) > 0 {
		writeRule(&sb, "-")
		sb.WriteString("FETCHED URLS\n")
		writeRule(&sb, "-")
		sb.WriteString("\n")
		for i, u := range result.URLs {
			fmt.Fprintf(&sb, "  %3d. %s\n", i+1, u)
		}
		sb.WriteString("\n")
	}

	return io.WriteString(w.output, sb.String())
}

// WriteHistory outputs one line per run.
func (w *SimpleWriter) WriteHistory(runs []*model.Result) (int, error) {
	if len(runs) == 0 {
		return io.WriteString(w.output, "No crawl runs recorded.\n")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-25s %6s %8s  %-10s %s\n", "STARTED", "PAGES", "SKIPPED", "STATUS", "START URL")
	for _, run := range runs {
		status := "complete"
		switch {
		case run.PolicyUnavailable:
			status = "no-robots"
		case run.Cancelled:
			status = "cancelled"
		}
		fmt.Fprintf(&sb, "%-25s %6d %8d  %-10s %s\n",
			run.StartedAt.Format(timeFormat), run.PageCount, run.SkippedCount, status, run.StartURL)
	}
	return io.WriteString(w.output, sb.String())
}

func writeRule(sb *strings.Builder, char string) {
	sb.WriteString(strings.Repeat(char, ruleWidth))
	sb.WriteString("\n")
}
