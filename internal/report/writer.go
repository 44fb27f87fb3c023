package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/ragweb/ragcrawl/internal/model"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// Writer defines the interface for report output.
//
// Design decision: writers take an io.Writer at construction so the same
// report can go to stdout, a file, or an HTTP response.
type Writer interface {
	// Write outputs the summary of a single crawl run.
	// Returns the number of bytes written and any error encountered.
	Write(result *model.Result) (int, error)

	// WriteHistory outputs a list of past runs, newest first.
	WriteHistory(runs []*model.Result) (int, error)
}

// Format names a report format.
type Format string

const (
	// FormatText is the human-readable terminal format.
	FormatText Format = "text"
	// FormatJSON is the machine-readable format.
	FormatJSON Format = "json"
	// FormatMarkdown is the format for documentation and sharing.
	FormatMarkdown Format = "markdown"
)

// NewWriter returns the Writer for format. JSON output is pretty-printed.
func NewWriter(output io.Writer, format Format) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewSimpleWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// runStatus describes how a run ended.
func runStatus(result *model.Result) string {
	switch {
	case result.PolicyUnavailable:
		return "robots.txt unavailable (nothing fetched)"
	case result.Cancelled:
		return "cancelled (partial results)"
	default:
		return "complete"
	}
}

const timeFormat = "2006-01-02 15:04:05 MST"
