package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/ragweb/ragcrawl/internal/model"
)

// MarkdownWriter outputs results in GitHub-flavored Markdown, built with
// the nao1215/markdown builder.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the run summary, an alert for incomplete runs, and the
// list of fetched URLs.
func (w *MarkdownWriter) Write(result *model.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Result")
	md.PlainText("")

	rows := [][]string{
		{"Start URL", "`" + result.StartURL + "`"},
		{"Run ID", "`" + result.RunID + "`"},
	}
	if !result.StartedAt.IsZero() {
		rows = append(rows, []string{"Started", result.StartedAt.Format(timeFormat)})
	}
	rows = append(rows,
		[]string{"Pages Fetched", strconv.Itoa(result.PageCount)},
		[]string{"Skipped", strconv.Itoa(result.SkippedCount)},
		[]string{"Status", runStatus(result)},
	)
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writeAlert(md, result)

	md.H2("Fetched URLs")
	md.PlainText("")
	if len(result.URLs) == 0 {
		md.PlainText("No pages were fetched.")
	} else {
		md.BulletList(result.URLs...)
	}
	md.PlainText("")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, result *model.Result) {
	switch {
	case result.PolicyUnavailable:
		md.Caution("robots.txt could not be loaded, so no page was fetched.")
	case result.Cancelled:
		md.Warning("The run was cancelled before the frontier was exhausted. Results are partial.")
	case result.SkippedCount > 0:
		md.Note(fmt.Sprintf("%d URL(s) were skipped by robots.txt or failed to fetch. See the log for causes.", result.SkippedCount))
	default:
		return
	}
	md.PlainText("")
}

// WriteHistory outputs the runs as a single table.
func (w *MarkdownWriter) WriteHistory(runs []*model.Result) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No crawl runs recorded.")
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, run := range runs {
		rows[i] = []string{
			run.StartedAt.Format(timeFormat),
			"`" + run.StartURL + "`",
			strconv.Itoa(run.PageCount),
			strconv.Itoa(run.SkippedCount),
			runStatus(run),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Started", "Start URL", "Pages", "Skipped", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	return len(md.String()), md.Build()
}
