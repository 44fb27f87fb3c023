// Package report renders crawl results.
//
// Three writers implement the Writer interface:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: the Result as JSON, identical to the HTTP API body
//   - MarkdownWriter: Markdown tables built with github.com/nao1215/markdown
//
// Each writer renders a single run with Write and a list of past runs
// (from the SQLite run history) with WriteHistory. NewWriter picks a
// writer by Format.
package report
