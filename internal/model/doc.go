// Package model defines the core data structures shared by the crawler,
// the page stores, the report writers and the HTTP server.
//
// This package contains the following main types:
//   - Job: immutable configuration of one crawl run
//   - Page: a fetched page (the record handed to a PageStore)
//   - Result: the summary returned to the caller of a run
//
// Design decision: models live in their own package so that crawler, store,
// report and server can all depend on them without import cycles.
package model
