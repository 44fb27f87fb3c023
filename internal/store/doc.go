// Package store provides the durable sinks for fetched pages.
//
// Every sink implements PageStore, whose Save is idempotent on the page URL:
// saving the same URL again overwrites the previous copy.
//
//   - FileStore writes one HTML file per page into a directory, with the file
//     name derived from the URL.
//   - SQLiteStore keeps pages and the history of runs in a SQLite database
//     (modernc.org/sqlite, no CGO).
//   - MultiStore fans a page out to several stores.
//
// # File names
//
// FileStore replaces the characters \ / * ? : " < > | with underscores,
// truncates the result to 200 characters and appends ".html". Two long URLs
// that share their first 200 characters therefore map to the same file and
// the later save wins. WithHashedNames appends a digest of the full URL to
// avoid this, at the cost of different file names.
package store
