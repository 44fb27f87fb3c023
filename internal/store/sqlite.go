package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ragweb/ragcrawl/internal/model"
)

// DatabaseFileName is the name of the database file inside the data
// directory.
const DatabaseFileName = "ragcrawl.db"

// SQLiteStore stores pages and run history in a SQLite database.
// Pages are keyed by URL; runs by run ID.
type SQLiteStore struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures SQLiteStore behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// OpenSQLite opens or creates the database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned.
func OpenSQLite(dbDir string, opts Options) (*SQLiteStore, error) {
	dbPath := filepath.Join(dbDir, DatabaseFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, ErrNotFound)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (s *SQLiteStore) createTables() error {
	schema := `
	-- One row per fetched URL; re-crawling overwrites.
	CREATE TABLE IF NOT EXISTS pages (
		url TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		content TEXT NOT NULL,
		status_code INTEGER,
		content_type TEXT,
		content_hash TEXT,
		fetched_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pages_domain ON pages(domain);

	-- One row per crawl run.
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		start_url TEXT NOT NULL,
		page_count INTEGER NOT NULL,
		skipped_count INTEGER NOT NULL,
		urls TEXT NOT NULL,
		policy_unavailable INTEGER NOT NULL DEFAULT 0,
		cancelled INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_start_url ON runs(start_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Save inserts or updates the page and returns sqlite://<db path>#<url>.
func (s *SQLiteStore) Save(ctx context.Context, page *model.Page) (string, error) {
	query := `
	INSERT INTO pages (url, domain, content, status_code, content_type, content_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		domain = excluded.domain,
		content = excluded.content,
		status_code = excluded.status_code,
		content_type = excluded.content_type,
		content_hash = excluded.content_hash,
		fetched_at = excluded.fetched_at
	`

	_, err := s.db.ExecContext(ctx, query,
		page.URL,
		hostOf(page.URL),
		page.Content,
		page.StatusCode,
		page.ContentType,
		page.Hash,
		page.FetchedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save page: %w", err)
	}

	return "sqlite://" + s.dbPath + "#" + page.URL, nil
}

// GetPage retrieves a stored page by URL.
func (s *SQLiteStore) GetPage(ctx context.Context, pageURL string) (*model.Page, error) {
	query := `
	SELECT url, content, status_code, content_type, content_hash, fetched_at
	FROM pages
	WHERE url = ?
	`

	var (
		page      model.Page
		fetchedAt string
	)
	err := s.db.QueryRowContext(ctx, query, pageURL).Scan(
		&page.URL,
		&page.Content,
		&page.StatusCode,
		&page.ContentType,
		&page.Hash,
		&fetchedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %s: %w", pageURL, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	page.FetchedAt = parseTimestamp(fetchedAt)
	return &page, nil
}

// CountPages returns the number of stored pages for domain.
// An empty domain counts all pages.
func (s *SQLiteStore) CountPages(ctx context.Context, domain string) (int, error) {
	query := "SELECT COUNT(*) FROM pages"
	args := []any{}
	if domain != "" {
		query += " WHERE domain = ?"
		args = append(args, domain)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return count, nil
}

// SaveRun records a run. Saving the same run ID again overwrites it.
func (s *SQLiteStore) SaveRun(ctx context.Context, result *model.Result) error {
	urlsJSON, err := json.Marshal(result.URLs)
	if err != nil {
		return fmt.Errorf("failed to serialize urls: %w", err)
	}

	query := `
	INSERT INTO runs (run_id, start_url, page_count, skipped_count, urls, policy_unavailable, cancelled, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id) DO UPDATE SET
		page_count = excluded.page_count,
		skipped_count = excluded.skipped_count,
		urls = excluded.urls,
		policy_unavailable = excluded.policy_unavailable,
		cancelled = excluded.cancelled,
		finished_at = excluded.finished_at
	`

	_, err = s.db.ExecContext(ctx, query,
		result.RunID,
		result.StartURL,
		result.PageCount,
		result.SkippedCount,
		string(urlsJSON),
		result.PolicyUnavailable,
		result.Cancelled,
		result.StartedAt.UTC().Format(timeLayout),
		result.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// ListRuns returns runs newest first, optionally filtered by start URL.
func (s *SQLiteStore) ListRuns(ctx context.Context, startURL string, limit int) ([]*model.Result, error) {
	query := `
	SELECT run_id, start_url, page_count, skipped_count, urls, policy_unavailable, cancelled, started_at, finished_at
	FROM runs
	`
	args := []any{}
	if startURL != "" {
		query += " WHERE start_url = ?"
		args = append(args, startURL)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.Result
	for rows.Next() {
		var (
			run                   model.Result
			urlsJSON              string
			startedAt, finishedAt string
		)
		if err := rows.Scan(
			&run.RunID,
			&run.StartURL,
			&run.PageCount,
			&run.SkippedCount,
			&urlsJSON,
			&run.PolicyUnavailable,
			&run.Cancelled,
			&startedAt,
			&finishedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if err := json.Unmarshal([]byte(urlsJSON), &run.URLs); err != nil {
			continue // Skip malformed rows
		}
		run.StartedAt = parseTimestamp(startedAt)
		run.FinishedAt = parseTimestamp(finishedAt)
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// timeLayout is a fixed-width RFC 3339 layout, so stored timestamps sort
// lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// hostOf returns the lower-cased host of rawURL, or "" if it has none.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
