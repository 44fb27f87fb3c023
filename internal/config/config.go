package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// Crawl limits and the User-Agent match the values the downstream indexing
// pipeline was tuned for.
const (
	// DefaultTimeout bounds every HTTP request, robots.txt included.
	DefaultTimeout = 10 * time.Second

	// DefaultCrawlDepth is the inclusive link distance from the start URL.
	DefaultCrawlDepth = 2

	// DefaultMaxPages is the page budget per crawl.
	DefaultMaxPages = 200

	// DefaultCrawlDelay is the pause after every successful fetch.
	DefaultCrawlDelay = 500 * time.Millisecond

	// DefaultBatchSize is the number of start URLs crawled at once.
	DefaultBatchSize = 4

	// DefaultWorkers is the number of fetchers per crawl. 1 keeps the
	// depth-first traversal order.
	DefaultWorkers = 1

	// AppName is the application name used for XDG directory paths.
	AppName = "ragcrawl"

	// DefaultUserAgent identifies the crawler in HTTP requests and is the
	// agent matched against robots.txt groups.
	DefaultUserAgent = "RAG-WebCrawler/1.0"

	// DefaultMaxBodySize limits the maximum response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultOutputDir is where the file store writes raw HTML.
	DefaultOutputDir = "data/raw_html"

	// DefaultListenAddress is the address of the HTTP API.
	DefaultListenAddress = "127.0.0.1:8000"
)

// Store kinds accepted by Config.Store.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreBoth   = "both"
	StoreNone   = "none"
)

// Config holds all configuration options for ragcrawl.
// It is populated from CLI flags and passed down explicitly; there is no
// global configuration state.
type Config struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration

	// CrawlDepth is the maximum link depth. 0 fetches only the start URL.
	CrawlDepth int

	// MaxPages is the maximum number of pages fetched per start URL.
	MaxPages int

	// CrawlDelay is the pause after each successful fetch.
	CrawlDelay time.Duration

	// RespectCrawlDelay lets a longer robots.txt Crawl-delay win over
	// CrawlDelay.
	RespectCrawlDelay bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Workers is the number of concurrent fetchers per crawl.
	Workers int

	// BatchSize is the number of start URLs crawled concurrently.
	BatchSize int

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches the log output to JSON lines.
	JSONLog bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .ragcrawl in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// Store selects where pages go: file, sqlite, both or none.
	Store string

	// OutputDir is the directory of the file store.
	OutputDir string

	// HashedNames appends a URL digest to file store names.
	HashedNames bool

	// DBDir is the directory of the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/ragcrawl on Linux).
	DBDir string

	// JSONReport selects JSON report output.
	JSONReport bool

	// MarkdownReport selects Markdown report output.
	MarkdownReport bool

	// SummaryOnly leaves the fetched URL list out of the text report.
	SummaryOnly bool

	// ReportFile is the output file path for the report.
	// When empty, the report is written to stdout.
	ReportFile string

	// Targets is the list of start URLs.
	Targets []string

	// ListenAddress is the address the HTTP API listens on.
	ListenAddress string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		CrawlDepth:    DefaultCrawlDepth,
		MaxPages:      DefaultMaxPages,
		CrawlDelay:    DefaultCrawlDelay,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
		Workers:       DefaultWorkers,
		BatchSize:     DefaultBatchSize,
		Store:         StoreFile,
		OutputDir:     DefaultOutputDir,
		DBDir:         XDGDataDir(),
		ListenAddress: DefaultListenAddress,
	}
}

// XDGDataDir returns the XDG data directory for ragcrawl.
// On Linux: ~/.local/share/ragcrawl
// On macOS: ~/Library/Application Support/ragcrawl
// On Windows: %LOCALAPPDATA%\ragcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for ragcrawl.
// On Linux: ~/.config/ragcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the options shared by all commands.
// It returns the first problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CrawlDepth < 0 {
		return ErrInvalidCrawlDepth
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	switch c.Store {
	case StoreFile, StoreSQLite, StoreBoth, StoreNone:
	default:
		return ErrInvalidStore
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// ValidateCrawl is Validate plus the checks only the crawl command needs.
func (c *Config) ValidateCrawl() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.Validate()
}

// Settings is the effective crawl configuration for one site.
type Settings struct {
	MaxDepth       int
	MaxPages       int
	Delay          time.Duration
	Headers        map[string]string
	Cookie         string
	IgnorePatterns []string
	FollowPatterns []string
}

// SettingsFor merges the global options with the config file entry for
// host. Config file values override the flags.
func (c *Config) SettingsFor(host string) Settings {
	s := Settings{
		MaxDepth: c.CrawlDepth,
		MaxPages: c.MaxPages,
		Delay:    c.CrawlDelay,
	}
	if c.SiteConfigs == nil {
		return s
	}

	site := c.SiteConfigs.GetSiteConfig(host)
	if site.Depth != 0 {
		s.MaxDepth = site.Depth
	}
	if site.MaxPages != 0 {
		s.MaxPages = site.MaxPages
	}
	if site.Delay != nil {
		s.Delay = *site.Delay
	}
	s.Headers = site.Headers
	s.Cookie = site.Cookie
	s.IgnorePatterns = site.IgnorePatterns
	s.FollowPatterns = site.FollowPatterns
	return s
}
