package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig documents the defaults; a failing case means a default
// changed.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 10 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 10*time.Second {
			t.Errorf("expected Timeout to be 10s, got %v", cfg.Timeout)
		}
	})

	t.Run("default CrawlDepth is 2", func(t *testing.T) {
		t.Parallel()
		if cfg.CrawlDepth != 2 {
			t.Errorf("expected CrawlDepth to be 2, got %d", cfg.CrawlDepth)
		}
	})

	t.Run("default MaxPages is 200", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxPages != 200 {
			t.Errorf("expected MaxPages to be 200, got %d", cfg.MaxPages)
		}
	})

	t.Run("default CrawlDelay is 500ms", func(t *testing.T) {
		t.Parallel()
		if cfg.CrawlDelay != 500*time.Millisecond {
			t.Errorf("expected CrawlDelay to be 500ms, got %v", cfg.CrawlDelay)
		}
	})

	t.Run("default UserAgent", func(t *testing.T) {
		t.Parallel()
		if cfg.UserAgent != "RAG-WebCrawler/1.0" {
			t.Errorf("unexpected UserAgent %q", cfg.UserAgent)
		}
	})

	t.Run("default store writes raw HTML files", func(t *testing.T) {
		t.Parallel()
		if cfg.Store != StoreFile || cfg.OutputDir != "data/raw_html" {
			t.Errorf("unexpected store %q in %q", cfg.Store, cfg.OutputDir)
		}
	})

	t.Run("default Workers is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.Workers != 1 {
			t.Errorf("expected Workers to be 1, got %d", cfg.Workers)
		}
	})

	t.Run("default DBDir is the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
	})

	t.Run("defaults are valid", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative depth", func(c *Config) { c.CrawlDepth = -1 }, ErrInvalidCrawlDepth},
		{"zero max pages", func(c *Config) { c.MaxPages = 0 }, ErrInvalidMaxPages},
		{"negative delay", func(c *Config) { c.CrawlDelay = -time.Second }, ErrInvalidCrawlDelay},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"zero workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"unknown store", func(c *Config) { c.Store = "s3" }, ErrInvalidStore},
		{"both report formats", func(c *Config) { c.JSONReport, c.MarkdownReport = true, true }, ErrConflictingReportFormats},
		{"zero delay is fine", func(c *Config) { c.CrawlDelay = 0 }, nil},
		{"depth zero is fine", func(c *Config) { c.CrawlDepth = 0 }, nil},
		{"sqlite store", func(c *Config) { c.Store = StoreSQLite }, nil},
		{"no store", func(c *Config) { c.Store = StoreNone }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("crawl needs a target", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		if err := cfg.ValidateCrawl(); !errors.Is(err, ErrNoTarget) {
			t.Errorf("ValidateCrawl() = %v, want ErrNoTarget", err)
		}
		cfg.Targets = []string{"https://example.com"}
		if err := cfg.ValidateCrawl(); err != nil {
			t.Errorf("ValidateCrawl() = %v", err)
		}
	})
}

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	delay := 2 * time.Second
	file := &File{
		Defaults: SiteConfig{
			Depth:   3,
			Cookie:  "default=1",
			Headers: map[string]string{"X-Default": "d"},
		},
		Sites: map[string]SiteConfig{
			"docs.example.com": {
				Depth:          5,
				MaxPages:       50,
				Delay:          &delay,
				Cookie:         "session=xyz",
				Headers:        map[string]string{"Authorization": "Bearer t"},
				IgnorePatterns: []string{"/admin/*"},
				FollowPatterns: []string{"/docs/*"},
			},
		},
	}

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		got := file.GetSiteConfig("other.example.com")
		if got.Depth != 3 || got.Cookie != "default=1" || got.Delay != nil {
			t.Errorf("unexpected config %+v", got)
		}
	})

	t.Run("site values override defaults", func(t *testing.T) {
		t.Parallel()

		got := file.GetSiteConfig("docs.example.com")
		if got.Depth != 5 || got.MaxPages != 50 || got.Cookie != "session=xyz" {
			t.Errorf("unexpected config %+v", got)
		}
		if got.Delay == nil || *got.Delay != 2*time.Second {
			t.Errorf("Delay = %v", got.Delay)
		}
		if got.Headers["Authorization"] != "Bearer t" || got.Headers["X-Default"] != "d" {
			t.Errorf("headers not merged: %v", got.Headers)
		}
		if len(got.IgnorePatterns) != 1 || len(got.FollowPatterns) != 1 {
			t.Errorf("patterns not applied: %+v", got)
		}
	})

	t.Run("merging does not modify defaults", func(t *testing.T) {
		t.Parallel()

		_ = file.GetSiteConfig("docs.example.com")
		if _, ok := file.Defaults.Headers["Authorization"]; ok {
			t.Error("site header leaked into defaults")
		}
	})
}

func TestConfigSettingsFor(t *testing.T) {
	t.Parallel()

	t.Run("without config file uses flags", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.CrawlDepth = 4
		s := cfg.SettingsFor("example.com")
		if s.MaxDepth != 4 || s.MaxPages != DefaultMaxPages || s.Delay != DefaultCrawlDelay {
			t.Errorf("unexpected settings %+v", s)
		}
	})

	t.Run("config file overrides flags", func(t *testing.T) {
		t.Parallel()

		zero := time.Duration(0)
		cfg := NewConfig()
		cfg.SiteConfigs = &File{Sites: map[string]SiteConfig{
			"example.com": {Depth: 1, MaxPages: 7, Delay: &zero, Cookie: "c=1"},
		}}

		s := cfg.SettingsFor("example.com")
		if s.MaxDepth != 1 || s.MaxPages != 7 || s.Delay != 0 || s.Cookie != "c=1" {
			t.Errorf("unexpected settings %+v", s)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.ragcrawl")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".ragcrawl")
		content := `defaults:
  depth: 1
  delay: 750ms
sites:
  docs.example.com:
    depth: 3
    maxPages: 40
    delay: 0s
    cookie: "session=xyz"
    headers:
      Authorization: "Bearer token"
    ignorePatterns:
      - "/admin/*"
    followPatterns:
      - "/docs/*"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Defaults.Depth != 1 {
			t.Errorf("expected default depth 1, got %d", cfg.Defaults.Depth)
		}
		if cfg.Defaults.Delay == nil || *cfg.Defaults.Delay != 750*time.Millisecond {
			t.Errorf("expected default delay 750ms, got %v", cfg.Defaults.Delay)
		}

		site, ok := cfg.Sites["docs.example.com"]
		if !ok {
			t.Fatal("expected docs.example.com in sites")
		}
		if site.Depth != 3 || site.MaxPages != 40 {
			t.Errorf("unexpected site config %+v", site)
		}
		if site.Delay == nil || *site.Delay != 0 {
			t.Errorf("expected explicit zero delay, got %v", site.Delay)
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Error("expected Authorization header")
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".ragcrawl")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".ragcrawl")
		if err := os.WriteFile(configPath, []byte("defaults:\n  depth: 2\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

func TestLoadConfigFileChecks(t *testing.T) {
	t.Parallel()

	write := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), ".ragcrawl")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		return path
	}

	t.Run("site hosts are folded to lower case", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile(write(t, "sites:\n  Docs.Example.COM:8080:\n    depth: 2\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := cfg.Sites["docs.example.com:8080"]; !ok {
			t.Errorf("expected lower-case key, got %v", cfg.Sites)
		}
		if got := cfg.GetSiteConfig("DOCS.example.com:8080"); got.Depth != 2 {
			t.Errorf("lookup with mixed case: depth = %d, want 2", got.Depth)
		}
	})

	t.Run("empty file is an empty config", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile(write(t, ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil || len(cfg.Sites) != 0 {
			t.Errorf("Sites = %v", cfg.Sites)
		}
	})

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"duplicate host after folding", "sites:\n  example.com:\n    depth: 1\n  EXAMPLE.com:\n    depth: 2\n", ErrDuplicateSite},
		{"negative site depth", "sites:\n  example.com:\n    depth: -1\n", ErrInvalidSiteConfig},
		{"negative default budget", "defaults:\n  maxPages: -3\n", ErrInvalidSiteConfig},
		{"negative delay", "sites:\n  example.com:\n    delay: -1s\n", ErrInvalidSiteConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := LoadConfigFile(write(t, tt.content)); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("unknown keys are rejected", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(write(t, "sites:\n  example.com:\n    maxpages: 5\n"))
		if err == nil || !strings.Contains(err.Error(), "maxpages") {
			t.Errorf("expected an error naming the unknown key, got %v", err)
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{"data": XDGDataDir(), "config": XDGConfigDir()} {
		if !strings.HasSuffix(dir, AppName) {
			t.Errorf("%s dir %q does not end with %q", name, dir, AppName)
		}
	}
}
