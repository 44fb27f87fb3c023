package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the config file looked up in the working and
	// home directories.
	DefaultConfigFile = ".ragcrawl"

	// XDGConfigFile is the config file name inside XDGConfigDir.
	XDGConfigFile = "config.yaml"
)

// LoadConfigFile reads the defaults and per-site settings from a YAML file.
//
// Site keys are hosts with an optional port and are folded to lower case,
// the form crawl jobs use. Unknown keys, two keys for the same host and
// negative limits are errors. A missing file returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // the path is chosen by the user
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var raw File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	if err := checkSite("defaults", raw.Defaults); err != nil {
		return nil, err
	}

	cf := &File{
		Defaults: raw.Defaults,
		Sites:    make(map[string]SiteConfig, len(raw.Sites)),
	}
	for key, site := range raw.Sites {
		host := strings.ToLower(strings.TrimSpace(key))
		if _, dup := cf.Sites[host]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSite, host)
		}
		if err := checkSite(host, site); err != nil {
			return nil, err
		}
		cf.Sites[host] = site
	}

	return cf, nil
}

// checkSite rejects limits that NewJob would refuse later.
func checkSite(name string, site SiteConfig) error {
	switch {
	case site.Depth < 0:
		return fmt.Errorf("%w: %s: depth %d", ErrInvalidSiteConfig, name, site.Depth)
	case site.MaxPages < 0:
		return fmt.Errorf("%w: %s: maxPages %d", ErrInvalidSiteConfig, name, site.MaxPages)
	case site.Delay != nil && *site.Delay < 0:
		return fmt.Errorf("%w: %s: delay %s", ErrInvalidSiteConfig, name, *site.Delay)
	}
	return nil
}

// FindConfigFile returns the config file to load, or "" when there is none.
//
// An explicit configPath is used only if it exists. Otherwise the first
// existing file of ./.ragcrawl, ~/.ragcrawl and
// $XDG_CONFIG_HOME/ragcrawl/config.yaml wins.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if fileExists(configPath) {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), XDGConfigFile))

	for _, candidate := range candidates {
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
