// Package config provides configuration structures and utilities for
// ragcrawl: defaults, validation, the YAML configuration file with per-site
// overrides, and the XDG directories used for the database.
package config
