package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// linkFilter decides from ignore and follow glob patterns whether a
// discovered link is worth enqueueing. Filtered links never enter the
// visited set.
type linkFilter struct {
	ignore []string
	follow []string
}

// allows checks a URL against the patterns.
//
//  1. If the path matches any ignore pattern, the link is skipped.
//  2. If follow patterns are set and the path matches none, it is skipped.
//  3. Otherwise the link is allowed.
func (f linkFilter) allows(targetURL string) bool {
	if len(f.ignore) == 0 && len(f.follow) == 0 {
		return true
	}

	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range f.ignore {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(f.follow) == 0 {
		return true
	}
	for _, pattern := range f.follow {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Two shorthands are recognized: "/admin/*" matches everything below /admin,
// and "*.pdf" matches the extension in any directory.
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// Patterns without a slash are also tried against the last segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
