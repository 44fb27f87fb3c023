package store

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/ragweb/ragcrawl/internal/model"
)

const (
	// MaxFileNameLength is the number of characters kept from the
	// sanitized URL.
	MaxFileNameLength = 200

	// hashedSuffixBytes is how much of the BLAKE2b digest WithHashedNames
	// appends.
	hashedSuffixBytes = 8
)

// unsafeNameChars are replaced by '_' in file names.
var unsafeNameChars = strings.NewReplacer(
	`\`, "_", "/", "_", "*", "_", "?", "_", ":", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// FileStore writes each page to <dir>/<name>.html.
type FileStore struct {
	dir    string
	hashed bool
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithHashedNames appends a digest of the full URL to every file name so
// that URLs sharing a long prefix no longer collide.
func WithHashedNames() FileOption {
	return func(s *FileStore) {
		s.hashed = true
	}
}

// NewFileStore creates dir if needed and returns a FileStore writing into it.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	s := &FileStore{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the output directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes the page content and returns the file path.
func (s *FileStore) Save(ctx context.Context, page *model.Page) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, s.FileName(page.URL))
	if err := os.WriteFile(path, []byte(page.Content), 0600); err != nil {
		return "", fmt.Errorf("failed to write page file: %w", err)
	}
	return path, nil
}

// FileName maps a URL to the name of its file.
//
// https://example.com/docs/a?x=1 becomes https___example.com_docs_a_x=1.html.
func (s *FileStore) FileName(pageURL string) string {
	name := unsafeNameChars.Replace(pageURL)
	name = strings.ReplaceAll(name, "://", "_")
	name = truncateRunes(name, MaxFileNameLength)

	if s.hashed {
		sum := blake2b.Sum256([]byte(pageURL))
		name += "-" + hex.EncodeToString(sum[:hashedSuffixBytes])
	}
	return name + ".html"
}

// truncateRunes returns the first n characters of s.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
