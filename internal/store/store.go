package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ragweb/ragcrawl/internal/model"
)

// PageStore persists fetched pages.
type PageStore interface {
	// Save stores page and returns where it was written. Saving a page with
	// a URL that is already stored overwrites it.
	Save(ctx context.Context, page *model.Page) (string, error)
}

// PageReader looks up stored pages.
type PageReader interface {
	// GetPage returns the page stored under pageURL, or an error wrapping
	// ErrNotFound.
	GetPage(ctx context.Context, pageURL string) (*model.Page, error)
}

// RunStore keeps the history of crawl runs.
type RunStore interface {
	// SaveRun records a finished run.
	SaveRun(ctx context.Context, result *model.Result) error

	// ListRuns returns runs newest first. An empty startURL lists all runs.
	// limit <= 0 means no limit.
	ListRuns(ctx context.Context, startURL string, limit int) ([]*model.Result, error)
}

// MultiStore saves every page to all of its stores.
type MultiStore struct {
	stores []PageStore
}

// NewMultiStore returns a MultiStore over stores.
func NewMultiStore(stores ...PageStore) (*MultiStore, error) {
	if len(stores) == 0 {
		return nil, ErrNoStores
	}
	return &MultiStore{stores: stores}, nil
}

// Save writes page to every store and returns the location reported by the
// first one. All stores are attempted; the errors are joined.
func (m *MultiStore) Save(ctx context.Context, page *model.Page) (string, error) {
	var (
		location string
		errs     []error
	)
	for i, s := range m.stores {
		loc, err := s.Save(ctx, page)
		if err != nil {
			errs = append(errs, fmt.Errorf("store %d: %w", i, err))
			continue
		}
		if i == 0 {
			location = loc
		}
	}
	return location, errors.Join(errs...)
}
