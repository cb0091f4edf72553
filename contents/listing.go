package contents

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

type PageFetcher interface {
	FetchPage(ctx context.Context, nextPage string) (Pagination, error)
}

var _ PageFetcher = (*Service)(nil)

// Listing owns the pagination state of one listing page.
// At most one load more runs at a time and the state is replaced as a whole on success.
type Listing struct {
	fetcher PageFetcher

	mu       sync.Mutex
	state    Pagination
	inFlight bool
}

func NewListing(fetcher PageFetcher, initial Pagination) *Listing {
	return &Listing{
		fetcher:  fetcher,
		mu:       sync.Mutex{},
		state:    initial.clone(),
		inFlight: false,
	}
}

// State returns a copy of the current state.
func (l *Listing) State() Pagination {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state.clone()
}

func (l *Listing) loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.inFlight
}

// LoadMore fetches the next page and appends it. It reports whether the state changed.
// Failures are logged and leave the state as it was, so the caller can retry.
func (l *Listing) LoadMore(ctx context.Context) bool {
	l.mu.Lock()

	if l.inFlight {
		l.mu.Unlock()
		slog.DebugContext(ctx, "load more already in flight")

		return false
	}

	if !l.state.HasNextPage() {
		l.mu.Unlock()

		return false
	}

	l.inFlight = true
	nextPage := l.state.NextPage

	l.mu.Unlock()

	page, err := l.fetch(ctx, nextPage)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.inFlight = false

	if err != nil {
		slog.ErrorContext(ctx, "failed to load more posts", "nextPage", nextPage, "error", err)

		return false
	}

	l.state = l.state.Append(page)

	return true
}

func (l *Listing) fetch(ctx context.Context, nextPage string) (page Pagination, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic while loading page: %v", r)
		}
	}()

	return l.fetcher.FetchPage(ctx, nextPage)
}
