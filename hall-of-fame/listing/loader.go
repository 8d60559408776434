package listing

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

// ErrClosed is returned by a Loader after Close.
var ErrClosed = errors.New("listing: loader closed")

// PageRequest names one page of the projects listing.
type PageRequest struct {
	Page     int
	Limit    int
	Search   string
	Category string
}

// Page is one fetched batch of projects with the server's pagination data.
type Page struct {
	Items      []domain.Project
	HasMore    bool
	TotalCount int
}

// Fetcher retrieves pages of projects.
type Fetcher interface {
	FetchPage(ctx context.Context, req PageRequest) (Page, error)
}

// Loader drives State through Reduce. It is safe for concurrent use.
type Loader struct {
	fetcher  Fetcher
	log      *log.Logger
	pageSize int

	mu       sync.Mutex
	state    State
	epoch    uint64
	epochCtx context.Context
	cancel   context.CancelFunc
	root     context.Context
	stop     context.CancelFunc
	closed   bool
}

// New creates a Loader that requests pageSize projects at a time. A
// non-positive pageSize selects domain.DefaultProjectsPageSize.
func New(fetcher Fetcher, logger *log.Logger, pageSize int) *Loader {
	if pageSize <= 0 {
		pageSize = domain.DefaultProjectsPageSize
	}
	ctx, stop := context.WithCancel(context.Background())
	return &Loader{
		fetcher:  fetcher,
		log:      logger,
		pageSize: pageSize,
		epochCtx: ctx,
		root:     ctx,
		stop:     stop,
	}
}

// State returns a snapshot of the current state.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// StartNewQuery abandons the current epoch, cancelling its in-flight fetch,
// and loads page 1 for the given filter. An empty category means all.
func (l *Loader) StartNewQuery(ctx context.Context, search, category string) error {
	q, err := domain.ListQuery{Search: search, Category: category}.Normalize(l.pageSize)
	if err != nil {
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.epoch++
	epoch := l.epoch
	epochCtx, cancel := context.WithCancel(l.root)
	l.epochCtx, l.cancel = epochCtx, cancel
	l.state = Reduce(l.state, QueryStarted{Epoch: epoch, Filter: Filter{Search: q.Search, Category: q.Category}})
	l.mu.Unlock()

	return l.fetch(ctx, epochCtx, epoch, PageRequest{Page: 1, Limit: l.pageSize, Search: q.Search, Category: q.Category})
}

// LoadNextPage fetches and appends the next page. It returns false without
// fetching when a load is already in flight or the epoch has no more pages.
func (l *Loader) LoadNextPage(ctx context.Context) (bool, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false, ErrClosed
	}
	next := Reduce(l.state, NextPageRequested{Epoch: l.epoch})
	if l.state.Loading() || !next.IsLoadingMore {
		l.mu.Unlock()
		return false, nil
	}
	l.state = next
	epoch, epochCtx := l.epoch, l.epochCtx
	req := PageRequest{Page: next.pending, Limit: l.pageSize, Search: next.Filter.Search, Category: next.Filter.Category}
	l.mu.Unlock()

	return true, l.fetch(ctx, epochCtx, epoch, req)
}

// OnScroll requests the next page once the geometry reaches LoadThreshold.
// It reports whether a fetch was made.
func (l *Loader) OnScroll(ctx context.Context, scrollTop, viewportHeight, documentHeight float64) (bool, error) {
	if !ShouldLoad(scrollTop, viewportHeight, documentHeight) {
		return false, nil
	}
	return l.LoadNextPage(ctx)
}

// Close cancels any in-flight fetch. Later calls fail with ErrClosed.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.stop()
}

func (l *Loader) fetch(ctx, epochCtx context.Context, epoch uint64, req PageRequest) error {
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	detach := context.AfterFunc(epochCtx, cancel)
	defer detach()

	page, err := l.fetcher.FetchPage(reqCtx, req)

	l.mu.Lock()
	defer l.mu.Unlock()
	entry := l.log.WithFields(log.Fields{"epoch": epoch, "page": req.Page})
	if epoch != l.epoch {
		entry.Debug("discarding page from abandoned query")
		return nil
	}
	if err != nil {
		l.state = Reduce(l.state, PageFailed{Epoch: epoch, Page: req.Page, Err: err})
		entry.WithError(err).Warn("project page fetch failed")
		return err
	}
	l.state = Reduce(l.state, PageLoaded{
		Epoch:      epoch,
		Page:       req.Page,
		Items:      page.Items,
		HasMore:    page.HasMore,
		TotalCount: page.TotalCount,
	})
	return nil
}
