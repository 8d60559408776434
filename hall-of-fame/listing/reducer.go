// Package listing keeps the Hall of Fame project list: pages fetched from the
// site API, appended as the reader scrolls and reset when the filter changes.
package listing

import (
	"slices"

	"github.com/Romaric250/ticsummit26-sub001/site-api/domain"
)

// Filter is the search and category pair that defines an epoch.
type Filter struct {
	Search   string
	Category string
}

// State is the loader's view of the current epoch. Values are never mutated
// in place; Reduce returns a new State.
type State struct {
	Epoch  uint64
	Filter Filter

	Items            []domain.Project
	Page             int
	HasMore          bool
	IsInitialLoading bool
	IsLoadingMore    bool
	TotalCount       int

	// pending is the page requested by the in-flight fetch, 0 when idle.
	pending int
}

// Loading reports whether a fetch for the current epoch is in flight.
func (s State) Loading() bool { return s.IsInitialLoading || s.IsLoadingMore }

// Pending returns the page number of the in-flight fetch, or 0.
func (s State) Pending() int { return s.pending }

// Action is a state transition accepted by Reduce.
type Action interface{ action() }

// QueryStarted opens a new epoch for Filter.
type QueryStarted struct {
	Epoch  uint64
	Filter Filter
}

// NextPageRequested asks for the page after the last one loaded.
type NextPageRequested struct{ Epoch uint64 }

// PageLoaded delivers a fetched page.
type PageLoaded struct {
	Epoch      uint64
	Page       int
	Items      []domain.Project
	HasMore    bool
	TotalCount int
}

// PageFailed reports that a fetch produced no data.
type PageFailed struct {
	Epoch uint64
	Page  int
	Err   error
}

func (QueryStarted) action()      {}
func (NextPageRequested) action() {}
func (PageLoaded) action()        {}
func (PageFailed) action()        {}

// Reduce applies a to s. Actions that belong to another epoch, or that answer
// a page nobody is waiting for, leave s unchanged.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case QueryStarted:
		return State{
			Epoch:            a.Epoch,
			Filter:           a.Filter,
			HasMore:          true,
			IsInitialLoading: true,
			pending:          1,
		}
	case NextPageRequested:
		if a.Epoch != s.Epoch || s.Loading() || !s.HasMore {
			return s
		}
		s.IsLoadingMore = true
		s.pending = s.Page + 1
		return s
	case PageLoaded:
		if a.Epoch != s.Epoch || !s.Loading() || a.Page != s.pending {
			return s
		}
		s.Items = slices.Concat(s.Items, a.Items)
		s.Page = a.Page
		s.HasMore = a.HasMore
		s.TotalCount = a.TotalCount
		s.IsInitialLoading = false
		s.IsLoadingMore = false
		s.pending = 0
		return s
	case PageFailed:
		if a.Epoch != s.Epoch || !s.Loading() || a.Page != s.pending {
			return s
		}
		s.IsInitialLoading = false
		s.IsLoadingMore = false
		s.pending = 0
		return s
	}
	return s
}
