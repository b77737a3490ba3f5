package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sitefront/tenant-gateway/internal/search"
)

// ErrStale is returned for a search that was overtaken by a newer one.
var ErrStale = errors.New("search superseded by a newer query")

// SearchFunc runs one search.
type SearchFunc func(ctx context.Context, q string) (search.Response, error)

// Searcher serializes type-ahead searches. Each query gets a sequence
// number; starting a query cancels the one in flight, and a response that
// arrives after a newer query started is discarded.
type Searcher struct {
	fetch SearchFunc

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	latest search.Response
}

// NewSearcher creates a searcher over fetch.
func NewSearcher(fetch SearchFunc) *Searcher {
	return &Searcher{fetch: fetch, latest: search.Response{Results: []search.Result{}}}
}

// Search runs q. It returns ErrStale when a later call to Search started
// before this one finished. Queries shorter than search.MinQueryLength
// answer empty without a request.
func (s *Searcher) Search(ctx context.Context, q string) (search.Response, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	var (
		resp search.Response
		err  error
	)
	if len([]rune(strings.TrimSpace(q))) < search.MinQueryLength {
		resp = search.Response{Results: []search.Result{}}
	} else {
		resp, err = s.fetch(ctx, q)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return search.Response{}, ErrStale
	}
	s.cancel = nil
	if err != nil {
		return search.Response{}, err
	}
	s.latest = resp
	return resp, nil
}

// Latest returns the response of the newest completed query.
func (s *Searcher) Latest() search.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}
