// Package search answers the site-wide search box by filtering the tenant's
// communities, homes, and floorplans.
package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/sitefront/tenant-gateway/internal/backend"
	"github.com/sitefront/tenant-gateway/internal/domain"
	"github.com/sitefront/tenant-gateway/internal/metrics"
)

const (
	// MinQueryLength is the shortest trimmed query that triggers a search.
	MinQueryLength = 2
	// PerCategory caps results per listing type.
	PerCategory = 3
)

// Result types.
const (
	TypeCommunity = "community"
	TypeHome      = "home"
	TypeFloorplan = "floorplan"
)

// Result is one search hit.
type Result struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Href     string `json:"href"`
}

// Response is the search endpoint body.
type Response struct {
	Results []Result `json:"results"`
}

// Source lists a tenant's listings. *backend.Client implements it.
type Source interface {
	Communities(ctx context.Context, slug string) backend.Result[[]domain.Community]
	Homes(ctx context.Context, slug string) backend.Result[[]domain.Home]
	Floorplans(ctx context.Context, slug string) backend.Result[[]domain.Floorplan]
}

// Service runs searches against a Source.
type Service struct {
	source  Source
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService creates a search service. m may be nil.
func NewService(source Source, logger *slog.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, logger: logger, metrics: m}
}

// Search fetches the three listing types concurrently and returns up to
// PerCategory ranked matches of each, communities first. A failed fetch
// contributes no results; Search itself never fails.
func (s *Service) Search(ctx context.Context, slug, query string) Response {
	q := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(q)) < MinQueryLength {
		return Response{Results: []Result{}}
	}

	var (
		communities []domain.Community
		homes       []domain.Home
		floorplans  []domain.Floorplan
	)

	// Every branch returns nil so one failure never cancels its siblings.
	var g errgroup.Group
	g.Go(func() error {
		communities = orEmpty(ctx, s, "communities", s.source.Communities(ctx, slug))
		return nil
	})
	g.Go(func() error {
		homes = orEmpty(ctx, s, "homes", s.source.Homes(ctx, slug))
		return nil
	})
	g.Go(func() error {
		floorplans = orEmpty(ctx, s, "floorplans", s.source.Floorplans(ctx, slug))
		return nil
	})
	_ = g.Wait()

	results := make([]Result, 0, 3*PerCategory)
	results = append(results, rank(communities, q, communityMatch, communityResult)...)
	results = append(results, rank(homes, q, homeMatch, homeResult)...)
	results = append(results, rank(floorplans, q, floorplanMatch, floorplanResult)...)
	return Response{Results: results}
}

func orEmpty[T any](ctx context.Context, s *Service, source string, res backend.Result[[]T]) []T {
	if res.OK() {
		return res.Value
	}
	s.logger.WarnContext(ctx, "search source failed",
		slog.String("source", source),
		slog.String("error", res.Err.Error()))
	if s.metrics != nil {
		s.metrics.SearchFailures.WithLabelValues(source).Inc()
	}
	return res.OrElse(nil)
}

// Match ranks, best first.
const (
	noMatch = iota
	namePrefix
	nameContains
	otherField
)

// matchFunc returns the name and the other searchable fields of an item.
type matchFunc[T any] func(T) (name string, others []string)

func classify(name string, others []string, q string) int {
	lname := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lname, q):
		return namePrefix
	case strings.Contains(lname, q):
		return nameContains
	}
	for _, f := range others {
		if strings.Contains(strings.ToLower(f), q) {
			return otherField
		}
	}
	return noMatch
}

func rank[T any](items []T, q string, match matchFunc[T], toResult func(T) Result) []Result {
	type hit struct {
		item T
		rank int
	}
	hits := make([]hit, 0, len(items))
	for _, item := range items {
		name, others := match(item)
		if r := classify(name, others, q); r != noMatch {
			hits = append(hits, hit{item: item, rank: r})
		}
	}
	slices.SortStableFunc(hits, func(a, b hit) int { return a.rank - b.rank })

	if len(hits) > PerCategory {
		hits = hits[:PerCategory]
	}
	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = toResult(h.item)
	}
	return out
}

func communityMatch(c domain.Community) (string, []string) {
	return c.Name, []string{c.City, c.State}
}

func homeMatch(h domain.Home) (string, []string) {
	return h.Name, []string{h.Address, h.City, h.State}
}

func floorplanMatch(f domain.Floorplan) (string, []string) {
	return f.Name, []string{f.CommunityName, f.City, f.State}
}

func communityResult(c domain.Community) Result {
	return Result{
		Type:     TypeCommunity,
		ID:       c.ID,
		Title:    c.Name,
		Subtitle: joinNonEmpty(", ", c.City, c.State),
		Href:     CommunityHref(c),
	}
}

func homeResult(h domain.Home) Result {
	subtitle := h.Address
	if subtitle == "" {
		subtitle = joinNonEmpty(", ", h.City, h.State)
	}
	return Result{
		Type:     TypeHome,
		ID:       h.ID,
		Title:    h.Name,
		Subtitle: subtitle,
		Href:     "/homes/" + itemSlug(h.Slug, h.Name, h.ID),
	}
}

func floorplanResult(f domain.Floorplan) Result {
	subtitle := f.CommunityName
	if subtitle == "" {
		subtitle = joinNonEmpty(", ", f.City, f.State)
	}
	return Result{
		Type:     TypeFloorplan,
		ID:       f.ID,
		Title:    f.Name,
		Subtitle: subtitle,
		Href:     "/floorplans/" + itemSlug(f.Slug, f.Name, f.ID),
	}
}

// CommunityHref builds /communities/<state>/<city>/<slug>.
func CommunityHref(c domain.Community) string {
	return "/communities/" + Slugify(c.State) + "/" + Slugify(c.City) + "/" + itemSlug(c.Slug, c.Name, c.ID)
}

func itemSlug(slug, name, id string) string {
	if slug != "" {
		return slug
	}
	if s := Slugify(name); s != "" {
		return s
	}
	return id
}

// Slugify lowercases s and collapses every run of non-alphanumerics to "-".
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
