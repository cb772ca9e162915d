package discovery

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dealscout/dealscout/internal/model"
)

// Recorder observes completed searches. internal/metrics implements it.
type Recorder interface {
	SearchCompleted(mode Mode, d time.Duration, err error)
}

// Option configures a Service.
type Option func(*Service)

// WithFacetCache serves facet catalogs through c.
func WithFacetCache(c FacetCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// Service runs discovery searches.
type Service struct {
	store    Store
	cache    FacetCache
	catalog  *Catalog
	recorder Recorder
}

// NewService creates a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	s.catalog = NewCatalog(store, s.cache)
	return s
}

// ListFacets returns the reference list of kind.
func (s *Service) ListFacets(ctx context.Context, kind model.FacetKind) ([]model.Facet, error) {
	return s.catalog.List(ctx, kind)
}

// Search validates q and runs it for viewer. Validation failures are
// *ValidationError; anything else is a store failure.
func (s *Service) Search(ctx context.Context, q Query, viewer Viewer) (resp *Response, err error) {
	start := time.Now()
	defer func() {
		if s.recorder != nil {
			s.recorder.SearchCompleted(q.Mode, time.Since(start), err)
		}
	}()

	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	sel, err := s.selectFacets(ctx, q)
	if err != nil {
		return nil, err
	}

	resp = &Response{Filters: appliedFilters(q, sel)}

	g, gctx := errgroup.WithContext(ctx)
	if q.Mode == ModeRestaurants || q.Mode == ModeBoth {
		g.Go(func() error {
			section, err := s.searchRestaurants(gctx, q, sel, viewer)
			resp.Restaurants = section
			return err
		})
	}
	if q.Mode == ModeDeals || q.Mode == ModeBoth {
		g.Go(func() error {
			section, err := s.searchDeals(gctx, q, sel, viewer)
			resp.Deals = section
			return err
		})
	}
	if err := g.Wait(); err != nil {
		zap.L().Error("discovery: search failed",
			zap.String("component", "discovery.service"),
			zap.String("type", string(q.Mode)),
			zap.Error(err),
		)
		return nil, err
	}
	return resp, nil
}

func (s *Service) searchRestaurants(ctx context.Context, q Query, sel facetSelection, viewer Viewer) (*Section[RestaurantResult], error) {
	sort := resolveSort(q, ModeRestaurants)
	section := &Section[RestaurantResult]{Items: []RestaurantResult{}, Sort: sort}

	ids, empty, err := s.candidates(ctx, sel, ModeRestaurants)
	if err != nil {
		return nil, err
	}
	if empty {
		section.Pagination = NewPagination(q.Page, q.Limit, 0)
		return section, nil
	}

	f := filterFor(q, ids, sort)
	f.HasActiveDeals = q.HasActiveDeals

	items, total, err := s.store.SearchRestaurants(ctx, f, Window{Limit: q.Limit, Offset: q.Offset()})
	if err != nil {
		return nil, err
	}
	if err := s.hydrateRestaurants(ctx, items, viewer); err != nil {
		return nil, err
	}

	section.Items = nonNil(items)
	section.Pagination = NewPagination(q.Page, q.Limit, total)
	return section, nil
}

func (s *Service) searchDeals(ctx context.Context, q Query, sel facetSelection, viewer Viewer) (*Section[DealResult], error) {
	sort := resolveSort(q, ModeDeals)
	section := &Section[DealResult]{Items: []DealResult{}, Sort: sort}

	ids, empty, err := s.candidates(ctx, sel, ModeDeals)
	if err != nil {
		return nil, err
	}
	if empty {
		section.Pagination = NewPagination(q.Page, q.Limit, 0)
		return section, nil
	}

	items, total, err := s.store.SearchDeals(ctx, filterFor(q, ids, sort), Window{Limit: q.Limit, Offset: q.Offset()})
	if err != nil {
		return nil, err
	}
	if err := s.hydrateDeals(ctx, items, viewer); err != nil {
		return nil, err
	}

	section.Items = nonNil(items)
	section.Pagination = NewPagination(q.Page, q.Limit, total)
	return section, nil
}

func filterFor(q Query, ids []int64, sort Sort) Filter {
	f := Filter{Text: q.Text, IDs: ids, Sort: sort}
	if o, ok := q.Origin(); ok {
		f.Origin = &o
		f.RadiusKM = q.RadiusKM
	}
	return f
}

func appliedFilters(q Query, sel facetSelection) AppliedFilters {
	return AppliedFilters{
		Query:          q.Text,
		Type:           q.Mode,
		CuisineIDs:     sel.ids(model.FacetCuisine),
		DietaryIDs:     sel.ids(model.FacetDietary),
		Latitude:       q.Latitude,
		Longitude:      q.Longitude,
		RadiusKM:       q.RadiusKM,
		HasActiveDeals: q.HasActiveDeals,
		SortBy:         q.SortBy,
		SortOrder:      q.SortOrder,
		Page:           q.Page,
		Limit:          q.Limit,
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// IsValidation reports whether err was caused by a rejected request.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}
