package discovery

import (
	"context"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/dealscout/dealscout/internal/model"
)

// FacetCache stores facet reference lists between requests. internal/cache
// provides a Redis implementation.
type FacetCache interface {
	// GetFacets returns ok=false on a miss.
	GetFacets(ctx context.Context, kind model.FacetKind) (facets []model.Facet, ok bool, err error)
	SetFacets(ctx context.Context, kind model.FacetKind, facets []model.Facet) error
}

// FacetLister is the part of Store the Catalog reads from.
type FacetLister interface {
	ListFacets(ctx context.Context, kind model.FacetKind) ([]model.Facet, error)
}

// Catalog serves facet reference lists and resolves facet names to ids.
// Cache failures are logged and fall through to the store.
type Catalog struct {
	store FacetLister
	cache FacetCache
}

// NewCatalog creates a Catalog. cache may be nil.
func NewCatalog(store FacetLister, cache FacetCache) *Catalog {
	return &Catalog{store: store, cache: cache}
}

// List returns every facet of kind.
func (c *Catalog) List(ctx context.Context, kind model.FacetKind) ([]model.Facet, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("component", "discovery.catalog"), zap.String("kind", string(kind)))

	if c.cache != nil {
		facets, ok, err := c.cache.GetFacets(ctx, kind)
		switch {
		case err != nil:
			log.Warn("discovery: facet cache read failed", zap.Error(err))
		case ok:
			return facets, nil
		}
	}

	facets, err := c.store.ListFacets(ctx, kind)
	if err != nil {
		return nil, eris.Wrapf(err, "discovery: load %s catalog", kind)
	}

	if c.cache != nil {
		if err := c.cache.SetFacets(ctx, kind, facets); err != nil {
			log.Warn("discovery: facet cache write failed", zap.Error(err))
		}
	}
	return facets, nil
}

// Resolve maps names to facet ids using Unicode case folding. Unknown names
// are dropped; they are not an error.
func (c *Catalog) Resolve(ctx context.Context, kind model.FacetKind, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}
	facets, err := c.List(ctx, kind)
	if err != nil {
		return nil, err
	}

	// A Caser is stateful; one per call.
	fold := cases.Fold()
	byName := make(map[string]int64, len(facets))
	for _, f := range facets {
		byName[fold.String(strings.TrimSpace(f.Name))] = f.ID
	}

	var ids []int64
	for _, n := range names {
		if id, ok := byName[fold.String(strings.TrimSpace(n))]; ok && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// facetSelection holds the effective facet ids of every requested kind.
// A kind present with no ids was requested but nothing resolved.
type facetSelection map[model.FacetKind][]int64

// ids returns the effective ids of kind, never nil.
func (fs facetSelection) ids(kind model.FacetKind) []int64 {
	if ids := fs[kind]; ids != nil {
		return ids
	}
	return []int64{}
}

// unmatched reports whether some requested kind resolved to no ids, which
// makes the whole search empty.
func (fs facetSelection) unmatched() bool {
	for _, ids := range fs {
		if len(ids) == 0 {
			return true
		}
	}
	return false
}

// selectFacets unions explicit ids with resolved names for each requested
// kind. Kinds are resolved concurrently.
func (s *Service) selectFacets(ctx context.Context, q Query) (facetSelection, error) {
	sel := make(facetSelection)
	resolved := make([][]int64, len(model.FacetKinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range model.FacetKinds {
		filter := q.Facet(kind)
		if !filter.Requested() {
			continue
		}
		sel[kind] = nil
		g.Go(func() error {
			ids, err := s.catalog.Resolve(gctx, kind, filter.Names)
			resolved[i] = ids
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, kind := range model.FacetKinds {
		if _, ok := sel[kind]; !ok {
			continue
		}
		ids := slices.Clone(q.Facet(kind).IDs)
		for _, id := range resolved[i] {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)
		sel[kind] = ids
	}
	return sel, nil
}

// candidates intersects the per-kind candidate target ids. It returns
// ids=nil when no facet was requested and empty=true when the intersection
// is empty.
func (s *Service) candidates(ctx context.Context, sel facetSelection, target Mode) (ids []int64, empty bool, err error) {
	if len(sel) == 0 {
		return nil, false, nil
	}
	if sel.unmatched() {
		return nil, true, nil
	}

	kinds := make([]model.FacetKind, 0, len(sel))
	for _, kind := range model.FacetKinds {
		if _, ok := sel[kind]; ok {
			kinds = append(kinds, kind)
		}
	}

	sets := make([][]int64, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			found, err := s.store.FacetCandidates(gctx, kind, target, sel[kind])
			sets[i] = found
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, eris.Wrap(err, "discovery: resolve facet candidates")
	}

	ids = intersect(sets...)
	return ids, len(ids) == 0, nil
}

// intersect returns the sorted ids present in every set.
func intersect(sets ...[]int64) []int64 {
	if len(sets) == 0 {
		return nil
	}
	counts := make(map[int64]int)
	for _, set := range sets {
		seen := make(map[int64]bool, len(set))
		for _, id := range set {
			if !seen[id] {
				seen[id] = true
				counts[id]++
			}
		}
	}
	out := []int64{}
	for id, n := range counts {
		if n == len(sets) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}
