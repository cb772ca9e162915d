package discovery

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dealscout/dealscout/internal/model"
)

// hydrateRestaurants fills nested active deals with their tags and the
// viewer's bookmark state. Deal and tag failures fail the page; a bookmark
// failure only leaves isBookmarked false.
func (s *Service) hydrateRestaurants(ctx context.Context, items []RestaurantResult, viewer Viewer) error {
	for i := range items {
		items[i].ActiveDeals = []DealSummary{}
	}
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	for i, r := range items {
		ids[i] = r.ID
	}

	var (
		deals     []model.Deal
		tags      map[int64]Tags
		bookmarks map[int64]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		deals, err = s.store.ActiveDeals(gctx, ids)
		if err != nil {
			return eris.Wrap(err, "discovery: hydrate active deals")
		}
		if len(deals) == 0 {
			return nil
		}
		dealIDs := make([]int64, len(deals))
		for i, d := range deals {
			dealIDs[i] = d.ID
		}
		tags, err = s.store.DealTags(gctx, dealIDs)
		return eris.Wrap(err, "discovery: hydrate deal tags")
	})
	if userID, ok := viewer.UserID(); ok {
		g.Go(func() error {
			bookmarks = s.bookmarks(gctx, "restaurant", func(ctx context.Context) (map[int64]bool, error) {
				return s.store.RestaurantBookmarks(ctx, userID, ids)
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	byRestaurant := make(map[int64][]DealSummary, len(items))
	for _, d := range deals {
		byRestaurant[d.RestaurantID] = append(byRestaurant[d.RestaurantID], DealSummary{
			Deal: d,
			Tags: tags[d.ID].orEmpty(),
		})
	}
	for i := range items {
		if nested, ok := byRestaurant[items[i].ID]; ok {
			items[i].ActiveDeals = nested
		}
		notify, ok := bookmarks[items[i].ID]
		items[i].IsBookmarked = ok
		items[i].NotifyOnDeal = ok && notify
	}
	return nil
}

// hydrateDeals fills each deal's own tags and the viewer's bookmark state.
func (s *Service) hydrateDeals(ctx context.Context, items []DealResult, viewer Viewer) error {
	for i := range items {
		items[i].Tags = items[i].Tags.orEmpty()
	}
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	for i, d := range items {
		ids[i] = d.ID
	}

	var (
		tags      map[int64]Tags
		bookmarks map[int64]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tags, err = s.store.DealTags(gctx, ids)
		return eris.Wrap(err, "discovery: hydrate deal tags")
	})
	if userID, ok := viewer.UserID(); ok {
		g.Go(func() error {
			bookmarks = s.bookmarks(gctx, "deal", func(ctx context.Context) (map[int64]bool, error) {
				return s.store.DealBookmarks(ctx, userID, ids)
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i := range items {
		items[i].Tags = tags[items[i].ID].orEmpty()
		items[i].IsBookmarked = bookmarks[items[i].ID]
	}
	return nil
}

// bookmarks runs a bookmark lookup and degrades a failure to "none".
func (s *Service) bookmarks(ctx context.Context, kind string, fetch func(context.Context) (map[int64]bool, error)) map[int64]bool {
	found, err := fetch(ctx)
	if err != nil {
		zap.L().Warn("discovery: bookmark lookup failed, returning results unbookmarked",
			zap.String("component", "discovery.hydrate"),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return nil
	}
	return found
}
