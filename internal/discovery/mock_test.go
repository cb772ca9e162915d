package discovery

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/dealscout/dealscout/internal/geo"
	"github.com/dealscout/dealscout/internal/model"
)

// memStore implements Store over in-memory fixtures, applying the same
// predicate and ordering rules as the SQL in PostgresStore.
type memStore struct {
	mu sync.Mutex

	partners    map[int64]string
	restaurants []model.Restaurant
	deals       []model.Deal
	facets      map[model.FacetKind][]model.Facet
	edges       map[model.FacetKind]map[int64][]int64 // deal id -> facet ids

	restaurantBookmarks map[string]map[int64]bool
	dealBookmarks       map[string]map[int64]bool

	listErr     error
	searchErr   error
	tagsErr     error
	bookmarkErr error

	calls map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		partners: map[int64]string{},
		facets:   map[model.FacetKind][]model.Facet{},
		edges: map[model.FacetKind]map[int64][]int64{
			model.FacetCuisine: {},
			model.FacetDietary: {},
		},
		restaurantBookmarks: map[string]map[int64]bool{},
		dealBookmarks:       map[string]map[int64]bool{},
		calls:               map[string]int{},
	}
}

func (m *memStore) called(name string) {
	m.mu.Lock()
	m.calls[name]++
	m.mu.Unlock()
}

func (m *memStore) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *memStore) tag(kind model.FacetKind, dealID int64, facetIDs ...int64) {
	m.edges[kind][dealID] = append(m.edges[kind][dealID], facetIDs...)
}

func (m *memStore) restaurant(id int64) (model.Restaurant, bool) {
	for _, r := range m.restaurants {
		if r.ID == id {
			return r, true
		}
	}
	return model.Restaurant{}, false
}

func (m *memStore) ListFacets(_ context.Context, kind model.FacetKind) ([]model.Facet, error) {
	m.called("ListFacets")
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := slices.Clone(m.facets[kind])
	slices.SortFunc(out, func(a, b model.Facet) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

func (m *memStore) FacetCandidates(_ context.Context, kind model.FacetKind, target Mode, facetIDs []int64) ([]int64, error) {
	m.called("FacetCandidates")
	var ids []int64
	for _, d := range m.deals {
		if d.Status != model.DealStatusActive {
			continue
		}
		if !slices.ContainsFunc(m.edges[kind][d.ID], func(id int64) bool { return slices.Contains(facetIDs, id) }) {
			continue
		}
		id := d.ID
		if target == ModeRestaurants {
			id = d.RestaurantID
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memStore) distance(r model.Restaurant, f Filter) *float64 {
	if f.Origin == nil || !r.HasCoordinates() {
		return nil
	}
	d := geo.DistanceKM(*f.Origin, geo.Point{Lat: *r.Latitude, Lon: *r.Longitude})
	return &d
}

func (m *memStore) withinRadius(r model.Restaurant, f Filter) bool {
	if f.Origin == nil || f.RadiusKM == nil {
		return true
	}
	d := m.distance(r, f)
	return d != nil && *d <= *f.RadiusKM
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (m *memStore) hasActiveDeal(restaurantID int64) bool {
	return slices.ContainsFunc(m.deals, func(d model.Deal) bool {
		return d.RestaurantID == restaurantID && d.Status == model.DealStatusActive
	})
}

func (m *memStore) SearchRestaurants(_ context.Context, f Filter, w Window) ([]RestaurantResult, int, error) {
	m.called("SearchRestaurants")
	if m.searchErr != nil {
		return nil, 0, m.searchErr
	}

	var matched []RestaurantResult
	for _, r := range m.restaurants {
		if !r.IsActive {
			continue
		}
		if f.Text != "" && !containsFold(r.Name, f.Text) && !containsFold(r.Description, f.Text) &&
			!containsFold(m.partners[r.PartnerID], f.Text) {
			continue
		}
		if f.IDs != nil && !slices.Contains(f.IDs, r.ID) {
			continue
		}
		if f.HasActiveDeals && !m.hasActiveDeal(r.ID) {
			continue
		}
		if !m.withinRadius(r, f) {
			continue
		}
		matched = append(matched, RestaurantResult{Restaurant: r, DistanceKM: m.distance(r, f)})
	}

	slices.SortFunc(matched, func(a, b RestaurantResult) int {
		var c int
		switch f.Sort.By {
		case SortDistance:
			if c = compareNullsLast(a.DistanceKM, b.DistanceKM, f.Sort.Order); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		case SortRating:
			c = cmp.Or(cmp.Compare(a.RatingAvg, b.RatingAvg), cmp.Compare(a.RatingCount, b.RatingCount))
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if f.Sort.Order == SortDesc {
			c = -c
		}
		return cmp.Or(c, cmp.Compare(a.ID, b.ID))
	})

	return window(matched, w), len(matched), nil
}

func (m *memStore) SearchDeals(_ context.Context, f Filter, w Window) ([]DealResult, int, error) {
	m.called("SearchDeals")
	if m.searchErr != nil {
		return nil, 0, m.searchErr
	}

	var matched []DealResult
	for _, d := range m.deals {
		if d.Status != model.DealStatusActive {
			continue
		}
		r, ok := m.restaurant(d.RestaurantID)
		if !ok || !r.IsActive {
			continue
		}
		if f.Text != "" && !containsFold(d.Title, f.Text) && !containsFold(d.Description, f.Text) {
			continue
		}
		if f.IDs != nil && !slices.Contains(f.IDs, d.ID) {
			continue
		}
		if !m.withinRadius(r, f) {
			continue
		}
		matched = append(matched, DealResult{Deal: d, RestaurantName: r.Name, DistanceKM: m.distance(r, f)})
	}

	slices.SortFunc(matched, func(a, b DealResult) int {
		if f.Sort.By == SortDistance {
			return cmp.Or(compareNullsLast(a.DistanceKM, b.DistanceKM, f.Sort.Order), cmp.Compare(a.ID, b.ID))
		}
		c := a.CreatedAt.Compare(b.CreatedAt)
		if f.Sort.Order == SortDesc {
			c = -c
		}
		return cmp.Or(c, cmp.Compare(a.ID, b.ID))
	})

	return window(matched, w), len(matched), nil
}

func compareNullsLast(a, b *float64, order SortOrder) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	c := cmp.Compare(*a, *b)
	if order == SortDesc {
		c = -c
	}
	return c
}

func window[T any](items []T, w Window) []T {
	if w.Beyond(len(items)) {
		return []T{}
	}
	end := min(w.Offset+w.Limit, len(items))
	return slices.Clone(items[w.Offset:end])
}

func (m *memStore) ActiveDeals(_ context.Context, restaurantIDs []int64) ([]model.Deal, error) {
	m.called("ActiveDeals")
	var out []model.Deal
	for _, d := range m.deals {
		if d.Status == model.DealStatusActive && slices.Contains(restaurantIDs, d.RestaurantID) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) DealTags(_ context.Context, dealIDs []int64) (map[int64]Tags, error) {
	m.called("DealTags")
	if m.tagsErr != nil {
		return nil, m.tagsErr
	}
	out := make(map[int64]Tags)
	for _, id := range dealIDs {
		var t Tags
		for _, f := range m.facets[model.FacetCuisine] {
			if slices.Contains(m.edges[model.FacetCuisine][id], f.ID) {
				t.Cuisines = append(t.Cuisines, f)
			}
		}
		for _, f := range m.facets[model.FacetDietary] {
			if slices.Contains(m.edges[model.FacetDietary][id], f.ID) {
				t.DietaryPreferences = append(t.DietaryPreferences, f)
			}
		}
		if t.Cuisines != nil || t.DietaryPreferences != nil {
			out[id] = t
		}
	}
	return out, nil
}

func (m *memStore) RestaurantBookmarks(_ context.Context, userID string, ids []int64) (map[int64]bool, error) {
	m.called("RestaurantBookmarks")
	if m.bookmarkErr != nil {
		return nil, m.bookmarkErr
	}
	out := make(map[int64]bool)
	for id, notify := range m.restaurantBookmarks[userID] {
		if slices.Contains(ids, id) {
			out[id] = notify
		}
	}
	return out, nil
}

func (m *memStore) DealBookmarks(_ context.Context, userID string, ids []int64) (map[int64]bool, error) {
	m.called("DealBookmarks")
	if m.bookmarkErr != nil {
		return nil, m.bookmarkErr
	}
	out := make(map[int64]bool)
	for id := range m.dealBookmarks[userID] {
		if slices.Contains(ids, id) {
			out[id] = true
		}
	}
	return out, nil
}

// memCache implements FacetCache.
type memCache struct {
	mu     sync.Mutex
	data   map[model.FacetKind][]model.Facet
	hits   int
	getErr error
}

func (c *memCache) GetFacets(_ context.Context, kind model.FacetKind) ([]model.Facet, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	f, ok := c.data[kind]
	if ok {
		c.hits++
	}
	return f, ok, nil
}

func (c *memCache) SetFacets(_ context.Context, kind model.FacetKind, facets []model.Facet) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[model.FacetKind][]model.Facet{}
	}
	c.data[kind] = facets
	return nil
}
