package discovery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Query)
		field  string
	}{
		{"defaults", func(*Query) {}, ""},
		{"latitude only", func(q *Query) { q.Latitude = ptr(43.0) }, "coordinates"},
		{"longitude only", func(q *Query) { q.Longitude = ptr(-79.0) }, "coordinates"},
		{"latitude out of range", func(q *Query) { q.Latitude, q.Longitude = ptr(91.0), ptr(0.0) }, "latitude"},
		{"longitude out of range", func(q *Query) { q.Latitude, q.Longitude = ptr(0.0), ptr(-180.5) }, "longitude"},
		{"boundary coordinates", func(q *Query) { q.Latitude, q.Longitude = ptr(-90.0), ptr(180.0) }, ""},
		{"radius without coordinates", func(q *Query) { q.RadiusKM = ptr(5.0) }, "radius"},
		{"zero radius", func(q *Query) { q.Latitude, q.Longitude, q.RadiusKM = ptr(1.0), ptr(1.0), ptr(0.0) }, "radius"},
		{"NaN radius", func(q *Query) { q.Latitude, q.Longitude, q.RadiusKM = ptr(1.0), ptr(1.0), ptr(math.NaN()) }, "radius"},
		{"bad sortBy", func(q *Query) { q.SortBy = "price" }, "sortBy"},
		{"bad sortOrder", func(q *Query) { q.SortOrder = "up" }, "sortOrder"},
		{"bad type", func(q *Query) { q.Mode = "menus" }, "type"},
		{"page zero", func(q *Query) { q.Page = 0 }, "page"},
		{"limit zero", func(q *Query) { q.Limit = 0 }, "limit"},
		{"limit too large", func(q *Query) { q.Limit = 101 }, "limit"},
		{"limit max", func(q *Query) { q.Limit = 100 }, ""},
		{"negative facet id", func(q *Query) { q.Dietary.IDs = []int64{-1} }, "facet id"},
		{"negative cuisine id", func(q *Query) { q.Cuisines.IDs = []int64{4, 0} }, "facet id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery()
			tt.mutate(&q)
			err := q.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.ErrorIs(t, err, ErrInvalidQuery)
		})
	}
}

func TestQuery_Normalize(t *testing.T) {
	q := NewQuery()
	q.Text = "  sushi  "
	q.Cuisines = FacetFilter{IDs: []int64{3, 3, 1}, Names: []string{" Thai", "", "Thai"}}
	q.Normalize()

	assert.Equal(t, "sushi", q.Text)
	assert.Equal(t, []int64{3, 1}, q.Cuisines.IDs)
	assert.Equal(t, []string{"Thai"}, q.Cuisines.Names)
	assert.False(t, q.Dietary.Requested())

	blank := FacetFilter{Names: []string{" ", ""}}.normalize()
	assert.False(t, blank.Requested())
}

func TestResolveSort(t *testing.T) {
	withOrigin := func(q *Query) { q.Latitude, q.Longitude = ptr(43.0), ptr(-79.0) }

	tests := []struct {
		name   string
		mutate func(*Query)
		mode   Mode
		want   Sort
	}{
		{"relevance without origin", func(*Query) {}, ModeRestaurants, Sort{SortRating, SortDesc}},
		{"relevance with origin", withOrigin, ModeRestaurants, Sort{SortDistance, SortAsc}},
		{"relevance deals without origin", func(*Query) {}, ModeDeals, Sort{SortNewest, SortDesc}},
		{"rating", func(q *Query) { q.SortBy = SortRating }, ModeRestaurants, Sort{SortRating, SortDesc}},
		{"rating deals", func(q *Query) { q.SortBy = SortRating }, ModeDeals, Sort{SortNewest, SortDesc}},
		{"distance without origin", func(q *Query) { q.SortBy = SortDistance }, ModeRestaurants, Sort{SortNewest, SortAsc}},
		{"distance with origin", func(q *Query) { withOrigin(q); q.SortBy = SortDistance }, ModeDeals, Sort{SortDistance, SortAsc}},
		{"newest", func(q *Query) { q.SortBy = SortNewest }, ModeRestaurants, Sort{SortNewest, SortAsc}},
		{"explicit order wins", func(q *Query) { q.SortBy = SortRating; q.SortOrder = SortAsc }, ModeRestaurants, Sort{SortRating, SortAsc}},
		{"explicit order on relevance", func(q *Query) { withOrigin(q); q.SortOrder = SortDesc }, ModeRestaurants, Sort{SortDistance, SortDesc}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery()
			tt.mutate(&q)
			assert.Equal(t, tt.want, resolveSort(q, tt.mode))
		})
	}
}

func TestQuery_Offset(t *testing.T) {
	q := NewQuery()
	q.Page, q.Limit = 3, 25
	assert.Equal(t, 50, q.Offset())
}

func TestQuery_OffsetSaturates(t *testing.T) {
	q := NewQuery()
	q.Page, q.Limit = 100_000_000_000_000_000, 100
	require.NoError(t, q.Validate())

	assert.Equal(t, math.MaxInt, q.Offset())
	assert.True(t, Window{Limit: q.Limit, Offset: q.Offset()}.Beyond(1_000_000))

	q.Page, q.Limit = math.MaxInt, MaxLimit
	assert.Equal(t, math.MaxInt, q.Offset())

	q.Page = 1
	assert.Zero(t, q.Offset())
}
