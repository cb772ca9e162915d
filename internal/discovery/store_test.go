package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealscout/dealscout/internal/geo"
	"github.com/dealscout/dealscout/internal/model"
)

var restaurantRowColumns = []string{
	"id", "partner_id", "name", "description", "street", "city", "province", "postal_code", "country",
	"latitude", "longitude", "rating_avg", "rating_count", "is_active", "created_at", "distance_km",
}

func TestPostgresStore_ListFacets(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectQuery(`SELECT id, name FROM dietary_preferences ORDER BY name, id`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).
			AddRow(int64(2), "Halal").
			AddRow(int64(1), "Vegan"))

	facets, err := store.ListFacets(context.Background(), model.FacetDietary)
	require.NoError(t, err)
	assert.Equal(t, []model.Facet{{ID: 2, Name: "Halal"}, {ID: 1, Name: "Vegan"}}, facets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FacetCandidates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectQuery(`SELECT DISTINCT d.restaurant_id\s+FROM deals d\s+JOIN deal_cuisines e ON e.deal_id = d.id\s+WHERE d.status = 'active' AND e.cuisine_id = ANY\(\$1\)`).
		WithArgs([]int64{1, 3}).
		WillReturnRows(pgxmock.NewRows([]string{"restaurant_id"}).AddRow(int64(7)).AddRow(int64(9)))

	ids, err := store.FacetCandidates(context.Background(), model.FacetCuisine, ModeRestaurants, []int64{1, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 9}, ids)

	mock.ExpectQuery(`SELECT DISTINCT d.id\s+FROM deals d\s+JOIN deal_dietary_preferences e .* e.dietary_preference_id = ANY`).
		WithArgs([]int64{4}).
		WillReturnError(errors.New("canceling statement due to statement timeout"))

	_, err = store.FacetCandidates(context.Background(), model.FacetDietary, ModeDeals, []int64{4})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dietary candidates")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SearchRestaurants(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	origin := geo.Point{Lat: 43.65, Lon: -79.38}
	f := Filter{
		Text:     "pizza",
		IDs:      []int64{1, 2},
		Origin:   &origin,
		RadiusKM: ptr(10.0),
		Sort:     Sort{By: SortDistance, Order: SortAsc},
	}
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count\(\*\) FROM restaurants r LEFT JOIN partners pt`).
		WithArgs("%pizza%", []int64{1, 2}, 43.65, -79.38, 10.0).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
	mock.ExpectQuery(`AS distance_km FROM restaurants r .* ORDER BY distance_km ASC NULLS LAST, r.id ASC LIMIT \$6 OFFSET \$7`).
		WithArgs("%pizza%", []int64{1, 2}, 43.65, -79.38, 10.0, 20, 0).
		WillReturnRows(pgxmock.NewRows(restaurantRowColumns).
			AddRow(int64(1), int64(5), "Pizza Place", "wood fired", "1 King St", "Toronto", "ON", "M5H", "CA",
				ptr(43.651), ptr(-79.383), 4.5, 12, true, created, ptr(0.27)).
			AddRow(int64(2), int64(5), "Pizza Two", "", "", "Toronto", "ON", "", "CA",
				ptr(43.70), ptr(-79.40), 4.1, 3, true, created, ptr(5.8)))

	items, total, err := store.SearchRestaurants(context.Background(), f, Window{Limit: 20, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Pizza Place", items[0].Name)
	assert.Equal(t, "Toronto", items[0].Address.City)
	assert.InDelta(t, 0.27, *items[0].DistanceKM, 1e-9)
	assert.Equal(t, 12, items[0].RatingCount)
	assert.Nil(t, items[0].ActiveDeals)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SearchRestaurants_SkipsPageBeyondTotal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectQuery(`SELECT count\(\*\) FROM restaurants r`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	items, total, err := store.SearchRestaurants(context.Background(),
		Filter{Sort: Sort{By: SortRating, Order: SortDesc}}, Window{Limit: 20, Offset: 80})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SearchRestaurants_CountError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectQuery(`SELECT count\(\*\)`).WillReturnError(errors.New("connection refused"))

	_, _, err = store.SearchRestaurants(context.Background(), Filter{}, Window{Limit: 20})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count restaurants")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SearchDeals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	f := Filter{Sort: Sort{By: SortNewest, Order: SortDesc}}
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count\(\*\) FROM deals d JOIN restaurants r ON r.id = d.restaurant_id WHERE d.status = 'active' AND r.is_active`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`NULL::float8 AS distance_km FROM deals d .* ORDER BY d.created_at DESC, d.id ASC LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "restaurant_id", "title", "description", "status", "start_date", "end_date", "created_at", "name", "distance_km",
		}).AddRow(int64(101), int64(1), "Taco night", "", "active", start, start.AddDate(0, 1, 0), start, "Casa", (*float64)(nil)))

	items, total, err := store.SearchDeals(context.Background(), f, Window{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, model.DealStatusActive, items[0].Status)
	assert.Equal(t, "Casa", items[0].RestaurantName)
	assert.Nil(t, items[0].DistanceKM)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ActiveDeals(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM deals\s+WHERE restaurant_id = ANY\(\$1\) AND status = 'active'`).
		WithArgs([]int64{1, 2}).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "restaurant_id", "title", "description", "status", "start_date", "end_date", "created_at",
		}).AddRow(int64(11), int64(2), "Brunch", "eggs", "active", day, day, day))

	deals, err := store.ActiveDeals(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, int64(2), deals[0].RestaurantID)
	assert.Equal(t, model.DealStatusActive, deals[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DealTags(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectQuery(`FROM deal_cuisines e JOIN cuisines c .* UNION ALL .* FROM deal_dietary_preferences e`).
		WithArgs([]int64{10, 11}).
		WillReturnRows(pgxmock.NewRows([]string{"deal_id", "kind", "id", "name"}).
			AddRow(int64(10), "cuisine", int64(1), "Italian").
			AddRow(int64(10), "dietary", int64(5), "Vegan").
			AddRow(int64(11), "cuisine", int64(2), "Mexican").
			AddRow(int64(11), "cuisine", int64(3), "Tex-Mex"))

	tags, err := store.DealTags(context.Background(), []int64{10, 11})
	require.NoError(t, err)
	assert.Equal(t, Tags{
		Cuisines:           []model.Facet{{ID: 1, Name: "Italian"}},
		DietaryPreferences: []model.Facet{{ID: 5, Name: "Vegan"}},
	}, tags[10])
	assert.Equal(t, []model.Facet{{ID: 2, Name: "Mexican"}, {ID: 3, Name: "Tex-Mex"}}, tags[11].Cuisines)
	assert.Nil(t, tags[11].DietaryPreferences)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Bookmarks(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewPostgresStore(mock)

	mock.ExpectQuery(`SELECT restaurant_id, notify_on_deal FROM restaurant_bookmarks`).
		WithArgs("user-1", []int64{1, 2, 3}).
		WillReturnRows(pgxmock.NewRows([]string{"restaurant_id", "notify_on_deal"}).
			AddRow(int64(1), true).
			AddRow(int64(3), false))
	mock.ExpectQuery(`SELECT deal_id FROM deal_bookmarks WHERE user_id = \$1 AND deal_id = ANY\(\$2\)`).
		WithArgs("user-1", []int64{7}).
		WillReturnRows(pgxmock.NewRows([]string{"deal_id"}).AddRow(int64(7)))

	rb, err := store.RestaurantBookmarks(context.Background(), "user-1", []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{1: true, 3: false}, rb)

	db, err := store.DealBookmarks(context.Background(), "user-1", []int64{7})
	require.NoError(t, err)
	assert.Equal(t, map[int64]bool{7: true}, db)
	assert.NoError(t, mock.ExpectationsWereMet())
}
