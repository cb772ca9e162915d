package discovery

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/dealscout/dealscout/internal/db"
	"github.com/dealscout/dealscout/internal/model"
)

// Store defines the read operations discovery runs against the database.
type Store interface {
	// ListFacets returns the reference list for kind ordered by name.
	ListFacets(ctx context.Context, kind model.FacetKind) ([]model.Facet, error)

	// FacetCandidates returns the target ids (restaurant ids for
	// ModeRestaurants, deal ids for ModeDeals) having an active deal tagged
	// with any of facetIDs.
	FacetCandidates(ctx context.Context, kind model.FacetKind, target Mode, facetIDs []int64) ([]int64, error)

	// SearchRestaurants counts the rows matching f and returns the rows in w.
	// Nested arrays of the returned rows are left for the hydrator.
	SearchRestaurants(ctx context.Context, f Filter, w Window) ([]RestaurantResult, int, error)

	// SearchDeals is SearchRestaurants for deals.
	SearchDeals(ctx context.Context, f Filter, w Window) ([]DealResult, int, error)

	// ActiveDeals returns the active deals of the given restaurants.
	ActiveDeals(ctx context.Context, restaurantIDs []int64) ([]model.Deal, error)

	// DealTags returns the facets of each deal keyed by deal id.
	DealTags(ctx context.Context, dealIDs []int64) (map[int64]Tags, error)

	// RestaurantBookmarks returns, for the restaurants among ids bookmarked by
	// userID, the notify-on-deal flag keyed by restaurant id.
	RestaurantBookmarks(ctx context.Context, userID string, ids []int64) (map[int64]bool, error)

	// DealBookmarks returns the subset of ids bookmarked by userID.
	DealBookmarks(ctx context.Context, userID string, ids []int64) (map[int64]bool, error)
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// ListFacets implements Store.
func (s *PostgresStore) ListFacets(ctx context.Context, kind model.FacetKind) ([]model.Facet, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT id, name FROM %s ORDER BY name, id`, kind.Table()))
	if err != nil {
		return nil, eris.Wrapf(err, "discovery: list %s facets", kind)
	}
	defer rows.Close()

	facets := []model.Facet{}
	for rows.Next() {
		var f model.Facet
		if err := rows.Scan(&f.ID, &f.Name); err != nil {
			return nil, eris.Wrapf(err, "discovery: scan %s facet", kind)
		}
		facets = append(facets, f)
	}
	return facets, rows.Err()
}

// FacetCandidates implements Store.
func (s *PostgresStore) FacetCandidates(ctx context.Context, kind model.FacetKind, target Mode, facetIDs []int64) ([]int64, error) {
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	col := "d.id"
	if target == ModeRestaurants {
		col = "d.restaurant_id"
	}
	edge, facetCol := kind.EdgeTable()

	query := fmt.Sprintf(`
		SELECT DISTINCT %s
		FROM deals d
		JOIN %s e ON e.deal_id = d.id
		WHERE d.status = 'active' AND e.%s = ANY($1)`,
		col, edge, facetCol,
	)

	rows, err := s.pool.Query(ctx, query, facetIDs)
	if err != nil {
		return nil, eris.Wrapf(err, "discovery: %s candidates", kind)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrapf(err, "discovery: scan %s candidate", kind)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SearchRestaurants implements Store. The count runs first; the page query is
// skipped when w starts past the last matching row.
func (s *PostgresStore) SearchRestaurants(ctx context.Context, f Filter, w Window) ([]RestaurantResult, int, error) {
	p := restaurantPredicate(f)

	total, err := s.count(ctx, p)
	if err != nil {
		return nil, 0, eris.Wrap(err, "discovery: count restaurants")
	}
	items := []RestaurantResult{}
	if w.Beyond(total) {
		return items, total, nil
	}

	sql, args := p.pageSQL(restaurantColumns, f, w)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "discovery: query restaurants")
	}
	defer rows.Close()

	for rows.Next() {
		var r RestaurantResult
		if err := rows.Scan(
			&r.ID, &r.PartnerID, &r.Name, &r.Description,
			&r.Address.Street, &r.Address.City, &r.Address.Province, &r.Address.PostalCode, &r.Address.Country,
			&r.Latitude, &r.Longitude, &r.RatingAvg, &r.RatingCount, &r.IsActive, &r.CreatedAt,
			&r.DistanceKM,
		); err != nil {
			return nil, 0, eris.Wrap(err, "discovery: scan restaurant")
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, eris.Wrap(err, "discovery: iterate restaurants")
	}
	return items, total, nil
}

// SearchDeals implements Store.
func (s *PostgresStore) SearchDeals(ctx context.Context, f Filter, w Window) ([]DealResult, int, error) {
	p := dealPredicate(f)

	total, err := s.count(ctx, p)
	if err != nil {
		return nil, 0, eris.Wrap(err, "discovery: count deals")
	}
	items := []DealResult{}
	if w.Beyond(total) {
		return items, total, nil
	}

	sql, args := p.pageSQL(dealColumns, f, w)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, eris.Wrap(err, "discovery: query deals")
	}
	defer rows.Close()

	for rows.Next() {
		var d DealResult
		var status string
		if err := rows.Scan(
			&d.ID, &d.RestaurantID, &d.Title, &d.Description, &status,
			&d.StartDate, &d.EndDate, &d.CreatedAt, &d.RestaurantName,
			&d.DistanceKM,
		); err != nil {
			return nil, 0, eris.Wrap(err, "discovery: scan deal")
		}
		d.Status = model.DealStatus(status)
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, eris.Wrap(err, "discovery: iterate deals")
	}
	return items, total, nil
}

func (s *PostgresStore) count(ctx context.Context, p *predicate) (int, error) {
	sql, args := p.countSQL()
	var n int64
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

// ActiveDeals implements Store.
func (s *PostgresStore) ActiveDeals(ctx context.Context, restaurantIDs []int64) ([]model.Deal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, restaurant_id, title, description, status, start_date, end_date, created_at
		FROM deals
		WHERE restaurant_id = ANY($1) AND status = 'active'
		ORDER BY restaurant_id, end_date, id`,
		restaurantIDs,
	)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: query active deals")
	}
	defer rows.Close()

	var deals []model.Deal
	for rows.Next() {
		var d model.Deal
		var status string
		if err := rows.Scan(&d.ID, &d.RestaurantID, &d.Title, &d.Description, &status,
			&d.StartDate, &d.EndDate, &d.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "discovery: scan active deal")
		}
		d.Status = model.DealStatus(status)
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// DealTags implements Store.
func (s *PostgresStore) DealTags(ctx context.Context, dealIDs []int64) (map[int64]Tags, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT e.deal_id, 'cuisine', c.id, c.name
		FROM deal_cuisines e JOIN cuisines c ON c.id = e.cuisine_id
		WHERE e.deal_id = ANY($1)
		UNION ALL
		SELECT e.deal_id, 'dietary', dp.id, dp.name
		FROM deal_dietary_preferences e JOIN dietary_preferences dp ON dp.id = e.dietary_preference_id
		WHERE e.deal_id = ANY($1)
		ORDER BY 1, 2, 4`,
		dealIDs,
	)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: query deal tags")
	}
	defer rows.Close()

	tags := make(map[int64]Tags, len(dealIDs))
	for rows.Next() {
		var (
			dealID int64
			kind   string
			f      model.Facet
		)
		if err := rows.Scan(&dealID, &kind, &f.ID, &f.Name); err != nil {
			return nil, eris.Wrap(err, "discovery: scan deal tag")
		}
		t := tags[dealID]
		if model.FacetKind(kind) == model.FacetDietary {
			t.DietaryPreferences = append(t.DietaryPreferences, f)
		} else {
			t.Cuisines = append(t.Cuisines, f)
		}
		tags[dealID] = t
	}
	return tags, rows.Err()
}

// RestaurantBookmarks implements Store.
func (s *PostgresStore) RestaurantBookmarks(ctx context.Context, userID string, ids []int64) (map[int64]bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT restaurant_id, notify_on_deal FROM restaurant_bookmarks
		WHERE user_id = $1 AND restaurant_id = ANY($2)`,
		userID, ids,
	)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: query restaurant bookmarks")
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		var notify bool
		if err := rows.Scan(&id, &notify); err != nil {
			return nil, eris.Wrap(err, "discovery: scan restaurant bookmark")
		}
		out[id] = notify
	}
	return out, rows.Err()
}

// DealBookmarks implements Store.
func (s *PostgresStore) DealBookmarks(ctx context.Context, userID string, ids []int64) (map[int64]bool, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT deal_id FROM deal_bookmarks WHERE user_id = $1 AND deal_id = ANY($2)`,
		userID, ids,
	)
	if err != nil {
		return nil, eris.Wrap(err, "discovery: query deal bookmarks")
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "discovery: scan deal bookmark")
		}
		out[id] = true
	}
	return out, rows.Err()
}
