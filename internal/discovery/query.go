// Package discovery answers "which restaurants and deals match this diner
// right now": facet resolution, a single shared predicate for page and count,
// distance-bounded search, pagination and per-viewer hydration.
package discovery

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/dealscout/dealscout/internal/geo"
	"github.com/dealscout/dealscout/internal/model"
)

// Mode selects which entity kind a search returns.
type Mode string

const (
	ModeRestaurants Mode = "restaurants"
	ModeDeals       Mode = "deals"
	ModeBoth        Mode = "both"
)

// SortField is a requested or effective sort key.
type SortField string

const (
	SortRelevance SortField = "relevance"
	SortRating    SortField = "rating"
	SortDistance  SortField = "distance"
	SortNewest    SortField = "newest"
)

// SortOrder is a sort direction. The zero value means "use the field default".
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ErrInvalidQuery is wrapped by every ValidationError.
var ErrInvalidQuery = eris.New("discovery: invalid query")

// ValidationError describes a rejected request parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidQuery.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidQuery
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// FacetFilter selects facets of one kind by id, by name, or both. Names are
// matched case-insensitively; ids and resolved names are unioned.
type FacetFilter struct {
	IDs   []int64
	Names []string
}

// Requested reports whether the caller asked to filter on this kind at all.
func (f FacetFilter) Requested() bool {
	return len(f.IDs) > 0 || len(f.Names) > 0
}

// Query is a normalized, strongly typed discovery request.
type Query struct {
	Text           string
	Mode           Mode
	Cuisines       FacetFilter
	Dietary        FacetFilter
	Latitude       *float64
	Longitude      *float64
	RadiusKM       *float64
	HasActiveDeals bool
	SortBy         SortField
	SortOrder      SortOrder
	Page           int
	Limit          int
}

// NewQuery returns a Query with every default applied.
func NewQuery() Query {
	return Query{
		Mode:   ModeBoth,
		SortBy: SortRelevance,
		Page:   1,
		Limit:  DefaultLimit,
	}
}

// Facet returns the filter for kind.
func (q Query) Facet(kind model.FacetKind) FacetFilter {
	if kind == model.FacetDietary {
		return q.Dietary
	}
	return q.Cuisines
}

// Origin returns the viewer's coordinates when both were supplied.
func (q Query) Origin() (geo.Point, bool) {
	if q.Latitude == nil || q.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *q.Latitude, Lon: *q.Longitude}, true
}

// Offset is the number of rows skipped before the requested page. It
// saturates at math.MaxInt, so a page too large to address is simply past the
// end of any result set.
func (q Query) Offset() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// Normalize trims free text and removes duplicate or blank facet input.
func (q *Query) Normalize() {
	q.Text = strings.TrimSpace(q.Text)
	q.Cuisines = q.Cuisines.normalize()
	q.Dietary = q.Dietary.normalize()
}

func (f FacetFilter) normalize() FacetFilter {
	var out FacetFilter
	for _, id := range f.IDs {
		if !slices.Contains(out.IDs, id) {
			out.IDs = append(out.IDs, id)
		}
	}
	for _, n := range f.Names {
		n = strings.TrimSpace(n)
		if n != "" && !slices.Contains(out.Names, n) {
			out.Names = append(out.Names, n)
		}
	}
	return out
}

// Validate rejects malformed requests before any store access.
func (q Query) Validate() error {
	switch q.Mode {
	case ModeRestaurants, ModeDeals, ModeBoth:
	default:
		return invalid("type", "must be one of restaurants, deals, both")
	}

	if (q.Latitude == nil) != (q.Longitude == nil) {
		return invalid("coordinates", "latitude and longitude must be given together")
	}
	if q.Latitude != nil && !geo.ValidLatitude(*q.Latitude) {
		return invalid("latitude", "must be between -90 and 90")
	}
	if q.Longitude != nil && !geo.ValidLongitude(*q.Longitude) {
		return invalid("longitude", "must be between -180 and 180")
	}
	if q.RadiusKM != nil {
		if q.Latitude == nil {
			return invalid("radius", "requires latitude and longitude")
		}
		r := *q.RadiusKM
		if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
			return invalid("radius", "must be a positive number of kilometers")
		}
	}

	switch q.SortBy {
	case SortRelevance, SortRating, SortDistance, SortNewest:
	default:
		return invalid("sortBy", "must be one of relevance, rating, distance, newest")
	}
	switch q.SortOrder {
	case "", SortAsc, SortDesc:
	default:
		return invalid("sortOrder", "must be asc or desc")
	}

	for _, id := range slices.Concat(q.Cuisines.IDs, q.Dietary.IDs) {
		if id <= 0 {
			return invalid("facet id", "%d is not a valid id", id)
		}
	}

	if q.Page < 1 {
		return invalid("page", "must be at least 1")
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		return invalid("limit", "must be between 1 and %d", MaxLimit)
	}
	return nil
}

// Sort is an effective sort: the concrete key and direction applied to a
// result set after fallbacks.
type Sort struct {
	By    SortField `json:"sortBy"`
	Order SortOrder `json:"sortOrder"`
}

// resolveSort maps the requested sort onto what mode can actually order by.
// relevance becomes distance with an origin and rating otherwise; distance
// without an origin becomes newest; deals carry no rating so rating sorts
// them by creation time. Defaults are desc for rating and relevance and asc
// for distance and newest. An explicit order always wins.
func resolveSort(q Query, mode Mode) Sort {
	_, hasOrigin := q.Origin()

	by := q.SortBy
	order := SortDesc
	switch by {
	case SortRelevance:
		if hasOrigin {
			by, order = SortDistance, SortAsc
		} else {
			by = SortRating
		}
	case SortDistance, SortNewest:
		order = SortAsc
	}

	if by == SortDistance && !hasOrigin {
		by = SortNewest
	}
	if by == SortRating && mode == ModeDeals {
		by = SortNewest
	}
	if q.SortOrder != "" {
		order = q.SortOrder
	}
	return Sort{By: by, Order: order}
}
