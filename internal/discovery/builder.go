package discovery

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dealscout/dealscout/internal/geo"
)

// predicate is the FROM and WHERE shared by the count and page queries of
// one search. Both queries are rendered from the same value so they can never
// disagree on which rows match.
type predicate struct {
	from  string
	alias string // table alias carrying latitude/longitude
	id    string // primary key column, used as the final tie-break
	conds []string
	args  []any

	// Placeholders of the bound origin, 0 when not bound.
	latArg, lonArg int
}

func (p *predicate) bind(v any) int {
	p.args = append(p.args, v)
	return len(p.args)
}

func (p *predicate) where() string {
	return strings.Join(p.conds, " AND ")
}

func (p *predicate) bindOrigin(o geo.Point) (lat, lon int) {
	if p.latArg == 0 {
		p.latArg = p.bind(o.Lat)
		p.lonArg = p.bind(o.Lon)
	}
	return p.latArg, p.lonArg
}

func (p *predicate) distance(o geo.Point) string {
	lat, lon := p.bindOrigin(o)
	return geo.DistanceSQL(p.alias+".latitude", p.alias+".longitude", lat, lon)
}

func (p *predicate) clone() *predicate {
	c := *p
	c.args = slices.Clone(p.args)
	return &c
}

// withinRadius excludes rows without coordinates or farther than the radius.
func (p *predicate) withinRadius(f Filter) {
	if f.Origin == nil || f.RadiusKM == nil {
		return
	}
	dist := p.distance(*f.Origin)
	r := p.bind(*f.RadiusKM)
	p.conds = append(p.conds, fmt.Sprintf(
		"%[1]s.latitude IS NOT NULL AND %[1]s.longitude IS NOT NULL AND %[2]s <= $%[3]d",
		p.alias, dist, r,
	))
}

func (p *predicate) restrictIDs(ids []int64) {
	if ids == nil {
		return
	}
	p.conds = append(p.conds, fmt.Sprintf("%s = ANY($%d)", p.id, p.bind(ids)))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE substring pattern matching s literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func restaurantPredicate(f Filter) *predicate {
	p := &predicate{
		from:  "restaurants r LEFT JOIN partners pt ON pt.id = r.partner_id",
		alias: "r",
		id:    "r.id",
		conds: []string{"r.is_active"},
	}
	if f.Text != "" {
		n := p.bind(containsPattern(f.Text))
		p.conds = append(p.conds, fmt.Sprintf(
			"(r.name ILIKE $%[1]d OR r.description ILIKE $%[1]d OR pt.business_name ILIKE $%[1]d)", n,
		))
	}
	p.restrictIDs(f.IDs)
	if f.HasActiveDeals {
		p.conds = append(p.conds,
			"EXISTS (SELECT 1 FROM deals ad WHERE ad.restaurant_id = r.id AND ad.status = 'active')")
	}
	p.withinRadius(f)
	return p
}

func dealPredicate(f Filter) *predicate {
	p := &predicate{
		from:  "deals d JOIN restaurants r ON r.id = d.restaurant_id",
		alias: "r",
		id:    "d.id",
		conds: []string{"d.status = 'active'", "r.is_active"},
	}
	if f.Text != "" {
		n := p.bind(containsPattern(f.Text))
		p.conds = append(p.conds, fmt.Sprintf("(d.title ILIKE $%[1]d OR d.description ILIKE $%[1]d)", n))
	}
	p.restrictIDs(f.IDs)
	p.withinRadius(f)
	return p
}

func (p *predicate) countSQL() (string, []any) {
	return "SELECT count(*) FROM " + p.from + " WHERE " + p.where(), p.args
}

// pageSQL renders the page query. It works on a copy so the args of p stay
// exactly those of the count query.
func (p *predicate) pageSQL(columns string, f Filter, w Window) (string, []any) {
	q := p.clone()

	dist := "NULL::float8"
	if f.Origin != nil {
		dist = q.distance(*f.Origin)
	}
	limit := q.bind(w.Limit)
	offset := q.bind(w.Offset)

	sql := fmt.Sprintf(
		"SELECT %s, %s AS distance_km FROM %s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		columns, dist, q.from, q.where(), q.orderBy(f.Sort), limit, offset,
	)
	return sql, q.args
}

func (p *predicate) orderBy(s Sort) string {
	dir := "ASC"
	if s.Order == SortDesc {
		dir = "DESC"
	}
	tie := p.id + " ASC"

	switch s.By {
	case SortDistance:
		return fmt.Sprintf("distance_km %s NULLS LAST, %s", dir, tie)
	case SortRating:
		if p.id == "r.id" {
			return fmt.Sprintf("r.rating_avg %[1]s, r.rating_count %[1]s, %[2]s", dir, tie)
		}
	}
	created := "r.created_at"
	if p.id == "d.id" {
		created = "d.created_at"
	}
	return fmt.Sprintf("%s %s, %s", created, dir, tie)
}

const restaurantColumns = `r.id, COALESCE(r.partner_id, 0), r.name, r.description,
	r.street, r.city, r.province, r.postal_code, r.country,
	r.latitude, r.longitude, r.rating_avg, r.rating_count, r.is_active, r.created_at`

const dealColumns = `d.id, d.restaurant_id, d.title, d.description, d.status,
	d.start_date, d.end_date, d.created_at, r.name`
