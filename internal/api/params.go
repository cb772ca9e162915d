package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dealscout/dealscout/internal/discovery"
)

// ParseQuery converts lenient query-string input into a discovery.Query.
// Repeated parameters and comma-joined values are both accepted, and most
// fields have a short alias. Malformed numbers and booleans are reported as
// *discovery.ValidationError; range checks are left to Query.Validate.
func ParseQuery(v url.Values, defaultLimit int) (discovery.Query, error) {
	q := discovery.NewQuery()
	if defaultLimit > 0 {
		q.Limit = defaultLimit
	}

	q.Text = first(v, "q", "query")

	if s := first(v, "type"); s != "" {
		q.Mode = discovery.Mode(strings.ToLower(s))
	}

	var err error
	if q.Cuisines.IDs, err = int64s(v, "cuisineIds", "cuisineIds", "cuisineId"); err != nil {
		return q, err
	}
	q.Cuisines.Names = list(v, "cuisine", "cuisines")
	if q.Dietary.IDs, err = int64s(v, "dietaryIds", "dietaryIds", "dietaryId", "dietaryPreferenceIds"); err != nil {
		return q, err
	}
	q.Dietary.Names = list(v, "dietary", "dietaryPreferences")

	if q.Latitude, err = float(v, "latitude", "latitude", "lat"); err != nil {
		return q, err
	}
	if q.Longitude, err = float(v, "longitude", "longitude", "lon", "lng"); err != nil {
		return q, err
	}
	if q.RadiusKM, err = float(v, "radius", "radius", "radiusKm"); err != nil {
		return q, err
	}

	if s := first(v, "hasActiveDeals"); s != "" {
		b, perr := strconv.ParseBool(s)
		if perr != nil {
			return q, badParam("hasActiveDeals", "%q is not a boolean", s)
		}
		q.HasActiveDeals = b
	}

	if s := first(v, "sortBy"); s != "" {
		q.SortBy = discovery.SortField(strings.ToLower(s))
	}
	if s := first(v, "sortOrder"); s != "" {
		q.SortOrder = discovery.SortOrder(strings.ToLower(s))
	}

	if q.Page, err = integer(v, "page", q.Page); err != nil {
		return q, err
	}
	if q.Limit, err = integer(v, "limit", q.Limit); err != nil {
		return q, err
	}
	return q, nil
}

func badParam(field, format string, args ...any) error {
	return &discovery.ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// list gathers every value of every key, splitting on commas and dropping
// blanks.
func list(v url.Values, keys ...string) []string {
	var out []string
	for _, k := range keys {
		for _, raw := range v[k] {
			for _, part := range strings.Split(raw, ",") {
				if part = strings.TrimSpace(part); part != "" {
					out = append(out, part)
				}
			}
		}
	}
	return out
}

func first(v url.Values, keys ...string) string {
	if l := list(v, keys...); len(l) > 0 {
		return l[0]
	}
	return ""
}

func int64s(v url.Values, field string, keys ...string) ([]int64, error) {
	var out []int64
	for _, s := range list(v, keys...) {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, badParam(field, "%q is not an integer id", s)
		}
		out = append(out, id)
	}
	return out, nil
}

func float(v url.Values, field string, keys ...string) (*float64, error) {
	s := first(v, keys...)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, badParam(field, "%q is not a number", s)
	}
	return &f, nil
}

func integer(v url.Values, field string, def int) (int, error) {
	s := first(v, field)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, badParam(field, "%q is not an integer", s)
	}
	return n, nil
}
