package model

import "github.com/rotisserie/eris"

// FacetKind identifies a categorical filter dimension attached to deals.
type FacetKind string

const (
	FacetCuisine FacetKind = "cuisine"
	FacetDietary FacetKind = "dietary"
)

// Facet is a reference-table row: a cuisine or a dietary preference.
type Facet struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FacetKinds lists every kind in a fixed order.
var FacetKinds = []FacetKind{FacetCuisine, FacetDietary}

// Table returns the reference table holding facets of this kind.
func (k FacetKind) Table() string {
	if k == FacetDietary {
		return "dietary_preferences"
	}
	return "cuisines"
}

// EdgeTable returns the deal join table and its facet id column.
func (k FacetKind) EdgeTable() (table, column string) {
	if k == FacetDietary {
		return "deal_dietary_preferences", "dietary_preference_id"
	}
	return "deal_cuisines", "cuisine_id"
}

// Validate rejects unknown kinds.
func (k FacetKind) Validate() error {
	if k != FacetCuisine && k != FacetDietary {
		return eris.Errorf("model: unknown facet kind %q", k)
	}
	return nil
}
