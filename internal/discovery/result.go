package discovery

import (
	"github.com/dealscout/dealscout/internal/geo"
	"github.com/dealscout/dealscout/internal/model"
)

// Tags are the facets attached to one deal.
type Tags struct {
	Cuisines           []model.Facet `json:"cuisines"`
	DietaryPreferences []model.Facet `json:"dietaryPreferences"`
}

func (t Tags) orEmpty() Tags {
	if t.Cuisines == nil {
		t.Cuisines = []model.Facet{}
	}
	if t.DietaryPreferences == nil {
		t.DietaryPreferences = []model.Facet{}
	}
	return t
}

// DealSummary is an active deal nested under a restaurant result.
type DealSummary struct {
	model.Deal
	Tags
}

// RestaurantResult is one hydrated restaurant row.
type RestaurantResult struct {
	model.Restaurant
	DistanceKM   *float64      `json:"distanceKm,omitempty"`
	IsBookmarked bool          `json:"isBookmarked"`
	NotifyOnDeal bool          `json:"notifyOnDeal"`
	ActiveDeals  []DealSummary `json:"activeDeals"`
}

// DealResult is one hydrated deal row.
type DealResult struct {
	model.Deal
	Tags
	RestaurantName string   `json:"restaurantName"`
	DistanceKM     *float64 `json:"distanceKm,omitempty"`
	IsBookmarked   bool     `json:"isBookmarked"`
}

// Section is the result list for one mode.
type Section[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
	Sort       Sort       `json:"sort"`
}

// AppliedFilters echoes the normalized request after facet names were
// resolved to ids.
type AppliedFilters struct {
	Query          string    `json:"query,omitempty"`
	Type           Mode      `json:"type"`
	CuisineIDs     []int64   `json:"cuisineIds"`
	DietaryIDs     []int64   `json:"dietaryIds"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	RadiusKM       *float64  `json:"radiusKm,omitempty"`
	HasActiveDeals bool      `json:"hasActiveDeals"`
	SortBy         SortField `json:"sortBy"`
	SortOrder      SortOrder `json:"sortOrder,omitempty"`
	Page           int       `json:"page"`
	Limit          int       `json:"limit"`
}

// Response is the discovery result. Restaurants and Deals are present
// according to the requested mode.
type Response struct {
	Restaurants *Section[RestaurantResult] `json:"restaurants,omitempty"`
	Deals       *Section[DealResult]       `json:"deals,omitempty"`
	Filters     AppliedFilters             `json:"filters"`
}

// Filter is the fully resolved predicate input handed to the Store. A non-nil
// IDs restricts results to those target ids.
type Filter struct {
	Text           string
	IDs            []int64
	HasActiveDeals bool
	Origin         *geo.Point
	RadiusKM       *float64
	Sort           Sort
}
