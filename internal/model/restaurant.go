// Package model defines the entities read by discovery and the deal status
// machine shared by discovery and the lifecycle sweep.
package model

import "time"

// Restaurant is a partner venue. Latitude and Longitude are nil until the
// partner service geocodes the address.
type Restaurant struct {
	ID          int64     `json:"id"`
	PartnerID   int64     `json:"partnerId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Address     Address   `json:"address"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	RatingAvg   float64   `json:"ratingAvg"`
	RatingCount int       `json:"ratingCount"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Address holds the postal address fields of a restaurant.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// HasCoordinates reports whether both coordinates are present.
func (r Restaurant) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}
