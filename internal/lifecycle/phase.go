// Package lifecycle advances deal status by calendar date and applies
// manual status changes requested by partner management.
package lifecycle

import "github.com/dealscout/dealscout/internal/model"

// Phase is one date-driven bulk transition. Each phase touches a single
// source status, so the phases operate on disjoint partitions of deals.
type Phase struct {
	Name string
	From model.DealStatus
	To   model.DealStatus
	// where is the date predicate; $1 is today's date.
	where string
}

const inEffect = "start_date <= $1::date AND end_date >= $1::date"

// Phases are applied in this order on every sweep.
var Phases = []Phase{
	{Name: "activate", From: model.DealStatusDraft, To: model.DealStatusActive, where: inEffect},
	{Name: "expire", From: model.DealStatusActive, To: model.DealStatusExpired, where: "end_date < $1::date"},
	{Name: "reactivate", From: model.DealStatusExpired, To: model.DealStatusActive, where: inEffect},
}
