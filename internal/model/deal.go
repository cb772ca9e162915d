package model

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

// DealStatus is the lifecycle state of a deal.
type DealStatus string

const (
	DealStatusDraft    DealStatus = "draft"
	DealStatusActive   DealStatus = "active"
	DealStatusExpired  DealStatus = "expired"
	DealStatusArchived DealStatus = "archived"
)

var (
	// ErrInvalidTransition is wrapped by every TransitionError.
	ErrInvalidTransition = eris.New("model: invalid deal status transition")
	// ErrDealArchived is returned when an archived deal is edited.
	ErrDealArchived = eris.New("model: deal is archived")
	// ErrUnknownStatus is returned by ParseDealStatus.
	ErrUnknownStatus = eris.New("model: unknown deal status")
)

// transitions is the full set of allowed moves. archived has no outgoing edge.
var transitions = map[DealStatus][]DealStatus{
	DealStatusDraft:   {DealStatusActive, DealStatusArchived},
	DealStatusActive:  {DealStatusExpired, DealStatusArchived},
	DealStatusExpired: {DealStatusActive, DealStatusArchived},
}

// ParseDealStatus converts s to a DealStatus.
func ParseDealStatus(s string) (DealStatus, error) {
	switch st := DealStatus(s); st {
	case DealStatusDraft, DealStatusActive, DealStatusExpired, DealStatusArchived:
		return st, nil
	}
	return "", eris.Wrapf(ErrUnknownStatus, "status %q", s)
}

// Terminal reports whether no transition leaves s.
func (s DealStatus) Terminal() bool {
	return s == DealStatusArchived
}

// CanTransition reports whether from -> to is an allowed move.
func CanTransition(from, to DealStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionError describes a rejected status change. Reason is set when
// the move is in the table but its condition does not hold.
type TransitionError struct {
	From   DealStatus
	To     DealStatus
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot move deal from %q to %q: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot move deal from %q to %q", e.From, e.To)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ValidateTransition returns ErrDealArchived when from is archived and a
// *TransitionError when from -> to is not in the transition table.
func ValidateTransition(from, to DealStatus) error {
	if from.Terminal() {
		return ErrDealArchived
	}
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// ValidateManualTransition checks a move requested by a partner or admin
// rather than the sweep. On top of the transition table, the only manual move
// into active is draft -> active, and only while the deal is in effect on
// today. expired -> active happens through the sweep once the end date is
// extended.
func ValidateManualTransition(d Deal, to DealStatus, today time.Time) error {
	if err := ValidateTransition(d.Status, to); err != nil {
		return err
	}
	if to != DealStatusActive {
		return nil
	}
	if d.Status != DealStatusDraft {
		return &TransitionError{From: d.Status, To: to, Reason: "reactivation follows the end date"}
	}
	if !d.InEffect(today) {
		return &TransitionError{
			From: d.Status,
			To:   to,
			Reason: fmt.Sprintf("deal runs %s to %s, not in effect on %s",
				d.StartDate.Format(time.DateOnly), d.EndDate.Format(time.DateOnly), today.Format(time.DateOnly)),
		}
	}
	return nil
}

// Deal is a time-boxed offer published by a restaurant. StartDate and
// EndDate are calendar dates and the range is inclusive.
type Deal struct {
	ID           int64      `json:"id"`
	RestaurantID int64      `json:"restaurantId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       DealStatus `json:"status"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      time.Time  `json:"endDate"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// InEffect reports whether today falls in the deal's inclusive date range.
// Only the calendar date of each value is compared.
func (d Deal) InEffect(today time.Time) bool {
	return CompareDates(d.StartDate, today) <= 0 && CompareDates(d.EndDate, today) >= 0
}

// CompareDates compares the calendar dates of a and b, each read in its own
// location, and returns -1, 0 or +1.
func CompareDates(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	x := ay*10000 + int(am)*100 + ad
	y := by*10000 + int(bm)*100 + bd
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// DateOf truncates t to midnight of its calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
