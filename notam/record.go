// Package notam holds the NOTAM record type and the pure decoders that turn
// the AeroInfo page's semi-structured text into it: compact dates, coordinate
// blocks, the A)/B)/C) and Q) items, and whitespace normalisation.
//
// Nothing in this package performs I/O. Functions that need the current time
// take it as an argument so results are deterministic.
package notam

import (
	"fmt"
	"time"
)

// Scope is the single-letter category leading a NOTAM identifier.
type Scope string

const (
	ScopeAerodrome  Scope = "A"
	ScopeEnRoute    Scope = "C"
	ScopeRadar      Scope = "R"
	ScopeNavigation Scope = "N"
)

// Valid reports whether s is one of the known scope letters.
func (s Scope) Valid() bool {
	switch s {
	case ScopeAerodrome, ScopeEnRoute, ScopeRadar, ScopeNavigation:
		return true
	}
	return false
}

// Description returns the human-readable scope name.
func (s Scope) Description() string {
	switch s {
	case ScopeAerodrome:
		return "Aerodrome"
	case ScopeEnRoute:
		return "En-route"
	case ScopeRadar:
		return "Radar"
	case ScopeNavigation:
		return "Navigation"
	}
	return string(s)
}

// Coordinate is a position in decimal degrees, rounded to two places.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Record is one parsed notice. JSON field names follow the viewer's contract.
type Record struct {
	ID             string      `json:"id"`
	Scope          Scope       `json:"type"`
	Number         string      `json:"number"`
	Year           string      `json:"year"`
	LocationCode   string      `json:"icaoCode"`
	ValidFrom      *time.Time  `json:"validFrom,omitempty"`
	ValidTo        *time.Time  `json:"validTo,omitempty"`
	BodyText       string      `json:"description"`
	RawText        string      `json:"rawText"`
	Coordinate     *Coordinate `json:"coordinate,omitempty"`
	CoordinateLink string      `json:"mapLink,omitempty"`
	CreatedAt      time.Time   `json:"createdDate"`
}

// Validate checks the record invariants that decoding can break: a
// well-formed identifier and a non-inverted validity window.
func (r *Record) Validate() error {
	if _, _, _, ok := ParseID(r.ID); !ok {
		return &DecodeError{Field: "id", Input: r.ID, Err: ErrNoMatch}
	}
	if r.ValidFrom != nil && r.ValidTo != nil && r.ValidFrom.After(*r.ValidTo) {
		return &DecodeError{
			Field: "validity",
			Input: fmt.Sprintf("%s > %s", r.ValidFrom.Format(time.RFC3339), r.ValidTo.Format(time.RFC3339)),
			Err:   ErrInvalidWindow,
		}
	}
	return nil
}

// ValidAt reports whether the notice is in force at t. A missing bound is
// open on that side; a record with no bounds is always in force.
func (r *Record) ValidAt(t time.Time) bool {
	if r.ValidFrom != nil && t.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && t.After(*r.ValidTo) {
		return false
	}
	return true
}

// ValidOn reports whether the notice is in force at any time on the UTC
// calendar day holding day. Bounds compare by day, so a notice ending at
// 00:01 still counts for that day.
func (r *Record) ValidOn(day time.Time) bool {
	d := truncateDay(day)
	if r.ValidFrom != nil && d.Before(truncateDay(*r.ValidFrom)) {
		return false
	}
	if r.ValidTo != nil && d.After(truncateDay(*r.ValidTo)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SetCoordinate stores c and derives the map link from it.
func (r *Record) SetCoordinate(c *Coordinate) {
	if c == nil {
		return
	}
	r.Coordinate = c
	r.CoordinateLink = MapLink(*c)
}
