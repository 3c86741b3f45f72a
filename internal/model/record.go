package model

import "time"

// DateLayout is the wire format for service-record dates (ISO 8601 date only).
// The same layout is produced by the receipt extraction prompt, so extracted
// dates drop straight into a record draft.
const DateLayout = "2006-01-02"

// Record is a single logged maintenance event for a vehicle: what was done,
// when, at what odometer reading, and what it cost.
//
// WHY Date string AND NOT time.Time?
// A service date is a calendar date with no time-of-day or timezone component.
// Parsing it into time.Time forces a fake midnight-UTC instant onto it and
// invites off-by-one-day bugs when it round-trips through local timezones.
// We keep it as a validated "YYYY-MM-DD" string end to end; the service layer
// rejects anything that doesn't parse with DateLayout.
//
// VerificationHash is a cosmetic marker attached when the record was
// pre-filled from a scanned receipt. It has no cryptographic meaning and the
// server never validates it — it only drives a "Verified" badge in clients.
type Record struct {
	ID               string    `json:"id"`
	VehicleID        string    `json:"vehicle_id"`
	Date             string    `json:"date"` // YYYY-MM-DD
	Task             string    `json:"task"`
	Cost             float64   `json:"cost"`
	Mileage          int       `json:"mileage"`
	VerificationHash string    `json:"verification_hash,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Summary is the derived spending aggregate for one user, recomputed by the
// backend on demand — never cached or reconciled client-side.
type Summary struct {
	TotalCost    float64 `json:"total_cost"`
	VehicleCount int     `json:"vehicle_count"`
}
