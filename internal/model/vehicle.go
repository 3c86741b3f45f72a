package model

import "time"

// Vehicle represents a registered vehicle belonging to a user.
//
// The `json:"..."` tags tell Go's encoding/json package how to
// serialize/deserialize this struct to/from JSON. The snake_case names
// (user_id, license_plate, current_mileage) are the wire contract the
// API clients depend on — do not rename them casually.
//
// CurrentMileage is mutable: it advances whenever a service record is
// saved with a higher odometer reading. It never moves backwards (see
// the record service for that rule).
type Vehicle struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Make           string    `json:"make"`
	Model          string    `json:"model"`
	Year           int       `json:"year"`
	LicensePlate   string    `json:"license_plate"` // optional, may be empty
	CurrentMileage int       `json:"current_mileage"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
