// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account that owns vehicles.
//
// WHY PasswordHash WITH json:"-"?
// The `json:"-"` tag tells encoding/json to NEVER serialize this field.
// A login response contains the user object, and a bcrypt hash must not
// leak to the client even though it isn't reversible. Excluding it at the
// type level is safer than remembering to strip it in every handler.
//
// Username is UNIQUE at the database level — registration with a taken
// name maps to a 409 Conflict.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
