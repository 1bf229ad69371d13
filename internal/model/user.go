// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Users arrive two ways: email/password signup, or first sight of an
// externally-authenticated identity (OAuth). External users get a
// placeholder password hash and can never log in with a password.
//
// PasswordHash is never serialized; the `json:"-"` tag keeps it out of
// every API response.
type User struct {
	ID           int64     `json:"id"        db:"id"`
	Name         string    `json:"name"      db:"name"`
	Email        string    `json:"email"     db:"email"` // unique, stored lowercase
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
