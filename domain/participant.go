// Package domain contains core concepts of the chat system.
// This file defines the identity attached to a connection and user accounts.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Identity is what the identity resolver yields for a valid credential.
type Identity struct {
	UserID   string
	Username string
}

// User is an account as seen by the user store.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Person is the public projection of a User.
type Person struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}
