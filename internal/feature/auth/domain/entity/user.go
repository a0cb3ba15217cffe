// Package entity defines the domain entities for the auth feature.
package entity

import "time"

// User represents a registered account. It doubles as the GORM model of the users table.
type User struct {
	// ID is a random UUID assigned at signup.
	ID string `gorm:"primaryKey;size:36"`

	// Email is the sign-in address. It must be unique across all users.
	Email string `gorm:"uniqueIndex;size:255;not null"`

	// Password is the bcrypt hash of the user's password, never the plaintext.
	Password string `gorm:"size:255;not null"`

	// Name is the optional display name given at signup.
	Name string `gorm:"size:80"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
