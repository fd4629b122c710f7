// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus is the lifecycle state of an identity.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
	UserStatusInactive  UserStatus = "INACTIVE"
)

// User is the identity every session, OTP and payment hangs off.
// This engine only ever mutates EmailVerified.
type User struct {
	ID            uuid.UUID  // The Global Unique Identifier (GUID) for the user.
	Email         string     // Normalized (lower-cased, trimmed) login email.
	Name          string     // Display name, may be empty for passwordless sign-ups.
	Role          Role       // Authorization role embedded in access tokens.
	Status        UserStatus // Only ACTIVE identities can sign in.
	EmailVerified bool       // Set once the first OTP for Email is verified.
	CreatedAt     time.Time  // Timestamp of when this user account was created.
	UpdatedAt     time.Time  // Timestamp of the last modification to this user's data.
}

// IsActive reports whether the identity may authenticate.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
