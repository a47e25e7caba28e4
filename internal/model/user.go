package model

import "time"

// Role is the closed set of account roles.  Registration only accepts
// RoleUser and RolePublisher; RoleAdmin is assigned by another admin or
// by the seeder.
type Role string

const (
	RoleUser      Role = "user"
	RolePublisher Role = "publisher"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RolePublisher, RoleAdmin:
		return true
	}
	return false
}

// RoleSet is a set of roles used for authorization checks.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from the given roles.
func NewRoleSet(roles ...Role) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// Contains reports whether r is a member of the set.
func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

// User represents an account record as stored in the `users` table.
// The password hash and the reset token pair are never serialized; the
// JSON tags exist because handlers return users directly.
//
// Fields:
//
//	ID                  – primary key identifier.
//	Name                – display name.
//	Email               – unique, lower-cased email address.
//	Role                – user, publisher or admin.
//	PasswordHash        – bcrypt hash of the password.
//	ResetPasswordToken  – sha256 hex of the pending reset secret (nil when none).
//	ResetPasswordExpire – expiry of the pending reset secret (nil when none).
//	CreatedAt           – timestamp of creation.
type User struct {
	ID                  uint64     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Role                Role       `json:"role"`
	PasswordHash        string     `json:"-"`
	ResetPasswordToken  *string    `json:"-"`
	ResetPasswordExpire *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// HasPendingReset reports whether a reset secret is stored and has not
// expired at now.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetPasswordToken != nil && u.ResetPasswordExpire != nil && u.ResetPasswordExpire.After(now)
}
