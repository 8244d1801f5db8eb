package domain

import (
	"regexp"
	"time"
)

// UserStatus enumerates possible account states.
type UserStatus string

const (
	UserStatusActive UserStatus = "active"
	UserStatusLocked UserStatus = "locked"
)

// phonePattern matches mainland CN mobile numbers (11 digits, 13x-19x).
var phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)

// ValidPhoneNumber reports whether the supplied string is an acceptable phone number.
func ValidPhoneNumber(phone string) bool {
	return phonePattern.MatchString(phone)
}

// User mirrors the persisted representation in the users table.
// PasswordHash is nil until the user sets a password; code-only accounts are valid.
type User struct {
	ID                string
	PhoneNumber       string
	Status            UserStatus
	PasswordHash      *string
	PasswordSetAt     *time.Time
	PasswordFailCount int
	LockedUntil       *time.Time
	LastLoginAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasPassword reports whether a password credential exists for the user.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// IsLocked reports whether the account lock is still in force at the supplied moment.
func (u User) IsLocked(at time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(at)
}

// PasswordHistoryEntry tracks a superseded password hash for reuse prevention.
type PasswordHistoryEntry struct {
	ID           string
	UserID       string
	PasswordHash string
	SetAt        time.Time
}

// LoginFailure records a failed code-login attempt from an IP address.
// Rows are append-only; a trailing window count gates further attempts.
type LoginFailure struct {
	ID          string
	IPAddress   string
	PhoneNumber *string
	FailedAt    time.Time
}
