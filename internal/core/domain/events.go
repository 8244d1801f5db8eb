package domain

import "time"

// CodeRequestedEvent represents the payload for auth.code.requested messages.
// The SMS delivery worker consumes these off the dedicated topic; audit topics
// never carry the plaintext code.
type CodeRequestedEvent struct {
	EventID     string
	PhoneNumber string
	Purpose     string
	Code        string
	RequestedAt time.Time
	ExpiresAt   time.Time
	SourceIP    *string
}

// UserRegisteredEvent represents the payload for auth.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	PhoneNumber  string
	RegisteredAt time.Time
}

// PasswordChangedEvent represents the payload for auth.password.changed messages.
type PasswordChangedEvent struct {
	EventID         string
	UserID          string
	ChangedAt       time.Time
	ChangedVia      string
	SessionsRevoked int
}

// AccountLockedEvent represents the payload for auth.account.locked messages.
type AccountLockedEvent struct {
	EventID     string
	UserID      string
	FailCount   int
	LockedAt    time.Time
	LockedUntil time.Time
}

// SessionRevokedEvent represents the payload for auth.session.revoked messages.
type SessionRevokedEvent struct {
	EventID   string
	SessionID string
	UserID    string
	RevokedAt time.Time
	Reason    string
}
