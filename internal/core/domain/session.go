package domain

import "time"

// Session represents a persisted login session backing an issued bearer token.
// The token itself is stored as a hash; revocation stamps the row, which
// invalidates the token even before its embedded expiry claim elapses.
type Session struct {
	ID        string
	UserID    string
	TokenHash string
	IPAddress *string
	UserAgent *string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// IsActive reports whether the session is still valid (not revoked and not expired at the supplied moment).
func (s Session) IsActive(at time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	return s.ExpiresAt.After(at)
}

// Revoke marks the session as revoked. Returns true when the session changed state.
func (s *Session) Revoke(at time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	s.RevokedAt = &at
	return true
}
