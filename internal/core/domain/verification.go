package domain

import "time"

// CodePurpose scopes a verification code to a single flow.
type CodePurpose string

const (
	CodePurposeLogin    CodePurpose = "login"
	CodePurposeRegister CodePurpose = "register"
	CodePurposeReset    CodePurpose = "reset"
)

// Valid reports whether the purpose is one of the known flows.
func (p CodePurpose) Valid() bool {
	switch p {
	case CodePurposeLogin, CodePurposeRegister, CodePurposeReset:
		return true
	}
	return false
}

// VerificationCode mirrors the persisted representation in the verification_codes table.
// The code value is stored as a hash; the plaintext never reaches the store.
type VerificationCode struct {
	ID          string
	PhoneNumber string
	CodeHash    string
	Purpose     CodePurpose
	SourceIP    *string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	UsedAt      *time.Time
}

// Consumable reports whether the code can still be redeemed at the supplied moment.
func (c VerificationCode) Consumable(at time.Time) bool {
	return c.UsedAt == nil && c.ExpiresAt.After(at)
}

// Expired reports whether the code's validity window has elapsed.
func (c VerificationCode) Expired(at time.Time) bool {
	return !c.ExpiresAt.After(at)
}
