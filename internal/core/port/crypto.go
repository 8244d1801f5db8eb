package port

// PasswordHasher hashes and verifies password credentials.
// The encoded form embeds the salt and cost parameters, so reuse checks
// re-hash the candidate against each stored encoding.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) (bool, error)
}

// CodeGenerator produces one-time numeric codes. Test configurations swap in
// a fixed-value generator for deterministic flows.
type CodeGenerator interface {
	Generate() (string, error)
}

// TokenClaims is the payload carried inside a signed session token.
type TokenClaims struct {
	UserID      string
	PhoneNumber string
	SessionID   string
}

// TokenSigner signs and verifies bearer tokens with a shared secret.
type TokenSigner interface {
	Sign(claims TokenClaims) (string, error)
	Verify(token string) (*TokenClaims, error)
}
