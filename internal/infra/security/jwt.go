package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/clx1415926/taobei-app/internal/core/port"
)

// ErrTokenInvalid is returned for any token that fails signature or claim checks.
var ErrTokenInvalid = errors.New("jwt: invalid token")

// sessionClaims is the registered + private claim set carried by session tokens.
type sessionClaims struct {
	PhoneNumber string `json:"phone"`
	SessionID   string `json:"sid"`
	jwt.RegisteredClaims
}

// JWTSigner signs and verifies HS256 session tokens with a shared secret.
type JWTSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTSigner constructs a signer. TTL controls the embedded expiry claim;
// the session record carries the same window.
func NewJWTSigner(secret, issuer string, ttl time.Duration) (*JWTSigner, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt: secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("jwt: ttl must be positive")
	}
	return &JWTSigner{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock overrides time acquisition, primarily for tests.
func (s *JWTSigner) WithClock(now func() time.Time) *JWTSigner {
	if now != nil {
		s.now = now
	}
	return s
}

// TTL returns the configured token lifetime.
func (s *JWTSigner) TTL() time.Duration {
	return s.ttl
}

// Sign issues a token for the supplied claims.
func (s *JWTSigner) Sign(claims port.TokenClaims) (string, error) {
	now := s.now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		PhoneNumber: claims.PhoneNumber,
		SessionID:   claims.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   claims.UserID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify parses the token and returns its claims. Expired, malformed, or
// wrongly-signed tokens all map to ErrTokenInvalid.
func (s *JWTSigner) Verify(token string) (*port.TokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*sessionClaims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	return &port.TokenClaims{
		UserID:      claims.Subject,
		PhoneNumber: claims.PhoneNumber,
		SessionID:   claims.SessionID,
	}, nil
}

var _ port.TokenSigner = (*JWTSigner)(nil)
