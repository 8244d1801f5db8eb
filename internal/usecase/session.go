package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clx1415926/taobei-app/internal/core/domain"
	"github.com/clx1415926/taobei-app/internal/core/port"
	"github.com/clx1415926/taobei-app/internal/infra/security"
	"github.com/clx1415926/taobei-app/internal/repository"
)

var (
	// ErrMissingToken indicates no bearer token was supplied.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken indicates signature, claim, or session-record validation failed.
	ErrInvalidToken = errors.New("invalid token")
)

// SessionMeta carries optional request metadata stored alongside the session.
type SessionMeta struct {
	IPAddress *string
	UserAgent *string
}

// SessionService issues, validates, and revokes bearer tokens and their
// backing session records. Validation is a dual check: the signed token must
// verify AND a live session row must exist, so revocation takes effect before
// the token's own expiry claim elapses.
type SessionService struct {
	sessions  port.SessionRepository
	signer    port.TokenSigner
	publisher port.EventPublisher
	logger    *zap.Logger
	ttl       time.Duration
	now       func() time.Time
}

// NewSessionService wires the service with its collaborators. The session
// record and the signed token share the same ttl.
func NewSessionService(sessions port.SessionRepository, signer port.TokenSigner, publisher port.EventPublisher, logger *zap.Logger, ttl time.Duration) *SessionService {
	return &SessionService{
		sessions:  sessions,
		signer:    signer,
		publisher: publisher,
		logger:    logger,
		ttl:       ttl,
		now:       time.Now,
	}
}

// WithClock overrides time acquisition, primarily for tests.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	if now != nil {
		s.now = now
	}
	return s
}

// TTL exposes the session lifetime for callers shaping responses.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a token for the user and persists the backing session record.
func (s *SessionService) Issue(ctx context.Context, userID, phone string, meta SessionMeta) (string, error) {
	sessionID := uuid.NewString()

	token, err := s.signer.Sign(port.TokenClaims{
		UserID:      userID,
		PhoneNumber: phone,
		SessionID:   sessionID,
	})
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	now := s.now().UTC()
	session := domain.Session{
		ID:        sessionID,
		UserID:    userID,
		TokenHash: security.HashToken(token),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(s.TTL()),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("persist session: %w", err)
	}

	return token, nil
}

// Validate verifies the token signature and the backing session record.
func (s *SessionService) Validate(ctx context.Context, token string) (*port.TokenClaims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.signer.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	session, err := s.sessions.GetByTokenHash(ctx, security.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load session: %w", err)
	}

	if !session.IsActive(s.now().UTC()) {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Revoke invalidates the session backing the token. Revoking an unknown or
// already-revoked token is a no-op, keeping logout idempotent.
func (s *SessionService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return ErrMissingToken
	}

	now := s.now().UTC()
	revoked, err := s.sessions.Revoke(ctx, security.HashToken(token), now)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	if revoked {
		if claims, verr := s.signer.Verify(token); verr == nil {
			event := domain.SessionRevokedEvent{
				EventID:   uuid.NewString(),
				SessionID: claims.SessionID,
				UserID:    claims.UserID,
				RevokedAt: now,
				Reason:    "logout",
			}
			if perr := s.publisher.PublishSessionRevoked(ctx, event); perr != nil {
				s.logger.Warn("publish session revoked event failed", zap.Error(perr))
			}
		}
	}

	return nil
}

// RevokeAllForUser invalidates every live session for the user, returning the
// number revoked. Used after password resets.
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID, reason string) (int, error) {
	now := s.now().UTC()
	count, err := s.sessions.RevokeAllForUser(ctx, userID, now)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}

	if count > 0 {
		event := domain.SessionRevokedEvent{
			EventID:   uuid.NewString(),
			UserID:    userID,
			RevokedAt: now,
			Reason:    reason,
		}
		if perr := s.publisher.PublishSessionRevoked(ctx, event); perr != nil {
			s.logger.Warn("publish session revoked event failed", zap.Error(perr))
		}
	}

	return count, nil
}
