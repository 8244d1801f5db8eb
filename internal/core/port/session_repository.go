package port

import (
	"context"
	"time"

	"github.com/clx1415926/taobei-app/internal/core/domain"
)

// SessionRepository deals with session storage.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	Revoke(ctx context.Context, tokenHash string, at time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int, error)
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
