package port

import (
	"context"
	"time"

	"github.com/clx1415926/taobei-app/internal/core/domain"
)

// UserRepository exposes persistence behavior for users and their password history.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string, setAt time.Time) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	// SetFailState writes the fail counter and lock expiry in one statement so
	// concurrent failures cannot interleave a stale counter.
	SetFailState(ctx context.Context, id string, failCount int, lockedUntil *time.Time) error
	// IncrementFailCount atomically bumps the counter and returns the new value.
	IncrementFailCount(ctx context.Context, id string) (int, error)
	ListPasswordHistory(ctx context.Context, userID string, limit int) ([]domain.PasswordHistoryEntry, error)
	AddPasswordHistory(ctx context.Context, entry domain.PasswordHistoryEntry) error
	TrimPasswordHistory(ctx context.Context, userID string, keep int) error
}
