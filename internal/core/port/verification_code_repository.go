package port

import (
	"context"
	"time"

	"github.com/clx1415926/taobei-app/internal/core/domain"
)

// VerificationCodeRepository deals with one-time code storage.
// Lookups always resolve the most recent unused row per (phone, purpose);
// older rows stay behind as history until the sweeper removes them.
type VerificationCodeRepository interface {
	Create(ctx context.Context, code domain.VerificationCode) error
	GetLatestUnused(ctx context.Context, phone string, purpose domain.CodePurpose) (*domain.VerificationCode, error)
	MarkUsed(ctx context.Context, id string, at time.Time) error
	CountSentSince(ctx context.Context, phone string, since time.Time) (int, error)
	LastSentFromIP(ctx context.Context, sourceIP string) (time.Time, bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
}
