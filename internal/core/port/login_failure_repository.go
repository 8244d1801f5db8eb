package port

import (
	"context"
	"time"

	"github.com/clx1415926/taobei-app/internal/core/domain"
)

// LoginFailureRepository records failed code-login attempts per source IP.
type LoginFailureRepository interface {
	Record(ctx context.Context, failure domain.LoginFailure) error
	CountSince(ctx context.Context, ipAddress string, since time.Time) (int, error)
	// ClearForIP removes all rows for the IP, not just expired ones.
	ClearForIP(ctx context.Context, ipAddress string) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int, error)
}
