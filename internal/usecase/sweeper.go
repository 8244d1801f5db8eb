package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/clx1415926/taobei-app/internal/core/port"
)

// SweeperConfig controls the expiry sweep cadence and retention.
type SweeperConfig struct {
	Interval         time.Duration
	FailureRetention time.Duration
}

// DefaultSweeperConfig returns the production sweep cadence.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:         10 * time.Minute,
		FailureRetention: 24 * time.Hour,
	}
}

// Sweeper periodically deletes expired verification codes, expired sessions,
// and stale login-failure rows. Correctness never depends on it: expiry and
// lockout are enforced on read. The sweep only bounds table growth.
type Sweeper struct {
	codes    port.VerificationCodeRepository
	sessions port.SessionRepository
	failures port.LoginFailureRepository
	logger   *zap.Logger
	cfg      SweeperConfig
	now      func() time.Time
}

// NewSweeper wires the sweeper with its repositories.
func NewSweeper(
	codes port.VerificationCodeRepository,
	sessions port.SessionRepository,
	failures port.LoginFailureRepository,
	logger *zap.Logger,
	cfg SweeperConfig,
) *Sweeper {
	return &Sweeper{
		codes:    codes,
		sessions: sessions,
		failures: failures,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock overrides time acquisition, primarily for tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	if now != nil {
		s.now = now
	}
	return s
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one cleanup pass. Errors are logged, never fatal; the next
// tick retries.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now().UTC()

	if count, err := s.codes.DeleteExpired(ctx, now); err != nil {
		s.logger.Warn("sweep expired codes failed", zap.Error(err))
	} else if count > 0 {
		s.logger.Debug("swept expired codes", zap.Int("count", count))
	}

	if count, err := s.sessions.DeleteExpired(ctx, now); err != nil {
		s.logger.Warn("sweep expired sessions failed", zap.Error(err))
	} else if count > 0 {
		s.logger.Debug("swept expired sessions", zap.Int("count", count))
	}

	cutoff := now.Add(-s.cfg.FailureRetention)
	if count, err := s.failures.DeleteOlderThan(ctx, cutoff); err != nil {
		s.logger.Warn("sweep login failures failed", zap.Error(err))
	} else if count > 0 {
		s.logger.Debug("swept login failures", zap.Int("count", count))
	}
}
