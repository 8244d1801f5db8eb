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
	// ErrUserNotFound indicates the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrWeakPassword indicates the candidate fails the strength rules.
	ErrWeakPassword = errors.New("password too weak")
	// ErrPasswordReused indicates the candidate matches the current password or recent history.
	ErrPasswordReused = errors.New("password recently used")
	// ErrNoPasswordSet indicates the account has no password credential.
	ErrNoPasswordSet = errors.New("no password set")
)

// PasswordPolicy carries the lockout and history parameters.
type PasswordPolicy struct {
	FailLimit    int
	LockDuration time.Duration
	HistoryDepth int
}

// DefaultPasswordPolicy returns the production lockout parameters.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		FailLimit:    5,
		LockDuration: 15 * time.Minute,
		HistoryDepth: 3,
	}
}

// LockState reports the account's current lockout state.
type LockState struct {
	FailCount   int
	IsLocked    bool
	LockedUntil *time.Time
}

// PasswordService owns password hashing, strength enforcement, reuse history,
// and the per-user fail-count/lockout state machine. Orchestration of when to
// record failures lives in AuthService.
type PasswordService struct {
	users  port.UserRepository
	hasher port.PasswordHasher
	logger *zap.Logger
	policy PasswordPolicy
	now    func() time.Time
}

// NewPasswordService wires the service with its collaborators.
func NewPasswordService(users port.UserRepository, hasher port.PasswordHasher, logger *zap.Logger, policy PasswordPolicy) *PasswordService {
	return &PasswordService{
		users:  users,
		hasher: hasher,
		logger: logger,
		policy: policy,
		now:    time.Now,
	}
}

// WithClock overrides time acquisition, primarily for tests.
func (s *PasswordService) WithClock(now func() time.Time) *PasswordService {
	if now != nil {
		s.now = now
	}
	return s
}

// StrengthCheck scores a candidate password for UI feedback. Pure.
func (s *PasswordService) StrengthCheck(password string) security.StrengthReport {
	return security.EvaluatePasswordStrength(password)
}

// SetPassword installs a new password after strength and reuse checks.
// The installed hash is also appended to history, so the retained window is
// the last HistoryDepth credentials including the current one. The fail state
// resets alongside.
func (s *PasswordService) SetPassword(ctx context.Context, userID, plaintext string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if !security.EvaluatePasswordStrength(plaintext).IsStrong {
		return ErrWeakPassword
	}

	if err := s.checkReuse(ctx, user, plaintext); err != nil {
		return err
	}

	newHash, err := s.hasher.Hash(plaintext)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()

	if err := s.users.UpdatePassword(ctx, user.ID, newHash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	entry := domain.PasswordHistoryEntry{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		PasswordHash: newHash,
		SetAt:        now,
	}
	if err := s.users.AddPasswordHistory(ctx, entry); err != nil {
		return fmt.Errorf("archive password: %w", err)
	}

	if err := s.users.TrimPasswordHistory(ctx, user.ID, s.policy.HistoryDepth); err != nil {
		return fmt.Errorf("trim password history: %w", err)
	}

	return nil
}

// checkReuse re-hashes the candidate against the current credential and each
// retained history entry. The salt lives inside every stored encoding, so a
// plain hash comparison would never match. The current hash is normally
// history's newest entry; checking it separately covers accounts whose
// credential predates history tracking.
func (s *PasswordService) checkReuse(ctx context.Context, user *domain.User, plaintext string) error {
	if user.HasPassword() {
		match, err := s.hasher.Verify(plaintext, *user.PasswordHash)
		if err != nil {
			return fmt.Errorf("compare current password: %w", err)
		}
		if match {
			return ErrPasswordReused
		}
	}

	history, err := s.users.ListPasswordHistory(ctx, user.ID, s.policy.HistoryDepth)
	if err != nil {
		return fmt.Errorf("list password history: %w", err)
	}

	for _, entry := range history {
		match, err := s.hasher.Verify(plaintext, entry.PasswordHash)
		if err != nil {
			return fmt.Errorf("compare historical password: %w", err)
		}
		if match {
			return ErrPasswordReused
		}
	}

	return nil
}

// VerifyPassword compares the plaintext against the stored credential.
// No side effects; the caller decides whether to record a failure.
func (s *PasswordService) VerifyPassword(ctx context.Context, userID, plaintext string) (bool, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if !user.HasPassword() {
		return false, ErrNoPasswordSet
	}

	match, err := s.hasher.Verify(plaintext, *user.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}

	return match, nil
}

// RecordFailure bumps the fail counter after a failed verification and engages
// the lock when the count reaches the limit. Returns the resulting state so
// the caller can distinguish "just locked" from "plain failure".
func (s *PasswordService) RecordFailure(ctx context.Context, userID string) (*LockState, error) {
	count, err := s.users.IncrementFailCount(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("increment fail count: %w", err)
	}

	status := &LockState{FailCount: count}

	if count >= s.policy.FailLimit {
		until := s.now().UTC().Add(s.policy.LockDuration)
		if err := s.users.SetFailState(ctx, userID, count, &until); err != nil {
			return nil, fmt.Errorf("engage lock: %w", err)
		}
		status.IsLocked = true
		status.LockedUntil = &until
	}

	return status, nil
}

// RecordSuccess resets the fail counter and clears any lock.
func (s *PasswordService) RecordSuccess(ctx context.Context, userID string) error {
	if err := s.users.SetFailState(ctx, userID, 0, nil); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("reset fail state: %w", err)
	}
	return nil
}

// LockStatus reports the account's lock state. An elapsed lock is cleared on read
// and the fail counter reset, so no background sweep is needed for
// correctness.
func (s *PasswordService) LockStatus(ctx context.Context, userID string) (*LockState, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()

	if user.LockedUntil != nil {
		if user.LockedUntil.After(now) {
			until := *user.LockedUntil
			return &LockState{
				FailCount:   user.PasswordFailCount,
				IsLocked:    true,
				LockedUntil: &until,
			}, nil
		}

		// Lazy unlock: the window elapsed, clear the state on read.
		if err := s.users.SetFailState(ctx, userID, 0, nil); err != nil {
			return nil, fmt.Errorf("clear elapsed lock: %w", err)
		}
		return &LockState{}, nil
	}

	return &LockState{FailCount: user.PasswordFailCount}, nil
}

func (s *PasswordService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
