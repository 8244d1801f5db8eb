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
	"github.com/clx1415926/taobei-app/internal/infra/logger"
	"github.com/clx1415926/taobei-app/internal/infra/security"
	"github.com/clx1415926/taobei-app/internal/repository"
)

var (
	// ErrInvalidPhoneNumber indicates the phone number fails format validation.
	ErrInvalidPhoneNumber = errors.New("invalid phone number")
	// ErrInvalidPurpose indicates an unknown verification flow.
	ErrInvalidPurpose = errors.New("invalid code purpose")
	// ErrInvalidCode indicates the code is missing, superseded, or mismatched.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrExpiredCode indicates the code matched but its validity window elapsed.
	ErrExpiredCode = errors.New("verification code expired")
	// ErrDailyLimitExceeded indicates the per-phone daily issuance cap was hit.
	ErrDailyLimitExceeded = errors.New("daily code limit exceeded")
	// ErrTooManyRequests indicates the per-IP issuance cooldown has not elapsed.
	ErrTooManyRequests = errors.New("too many code requests")
)

// CodePolicy carries the issuance limits for verification codes.
type CodePolicy struct {
	TTL             time.Duration
	DailyLimit      int
	IPCooldown      time.Duration
	ResendCountdown int
	// LogCodes enables plaintext code logging. Development only.
	LogCodes bool
}

// DefaultCodePolicy returns the production issuance limits.
func DefaultCodePolicy() CodePolicy {
	return CodePolicy{
		TTL:             5 * time.Minute,
		DailyLimit:      50,
		IPCooldown:      60 * time.Second,
		ResendCountdown: 60,
	}
}

// SendCodeResult reports a successful issuance to the caller.
type SendCodeResult struct {
	CountdownSeconds int
}

// VerificationCodeService generates, rate-limits, and redeems one-time codes
// scoped to (phone, purpose).
type VerificationCodeService struct {
	codes     port.VerificationCodeRepository
	generator port.CodeGenerator
	publisher port.EventPublisher
	logger    *zap.Logger
	policy    CodePolicy
	now       func() time.Time
}

// NewVerificationCodeService wires the service with its collaborators.
func NewVerificationCodeService(
	codes port.VerificationCodeRepository,
	generator port.CodeGenerator,
	publisher port.EventPublisher,
	logger *zap.Logger,
	policy CodePolicy,
) *VerificationCodeService {
	return &VerificationCodeService{
		codes:     codes,
		generator: generator,
		publisher: publisher,
		logger:    logger,
		policy:    policy,
		now:       time.Now,
	}
}

// WithClock overrides time acquisition, primarily for tests.
func (s *VerificationCodeService) WithClock(now func() time.Time) *VerificationCodeService {
	if now != nil {
		s.now = now
	}
	return s
}

// SendCode issues a fresh code for (phone, purpose) after rate-limit checks.
// The new row logically supersedes any prior unconsumed code: lookups always
// resolve the most recent one.
func (s *VerificationCodeService) SendCode(ctx context.Context, phone string, purpose domain.CodePurpose, sourceIP string) (*SendCodeResult, error) {
	if !domain.ValidPhoneNumber(phone) {
		return nil, ErrInvalidPhoneNumber
	}
	if !purpose.Valid() {
		return nil, ErrInvalidPurpose
	}

	now := s.now().UTC()

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sentToday, err := s.codes.CountSentSince(ctx, phone, startOfDay)
	if err != nil {
		return nil, fmt.Errorf("count codes sent today: %w", err)
	}
	if sentToday >= s.policy.DailyLimit {
		return nil, ErrDailyLimitExceeded
	}

	if sourceIP != "" {
		lastSent, found, err := s.codes.LastSentFromIP(ctx, sourceIP)
		if err != nil {
			return nil, fmt.Errorf("check ip cooldown: %w", err)
		}
		if found && now.Sub(lastSent) < s.policy.IPCooldown {
			return nil, ErrTooManyRequests
		}
	}

	code, err := s.generator.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	record := domain.VerificationCode{
		ID:          uuid.NewString(),
		PhoneNumber: phone,
		CodeHash:    security.HashToken(code),
		Purpose:     purpose,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.policy.TTL),
	}
	if sourceIP != "" {
		record.SourceIP = &sourceIP
	}

	if err := s.codes.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}

	event := domain.CodeRequestedEvent{
		EventID:     uuid.NewString(),
		PhoneNumber: phone,
		Purpose:     string(purpose),
		Code:        code,
		RequestedAt: now,
		ExpiresAt:   record.ExpiresAt,
		SourceIP:    record.SourceIP,
	}
	if err := s.publisher.PublishCodeRequested(ctx, event); err != nil {
		s.logger.Warn("publish code requested event failed",
			zap.String("phone", logger.MaskPhone(phone)),
			zap.Error(err),
		)
	}

	if s.policy.LogCodes {
		s.logger.Info("verification code issued",
			zap.String("phone", logger.MaskPhone(phone)),
			zap.String("purpose", string(purpose)),
			zap.String("code", code),
		)
	}

	return &SendCodeResult{CountdownSeconds: s.policy.ResendCountdown}, nil
}

// VerifyAndConsume redeems a code exactly once.
func (s *VerificationCodeService) VerifyAndConsume(ctx context.Context, phone, code string, purpose domain.CodePurpose) error {
	record, err := s.lookup(ctx, phone, code, purpose)
	if err != nil {
		return err
	}

	if err := s.codes.MarkUsed(ctx, record.ID, s.now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// A concurrent request consumed it first.
			return ErrInvalidCode
		}
		return fmt.Errorf("consume code: %w", err)
	}

	return nil
}

// Check validates a code without consuming it. The reset flow verifies the
// user's identity before showing the new-password form and must not burn the
// code in the process.
func (s *VerificationCodeService) Check(ctx context.Context, phone, code string, purpose domain.CodePurpose) error {
	_, err := s.lookup(ctx, phone, code, purpose)
	return err
}

func (s *VerificationCodeService) lookup(ctx context.Context, phone, code string, purpose domain.CodePurpose) (*domain.VerificationCode, error) {
	if !purpose.Valid() {
		return nil, ErrInvalidPurpose
	}

	record, err := s.codes.GetLatestUnused(ctx, phone, purpose)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("look up code: %w", err)
	}

	if record.CodeHash != security.HashToken(code) {
		return nil, ErrInvalidCode
	}
	if record.Expired(s.now().UTC()) {
		return nil, ErrExpiredCode
	}

	return record, nil
}
