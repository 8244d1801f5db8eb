package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/clx1415926/taobei-app/internal/core/domain"
	"github.com/clx1415926/taobei-app/internal/core/port"
	"github.com/clx1415926/taobei-app/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishCodeRequested logs auth.code.requested events. The code itself is
// masked; development installs log it through the code service instead.
func (p *StubPublisher) PublishCodeRequested(_ context.Context, event domain.CodeRequestedEvent) error {
	payload := map[string]any{
		"phone_number": logger.MaskPhone(event.PhoneNumber),
		"purpose":      event.Purpose,
		"code":         logger.MaskString(event.Code),
		"requested_at": event.RequestedAt,
		"expires_at":   event.ExpiresAt,
	}
	p.logEvent("auth.code.requested", "", event.RequestedAt, payload)
	return nil
}

// PublishUserRegistered logs auth.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"user_id":       event.UserID,
		"phone_number":  logger.MaskPhone(event.PhoneNumber),
		"registered_at": event.RegisteredAt,
	}
	p.logEvent("auth.user.registered", event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishPasswordChanged logs auth.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"user_id":          event.UserID,
		"changed_at":       event.ChangedAt,
		"changed_via":      event.ChangedVia,
		"sessions_revoked": event.SessionsRevoked,
	}
	p.logEvent("auth.password.changed", event.UserID, event.ChangedAt, payload)
	return nil
}

// PublishAccountLocked logs auth.account.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	payload := map[string]any{
		"user_id":      event.UserID,
		"fail_count":   event.FailCount,
		"locked_at":    event.LockedAt,
		"locked_until": event.LockedUntil,
	}
	p.logEvent("auth.account.locked", event.UserID, event.LockedAt, payload)
	return nil
}

// PublishSessionRevoked logs auth.session.revoked events.
func (p *StubPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"user_id":    event.UserID,
		"revoked_at": event.RevokedAt,
		"reason":     event.Reason,
	}
	p.logEvent("auth.session.revoked", event.UserID, event.RevokedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
