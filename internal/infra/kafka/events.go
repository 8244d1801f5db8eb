package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/clx1415926/taobei-app/internal/core/domain"
	"github.com/clx1415926/taobei-app/internal/core/port"
	"github.com/clx1415926/taobei-app/internal/infra/config"
	"github.com/clx1415926/taobei-app/internal/infra/logger"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishCodeRequested publishes auth.code.requested events. The SMS delivery
// worker consumes this topic; it is the only place the plaintext code leaves
// the service.
func (p *EventPublisher) PublishCodeRequested(ctx context.Context, event domain.CodeRequestedEvent) error {
	payload := struct {
		PhoneNumber string    `json:"phone_number"`
		Purpose     string    `json:"purpose"`
		Code        string    `json:"code"`
		RequestedAt time.Time `json:"requested_at"`
		ExpiresAt   time.Time `json:"expires_at"`
		SourceIP    *string   `json:"source_ip,omitempty"`
	}{
		PhoneNumber: event.PhoneNumber,
		Purpose:     event.Purpose,
		Code:        event.Code,
		RequestedAt: event.RequestedAt.UTC(),
		ExpiresAt:   event.ExpiresAt.UTC(),
		SourceIP:    event.SourceIP,
	}

	return p.publish(ctx, event.EventID, "auth.code.requested", "", event.RequestedAt, payload)
}

// PublishUserRegistered publishes auth.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string    `json:"user_id"`
		PhoneNumber  string    `json:"phone_number"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		UserID:       event.UserID,
		PhoneNumber:  logger.MaskPhone(event.PhoneNumber),
		RegisteredAt: event.RegisteredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.user.registered", event.UserID, event.RegisteredAt, payload)
}

// PublishPasswordChanged publishes auth.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		UserID          string    `json:"user_id"`
		ChangedAt       time.Time `json:"changed_at"`
		ChangedVia      string    `json:"changed_via"`
		SessionsRevoked int       `json:"sessions_revoked"`
	}{
		UserID:          event.UserID,
		ChangedAt:       event.ChangedAt.UTC(),
		ChangedVia:      event.ChangedVia,
		SessionsRevoked: event.SessionsRevoked,
	}

	return p.publish(ctx, event.EventID, "auth.password.changed", event.UserID, event.ChangedAt, payload)
}

// PublishAccountLocked publishes auth.account.locked events.
func (p *EventPublisher) PublishAccountLocked(ctx context.Context, event domain.AccountLockedEvent) error {
	payload := struct {
		UserID      string    `json:"user_id"`
		FailCount   int       `json:"fail_count"`
		LockedAt    time.Time `json:"locked_at"`
		LockedUntil time.Time `json:"locked_until"`
	}{
		UserID:      event.UserID,
		FailCount:   event.FailCount,
		LockedAt:    event.LockedAt.UTC(),
		LockedUntil: event.LockedUntil.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.account.locked", event.UserID, event.LockedAt, payload)
}

// PublishSessionRevoked publishes auth.session.revoked events.
func (p *EventPublisher) PublishSessionRevoked(ctx context.Context, event domain.SessionRevokedEvent) error {
	payload := struct {
		SessionID string    `json:"session_id"`
		UserID    string    `json:"user_id"`
		RevokedAt time.Time `json:"revoked_at"`
		Reason    string    `json:"reason"`
	}{
		SessionID: event.SessionID,
		UserID:    event.UserID,
		RevokedAt: event.RevokedAt.UTC(),
		Reason:    event.Reason,
	}

	return p.publish(ctx, event.EventID, "auth.session.revoked", event.UserID, event.RevokedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
