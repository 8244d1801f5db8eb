package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clx1415926/taobei-app/internal/core/domain"
	"github.com/clx1415926/taobei-app/internal/core/port"
	"github.com/clx1415926/taobei-app/internal/repository"
)

// SessionRepository implements port.SessionRepository for PostgreSQL.
type SessionRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a session record.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	sql, args, err := r.builder.Insert("taobei.sessions").
		Columns(
			"id",
			"user_id",
			"token_hash",
			"ip_address",
			"user_agent",
			"created_at",
			"expires_at",
			"revoked_at",
		).
		Values(
			session.ID,
			session.UserID,
			session.TokenHash,
			session.IPAddress,
			session.UserAgent,
			session.CreatedAt,
			session.ExpiresAt,
			session.RevokedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return mapError("insert session", err)
	}

	return nil
}

// GetByTokenHash returns the session backing the supplied token hash.
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	sql, args, err := r.builder.
		Select(
			"id",
			"user_id",
			"token_hash",
			"ip_address",
			"user_agent",
			"created_at",
			"expires_at",
			"revoked_at",
		).
		From("taobei.sessions").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	row := r.pool.QueryRow(ctx, sql, args...)

	var session domain.Session
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.TokenHash,
		&session.IPAddress,
		&session.UserAgent,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.RevokedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, mapError("scan session", err)
	}

	return &session, nil
}

// Revoke stamps the session revoked. Returns false when no live session matched,
// which keeps logout idempotent at the caller's discretion.
func (r *SessionRepository) Revoke(ctx context.Context, tokenHash string, at time.Time) (bool, error) {
	sql, args, err := r.builder.Update("taobei.sessions").
		Set("revoked_at", at).
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build revoke session sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, mapError("revoke session", err)
	}

	return tag.RowsAffected() > 0, nil
}

// RevokeAllForUser revokes every live session belonging to the user.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int, error) {
	sql, args, err := r.builder.Update("taobei.sessions").
		Set("revoked_at", at).
		Where(squirrel.Eq{"user_id": userID}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke user sessions sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapError("revoke user sessions", err)
	}

	return int(tag.RowsAffected()), nil
}

// DeleteExpired removes sessions whose expiry passed before the supplied moment.
func (r *SessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	sql, args, err := r.builder.Delete("taobei.sessions").
		Where(squirrel.Lt{"expires_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired sessions sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapError("delete expired sessions", err)
	}

	return int(tag.RowsAffected()), nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
