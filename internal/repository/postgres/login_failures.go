package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clx1415926/taobei-app/internal/core/domain"
	"github.com/clx1415926/taobei-app/internal/core/port"
)

// LoginFailureRepository implements port.LoginFailureRepository for PostgreSQL.
type LoginFailureRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewLoginFailureRepository constructs a LoginFailureRepository.
func NewLoginFailureRepository(pool *pgxpool.Pool) *LoginFailureRepository {
	return &LoginFailureRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Record appends a failure row.
func (r *LoginFailureRepository) Record(ctx context.Context, failure domain.LoginFailure) error {
	sql, args, err := r.builder.Insert("taobei.login_failures").
		Columns("id", "ip_address", "phone_number", "failed_at").
		Values(failure.ID, failure.IPAddress, failure.PhoneNumber, failure.FailedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert login failure sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return mapError("insert login failure", err)
	}

	return nil
}

// CountSince counts failures for the IP within the trailing window.
func (r *LoginFailureRepository) CountSince(ctx context.Context, ipAddress string, since time.Time) (int, error) {
	sql, args, err := r.builder.
		Select("COUNT(*)").
		From("taobei.login_failures").
		Where(squirrel.Eq{"ip_address": ipAddress}).
		Where(squirrel.GtOrEq{"failed_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count login failures sql: %w", err)
	}

	var count int
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, mapError("count login failures", err)
	}

	return count, nil
}

// ClearForIP removes every failure row for the IP, including rows still inside
// the window. A successful login resets the slate, not just the count.
func (r *LoginFailureRepository) ClearForIP(ctx context.Context, ipAddress string) error {
	sql, args, err := r.builder.Delete("taobei.login_failures").
		Where(squirrel.Eq{"ip_address": ipAddress}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear login failures sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return mapError("clear login failures", err)
	}

	return nil
}

// DeleteOlderThan removes failure rows outside any plausible window.
func (r *LoginFailureRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int, error) {
	sql, args, err := r.builder.Delete("taobei.login_failures").
		Where(squirrel.Lt{"failed_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete login failures sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapError("delete login failures", err)
	}

	return int(tag.RowsAffected()), nil
}

var _ port.LoginFailureRepository = (*LoginFailureRepository)(nil)
