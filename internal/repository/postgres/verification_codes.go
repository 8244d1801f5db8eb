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

// VerificationCodeRepository implements port.VerificationCodeRepository for PostgreSQL.
type VerificationCodeRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewVerificationCodeRepository constructs a VerificationCodeRepository.
func NewVerificationCodeRepository(pool *pgxpool.Pool) *VerificationCodeRepository {
	return &VerificationCodeRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a verification code row.
func (r *VerificationCodeRepository) Create(ctx context.Context, code domain.VerificationCode) error {
	sql, args, err := r.builder.Insert("taobei.verification_codes").
		Columns(
			"id",
			"phone_number",
			"code_hash",
			"purpose",
			"source_ip",
			"created_at",
			"expires_at",
			"used_at",
		).
		Values(
			code.ID,
			code.PhoneNumber,
			code.CodeHash,
			code.Purpose,
			code.SourceIP,
			code.CreatedAt,
			code.ExpiresAt,
			code.UsedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert code sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return mapError("insert code", err)
	}

	return nil
}

// GetLatestUnused returns the most recent unconsumed code for (phone, purpose).
// Older unconsumed rows are logically superseded and never resolved.
func (r *VerificationCodeRepository) GetLatestUnused(ctx context.Context, phone string, purpose domain.CodePurpose) (*domain.VerificationCode, error) {
	sql, args, err := r.builder.
		Select(
			"id",
			"phone_number",
			"code_hash",
			"purpose",
			"source_ip",
			"created_at",
			"expires_at",
			"used_at",
		).
		From("taobei.verification_codes").
		Where(squirrel.Eq{"phone_number": phone, "purpose": purpose}).
		Where("used_at IS NULL").
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select latest code sql: %w", err)
	}

	row := r.pool.QueryRow(ctx, sql, args...)

	var code domain.VerificationCode
	if err := row.Scan(
		&code.ID,
		&code.PhoneNumber,
		&code.CodeHash,
		&code.Purpose,
		&code.SourceIP,
		&code.CreatedAt,
		&code.ExpiresAt,
		&code.UsedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, mapError("scan latest code", err)
	}

	return &code, nil
}

// MarkUsed consumes the code exactly once. Returns ErrNotFound if the row was
// already consumed by a concurrent request.
func (r *VerificationCodeRepository) MarkUsed(ctx context.Context, id string, at time.Time) error {
	sql, args, err := r.builder.Update("taobei.verification_codes").
		Set("used_at", at).
		Where(squirrel.Eq{"id": id}).
		Where("used_at IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark code used sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return mapError("mark code used", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// CountSentSince counts codes issued for the phone since the supplied moment.
func (r *VerificationCodeRepository) CountSentSince(ctx context.Context, phone string, since time.Time) (int, error) {
	sql, args, err := r.builder.
		Select("COUNT(*)").
		From("taobei.verification_codes").
		Where(squirrel.Eq{"phone_number": phone}).
		Where(squirrel.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count codes sql: %w", err)
	}

	var count int
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, mapError("count codes", err)
	}

	return count, nil
}

// LastSentFromIP returns the creation time of the most recent code issued from
// the source IP. The second return value is false when no code was ever sent.
func (r *VerificationCodeRepository) LastSentFromIP(ctx context.Context, sourceIP string) (time.Time, bool, error) {
	sql, args, err := r.builder.
		Select("created_at").
		From("taobei.verification_codes").
		Where(squirrel.Eq{"source_ip": sourceIP}).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("build select last sent sql: %w", err)
	}

	var at time.Time
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(&at); err != nil {
		if err == pgx.ErrNoRows {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, mapError("scan last sent", err)
	}

	return at, true, nil
}

// DeleteExpired removes rows whose validity window ended before the supplied moment.
func (r *VerificationCodeRepository) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	sql, args, err := r.builder.Delete("taobei.verification_codes").
		Where(squirrel.Lt{"expires_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired codes sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapError("delete expired codes", err)
	}

	return int(tag.RowsAffected()), nil
}

var _ port.VerificationCodeRepository = (*VerificationCodeRepository)(nil)
