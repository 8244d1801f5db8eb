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

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

var userColumns = []string{
	"id",
	"phone_number",
	"status",
	"password_hash",
	"password_set_at",
	"password_fail_count",
	"locked_until",
	"last_login_at",
	"created_at",
	"updated_at",
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	sql, args, err := r.builder.Insert("taobei.users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.PhoneNumber,
			user.Status,
			user.PasswordHash,
			user.PasswordSetAt,
			user.PasswordFailCount,
			user.LockedUntil,
			user.LastLoginAt,
			user.CreatedAt,
			user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return mapError("insert user", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByPhone retrieves a user by phone number.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"phone_number": phone})
}

func (r *UserRepository) getOne(ctx context.Context, pred squirrel.Eq) (*domain.User, error) {
	sql, args, err := r.builder.
		Select(userColumns...).
		From("taobei.users").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, sql, args...)

	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.PhoneNumber,
		&user.Status,
		&user.PasswordHash,
		&user.PasswordSetAt,
		&user.PasswordFailCount,
		&user.LockedUntil,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, mapError("scan user", err)
	}

	return &user, nil
}

// UpdatePassword installs a new password hash and resets the fail state.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, setAt time.Time) error {
	sql, args, err := r.builder.Update("taobei.users").
		Set("password_hash", passwordHash).
		Set("password_set_at", setAt).
		Set("password_fail_count", 0).
		Set("locked_until", nil).
		Set("updated_at", setAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return mapError("update password", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateLastLogin stamps the most recent successful login.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	sql, args, err := r.builder.Update("taobei.users").
		Set("last_login_at", at).
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return mapError("update last login", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetFailState writes the fail counter and lock expiry in a single statement.
func (r *UserRepository) SetFailState(ctx context.Context, id string, failCount int, lockedUntil *time.Time) error {
	sql, args, err := r.builder.Update("taobei.users").
		Set("password_fail_count", failCount).
		Set("locked_until", lockedUntil).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update fail state sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return mapError("update fail state", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// IncrementFailCount bumps the counter atomically and returns the new value.
func (r *UserRepository) IncrementFailCount(ctx context.Context, id string) (int, error) {
	const sql = `UPDATE taobei.users
		SET password_fail_count = password_fail_count + 1
		WHERE id = $1
		RETURNING password_fail_count`

	var count int
	if err := r.exec.QueryRow(ctx, sql, id).Scan(&count); err != nil {
		if err == pgx.ErrNoRows {
			return 0, repository.ErrNotFound
		}
		return 0, mapError("increment fail count", err)
	}

	return count, nil
}

// ListPasswordHistory returns up to limit most-recent historical hashes.
func (r *UserRepository) ListPasswordHistory(ctx context.Context, userID string, limit int) ([]domain.PasswordHistoryEntry, error) {
	sql, args, err := r.builder.
		Select("id", "user_id", "password_hash", "set_at").
		From("taobei.password_history").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("set_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select password history sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError("query password history", err)
	}
	defer rows.Close()

	var entries []domain.PasswordHistoryEntry
	for rows.Next() {
		var entry domain.PasswordHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.PasswordHash, &entry.SetAt); err != nil {
			return nil, fmt.Errorf("scan password history: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate password history: %w", err)
	}

	return entries, nil
}

// AddPasswordHistory appends a superseded hash to the history table.
func (r *UserRepository) AddPasswordHistory(ctx context.Context, entry domain.PasswordHistoryEntry) error {
	sql, args, err := r.builder.Insert("taobei.password_history").
		Columns("id", "user_id", "password_hash", "set_at").
		Values(entry.ID, entry.UserID, entry.PasswordHash, entry.SetAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert password history sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return mapError("insert password history", err)
	}

	return nil
}

// TrimPasswordHistory deletes all but the keep most-recent entries for the user.
func (r *UserRepository) TrimPasswordHistory(ctx context.Context, userID string, keep int) error {
	const sql = `DELETE FROM taobei.password_history
		WHERE user_id = $1
		  AND id NOT IN (
			SELECT id FROM taobei.password_history
			WHERE user_id = $1
			ORDER BY set_at DESC
			LIMIT $2
		  )`

	if _, err := r.exec.Exec(ctx, sql, userID, keep); err != nil {
		return mapError("trim password history", err)
	}

	return nil
}

var _ port.UserRepository = (*UserRepository)(nil)
