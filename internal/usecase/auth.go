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
	"github.com/clx1415926/taobei-app/internal/repository"
)

var (
	// ErrTermsNotAccepted indicates registration without terms agreement.
	ErrTermsNotAccepted = errors.New("terms not accepted")
	// ErrPhoneNotRegistered indicates no account exists for the phone number.
	ErrPhoneNotRegistered = errors.New("phone not registered")
	// ErrTooManyFailedAttempts indicates the source IP exceeded the code-login failure window.
	ErrTooManyFailedAttempts = errors.New("too many failed attempts")
	// ErrInvalidPassword indicates the supplied password does not match.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrAccountLocked indicates the per-user lockout is in force.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidCurrentPassword indicates the change-password precondition failed.
	ErrInvalidCurrentPassword = errors.New("invalid current password")
)

// AuthPolicy carries the IP-level code-login throttle parameters.
// This throttle is independent of the per-user password lockout; the two
// counters never feed each other.
type AuthPolicy struct {
	IPFailureWindow time.Duration
	IPFailureLimit  int
}

// DefaultAuthPolicy returns the production throttle parameters.
func DefaultAuthPolicy() AuthPolicy {
	return AuthPolicy{
		IPFailureWindow: 15 * time.Minute,
		IPFailureLimit:  5,
	}
}

// LoginResult carries the credentials issued by a successful login.
type LoginResult struct {
	UserID      string
	PhoneNumber string
	Token       string
	ExpiresIn   int64
}

// RegisterResult distinguishes a fresh registration from the idempotent
// re-registration of an existing account. Both carry valid credentials.
type RegisterResult struct {
	LoginResult
	AlreadyRegistered bool
}

// PasswordStatus reports whether a password credential exists for the account.
type PasswordStatus struct {
	HasPassword bool
	SetAt       *time.Time
}

// AuthService composes code issuance, password policy, and session management
// into the login, registration, and password lifecycle workflows.
type AuthService struct {
	users     port.UserRepository
	failures  port.LoginFailureRepository
	codes     *VerificationCodeService
	passwords *PasswordService
	sessions  *SessionService
	publisher port.EventPublisher
	logger    *zap.Logger
	policy    AuthPolicy
	now       func() time.Time
}

// NewAuthService wires the orchestrator with its collaborators.
func NewAuthService(
	users port.UserRepository,
	failures port.LoginFailureRepository,
	codes *VerificationCodeService,
	passwords *PasswordService,
	sessions *SessionService,
	publisher port.EventPublisher,
	logger *zap.Logger,
	policy AuthPolicy,
) *AuthService {
	return &AuthService{
		users:     users,
		failures:  failures,
		codes:     codes,
		passwords: passwords,
		sessions:  sessions,
		publisher: publisher,
		logger:    logger,
		policy:    policy,
		now:       time.Now,
	}
}

// WithClock overrides time acquisition for this service and its collaborators.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
		s.codes.WithClock(now)
		s.passwords.WithClock(now)
		s.sessions.WithClock(now)
	}
	return s
}

// Register creates an account after code verification. Registering an
// already-registered phone with a valid code is not an error: the caller gets
// valid credentials plus the AlreadyRegistered flag so the client can
// auto-login.
func (s *AuthService) Register(ctx context.Context, phone, code string, agreedToTerms bool, meta SessionMeta) (*RegisterResult, error) {
	if !agreedToTerms {
		return nil, ErrTermsNotAccepted
	}
	if !domain.ValidPhoneNumber(phone) {
		return nil, ErrInvalidPhoneNumber
	}

	if err := s.codes.VerifyAndConsume(ctx, phone, code, domain.CodePurposeRegister); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByPhone(ctx, phone)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if existing != nil {
		login, err := s.completeLogin(ctx, existing, meta)
		if err != nil {
			return nil, err
		}
		return &RegisterResult{LoginResult: *login, AlreadyRegistered: true}, nil
	}

	now := s.now().UTC()
	user := domain.User{
		ID:          uuid.NewString(),
		PhoneNumber: phone,
		Status:      domain.UserStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent registration; fall back to the
			// idempotent path.
			raced, lerr := s.users.GetByPhone(ctx, phone)
			if lerr != nil {
				return nil, fmt.Errorf("look up raced user: %w", lerr)
			}
			login, lerr := s.completeLogin(ctx, raced, meta)
			if lerr != nil {
				return nil, lerr
			}
			return &RegisterResult{LoginResult: *login, AlreadyRegistered: true}, nil
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	event := domain.UserRegisteredEvent{
		EventID:      uuid.NewString(),
		UserID:       user.ID,
		PhoneNumber:  phone,
		RegisteredAt: now,
	}
	if perr := s.publisher.PublishUserRegistered(ctx, event); perr != nil {
		s.logger.Warn("publish user registered event failed",
			zap.String("user_id", user.ID),
			zap.Error(perr),
		)
	}

	login, err := s.completeLogin(ctx, &user, meta)
	if err != nil {
		return nil, err
	}

	return &RegisterResult{LoginResult: *login}, nil
}

// LoginWithCode authenticates by verification code.
// Order matters: the IP throttle fails fast without touching the code, and the
// existence check runs before code verification so an unregistered phone never
// learns whether a code was valid.
func (s *AuthService) LoginWithCode(ctx context.Context, phone, code, sourceIP string, meta SessionMeta) (*LoginResult, error) {
	if sourceIP != "" {
		since := s.now().UTC().Add(-s.policy.IPFailureWindow)
		count, err := s.failures.CountSince(ctx, sourceIP, since)
		if err != nil {
			return nil, fmt.Errorf("count login failures: %w", err)
		}
		if count >= s.policy.IPFailureLimit {
			return nil, ErrTooManyFailedAttempts
		}
	}

	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPhoneNotRegistered
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if err := s.codes.VerifyAndConsume(ctx, phone, code, domain.CodePurposeLogin); err != nil {
		if sourceIP != "" && (errors.Is(err, ErrInvalidCode) || errors.Is(err, ErrExpiredCode)) {
			failure := domain.LoginFailure{
				ID:          uuid.NewString(),
				IPAddress:   sourceIP,
				PhoneNumber: &phone,
				FailedAt:    s.now().UTC(),
			}
			if rerr := s.failures.Record(ctx, failure); rerr != nil {
				s.logger.Warn("record login failure failed", zap.Error(rerr))
			}
		}
		return nil, err
	}

	if sourceIP != "" {
		if err := s.failures.ClearForIP(ctx, sourceIP); err != nil {
			s.logger.Warn("clear login failures failed", zap.Error(err))
		}
	}

	return s.completeLogin(ctx, user, meta)
}

// LoginWithPassword authenticates by password. The lock is absolute: while in
// force even a correct password is rejected. A failure that pushes the counter
// to the limit reports AccountLocked, not InvalidPassword.
func (s *AuthService) LoginWithPassword(ctx context.Context, phone, password, sourceIP string, meta SessionMeta) (*LoginResult, error) {
	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPhoneNotRegistered
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if !user.HasPassword() {
		return nil, ErrNoPasswordSet
	}

	lock, err := s.passwords.LockStatus(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if lock.IsLocked {
		return nil, ErrAccountLocked
	}

	match, err := s.passwords.VerifyPassword(ctx, user.ID, password)
	if err != nil {
		return nil, err
	}

	if !match {
		state, err := s.passwords.RecordFailure(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if state.IsLocked {
			event := domain.AccountLockedEvent{
				EventID:     uuid.NewString(),
				UserID:      user.ID,
				FailCount:   state.FailCount,
				LockedAt:    s.now().UTC(),
				LockedUntil: *state.LockedUntil,
			}
			if perr := s.publisher.PublishAccountLocked(ctx, event); perr != nil {
				s.logger.Warn("publish account locked event failed", zap.Error(perr))
			}
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidPassword
	}

	if err := s.passwords.RecordSuccess(ctx, user.ID); err != nil {
		return nil, err
	}

	if sourceIP != "" {
		if err := s.failures.ClearForIP(ctx, sourceIP); err != nil {
			s.logger.Warn("clear login failures failed", zap.Error(err))
		}
	}

	return s.completeLogin(ctx, user, meta)
}

// ResetPassword installs a new password after consuming a reset-purpose code.
// Every live session is revoked; the user must log in again.
func (s *AuthService) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPhoneNotRegistered
		}
		return fmt.Errorf("look up user: %w", err)
	}

	if err := s.codes.VerifyAndConsume(ctx, phone, code, domain.CodePurposeReset); err != nil {
		return err
	}

	if err := s.passwords.SetPassword(ctx, user.ID, newPassword); err != nil {
		return err
	}

	revoked, err := s.sessions.RevokeAllForUser(ctx, user.ID, "password_reset")
	if err != nil {
		s.logger.Warn("revoke sessions after reset failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		revoked = 0
	}

	s.publishPasswordChanged(ctx, user.ID, "reset", revoked)
	return nil
}

// VerifyResetCode validates a reset code without consuming it, backing the
// two-step reset UX: confirm identity first, burn the code only on the actual
// reset.
func (s *AuthService) VerifyResetCode(ctx context.Context, phone, code string) error {
	if _, err := s.users.GetByPhone(ctx, phone); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrPhoneNotRegistered
		}
		return fmt.Errorf("look up user: %w", err)
	}

	return s.codes.Check(ctx, phone, code, domain.CodePurposeReset)
}

// SetPassword installs a first password for an authenticated user.
func (s *AuthService) SetPassword(ctx context.Context, userID, newPassword string) error {
	if err := s.passwords.SetPassword(ctx, userID, newPassword); err != nil {
		return err
	}

	s.publishPasswordChanged(ctx, userID, "set", 0)
	return nil
}

// ChangePassword swaps the password for an authenticated user. The current
// password must verify, and the new one must differ from the current value
// even before the general history check.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	match, err := s.passwords.VerifyPassword(ctx, userID, currentPassword)
	if err != nil {
		return err
	}
	if !match {
		return ErrInvalidCurrentPassword
	}

	if newPassword == currentPassword {
		return ErrPasswordReused
	}

	if err := s.passwords.SetPassword(ctx, userID, newPassword); err != nil {
		return err
	}

	revoked, err := s.sessions.RevokeAllForUser(ctx, userID, "password_change")
	if err != nil {
		s.logger.Warn("revoke sessions after change failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		revoked = 0
	}

	s.publishPasswordChanged(ctx, userID, "change", revoked)
	return nil
}

// Logout revokes the session backing the token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// PasswordStatus reports whether the user has a password credential.
func (s *AuthService) PasswordStatus(ctx context.Context, userID string) (*PasswordStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}

	return &PasswordStatus{
		HasPassword: user.HasPassword(),
		SetAt:       user.PasswordSetAt,
	}, nil
}

// CurrentUser returns profile data for the authenticated user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("look up user: %w", err)
	}
	return user, nil
}

func (s *AuthService) completeLogin(ctx context.Context, user *domain.User, meta SessionMeta) (*LoginResult, error) {
	token, err := s.sessions.Issue(ctx, user.ID, user.PhoneNumber, meta)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		s.logger.Warn("update last login failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	return &LoginResult{
		UserID:      user.ID,
		PhoneNumber: user.PhoneNumber,
		Token:       token,
		ExpiresIn:   int64(s.sessions.TTL().Seconds()),
	}, nil
}

func (s *AuthService) publishPasswordChanged(ctx context.Context, userID, via string, revoked int) {
	event := domain.PasswordChangedEvent{
		EventID:         uuid.NewString(),
		UserID:          userID,
		ChangedAt:       s.now().UTC(),
		ChangedVia:      via,
		SessionsRevoked: revoked,
	}
	if err := s.publisher.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed event failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
