package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/clx1415926/taobei-app/internal/core/domain"
	"github.com/clx1415926/taobei-app/internal/infra/security"
)

type authEnv struct {
	auth      *AuthService
	codes     *VerificationCodeService
	passwords *PasswordService
	sessions  *SessionService
	users     *stubUserRepo
	failures  *stubFailureRepo
	publisher *stubPublisher
	current   time.Time
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()

	logger := zaptest.NewLogger(t)
	users := newStubUserRepo()
	failures := &stubFailureRepo{}
	publisher := &stubPublisher{}

	codeSvc := NewVerificationCodeService(&stubCodeRepo{}, security.FixedCodeGenerator{Code: "123456"}, publisher, logger, DefaultCodePolicy())
	passwordSvc := NewPasswordService(users, fastHasher(t), logger, DefaultPasswordPolicy())

	signer, err := security.NewJWTSigner("0123456789abcdef0123456789abcdef", "taobei", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewJWTSigner returned error: %v", err)
	}
	sessionSvc := NewSessionService(newStubSessionRepo(), signer, publisher, logger, 7*24*time.Hour)

	env := &authEnv{
		codes:     codeSvc,
		passwords: passwordSvc,
		sessions:  sessionSvc,
		users:     users,
		failures:  failures,
		publisher: publisher,
		current:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	env.auth = NewAuthService(users, failures, codeSvc, passwordSvc, sessionSvc, publisher, logger, DefaultAuthPolicy())
	env.auth.WithClock(func() time.Time { return env.current })

	return env
}

// sendCode issues a code outside any cooldown by advancing the clock first.
func (env *authEnv) sendCode(t *testing.T, phone string, purpose domain.CodePurpose) {
	t.Helper()
	env.current = env.current.Add(61 * time.Second)
	if _, err := env.codes.SendCode(context.Background(), phone, purpose, ""); err != nil {
		t.Fatalf("SendCode returned error: %v", err)
	}
}

func (env *authEnv) register(t *testing.T, phone string) *RegisterResult {
	t.Helper()
	env.sendCode(t, phone, domain.CodePurposeRegister)
	result, err := env.auth.Register(context.Background(), phone, "123456", true, SessionMeta{})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	return result
}

func TestRegisterRequiresTerms(t *testing.T) {
	env := newAuthEnv(t)

	if _, err := env.auth.Register(context.Background(), testPhone, "123456", false, SessionMeta{}); !errors.Is(err, ErrTermsNotAccepted) {
		t.Fatalf("expected ErrTermsNotAccepted, got %v", err)
	}
}

func TestRegisterCreatesUserAndLogsIn(t *testing.T) {
	env := newAuthEnv(t)

	result := env.register(t, testPhone)
	if result.AlreadyRegistered {
		t.Fatal("expected fresh registration")
	}
	if result.UserID == "" || result.Token == "" {
		t.Fatalf("expected credentials, got %+v", result)
	}

	claims, err := env.sessions.Validate(context.Background(), result.Token)
	if err != nil {
		t.Fatalf("issued token failed validation: %v", err)
	}
	if claims.UserID != result.UserID {
		t.Fatalf("claims user = %s, want %s", claims.UserID, result.UserID)
	}

	user, err := env.users.GetByPhone(context.Background(), testPhone)
	if err != nil {
		t.Fatalf("expected user to be created: %v", err)
	}
	if user.LastLoginAt == nil {
		t.Fatal("expected lastLoginAt to be stamped")
	}

	if env.publisher.userRegistered != 1 {
		t.Fatalf("userRegistered events = %d, want 1", env.publisher.userRegistered)
	}
}

func TestRegisterIdempotentForExistingPhone(t *testing.T) {
	env := newAuthEnv(t)

	first := env.register(t, testPhone)

	// A second registration with a fresh code is an implicit login, not an
	// error.
	second := env.register(t, testPhone)
	if !second.AlreadyRegistered {
		t.Fatal("expected AlreadyRegistered on re-registration")
	}
	if second.UserID != first.UserID {
		t.Fatalf("expected same user, got %s and %s", first.UserID, second.UserID)
	}
	if second.Token == "" {
		t.Fatal("expected valid credentials on re-registration")
	}
	if _, err := env.sessions.Validate(context.Background(), second.Token); err != nil {
		t.Fatalf("re-registration token failed validation: %v", err)
	}

	if env.publisher.userRegistered != 1 {
		t.Fatalf("userRegistered events = %d, want 1", env.publisher.userRegistered)
	}
}

func TestRegisterPropagatesCodeErrors(t *testing.T) {
	env := newAuthEnv(t)

	env.sendCode(t, testPhone, domain.CodePurposeRegister)
	if _, err := env.auth.Register(context.Background(), testPhone, "654321", true, SessionMeta{}); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	env.current = env.current.Add(6 * time.Minute)
	if _, err := env.auth.Register(context.Background(), testPhone, "123456", true, SessionMeta{}); !errors.Is(err, ErrExpiredCode) {
		t.Fatalf("expected ErrExpiredCode, got %v", err)
	}
}

func TestLoginWithCodeUnregisteredPhone(t *testing.T) {
	env := newAuthEnv(t)

	// Existence is checked before the code, so an unregistered phone never
	// learns whether a code was valid.
	env.sendCode(t, testPhone, domain.CodePurposeLogin)

	if _, err := env.auth.LoginWithCode(context.Background(), testPhone, "wrong!", "10.0.0.1", SessionMeta{}); !errors.Is(err, ErrPhoneNotRegistered) {
		t.Fatalf("expected ErrPhoneNotRegistered for wrong code, got %v", err)
	}
	if _, err := env.auth.LoginWithCode(context.Background(), testPhone, "123456", "10.0.0.1", SessionMeta{}); !errors.Is(err, ErrPhoneNotRegistered) {
		t.Fatalf("expected ErrPhoneNotRegistered for correct code, got %v", err)
	}

	if len(env.failures.failures) != 0 {
		t.Fatalf("expected no failure records for unregistered phone, got %d", len(env.failures.failures))
	}
}

func TestLoginWithCodeIPThrottle(t *testing.T) {
	env := newAuthEnv(t)
	env.register(t, testPhone)

	env.sendCode(t, testPhone, domain.CodePurposeLogin)

	for i := 0; i < 5; i++ {
		if _, err := env.auth.LoginWithCode(context.Background(), testPhone, "000000", "10.0.0.1", SessionMeta{}); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("attempt %d: expected ErrInvalidCode, got %v", i+1, err)
		}
	}
	if len(env.failures.failures) != 5 {
		t.Fatalf("failure records = %d, want 5", len(env.failures.failures))
	}

	// The throttle fails fast, before the code is even looked at.
	if _, err := env.auth.LoginWithCode(context.Background(), testPhone, "123456", "10.0.0.1", SessionMeta{}); !errors.Is(err, ErrTooManyFailedAttempts) {
		t.Fatalf("expected ErrTooManyFailedAttempts, got %v", err)
	}

	// A different IP is unaffected.
	if _, err := env.auth.LoginWithCode(context.Background(), testPhone, "123456", "10.0.0.2", SessionMeta{}); err != nil {
		t.Fatalf("expected login from clean ip to succeed, got %v", err)
	}
}

func TestLoginWithCodeThrottleExpiresWithWindow(t *testing.T) {
	env := newAuthEnv(t)
	env.register(t, testPhone)

	env.sendCode(t, testPhone, domain.CodePurposeLogin)
	for i := 0; i < 5; i++ {
		if _, err := env.auth.LoginWithCode(context.Background(), testPhone, "000000", "10.0.0.1", SessionMeta{}); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("expected ErrInvalidCode, got %v", err)
		}
	}

	// Outside the 15 minute window the slate is clean again.
	env.current = env.current.Add(15*time.Minute + time.Second)
	env.sendCode(t, testPhone, domain.CodePurposeLogin)
	if _, err := env.auth.LoginWithCode(context.Background(), testPhone, "123456", "10.0.0.1", SessionMeta{}); err != nil {
		t.Fatalf("expected login after window to succeed, got %v", err)
	}
}

func TestLoginWithCodeSuccessClearsFailures(t *testing.T) {
	env := newAuthEnv(t)
	env.register(t, testPhone)

	env.sendCode(t, testPhone, domain.CodePurposeLogin)
	for i := 0; i < 2; i++ {
		if _, err := env.auth.LoginWithCode(context.Background(), testPhone, "000000", "10.0.0.1", SessionMeta{}); !errors.Is(err, ErrInvalidCode) {
			t.Fatalf("expected ErrInvalidCode, got %v", err)
		}
	}

	result, err := env.auth.LoginWithCode(context.Background(), testPhone, "123456", "10.0.0.1", SessionMeta{})
	if err != nil {
		t.Fatalf("LoginWithCode returned error: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected credentials")
	}

	// Cleared, not merely aged out.
	if len(env.failures.failures) != 0 {
		t.Fatalf("failure records = %d, want 0 after success", len(env.failures.failures))
	}
}

func TestLoginWithPasswordLockout(t *testing.T) {
	env := newAuthEnv(t)
	result := env.register(t, testPhone)

	if err := env.passwords.SetPassword(context.Background(), result.UserID, "TestPassword123!"); err != nil {
		t.Fatalf("SetPassword returned error: %v", err)
	}

	// Four wrong attempts report InvalidPassword.
	for i := 1; i <= 4; i++ {
		if _, err := env.auth.LoginWithPassword(context.Background(), testPhone, "WrongPassword1!", "10.0.0.1", SessionMeta{}); !errors.Is(err, ErrInvalidPassword) {
			t.Fatalf("attempt %d: expected ErrInvalidPassword, got %v", i, err)
		}
	}

	// The fifth wrong attempt trips the lock and reports it.
	if _, err := env.auth.LoginWithPassword(context.Background(), testPhone, "WrongPassword1!", "10.0.0.1", SessionMeta{}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked on fifth failure, got %v", err)
	}
	if env.publisher.accountLocked != 1 {
		t.Fatalf("accountLocked events = %d, want 1", env.publisher.accountLocked)
	}

	// The lock is absolute: the correct password is rejected too.
	if _, err := env.auth.LoginWithPassword(context.Background(), testPhone, "TestPassword123!", "10.0.0.1", SessionMeta{}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked for correct password while locked, got %v", err)
	}

	// After the window the next correct attempt succeeds and the counter
	// resets.
	env.current = env.current.Add(15*time.Minute + time.Second)
	login, err := env.auth.LoginWithPassword(context.Background(), testPhone, "TestPassword123!", "10.0.0.1", SessionMeta{})
	if err != nil {
		t.Fatalf("expected login after lock lapse, got %v", err)
	}
	if login.Token == "" {
		t.Fatal("expected credentials")
	}

	user, _ := env.users.GetByID(context.Background(), result.UserID)
	if user.PasswordFailCount != 0 || user.LockedUntil != nil {
		t.Fatal("expected fail state cleared after successful login")
	}
}

func TestLoginWithPasswordPreconditions(t *testing.T) {
	env := newAuthEnv(t)

	if _, err := env.auth.LoginWithPassword(context.Background(), testPhone, "TestPassword123!", "", SessionMeta{}); !errors.Is(err, ErrPhoneNotRegistered) {
		t.Fatalf("expected ErrPhoneNotRegistered, got %v", err)
	}

	env.register(t, testPhone)
	if _, err := env.auth.LoginWithPassword(context.Background(), testPhone, "TestPassword123!", "", SessionMeta{}); !errors.Is(err, ErrNoPasswordSet) {
		t.Fatalf("expected ErrNoPasswordSet, got %v", err)
	}
}

func TestResetPasswordFlow(t *testing.T) {
	env := newAuthEnv(t)
	result := env.register(t, testPhone)

	if err := env.passwords.SetPassword(context.Background(), result.UserID, "OldPassword123!"); err != nil {
		t.Fatalf("SetPassword returned error: %v", err)
	}

	env.sendCode(t, testPhone, domain.CodePurposeReset)

	// The pre-check is non-consuming: both it and the actual reset run on one
	// code.
	if err := env.auth.VerifyResetCode(context.Background(), testPhone, "123456"); err != nil {
		t.Fatalf("VerifyResetCode returned error: %v", err)
	}
	if err := env.auth.ResetPassword(context.Background(), testPhone, "123456", "NewPassword123!"); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}

	// The registration session died with the reset.
	if _, err := env.sessions.Validate(context.Background(), result.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected pre-reset session to be revoked, got %v", err)
	}

	if _, err := env.auth.LoginWithPassword(context.Background(), testPhone, "OldPassword123!", "", SessionMeta{}); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected old password to fail, got %v", err)
	}
	if _, err := env.auth.LoginWithPassword(context.Background(), testPhone, "NewPassword123!", "", SessionMeta{}); err != nil {
		t.Fatalf("expected new password to log in, got %v", err)
	}
}

func TestResetPasswordPropagatesPolicyErrors(t *testing.T) {
	env := newAuthEnv(t)
	result := env.register(t, testPhone)

	if err := env.passwords.SetPassword(context.Background(), result.UserID, "OldPassword123!"); err != nil {
		t.Fatalf("SetPassword returned error: %v", err)
	}

	env.sendCode(t, testPhone, domain.CodePurposeReset)
	if err := env.auth.ResetPassword(context.Background(), testPhone, "123456", "weak"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	// The weak attempt consumed the code; issue another for the reuse case.
	env.sendCode(t, testPhone, domain.CodePurposeReset)
	if err := env.auth.ResetPassword(context.Background(), testPhone, "123456", "OldPassword123!"); !errors.Is(err, ErrPasswordReused) {
		t.Fatalf("expected ErrPasswordReused, got %v", err)
	}

	if err := env.auth.ResetPassword(context.Background(), "13900139000", "123456", "NewPassword123!"); !errors.Is(err, ErrPhoneNotRegistered) {
		t.Fatalf("expected ErrPhoneNotRegistered, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newAuthEnv(t)
	result := env.register(t, testPhone)

	if err := env.auth.ChangePassword(context.Background(), result.UserID, "whatever", "NewPassword123!"); !errors.Is(err, ErrNoPasswordSet) {
		t.Fatalf("expected ErrNoPasswordSet, got %v", err)
	}

	if err := env.passwords.SetPassword(context.Background(), result.UserID, "OldPassword123!"); err != nil {
		t.Fatalf("SetPassword returned error: %v", err)
	}

	if err := env.auth.ChangePassword(context.Background(), result.UserID, "WrongPassword1!", "NewPassword123!"); !errors.Is(err, ErrInvalidCurrentPassword) {
		t.Fatalf("expected ErrInvalidCurrentPassword, got %v", err)
	}

	// New equal to current fails regardless of strength.
	if err := env.auth.ChangePassword(context.Background(), result.UserID, "OldPassword123!", "OldPassword123!"); !errors.Is(err, ErrPasswordReused) {
		t.Fatalf("expected ErrPasswordReused, got %v", err)
	}

	if err := env.auth.ChangePassword(context.Background(), result.UserID, "OldPassword123!", "NewPassword123!"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	if _, err := env.auth.LoginWithPassword(context.Background(), testPhone, "NewPassword123!", "", SessionMeta{}); err != nil {
		t.Fatalf("expected new password to log in, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	env := newAuthEnv(t)
	result := env.register(t, testPhone)

	if err := env.auth.Logout(context.Background(), result.Token); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if _, err := env.sessions.Validate(context.Background(), result.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected token to be invalid after logout, got %v", err)
	}

	if err := env.auth.Logout(context.Background(), ""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}

func TestPasswordStatus(t *testing.T) {
	env := newAuthEnv(t)
	result := env.register(t, testPhone)

	status, err := env.auth.PasswordStatus(context.Background(), result.UserID)
	if err != nil {
		t.Fatalf("PasswordStatus returned error: %v", err)
	}
	if status.HasPassword {
		t.Fatal("expected no password on fresh account")
	}

	if err := env.passwords.SetPassword(context.Background(), result.UserID, "TestPassword123!"); err != nil {
		t.Fatalf("SetPassword returned error: %v", err)
	}

	status, err = env.auth.PasswordStatus(context.Background(), result.UserID)
	if err != nil {
		t.Fatalf("PasswordStatus returned error: %v", err)
	}
	if !status.HasPassword || status.SetAt == nil {
		t.Fatalf("expected password status to report the credential, got %+v", status)
	}

	if _, err := env.auth.PasswordStatus(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
