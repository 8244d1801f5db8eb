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

// fastHasher keeps Argon2 cheap enough for unit tests.
func fastHasher(t *testing.T) *security.Argon2Hasher {
	t.Helper()
	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  8,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}
	return hasher
}

func newPasswordEnv(t *testing.T) (*PasswordService, *stubUserRepo) {
	t.Helper()
	users := newStubUserRepo()
	svc := NewPasswordService(users, fastHasher(t), zaptest.NewLogger(t), DefaultPasswordPolicy())
	return svc, users
}

func seedUser(t *testing.T, users *stubUserRepo, id string) {
	t.Helper()
	err := users.Create(context.Background(), domain.User{
		ID:          id,
		PhoneNumber: testPhone,
		Status:      domain.UserStatusActive,
		CreatedAt:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func TestSetPasswordRejectsWeak(t *testing.T) {
	svc, users := newPasswordEnv(t)
	seedUser(t, users, "user-1")

	cases := []string{"short1!", "alllowercase1!", "ALLUPPERCASE1!", "NoDigitsHere!", "NoSpecial123"}
	for _, password := range cases {
		if err := svc.SetPassword(context.Background(), "user-1", password); !errors.Is(err, ErrWeakPassword) {
			t.Fatalf("expected ErrWeakPassword for %q, got %v", password, err)
		}
	}

	if err := svc.SetPassword(context.Background(), "user-1", "TestPassword123!"); err != nil {
		t.Fatalf("expected strong password to be accepted, got %v", err)
	}
}

func TestSetPasswordUnknownUser(t *testing.T) {
	svc, _ := newPasswordEnv(t)

	if err := svc.SetPassword(context.Background(), "missing", "TestPassword123!"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSetPasswordRejectsCurrentReuse(t *testing.T) {
	svc, users := newPasswordEnv(t)
	seedUser(t, users, "user-1")

	if err := svc.SetPassword(context.Background(), "user-1", "TestPassword123!"); err != nil {
		t.Fatalf("initial set returned error: %v", err)
	}

	if err := svc.SetPassword(context.Background(), "user-1", "TestPassword123!"); !errors.Is(err, ErrPasswordReused) {
		t.Fatalf("expected ErrPasswordReused, got %v", err)
	}
}

func TestPasswordHistoryDepth(t *testing.T) {
	svc, users := newPasswordEnv(t)
	seedUser(t, users, "user-1")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	svc.WithClock(func() time.Time { return current })

	passwords := []string{"Password#One1", "Password#Two2", "Password#Three3", "Password#Four4"}
	for _, password := range passwords {
		if err := svc.SetPassword(context.Background(), "user-1", password); err != nil {
			t.Fatalf("set %q returned error: %v", password, err)
		}
		current = current.Add(time.Hour)
	}

	// Only the last three credentials are remembered, so the first one is
	// reusable again.
	if err := svc.SetPassword(context.Background(), "user-1", "Password#One1"); err != nil {
		t.Fatalf("expected password aged out of history to be accepted, got %v", err)
	}

	for _, password := range []string{"Password#Three3", "Password#Four4", "Password#One1"} {
		if err := svc.SetPassword(context.Background(), "user-1", password); !errors.Is(err, ErrPasswordReused) {
			t.Fatalf("expected ErrPasswordReused for %q, got %v", password, err)
		}
		current = current.Add(time.Hour)
	}
}

func TestVerifyPassword(t *testing.T) {
	svc, users := newPasswordEnv(t)
	seedUser(t, users, "user-1")

	if _, err := svc.VerifyPassword(context.Background(), "user-1", "TestPassword123!"); !errors.Is(err, ErrNoPasswordSet) {
		t.Fatalf("expected ErrNoPasswordSet, got %v", err)
	}

	if err := svc.SetPassword(context.Background(), "user-1", "TestPassword123!"); err != nil {
		t.Fatalf("SetPassword returned error: %v", err)
	}

	match, err := svc.VerifyPassword(context.Background(), "user-1", "TestPassword123!")
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !match {
		t.Fatal("expected correct password to match")
	}

	match, err = svc.VerifyPassword(context.Background(), "user-1", "WrongPassword123!")
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if match {
		t.Fatal("expected wrong password not to match")
	}

	// Verification alone never touches the fail counter.
	user, _ := users.GetByID(context.Background(), "user-1")
	if user.PasswordFailCount != 0 {
		t.Fatalf("PasswordFailCount = %d, want 0", user.PasswordFailCount)
	}
}

func TestRecordFailureEngagesLockAtLimit(t *testing.T) {
	svc, users := newPasswordEnv(t)
	seedUser(t, users, "user-1")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return base })

	for i := 1; i <= 4; i++ {
		state, err := svc.RecordFailure(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("RecordFailure %d returned error: %v", i, err)
		}
		if state.IsLocked {
			t.Fatalf("expected no lock after %d failures", i)
		}
		if state.FailCount != i {
			t.Fatalf("FailCount = %d, want %d", state.FailCount, i)
		}
	}

	state, err := svc.RecordFailure(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RecordFailure returned error: %v", err)
	}
	if !state.IsLocked {
		t.Fatal("expected fifth failure to engage the lock")
	}
	if !state.LockedUntil.Equal(base.Add(15 * time.Minute)) {
		t.Fatalf("LockedUntil = %v, want %v", state.LockedUntil, base.Add(15*time.Minute))
	}

	user, _ := users.GetByID(context.Background(), "user-1")
	if user.LockedUntil == nil {
		t.Fatal("expected lock to be persisted")
	}
}

func TestLockStatusLazyUnlock(t *testing.T) {
	svc, users := newPasswordEnv(t)
	seedUser(t, users, "user-1")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	svc.WithClock(func() time.Time { return current })

	for i := 0; i < 5; i++ {
		if _, err := svc.RecordFailure(context.Background(), "user-1"); err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
	}

	state, err := svc.LockStatus(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("LockStatus returned error: %v", err)
	}
	if !state.IsLocked {
		t.Fatal("expected account to report locked")
	}

	// One second past the lock window: the read clears the state.
	current = base.Add(15*time.Minute + time.Second)
	state, err = svc.LockStatus(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("LockStatus returned error: %v", err)
	}
	if state.IsLocked {
		t.Fatal("expected lock to have lapsed")
	}
	if state.FailCount != 0 {
		t.Fatalf("FailCount = %d, want 0 after lazy unlock", state.FailCount)
	}

	user, _ := users.GetByID(context.Background(), "user-1")
	if user.LockedUntil != nil || user.PasswordFailCount != 0 {
		t.Fatal("expected persisted lock state to be cleared")
	}
}

func TestRecordSuccessClearsFailState(t *testing.T) {
	svc, users := newPasswordEnv(t)
	seedUser(t, users, "user-1")

	for i := 0; i < 3; i++ {
		if _, err := svc.RecordFailure(context.Background(), "user-1"); err != nil {
			t.Fatalf("RecordFailure returned error: %v", err)
		}
	}

	if err := svc.RecordSuccess(context.Background(), "user-1"); err != nil {
		t.Fatalf("RecordSuccess returned error: %v", err)
	}

	user, _ := users.GetByID(context.Background(), "user-1")
	if user.PasswordFailCount != 0 || user.LockedUntil != nil {
		t.Fatal("expected fail state to be cleared")
	}
}
