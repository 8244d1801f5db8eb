package usecase

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/clx1415926/taobei-app/internal/core/domain"
)

func TestSweepRemovesOnlyStaleRows(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	codes := &stubCodeRepo{}
	sessions := newStubSessionRepo()
	failures := &stubFailureRepo{}

	sweeper := NewSweeper(codes, sessions, failures, zaptest.NewLogger(t), DefaultSweeperConfig())
	sweeper.WithClock(func() time.Time { return base })

	_ = codes.Create(context.Background(), domain.VerificationCode{
		ID: "code-live", PhoneNumber: testPhone, Purpose: domain.CodePurposeLogin,
		CreatedAt: base.Add(-time.Minute), ExpiresAt: base.Add(4 * time.Minute),
	})
	_ = codes.Create(context.Background(), domain.VerificationCode{
		ID: "code-stale", PhoneNumber: testPhone, Purpose: domain.CodePurposeLogin,
		CreatedAt: base.Add(-time.Hour), ExpiresAt: base.Add(-55 * time.Minute),
	})

	_ = sessions.Create(context.Background(), domain.Session{
		ID: "sess-live", UserID: "user-1", TokenHash: "hash-live",
		CreatedAt: base.Add(-time.Hour), ExpiresAt: base.Add(6 * 24 * time.Hour),
	})
	_ = sessions.Create(context.Background(), domain.Session{
		ID: "sess-stale", UserID: "user-1", TokenHash: "hash-stale",
		CreatedAt: base.Add(-9 * 24 * time.Hour), ExpiresAt: base.Add(-2 * 24 * time.Hour),
	})

	_ = failures.Record(context.Background(), domain.LoginFailure{
		ID: "fail-recent", IPAddress: "10.0.0.1", FailedAt: base.Add(-time.Hour),
	})
	_ = failures.Record(context.Background(), domain.LoginFailure{
		ID: "fail-stale", IPAddress: "10.0.0.1", FailedAt: base.Add(-25 * time.Hour),
	})

	sweeper.Sweep(context.Background())

	if len(codes.codes) != 1 || codes.codes[0].ID != "code-live" {
		t.Fatalf("expected only the live code to survive, got %d", len(codes.codes))
	}
	if _, ok := sessions.sessions["hash-live"]; !ok {
		t.Fatal("expected live session to survive")
	}
	if _, ok := sessions.sessions["hash-stale"]; ok {
		t.Fatal("expected stale session to be deleted")
	}
	if len(failures.failures) != 1 || failures.failures[0].ID != "fail-recent" {
		t.Fatalf("expected only the recent failure to survive, got %d", len(failures.failures))
	}
}
