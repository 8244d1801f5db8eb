package security

import (
	"testing"
	"time"

	"github.com/clx1415926/taobei-app/internal/core/port"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTSignAndVerify(t *testing.T) {
	signer, err := NewJWTSigner(testSecret, "taobei", 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewJWTSigner returned error: %v", err)
	}

	token, err := signer.Sign(port.TokenClaims{
		UserID:      "user-1",
		PhoneNumber: "13800138000",
		SessionID:   "session-1",
	})
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	claims, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if claims.UserID != "user-1" || claims.PhoneNumber != "13800138000" || claims.SessionID != "session-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTVerifyRejectsExpired(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	signer, err := NewJWTSigner(testSecret, "taobei", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTSigner returned error: %v", err)
	}
	signer.WithClock(func() time.Time { return base })

	token, err := signer.Sign(port.TokenClaims{UserID: "user-1", PhoneNumber: "13800138000"})
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	signer.WithClock(func() time.Time { return base.Add(2 * time.Hour) })
	if _, err := signer.Verify(token); err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestJWTVerifyRejectsWrongSecret(t *testing.T) {
	signer, err := NewJWTSigner(testSecret, "taobei", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTSigner returned error: %v", err)
	}

	token, err := signer.Sign(port.TokenClaims{UserID: "user-1"})
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	other, err := NewJWTSigner("ffffffffffffffffffffffffffffffff", "taobei", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTSigner returned error: %v", err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Fatal("expected token signed with different secret to fail")
	}
}

func TestNewJWTSignerRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTSigner("short", "taobei", time.Hour); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
}
