package security

import (
	"strings"
	"testing"
)

func TestArgon2HashAndVerify(t *testing.T) {
	hasher, err := NewArgon2Hasher(DefaultArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}

	encoded, err := hasher.Hash("TestPassword123!")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if !strings.HasPrefix(encoded, "argon2id$v=19$") {
		t.Fatalf("unexpected encoded format: %s", encoded)
	}

	ok, err := hasher.Verify("TestPassword123!", encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected password to verify")
	}

	ok, err = hasher.Verify("WrongPassword123!", encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password to fail verification")
	}
}

func TestArgon2HashesDiffer(t *testing.T) {
	hasher, err := NewArgon2Hasher(DefaultArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}

	first, err := hasher.Hash("SamePassword1!")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	second, err := hasher.Hash("SamePassword1!")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	if first == second {
		t.Fatal("expected distinct salts to yield distinct encodings")
	}

	// Both encodings must still verify: reuse detection depends on
	// re-hashing with each stored salt.
	for _, encoded := range []string{first, second} {
		ok, err := hasher.Verify("SamePassword1!", encoded)
		if err != nil {
			t.Fatalf("Verify returned error: %v", err)
		}
		if !ok {
			t.Fatal("expected password to verify against both encodings")
		}
	}
}

func TestArgon2VerifyRejectsMalformed(t *testing.T) {
	hasher, err := NewArgon2Hasher(DefaultArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}

	cases := []string{
		"not-an-encoded-hash",
		"argon2id$v=19$m=65536,t=3$short",
		"bcrypt$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
	}

	for _, encoded := range cases {
		if _, err := hasher.Verify("whatever", encoded); err == nil {
			t.Fatalf("expected error for %q", encoded)
		}
	}
}

func TestNewArgon2HasherRejectsWeakConfig(t *testing.T) {
	cfg := DefaultArgon2Config()
	cfg.Memory = 1024

	if _, err := NewArgon2Hasher(cfg); err == nil {
		t.Fatal("expected low-memory config to be rejected")
	}
}
