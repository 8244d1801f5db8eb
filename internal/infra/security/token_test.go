package security

import "testing"

func TestNumericCodeGenerator(t *testing.T) {
	gen := NumericCodeGenerator{}

	for i := 0; i < 100; i++ {
		code, err := gen.Generate()
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6-digit code, got %q", code)
		}
		if code[0] == '0' {
			t.Fatalf("code outside [100000, 999999]: %q", code)
		}
	}
}

func TestFixedCodeGenerator(t *testing.T) {
	gen := FixedCodeGenerator{Code: "123456"}

	code, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if code != "123456" {
		t.Fatalf("expected fixed code, got %q", code)
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	first := HashToken("123456")
	second := HashToken("123456")
	if first != second {
		t.Fatal("expected identical digests for identical input")
	}
	if first == HashToken("654321") {
		t.Fatal("expected distinct digests for distinct input")
	}
	if len(first) != 64 {
		t.Fatalf("expected hex sha256 digest, got length %d", len(first))
	}
}
