package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/clx1415926/taobei-app/internal/core/port"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// NumericCodeGenerator produces uniformly random 6-digit verification codes.
type NumericCodeGenerator struct{}

// Generate returns a code in [100000, 999999].
func (NumericCodeGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", codeMin+n.Int64()), nil
}

// FixedCodeGenerator always returns the same code. Used in test-mode
// configurations where SMS delivery is bypassed.
type FixedCodeGenerator struct {
	Code string
}

// Generate returns the configured fixed code.
func (g FixedCodeGenerator) Generate() (string, error) {
	return g.Code, nil
}

// HashToken produces a hex-encoded SHA-256 digest. Verification codes and
// bearer tokens are stored only in this form.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

var (
	_ port.CodeGenerator = NumericCodeGenerator{}
	_ port.CodeGenerator = FixedCodeGenerator{}
)
