package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	// VerificationCodeTTL is how long an emailed code stays valid.
	VerificationCodeTTL = 10 * time.Minute

	codeMin = 100000
	codeMax = 999999
)

// CodeGenerator produces single-use numeric verification codes.
type CodeGenerator interface {
	Generate() (code string, expires time.Time, err error)
}

// RandomCodeGenerator draws 6-digit codes from crypto/rand.
type RandomCodeGenerator struct {
	now func() time.Time
}

// NewCodeGenerator creates a generator anchored to the wall clock.
func NewCodeGenerator() *RandomCodeGenerator {
	return &RandomCodeGenerator{now: time.Now}
}

// NewCodeGeneratorWithClock creates a generator anchored to clock.
func NewCodeGeneratorWithClock(clock func() time.Time) *RandomCodeGenerator {
	return &RandomCodeGenerator{now: clock}
}

// Generate returns a code in [100000, 999999] and its expiry.
func (g *RandomCodeGenerator) Generate() (string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate verification code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64()+codeMin)
	return code, g.now().Add(VerificationCodeTTL), nil
}
