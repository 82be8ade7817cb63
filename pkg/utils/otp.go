package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const OTPLength = 6

var (
	otpPattern = regexp.MustCompile(`^[0-9]{6}$`)
	otpSpace   = big.NewInt(1000000)
)

// GenerateOTP returns a uniformly random code in 000000-999999, zero-padded
// to six digits.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("reading random source: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// IsValidOTPFormat reports whether code is exactly six ASCII digits.
func IsValidOTPFormat(code string) bool {
	return otpPattern.MatchString(code)
}
