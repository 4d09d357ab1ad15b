package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	codePrefix       = "POPUP"
	randomSuffixLen  = 4
	maxCodeLength    = 255
	minCodeLength    = 3
	randomSuffixSpan = 36 * 36 * 36 * 36
)

var codePattern = regexp.MustCompile(`^[A-Z0-9\-_]{3,255}$`)

var invalidCodeChars = regexp.MustCompile(`[^A-Z0-9\-_]`)

// GenerateDiscountCode builds a unique, human-readable discount code from the
// current timestamp plus a random suffix, e.g. POPUP-M2X5K1A9-7QZ0.
func GenerateDiscountCode(now time.Time) (string, error) {
	timestamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))

	n, err := rand.Int(rand.Reader, big.NewInt(randomSuffixSpan))
	if err != nil {
		return "", fmt.Errorf("failed to generate random suffix: %w", err)
	}
	suffix := strings.ToUpper(strconv.FormatInt(n.Int64(), 36))
	for len(suffix) < randomSuffixLen {
		suffix = "0" + suffix
	}

	code := codePrefix + "-" + timestamp + "-" + suffix
	return SanitizeDiscountCode(code), nil
}

// SanitizeDiscountCode uppercases the code and strips every character that is
// not a letter, digit, hyphen or underscore.
func SanitizeDiscountCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return invalidCodeChars.ReplaceAllString(code, "")
}

// ValidateDiscountCode reports whether a code is safe to send to the discount
// API: uppercase alphanumerics, hyphens and underscores, between 3 and 255
// characters.
func ValidateDiscountCode(code string) bool {
	if len(code) < minCodeLength || len(code) > maxCodeLength {
		return false
	}
	return codePattern.MatchString(code)
}
