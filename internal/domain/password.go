package domain

import (
	"fmt"
	"math"
	"strings"
	"unicode"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// StrengthLevel buckets a password score for client display.
type StrengthLevel string

const (
	StrengthWeak   StrengthLevel = "weak"
	StrengthFair   StrengthLevel = "fair"
	StrengthGood   StrengthLevel = "good"
	StrengthStrong StrengthLevel = "strong"
)

// Strength is the scored result of CheckStrength.
type Strength struct {
	Score    int           `json:"score"`
	Level    StrengthLevel `json:"level"`
	Feedback []string      `json:"feedback,omitempty"`
}

var commonPasswords = []string{
	"password", "qwerty", "123456", "letmein", "welcome",
	"abc123", "iloveyou", "admin", "monkey", "dragon",
}

// ValidatePassword enforces the baseline signup password policy.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("%w: password must be <= %d characters", ErrInvalidInput, maxPasswordLength)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return fmt.Errorf("%w: password must include upper, lower, and digit", ErrInvalidInput)
	}

	lowered := strings.ToLower(password)
	for _, banned := range commonPasswords {
		if strings.Contains(lowered, banned) {
			return fmt.Errorf("%w: password includes a common weak pattern", ErrInvalidInput)
		}
	}

	return nil
}

// CheckStrength scores a password 0-100 against composition, entropy,
// common-password, and repeated/sequential pattern rules.
func CheckStrength(password string) Strength {
	var score int
	var feedback []string

	switch {
	case len(password) >= 16:
		score += 30
	case len(password) >= 12:
		score += 25
	case len(password) >= minPasswordLength:
		score += 15
	default:
		feedback = append(feedback, fmt.Sprintf("use at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit, hasPunct bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasPunct = true
		}
	}
	classes := 0
	for _, ok := range []bool{hasUpper, hasLower, hasDigit, hasPunct} {
		if ok {
			classes++
		}
	}
	score += classes * 10
	if classes < 3 {
		feedback = append(feedback, "mix upper, lower, digits, and symbols")
	}

	if bits := entropyBits(password); bits >= 60 {
		score += 30
	} else if bits >= 40 {
		score += 20
	} else if bits >= 28 {
		score += 10
	} else {
		feedback = append(feedback, "add more varied characters")
	}

	lowered := strings.ToLower(password)
	for _, banned := range commonPasswords {
		if strings.Contains(lowered, banned) {
			score -= 40
			feedback = append(feedback, "avoid common words and sequences")
			break
		}
	}
	if hasRepeatedRun(password, 3) {
		score -= 10
		feedback = append(feedback, "avoid repeated characters")
	}
	if hasSequentialRun(lowered, 4) {
		score -= 10
		feedback = append(feedback, "avoid sequential characters")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	level := StrengthWeak
	switch {
	case score >= 80:
		level = StrengthStrong
	case score >= 60:
		level = StrengthGood
	case score >= 40:
		level = StrengthFair
	}

	return Strength{Score: score, Level: level, Feedback: feedback}
}

// entropyBits estimates Shannon entropy from the effective alphabet size.
func entropyBits(password string) float64 {
	if password == "" {
		return 0
	}
	var pool float64
	var hasUpper, hasLower, hasDigit, hasOther bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasOther = true
		}
	}
	if hasUpper {
		pool += 26
	}
	if hasLower {
		pool += 26
	}
	if hasDigit {
		pool += 10
	}
	if hasOther {
		pool += 32
	}
	if pool == 0 {
		return 0
	}
	return float64(len(password)) * math.Log2(pool)
}

func hasRepeatedRun(s string, runLength int) bool {
	run := 1
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			run++
			if run >= runLength {
				return true
			}
		} else {
			run = 1
		}
		prev = r
	}
	return false
}

func hasSequentialRun(s string, runLength int) bool {
	run := 1
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev+1 {
			run++
			if run >= runLength {
				return true
			}
		} else {
			run = 1
		}
		prev = r
	}
	return false
}
