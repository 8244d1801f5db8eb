package security

import (
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const specialCharacters = `!@#$%^&*(),.?":{}|<>`

// StrengthClass buckets the advisory score for UI feedback.
type StrengthClass string

const (
	StrengthWeak   StrengthClass = "weak"
	StrengthMedium StrengthClass = "medium"
	StrengthStrong StrengthClass = "strong"
)

// StrengthReport describes how a candidate password measures up.
// IsStrong is the enforcement gate (all five rules hold); Score and
// Classification exist only for client-side feedback.
type StrengthReport struct {
	IsStrong       bool
	Score          int
	Classification StrengthClass
	Suggestions    []string
}

// EvaluatePasswordStrength scores a candidate password.
// Weights: length 25, uppercase 25, lowercase 25, digit 15, special 10.
func EvaluatePasswordStrength(password string) StrengthReport {
	var (
		longEnough = len([]rune(password)) >= 8
		hasUpper   bool
		hasLower   bool
		hasDigit   bool
		hasSpecial bool
	)

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialCharacters, r):
			hasSpecial = true
		}
	}

	score := 0
	var suggestions []string

	if longEnough {
		score += 25
	} else {
		suggestions = append(suggestions, "use at least 8 characters")
	}
	if hasUpper {
		score += 25
	} else {
		suggestions = append(suggestions, "add an uppercase letter")
	}
	if hasLower {
		score += 25
	} else {
		suggestions = append(suggestions, "add a lowercase letter")
	}
	if hasDigit {
		score += 15
	} else {
		suggestions = append(suggestions, "add a digit")
	}
	if hasSpecial {
		score += 10
	} else {
		suggestions = append(suggestions, "add a special character")
	}

	report := StrengthReport{
		IsStrong:    longEnough && hasUpper && hasLower && hasDigit && hasSpecial,
		Score:       score,
		Suggestions: suggestions,
	}

	switch {
	case score >= 80:
		report.Classification = StrengthStrong
	case score >= 50:
		report.Classification = StrengthMedium
	default:
		report.Classification = StrengthWeak
	}

	// zxcvbn catches dictionary words and keyboard walks that pass the
	// character rules. Advisory only, never blocks.
	if password != "" && report.IsStrong {
		if result := zxcvbn.PasswordStrength(password, nil); result.Score < 3 {
			report.Suggestions = append(report.Suggestions, "avoid common words and predictable patterns")
		}
	}

	return report
}
