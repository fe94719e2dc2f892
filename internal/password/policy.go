// Package password evaluates candidate passwords against the account password policy.
package password

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Strength is an ordered tier; Weak < Fair < Good < Strong.
type Strength int

const (
	Weak Strength = iota
	Fair
	Good
	Strong
)

func (s Strength) String() string {
	switch s {
	case Fair:
		return "fair"
	case Good:
		return "good"
	case Strong:
		return "strong"
	default:
		return "weak"
	}
}

// MarshalText encodes the tier name.
func (s Strength) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	MinLength         = 8
	MaxLength         = 128
	RecommendedLength = 12
	longLength        = 16

	// Symbols is the allowed special-character set.
	Symbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`
)

// CommonPasswords is matched as a case-insensitive substring.
var CommonPasswords = []string{
	"password", "password123", "12345678", "123456789", "1234567890",
	"qwerty", "abc123", "monkey", "1234567", "letmein", "trustno1",
	"dragon", "baseball", "iloveyou", "master", "sunshine", "ashley",
	"bailey", "passw0rd", "shadow", "123123", "654321", "superman",
	"qazwsx", "michael", "football", "welcome", "jesus", "ninja",
	"mustang", "password1", "123qwe", "admin", "root", "user",
}

var (
	upperRe      = regexp.MustCompile(`[A-Z]`)
	lowerRe      = regexp.MustCompile(`[a-z]`)
	digitRe      = regexp.MustCompile(`[0-9]`)
	symbolRe     = regexp.MustCompile(`[` + regexp.QuoteMeta(Symbols) + `]`)
	sequentialRe = regexp.MustCompile(`(?i)1234|2345|3456|4567|5678|6789|7890|abcd|bcde|cdef|defg|efgh|fghi|ghij|hijk|ijkl|jklm|klmn|lmno|mnop|nopq|opqr|pqrs|qrst|rstu|stuv|tuvw|uvwx|vwxy|wxyz`)
)

// Messages returned in Result.Errors and Result.Warnings.
var (
	ErrTooShort  = fmt.Sprintf("Password must be at least %d characters long", MinLength)
	ErrTooLong   = fmt.Sprintf("Password must not exceed %d characters", MaxLength)
	ErrNoUpper   = "Password must contain at least one uppercase letter (A-Z)"
	ErrNoLower   = "Password must contain at least one lowercase letter (a-z)"
	ErrNoDigit   = "Password must contain at least one number (0-9)"
	ErrNoSymbol  = "Password must contain at least one special character (" + Symbols + ")"
	ErrCommon    = "Password is too common. Please choose a more unique password"
	WarnRepeated = "Password contains repeated characters. Consider using a more varied password"
	WarnSequence = "Password contains sequential characters. Consider using a more random password"
	WarnShort    = fmt.Sprintf("For better security, consider using a password with %d or more characters", RecommendedLength)
)

// Result is the outcome of Evaluate. Errors block acceptance; warnings do not.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Strength Strength `json:"strength"`
}

// FirstError returns the first blocking message, or "" when the password is valid.
func (r Result) FirstError() string {
	if r.Valid {
		return ""
	}
	if len(r.Errors) > 0 {
		return r.Errors[0]
	}
	return "Password does not meet requirements"
}

// Evaluate checks candidate against every rule independently. Length is counted
// in characters, not bytes.
func Evaluate(candidate string) Result {
	res := Result{Errors: []string{}, Warnings: []string{}}
	n := utf8.RuneCountInString(candidate)

	if n < MinLength {
		res.Errors = append(res.Errors, ErrTooShort)
	}
	if n > MaxLength {
		res.Errors = append(res.Errors, ErrTooLong)
	}

	if n >= MinLength {
		if !upperRe.MatchString(candidate) {
			res.Errors = append(res.Errors, ErrNoUpper)
		}
		if !lowerRe.MatchString(candidate) {
			res.Errors = append(res.Errors, ErrNoLower)
		}
		if !digitRe.MatchString(candidate) {
			res.Errors = append(res.Errors, ErrNoDigit)
		}
		if !symbolRe.MatchString(candidate) {
			res.Errors = append(res.Errors, ErrNoSymbol)
		}
		if containsCommon(candidate) {
			res.Errors = append(res.Errors, ErrCommon)
		}

		if hasRun(candidate, 4) {
			res.Warnings = append(res.Warnings, WarnRepeated)
		}
		if sequentialRe.MatchString(candidate) {
			res.Warnings = append(res.Warnings, WarnSequence)
		}
		if n < RecommendedLength {
			res.Warnings = append(res.Warnings, WarnShort)
		}
	}

	res.Valid = len(res.Errors) == 0
	res.Strength = strength(candidate, n)
	return res
}

func strength(candidate string, n int) Strength {
	if n < MinLength {
		return Weak
	}

	score := 1
	if n >= RecommendedLength {
		score++
	}
	if n >= longLength {
		score++
	}
	for _, re := range []*regexp.Regexp{lowerRe, upperRe, digitRe, symbolRe} {
		if re.MatchString(candidate) {
			score++
		}
	}
	if containsCommon(candidate) {
		score -= 2
	}

	switch {
	case score <= 2:
		return Weak
	case score <= 4:
		return Fair
	case score <= 6:
		return Good
	default:
		return Strong
	}
}

func containsCommon(candidate string) bool {
	lower := strings.ToLower(candidate)
	for _, common := range CommonPasswords {
		if strings.Contains(lower, common) {
			return true
		}
	}
	return false
}

// hasRun reports whether candidate contains min or more identical consecutive characters.
func hasRun(candidate string, min int) bool {
	var prev rune
	count := 0
	for i, r := range candidate {
		if i > 0 && r == prev {
			count++
		} else {
			count = 1
		}
		if count >= min {
			return true
		}
		prev = r
	}
	return false
}
