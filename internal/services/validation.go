package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	codePattern  = regexp.MustCompile(`^\d{6}$`)

	phoneNoise = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// NormalizeEmail trims and lowercases an email and checks its shape. Stored
// emails are always in this form, which is what makes lookups
// case-insensitive. Only case changes; the address is never otherwise
// rewritten.
func NormalizeEmail(raw string) (string, error) {
	email := cases.Lower(language.Und).String(strings.TrimSpace(raw))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}
	if len(email) > 320 || !emailPattern.MatchString(email) {
		return "", fmt.Errorf("%w: email is malformed", ErrValidation)
	}
	return email, nil
}

// NormalizePhone strips separators and returns the number in its single
// stored form, "+" followed by digits.
func NormalizePhone(raw string) (string, error) {
	phone := phoneNoise.Replace(strings.TrimSpace(raw))
	if phone == "" {
		return "", fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if !phonePattern.MatchString(phone) {
		return "", fmt.Errorf("%w: phone must be 8 to 15 digits in international format", ErrValidation)
	}
	return "+" + strings.TrimPrefix(phone, "+"), nil
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return "", fmt.Errorf("%w: name must be at least 2 characters", ErrValidation)
	}
	if len([]rune(name)) > 120 {
		return "", fmt.Errorf("%w: name is too long", ErrValidation)
	}
	return name, nil
}

// PasswordPolicy is the strength rule applied at registration and reset.
type PasswordPolicy struct {
	MinLength     int
	RequireLower  bool
	RequireUpper  bool
	RequireDigit  bool
	RequireSymbol bool
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8, RequireLower: true, RequireUpper: true, RequireDigit: true, RequireSymbol: true}
}

func (p PasswordPolicy) Check(password string) error {
	if len([]rune(password)) < p.MinLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, p.MinLength)
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return fmt.Errorf("%w: password must be at most 72 bytes", ErrValidation)
	}
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	var missing []string
	if p.RequireLower && !lower {
		missing = append(missing, "a lowercase letter")
	}
	if p.RequireUpper && !upper {
		missing = append(missing, "an uppercase letter")
	}
	if p.RequireDigit && !digit {
		missing = append(missing, "a digit")
	}
	if p.RequireSymbol && !symbol {
		missing = append(missing, "a symbol")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: password needs %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}
