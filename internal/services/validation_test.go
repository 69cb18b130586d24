package services

import (
	"errors"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail("  Alice.Smith@Example.COM ")
	if err != nil || got != "alice.smith@example.com" {
		t.Fatalf("NormalizeEmail = %q, %v", got, err)
	}
	if got, err := NormalizeEmail("Straße@Example.DE"); err != nil || got != "straße@example.de" {
		t.Fatalf("NormalizeEmail must only change case, got %q, %v", got, err)
	}
	for _, bad := range []string{"", "   ", "alice", "alice@", "@example.com", "a b@example.com", "alice@example"} {
		if _, err := NormalizeEmail(bad); !errors.Is(err, ErrValidation) {
			t.Errorf("NormalizeEmail(%q) error = %v", bad, err)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+966 555-123-456": "+966555123456",
		"(966) 555 1234":   "+9665551234",
		"9665551234":       "+9665551234",
		"12345678":         "+12345678",
	}
	for in, want := range cases {
		got, err := NormalizePhone(in)
		if err != nil || got != want {
			t.Errorf("NormalizePhone(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "1234567", "+1234567890123456", "++12345678", "12345abc", "05551234567"} {
		if _, err := NormalizePhone(bad); !errors.Is(err, ErrValidation) {
			t.Errorf("NormalizePhone(%q) error = %v", bad, err)
		}
	}
}

func TestPasswordPolicy(t *testing.T) {
	p := DefaultPasswordPolicy()
	if err := p.Check(testPassword); err != nil {
		t.Fatalf("strong password rejected: %v", err)
	}
	for _, weak := range []string{"Sh0rt!", "alllower1!", "ALLUPPER1!", "NoDigits!!", "NoSymbol12"} {
		if err := p.Check(weak); !errors.Is(err, ErrValidation) {
			t.Errorf("Check(%q) error = %v", weak, err)
		}
	}

	relaxed := PasswordPolicy{MinLength: 6}
	if err := relaxed.Check("simple"); err != nil {
		t.Fatalf("relaxed policy: %v", err)
	}
}
