package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// RFC 6238 with the authenticator-app defaults and one step of drift either
// way.
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

type TOTPVerifier struct {
	issuer string
}

func NewTOTPVerifier(issuer string) *TOTPVerifier {
	if issuer == "" {
		issuer = "authcore"
	}
	return &TOTPVerifier{issuer: issuer}
}

// Verify accepts codes from the window containing at and its two
// neighbours. A bad secret or malformed code is simply a mismatch.
func (v *TOTPVerifier) Verify(secret, code string, at time.Time) bool {
	code = strings.TrimSpace(code)
	if secret == "" || !codePattern.MatchString(code) {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, at.UTC(), totpOpts)
	return err == nil && ok
}

// Code is the expected code for at. Used by tests and the enrollment check.
func (v *TOTPVerifier) Code(secret string, at time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, at.UTC(), totpOpts)
}

// NewSecret creates a base32 secret plus the otpauth:// URL authenticator
// apps scan.
func (v *TOTPVerifier) NewSecret(accountName string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      v.issuer,
		AccountName: accountName,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return "", "", fmt.Errorf("generate totp secret: %w", err)
	}
	return key.Secret(), key.URL(), nil
}
