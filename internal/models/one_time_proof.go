package models

import "time"

type ProofKind string

const (
	ProofPhoneOTP   ProofKind = "phone_otp"
	ProofResetToken ProofKind = "reset_token"
)

func (k ProofKind) Valid() bool {
	return k == ProofPhoneOTP || k == ProofResetToken
}

// OneTimeProof is a single-use, expiring secret bound to a subject (a phone
// number for OTP codes, an email for reset tokens). Only the SHA-256 of the
// value is stored.
type OneTimeProof struct {
	ID         string     `json:"id"`
	Kind       ProofKind  `json:"kind"`
	Subject    string     `json:"subject"`
	ValueHash  string     `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// ActiveAt reports whether the proof can still be consumed at t.
func (p *OneTimeProof) ActiveAt(t time.Time) bool {
	return p.ConsumedAt == nil && p.ExpiresAt.After(t)
}
