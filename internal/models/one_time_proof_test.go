package models

import (
	"testing"
	"time"
)

func TestOneTimeProofActiveAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &OneTimeProof{Kind: ProofPhoneOTP, ExpiresAt: now.Add(time.Minute)}

	if !p.ActiveAt(now) {
		t.Fatal("fresh proof should be active")
	}
	if p.ActiveAt(p.ExpiresAt) {
		t.Fatal("proof must not be active at its expiry instant")
	}
	consumed := now
	p.ConsumedAt = &consumed
	if p.ActiveAt(now) {
		t.Fatal("consumed proof must not be active")
	}
}
