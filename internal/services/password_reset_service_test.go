package services

import (
	"context"
	"testing"
	"time"
)

func TestPasswordResetFlow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustRegister(t, "Erin", "erin@example.com", "+966555300001")

	if err := e.reset.RequestReset(ctx, "Erin@Example.com"); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	token := e.notifier.lastToken(t, "erin@example.com")

	// weak password is rejected before the token is touched
	err := e.reset.ResetPassword(ctx, token, "weak")
	expectErr(t, err, ErrValidation)

	if err := e.reset.ResetPassword(ctx, token, "New-password2"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, err := e.login.Login(ctx, "erin@example.com", "New-password2", ""); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	_, err = e.login.Login(ctx, "erin@example.com", testPassword, "")
	expectErr(t, err, ErrInvalidCredentials)

	err = e.reset.ResetPassword(ctx, token, "Another-password3")
	expectErr(t, err, ErrExpiredOrInvalidProof)
}

func TestPasswordResetUnknownEmailLooksTheSame(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	if err := e.reset.RequestReset(ctx, "ghost@example.com"); err != nil {
		t.Fatalf("unknown email surfaced an error: %v", err)
	}
	if n := len(e.notifier.resetTokens["ghost@example.com"]); n != 0 {
		t.Fatalf("delivered %d tokens for an unknown email", n)
	}
	err := e.reset.RequestReset(ctx, "not-an-email")
	expectErr(t, err, ErrValidation)
}

func TestPasswordResetNewestTokenWins(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustRegister(t, "Finn", "finn@example.com", "+966555300002")

	_ = e.reset.RequestReset(ctx, "finn@example.com")
	old := e.notifier.lastToken(t, "finn@example.com")
	e.clock.Advance(time.Second)
	_ = e.reset.RequestReset(ctx, "finn@example.com")
	fresh := e.notifier.lastToken(t, "finn@example.com")

	err := e.reset.ResetPassword(ctx, old, "New-password2")
	expectErr(t, err, ErrExpiredOrInvalidProof)
	if err := e.reset.ResetPassword(ctx, fresh, "New-password2"); err != nil {
		t.Fatalf("fresh token: %v", err)
	}
}

func TestPasswordResetTokenExpires(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustRegister(t, "Gus", "gus@example.com", "+966555300003")

	_ = e.reset.RequestReset(ctx, "gus@example.com")
	token := e.notifier.lastToken(t, "gus@example.com")
	e.clock.Advance(31 * time.Minute)

	err := e.reset.ResetPassword(ctx, token, "New-password2")
	expectErr(t, err, ErrExpiredOrInvalidProof)
	err = e.reset.ResetPassword(ctx, "", "New-password2")
	expectErr(t, err, ErrValidation)
}

func TestPasswordResetKeepsNonASCIIAddress(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustRegister(t, "Jonas", "Straße@Example.DE", "+496912345678")

	stored, err := e.users.GetByEmail(ctx, "straße@example.de")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if stored.EmailValue() != "straße@example.de" {
		t.Fatalf("stored email = %q", stored.EmailValue())
	}

	if err := e.reset.RequestReset(ctx, "STRASSE@example.de"); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	if err := e.reset.RequestReset(ctx, "Straße@example.de"); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}
	if len(e.notifier.resetTokens) != 1 || len(e.notifier.resetTokens["straße@example.de"]) != 1 {
		t.Fatalf("reset recipients = %v", e.notifier.resetTokens)
	}
}
