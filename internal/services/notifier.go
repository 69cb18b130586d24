package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Notifier delivers codes and links out of band. Callers log failures and
// carry on; delivery is never part of a flow's result.
type Notifier interface {
	SendPhoneCode(ctx context.Context, phone, code string, expiresAt time.Time) error
	SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error
	SendWelcome(ctx context.Context, email, name string) error
}

// LogNotifier writes deliveries to the log instead of sending them. Only for
// local development: it logs secrets.
type LogNotifier struct {
	Log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{Log: log}
}

func (n *LogNotifier) SendPhoneCode(_ context.Context, phone, code string, expiresAt time.Time) error {
	n.Log.Warn("[notify][dev] phone code", zap.String("phone", phone), zap.String("code", code), zap.Time("expires_at", expiresAt))
	return nil
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, email, token string, expiresAt time.Time) error {
	n.Log.Warn("[notify][dev] password reset", zap.String("email", email), zap.String("token", token), zap.Time("expires_at", expiresAt))
	return nil
}

func (n *LogNotifier) SendWelcome(_ context.Context, email, name string) error {
	n.Log.Info("[notify][dev] welcome", zap.String("email", email), zap.String("name", name))
	return nil
}

// DirectNotifier sends SMS through Mobizon and email over SMTP.
type DirectNotifier struct {
	SMS      SMSService
	Email    EmailService
	ResetURL string
}

func NewDirectNotifier(sms SMSService, email EmailService, resetURL string) *DirectNotifier {
	return &DirectNotifier{SMS: sms, Email: email, ResetURL: resetURL}
}

func (n *DirectNotifier) SendPhoneCode(ctx context.Context, phone, code string, expiresAt time.Time) error {
	if n.SMS == nil {
		return fmt.Errorf("sms channel not configured")
	}
	return n.SMS.SendVerificationCode(ctx, phone, code, expiresAt)
}

func (n *DirectNotifier) SendPasswordReset(_ context.Context, email, token string, expiresAt time.Time) error {
	if n.Email == nil {
		return fmt.Errorf("email channel not configured")
	}
	return n.Email.SendPasswordResetEmail(email, resetLink(n.ResetURL, token), expiresAt)
}

func (n *DirectNotifier) SendWelcome(_ context.Context, email, name string) error {
	if n.Email == nil {
		return fmt.Errorf("email channel not configured")
	}
	return n.Email.SendWelcomeEmail(email, name)
}

// resetLink appends the token as a query parameter. Without a base URL the
// raw token is delivered.
func resetLink(base, token string) string {
	if base == "" {
		return token
	}
	u, err := url.Parse(base)
	if err != nil {
		sep := "?"
		if strings.Contains(base, "?") {
			sep = "&"
		}
		return base + sep + "token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
