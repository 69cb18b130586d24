package services

import (
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendWelcomeEmail(email, name string) error
	SendPasswordResetEmail(email, link string, expiresAt time.Time) error
}

type emailService struct {
	from    string
	product string
	send    func(m *gomail.Message) error
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail, product string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return newEmailService(fromEmail, product, func(m *gomail.Message) error {
		return dialer.DialAndSend(m)
	})
}

func newEmailService(from, product string, send func(m *gomail.Message) error) *emailService {
	if product == "" {
		product = "authcore"
	}
	return &emailService{from: from, product: product, send: send}
}

func (s *emailService) SendWelcomeEmail(email, name string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", fmt.Sprintf("Welcome to %s!", s.product))

	body := fmt.Sprintf(`
		<h2>Welcome, %s!</h2>
		<p>Your %s account has been created.</p>
		<p>If this wasn't you, reset your password right away.</p>
	`, html.EscapeString(name), html.EscapeString(s.product))

	m.SetBody("text/html", body)

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

func (s *emailService) SendPasswordResetEmail(email, link string, expiresAt time.Time) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Password reset request")

	body := fmt.Sprintf(`
		<h3>Password reset requested</h3>
		<p>We received a request to reset the password for your account.</p>
		<p>Use this link or token before %s UTC: <strong>%s</strong></p>
		<p>If you did not request this change, you can ignore this email.</p>
	`, expiresAt.UTC().Format("2006-01-02 15:04"), html.EscapeString(link))

	m.SetBody("text/html", body)

	if err := s.send(m); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}
