package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"authcore/internal/utils"
)

type SMSService interface {
	SendVerificationCode(ctx context.Context, phone, code string, expiresAt time.Time) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, text string) (*utils.SendSMSResponse, error)
}

type smsService struct {
	client  smsSender
	product string
	now     Clock
}

func NewSMSService(client *utils.Client, product string, now Clock) SMSService {
	return newSMSService(client, product, now)
}

func newSMSService(client smsSender, product string, now Clock) *smsService {
	if product == "" {
		product = "authcore"
	}
	return &smsService{client: client, product: product, now: orSystem(now)}
}

func (s *smsService) SendVerificationCode(ctx context.Context, phone, code string, expiresAt time.Time) error {
	minutes := int(math.Ceil(expiresAt.Sub(s.now()).Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	text := fmt.Sprintf("%s code: %s. Valid for %d min. Do not share it.", s.product, code, minutes)
	if _, err := s.client.SendSMS(ctx, phone, text); err != nil {
		return fmt.Errorf("mobizon error: %w", err)
	}
	return nil
}
