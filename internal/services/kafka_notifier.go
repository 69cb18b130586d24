package services

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"
)

const (
	EventPhoneCode     = "auth.phone_code"
	EventPasswordReset = "auth.password_reset"
	EventWelcome       = "auth.welcome"
)

// NotificationEvent is the message a delivery worker consumes. It carries
// the raw secret, so the topic must be access-restricted.
type NotificationEvent struct {
	Type      string     `json:"type"`
	Recipient string     `json:"recipient"`
	Code      string     `json:"code,omitempty"`
	Token     string     `json:"token,omitempty"`
	Name      string     `json:"name,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	SentAt    time.Time  `json:"sent_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier hands deliveries to a separate mail/SMS worker over Kafka.
type KafkaNotifier struct {
	writer messageWriter
	log    *zap.Logger
	now    Clock
}

func NewKafkaNotifier(brokers []string, topic, username, password string, useTLS bool, log *zap.Logger) *KafkaNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	transport := &kafka.Transport{}
	if username != "" {
		transport.SASL = plain.Mechanism{Username: username, Password: password}
	}
	if useTLS {
		transport.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		Transport:    transport,
	}
	return newKafkaNotifier(w, log, nil)
}

func newKafkaNotifier(w messageWriter, log *zap.Logger, now Clock) *KafkaNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaNotifier{writer: w, log: log, now: orSystem(now)}
}

func (n *KafkaNotifier) SendPhoneCode(ctx context.Context, phone, code string, expiresAt time.Time) error {
	return n.publish(ctx, NotificationEvent{Type: EventPhoneCode, Recipient: phone, Code: code, ExpiresAt: &expiresAt})
}

func (n *KafkaNotifier) SendPasswordReset(ctx context.Context, email, token string, expiresAt time.Time) error {
	return n.publish(ctx, NotificationEvent{Type: EventPasswordReset, Recipient: email, Token: token, ExpiresAt: &expiresAt})
}

func (n *KafkaNotifier) SendWelcome(ctx context.Context, email, name string) error {
	return n.publish(ctx, NotificationEvent{Type: EventWelcome, Recipient: email, Name: name})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

func (n *KafkaNotifier) publish(ctx context.Context, ev NotificationEvent) error {
	msg, err := encodeEvent(ev, n.now())
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	n.log.Debug("[notify][kafka] published", zap.String("type", ev.Type))
	return nil
}

// encodeEvent keys by recipient so one person's events stay ordered on a
// partition.
func encodeEvent(ev NotificationEvent, at time.Time) (kafka.Message, error) {
	ev.SentAt = at.UTC()
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	return kafka.Message{
		Key:   []byte(ev.Recipient),
		Value: value,
		Time:  ev.SentAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	}, nil
}
