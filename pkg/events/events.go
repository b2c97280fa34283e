package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/washloop/washloop-api/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	OrderCreated   = "order.created"
	OrderCancelled = "order.cancelled"
	OrderRedeemed  = "order.redeemed"

	PaymentIntentCreated = "payment.intent.created"
	PaymentCaptured      = "payment.captured"
	PaymentFailed        = "payment.failed"

	LoyaltyVisitRecorded = "loyalty.visit.recorded"
	LoyaltyRewardReady   = "loyalty.reward.ready"

	UserSignedUp      = "user.signed_up"
	UserPhoneVerified = "user.phone_verified"
)

// Event payloads
type OrderCreatedEvent struct {
	OrderID     int64     `json:"order_id"`
	UserID      int64     `json:"user_id"`
	TenantID    string    `json:"tenant_id"`
	ServiceID   int64     `json:"service_id"`
	TotalCents  int64     `json:"total_cents"`
	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type OrderCancelledEvent struct {
	OrderID     int64     `json:"order_id"`
	UserID      int64     `json:"user_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

type PaymentCapturedEvent struct {
	OrderID     int64     `json:"order_id"`
	UserID      int64     `json:"user_id"`
	TenantID    string    `json:"tenant_id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	CapturedAt  time.Time `json:"captured_at"`
}

type PaymentFailedEvent struct {
	OrderID  int64  `json:"order_id"`
	IntentID string `json:"intent_id"`
	Reason   string `json:"reason"`
}

type LoyaltyVisitRecordedEvent struct {
	UserID     int64     `json:"user_id"`
	TenantID   string    `json:"tenant_id"`
	Visits     int       `json:"visits"`
	RecordedAt time.Time `json:"recorded_at"`
}

type UserSignedUpEvent struct {
	UserID   int64  `json:"user_id"`
	Email    string `json:"email"`
	TenantID string `json:"tenant_id"`
}

type UserPhoneVerifiedEvent struct {
	UserID int64  `json:"user_id"`
	Phone  string `json:"phone"`
}
