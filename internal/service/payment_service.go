package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/washloop/washloop-api/internal/domain"
	"github.com/washloop/washloop-api/internal/mailer"
	"github.com/washloop/washloop-api/internal/repo/postgres"
	"github.com/washloop/washloop-api/pkg/config"
	"github.com/washloop/washloop-api/pkg/events"
	"github.com/washloop/washloop-api/pkg/logger"
)

type PaymentService interface {
	CreateIntent(ctx context.Context, userID, orderID int64) (*PaymentIntentResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type PaymentIntentResponse struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
}

type paymentService struct {
	orderRepo postgres.OrderRepository
	userRepo  postgres.UserRepository
	mailer    mailer.Service
	eventBus  events.EventBus
	config    *config.Config
}

func NewPaymentService(
	orderRepo postgres.OrderRepository,
	userRepo postgres.UserRepository,
	mailer mailer.Service,
	eventBus events.EventBus,
	cfg *config.Config,
) PaymentService {
	stripe.Key = cfg.Stripe.SecretKey
	return &paymentService{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		mailer:    mailer,
		eventBus:  eventBus,
		config:    cfg,
	}
}

func (s *paymentService) CreateIntent(ctx context.Context, userID, orderID int64) (*PaymentIntentResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, domain.E(domain.KindNotFound, "order not found")
	}
	if order.UserID != userID {
		return nil, domain.E(domain.KindForbidden, "not your order")
	}
	if order.Status != domain.OrderPending {
		return nil, domain.Ef(domain.KindConflict, "order is already %s", order.Status)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(order.TotalCents),
		Currency: stripe.String(s.config.Stripe.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_id", strconv.FormatInt(order.ID, 10))
	params.AddMetadata("user_id", strconv.FormatInt(order.UserID, 10))
	params.AddMetadata("tenant_id", order.TenantID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.PaymentIntentCreated, map[string]any{
		"order_id":  order.ID,
		"intent_id": intent.ID,
		"amount":    order.TotalCents,
		"currency":  s.config.Stripe.Currency,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish payment intent event", "error", err, "order_id", order.ID)
	}

	return &PaymentIntentResponse{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountCents:  order.TotalCents,
		Currency:     s.config.Stripe.Currency,
	}, nil
}

// HandleWebhook verifies the Stripe signature and marks orders paid on
// payment_intent.succeeded. Replays are safe: an already-paid order is
// left untouched.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, s.config.Stripe.WebhookSecret)
	if err != nil {
		return domain.Wrap(domain.KindValidation, "invalid webhook signature", err)
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return fmt.Errorf("failed to parse payment intent: %w", err)
		}
		return s.markOrderPaid(ctx, &intent)

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return fmt.Errorf("failed to parse payment intent: %w", err)
		}
		orderID, _ := strconv.ParseInt(intent.Metadata["order_id"], 10, 64)
		if err := s.eventBus.Publish(ctx, events.PaymentFailed, events.PaymentFailedEvent{
			OrderID:  orderID,
			IntentID: intent.ID,
			Reason:   string(intent.Status),
		}); err != nil {
			logger.WarnContext(ctx, "Failed to publish payment failed event", "error", err, "order_id", orderID)
		}
		return nil

	default:
		logger.DebugContext(ctx, "Ignoring webhook event", "type", event.Type)
		return nil
	}
}

func (s *paymentService) markOrderPaid(ctx context.Context, intent *stripe.PaymentIntent) error {
	orderID, err := strconv.ParseInt(intent.Metadata["order_id"], 10, 64)
	if err != nil {
		return fmt.Errorf("webhook missing order_id metadata: %w", err)
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return domain.E(domain.KindNotFound, "order not found")
	}
	if order.Status != domain.OrderPending {
		logger.InfoContext(ctx, "Webhook replay for settled order", "order_id", orderID, "status", order.Status)
		return nil
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, domain.OrderPaid); err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.PaymentCaptured, events.PaymentCapturedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TenantID:    order.TenantID,
		AmountCents: order.TotalCents,
		Currency:    s.config.Stripe.Currency,
		CapturedAt:  time.Now(),
	}); err != nil {
		logger.ErrorContext(ctx, "Failed to publish payment captured event", "error", err, "order_id", order.ID)
	}

	user, err := s.userRepo.FindByID(ctx, order.UserID)
	if err == nil && user != nil {
		if err := s.mailer.SendReceiptEmail(user.Email, user.FirstName, order.ID, order.TotalCents); err != nil {
			logger.WarnContext(ctx, "Failed to send receipt email", "error", err, "order_id", order.ID)
		}
	}

	return nil
}
