package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/washloop/washloop-api/internal/domain"
	"github.com/washloop/washloop-api/internal/repo/postgres"
	"github.com/washloop/washloop-api/pkg/events"
	"github.com/washloop/washloop-api/pkg/logger"
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID int64, tenantID string, req *domain.CreateOrderRequest) (*domain.CreateOrderResponse, error)
	GetOrder(ctx context.Context, orderID int64, actorID int64, actorRole string) (*domain.Order, error)
	ListMyOrders(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, error)
	CancelOrder(ctx context.Context, orderID int64, actorID int64, actorRole string, reason string) error
	RedeemOrder(ctx context.Context, orderID int64, actorRole string) error
}

type orderService struct {
	orderRepo   postgres.OrderRepository
	catalogRepo postgres.CatalogRepository
	eventBus    events.EventBus
}

func NewOrderService(
	orderRepo postgres.OrderRepository,
	catalogRepo postgres.CatalogRepository,
	eventBus events.EventBus,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		catalogRepo: catalogRepo,
		eventBus:    eventBus,
	}
}

// CreateOrder prices the order from catalog rows. The client never supplies
// a total: it is always recomputed from service price, quantity, and the
// selected extras' category prices.
func (s *orderService) CreateOrder(ctx context.Context, userID int64, tenantID string, req *domain.CreateOrderRequest) (*domain.CreateOrderResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	washService, err := s.catalogRepo.FindService(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	if washService == nil || !washService.Active {
		return nil, domain.E(domain.KindNotFound, "service not found")
	}
	if tenantID == "" {
		tenantID = washService.TenantID
	}

	extras, err := s.catalogRepo.ListExtras(ctx, washService.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load extras: %w", err)
	}
	known := make(map[int64]bool, len(extras))
	for _, e := range extras {
		known[e.ID] = true
	}
	for id := range req.Extras {
		if !known[id] {
			return nil, domain.Ef(domain.KindValidation, "unknown extra: %d", id)
		}
	}

	scheduledAt, err := req.ScheduledAt()
	if err != nil {
		return nil, domain.E(domain.KindValidation, "invalid date or time format")
	}

	total := domain.OrderTotal(washService, req.Quantity, extras, req.Extras)

	order := &domain.Order{
		UserID:      userID,
		TenantID:    tenantID,
		ServiceID:   washService.ID,
		Quantity:    req.Quantity,
		Extras:      req.Extras,
		ScheduledAt: scheduledAt,
		TotalCents:  total,
		Status:      domain.OrderPending,
		QRData:      "washloop:order:" + uuid.NewString(),
	}
	if order.Extras == nil {
		order.Extras = map[int64]int{}
	}

	order, err = s.orderRepo.Create(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.OrderCreated, events.OrderCreatedEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TenantID:    order.TenantID,
		ServiceID:   order.ServiceID,
		TotalCents:  order.TotalCents,
		ScheduledAt: order.ScheduledAt,
		CreatedAt:   order.CreatedAt,
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish order created event", "error", err, "order_id", order.ID)
	}

	return &domain.CreateOrderResponse{
		OrderID: order.ID,
		QRData:  order.QRData,
	}, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID int64, actorID int64, actorRole string) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, domain.E(domain.KindNotFound, "order not found")
	}
	if order.UserID != actorID && !domain.IsElevatedRole(actorRole) {
		return nil, domain.E(domain.KindForbidden, "not your order")
	}
	return order, nil
}

func (s *orderService) ListMyOrders(ctx context.Context, userID int64, limit, offset int) ([]domain.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) CancelOrder(ctx context.Context, orderID int64, actorID int64, actorRole string, reason string) error {
	order, err := s.GetOrder(ctx, orderID, actorID, actorRole)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderPending {
		return domain.Ef(domain.KindConflict, "cannot cancel a %s order", order.Status)
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, domain.OrderCancelled); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.OrderCancelled, events.OrderCancelledEvent{
		OrderID:     orderID,
		UserID:      order.UserID,
		Reason:      reason,
		CancelledAt: time.Now(),
	}); err != nil {
		logger.WarnContext(ctx, "Failed to publish order cancelled event", "error", err, "order_id", orderID)
	}
	return nil
}

// RedeemOrder is used at the wash bay when staff scan the order's QR code.
func (s *orderService) RedeemOrder(ctx context.Context, orderID int64, actorRole string) error {
	if !domain.IsElevatedRole(actorRole) {
		return domain.E(domain.KindForbidden, "staff access required")
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return domain.E(domain.KindNotFound, "order not found")
	}
	if order.Status != domain.OrderPaid {
		return domain.Ef(domain.KindConflict, "cannot redeem a %s order", order.Status)
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, domain.OrderRedeemed); err != nil {
		return fmt.Errorf("failed to redeem order: %w", err)
	}

	if err := s.eventBus.Publish(ctx, events.OrderRedeemed, map[string]int64{"order_id": orderID}); err != nil {
		logger.WarnContext(ctx, "Failed to publish order redeemed event", "error", err, "order_id", orderID)
	}
	return nil
}
