package domain

import (
	"time"
)

// Order statuses
const (
	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderRedeemed  = "redeemed"
	OrderCancelled = "cancelled"
)

type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	TenantID    string          `json:"tenant_id"`
	ServiceID   int64           `json:"service_id"`
	Quantity    int             `json:"quantity"`
	Extras      map[int64]int   `json:"extras"` // extra ID -> quantity
	ScheduledAt time.Time       `json:"scheduled_at"`
	TotalCents  int64           `json:"total_cents"`
	Status      string          `json:"status"`
	QRData      string          `json:"qr_data"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CreateOrderRequest struct {
	ServiceID int64         `json:"service_id"`
	Quantity  int           `json:"quantity"`
	Extras    map[int64]int `json:"extras,omitempty"`
	Date      string        `json:"date"` // YYYY-MM-DD
	Time      string        `json:"time"` // HH:MM
	TenantID  string        `json:"tenant_id,omitempty"`
}

type CreateOrderResponse struct {
	OrderID int64  `json:"order_id"`
	QRData  string `json:"qr_data"`
}

func (r *CreateOrderRequest) Validate() error {
	if r.ServiceID == 0 {
		return E(KindValidation, "service_id is required")
	}
	if r.Quantity < 1 {
		return E(KindValidation, "quantity must be at least 1")
	}
	for _, qty := range r.Extras {
		if qty < 1 {
			return E(KindValidation, "extra quantity must be at least 1")
		}
	}
	if r.Date == "" || r.Time == "" {
		return E(KindValidation, "date and time are required")
	}
	if _, err := r.ScheduledAt(); err != nil {
		return E(KindValidation, "invalid date or time format")
	}
	return nil
}

func (r *CreateOrderRequest) ScheduledAt() (time.Time, error) {
	return time.Parse("2006-01-02 15:04", r.Date+" "+r.Time)
}

// OrderTotal recomputes an order total from its inputs. The total is never
// stored independently of the quantities that produced it: every caller
// that needs it derives it through this function.
func OrderTotal(service *WashService, quantity int, extras []Extra, selected map[int64]int) int64 {
	total := service.PriceCents * int64(quantity)
	for _, extra := range extras {
		qty, ok := selected[extra.ID]
		if !ok {
			continue
		}
		total += extra.PriceFor(service.Category) * int64(qty)
	}
	return total
}
