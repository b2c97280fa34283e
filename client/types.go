package client

import "time"

// Profile is the authenticated user as returned by the who-am-I endpoint.
type Profile struct {
	ID                 int64  `json:"id"`
	Email              string `json:"email"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Phone              string `json:"phone"`
	Role               string `json:"role"`
	TenantID           string `json:"tenant_id"`
	Subscribed         bool   `json:"subscribed"`
	OnboardingComplete bool   `json:"onboarding_complete"`
}

// Elevated reports whether the profile belongs to back-office staff.
func (p *Profile) Elevated() bool {
	switch p.Role {
	case "staff", "admin", "developer", "superadmin":
		return true
	}
	return false
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// SignupRequest opens an account with an email and password. The account
// stays pending until phone verification completes onboarding.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TenantID string `json:"tenant_id,omitempty"`
}

type SignupResponse struct {
	Message string   `json:"message"`
	User    *Profile `json:"user"`
}

type RequestOTPResponse struct {
	SessionID string `json:"session_id"`
	ExpiresIn int    `json:"expires_in"`
}

// ConfirmOTPRequest carries the code plus the signup details collected by
// the onboarding wizard. For a returning user the detail fields are empty.
type ConfirmOTPRequest struct {
	SessionID string `json:"session_id"`
	Code      string `json:"code"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
	TenantID  string `json:"tenant_id,omitempty"`
	Subscribe bool   `json:"subscribe,omitempty"`
}

type WashService struct {
	ID          int64  `json:"id"`
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"price_cents"`
	DurationMin int    `json:"duration_min"`
	Active      bool   `json:"active"`
}

type Extra struct {
	ID     int64            `json:"id"`
	Name   string           `json:"name"`
	Prices map[string]int64 `json:"prices"`
}

// PriceFor returns the extra's price for a vehicle category, falling back
// to the "default" entry.
func (e *Extra) PriceFor(category string) int64 {
	if price, ok := e.Prices[category]; ok {
		return price
	}
	return e.Prices["default"]
}

type CreateOrderRequest struct {
	TenantID  string          `json:"tenant_id,omitempty"`
	ServiceID int64           `json:"service_id"`
	Quantity  int             `json:"quantity"`
	Extras    map[int64]int   `json:"extras,omitempty"`
	Date      string          `json:"date"`
	Time      string          `json:"time"`
	Vehicle   *VehicleDetails `json:"vehicle,omitempty"`
}

type VehicleDetails struct {
	Plate string `json:"plate,omitempty"`
	Make  string `json:"make,omitempty"`
	Color string `json:"color,omitempty"`
}

type CreateOrderResponse struct {
	OrderID int64  `json:"order_id"`
	QRData  string `json:"qr_data"`
}

type Order struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	TenantID    string    `json:"tenant_id"`
	ServiceID   int64     `json:"service_id"`
	Quantity    int       `json:"quantity"`
	TotalCents  int64     `json:"total_cents"`
	Status      string    `json:"status"`
	QRData      string    `json:"qr_data"`
	ScheduledAt time.Time `json:"scheduled_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type Reward struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	VisitsRequired int    `json:"visits_required"`
}

type LoyaltySummary struct {
	Visits          int      `json:"visits"`
	RewardsReady    []Reward `json:"rewards_ready"`
	UpcomingRewards []Reward `json:"upcoming_rewards"`
}

type TenantBranding struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Branding map[string]string `json:"branding"`
}

type AnalyticsSummary struct {
	TenantID     string    `json:"tenant_id"`
	TotalOrders  int64     `json:"total_orders"`
	PaidOrders   int64     `json:"paid_orders"`
	RevenueCents int64     `json:"revenue_cents"`
	TotalVisits  int64     `json:"total_visits"`
	ActiveUsers  int64     `json:"active_users"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// CatalogOptions filters the public catalog listing.
type CatalogOptions struct {
	TenantID string `url:"tenant_id,omitempty"`
}

// ListOptions is the shared pagination query for list endpoints.
type ListOptions struct {
	Limit  int `url:"limit,omitempty"`
	Offset int `url:"offset,omitempty"`
}
