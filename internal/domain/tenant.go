package domain

import "time"

// Tenant is a branded site instance of the platform.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Branding  Branding  `json:"branding"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Branding struct {
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	LogoURL        string `json:"logo_url"`
}

type UpdateTenantRequest struct {
	Name     *string   `json:"name,omitempty"`
	Branding *Branding `json:"branding,omitempty"`
}

func (r *UpdateTenantRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return E(KindValidation, "name cannot be empty")
	}
	return nil
}

// ModuleFlag enables or disables a feature module for a tenant.
type ModuleFlag struct {
	TenantID  string    `json:"tenant_id"`
	Module    string    `json:"module"`
	Enabled   bool      `json:"enabled"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SetModuleFlagRequest struct {
	Module  string `json:"module"`
	Enabled bool   `json:"enabled"`
}

func (r *SetModuleFlagRequest) Validate() error {
	if r.Module == "" {
		return E(KindValidation, "module is required")
	}
	return nil
}

// AnalyticsSummary is the admin dashboard payload; served from the warm
// cache when present.
type AnalyticsSummary struct {
	TenantID     string    `json:"tenant_id"`
	TotalOrders  int64     `json:"total_orders"`
	PaidOrders   int64     `json:"paid_orders"`
	RevenueCents int64     `json:"revenue_cents"`
	TotalVisits  int64     `json:"total_visits"`
	ActiveUsers  int64     `json:"active_users"`
	GeneratedAt  time.Time `json:"generated_at"`
}
