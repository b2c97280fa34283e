package domain

import "time"

// WashService is a bookable catalog entry (e.g. "Executive Wash" in the
// "sedan" category).
type WashService struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"price_cents"`
	DurationMin int       `json:"duration_min"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Extra is an add-on whose price depends on the vehicle category of the
// selected service (a tyre shine costs more on an SUV than a sedan).
type Extra struct {
	ID     int64            `json:"id"`
	Name   string           `json:"name"`
	Prices map[string]int64 `json:"prices"` // category -> price cents
}

// PriceFor returns the extra's price for a category, falling back to the
// "default" entry when the category has no dedicated price.
func (e *Extra) PriceFor(category string) int64 {
	if p, ok := e.Prices[category]; ok {
		return p
	}
	return e.Prices["default"]
}
