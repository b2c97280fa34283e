package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/washloop/washloop-api/client"
)

// BookingStep identifies one screen of the booking flow. Steps are
// ordered; forward movement is gated, backward movement is free.
type BookingStep int

const (
	StepService BookingStep = iota
	StepExtras
	StepSchedule
	StepVehicle
	StepReview
)

func (s BookingStep) String() string {
	switch s {
	case StepService:
		return "service"
	case StepExtras:
		return "extras"
	case StepSchedule:
		return "schedule"
	case StepVehicle:
		return "vehicle"
	case StepReview:
		return "review"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// bookingDraft is the serialized snapshot of an in-progress booking.
type bookingDraft struct {
	Step      BookingStep            `json:"step"`
	Reached   BookingStep            `json:"reached"`
	ServiceID int64                  `json:"service_id"`
	Quantity  int                    `json:"quantity"`
	Extras    map[int64]int          `json:"extras"`
	Date      string                 `json:"date"`
	Time      string                 `json:"time"`
	Vehicle   *client.VehicleDetails `json:"vehicle,omitempty"`
}

// Booking drives the booking wizard. All price math is derived from the
// loaded catalog on demand; no total is ever stored in the draft, so a
// stale snapshot can never present a stale price.
type Booking struct {
	api      *client.Client
	drafts   DraftStore
	tenantID string

	mu       sync.Mutex
	draft    bookingDraft
	services []client.WashService
	extras   []client.Extra
}

func draftKey(tenantID string) string { return "booking:" + tenantID }

// NewBooking creates a booking wizard and resumes any saved draft for the
// tenant.
func NewBooking(api *client.Client, drafts DraftStore, tenantID string) *Booking {
	b := &Booking{
		api:      api,
		drafts:   drafts,
		tenantID: tenantID,
		draft:    bookingDraft{Quantity: 1, Extras: map[int64]int{}},
	}

	var saved bookingDraft
	if err := drafts.LoadDraft(draftKey(tenantID), &saved); err == nil {
		if saved.Extras == nil {
			saved.Extras = map[int64]int{}
		}
		if saved.Quantity < 1 {
			saved.Quantity = 1
		}
		b.draft = saved
	}
	return b
}

// LoadCatalog fetches the tenant's services and extras. Selections are
// validated against this catalog.
func (b *Booking) LoadCatalog(ctx context.Context) error {
	opts := &client.CatalogOptions{TenantID: b.tenantID}

	services, err := b.api.Services(ctx, opts)
	if err != nil {
		return err
	}
	extras, err := b.api.Extras(ctx, opts)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.services = services
	b.extras = extras
	b.mu.Unlock()
	return nil
}

// Step returns the current step.
func (b *Booking) Step() BookingStep {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft.Step
}

// SelectService picks a wash service. The service must exist in the
// loaded catalog and be active.
func (b *Booking) SelectService(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	svc := b.findService(id)
	if svc == nil {
		return errors.New("unknown service")
	}
	if !svc.Active {
		return errors.New("service is not available")
	}

	if b.draft.ServiceID != id {
		// Extras are priced per vehicle category; a service change
		// invalidates them.
		b.draft.Extras = map[int64]int{}
	}
	b.draft.ServiceID = id
	return b.persist()
}

// SetQuantity sets the number of washes, at least one.
func (b *Booking) SetQuantity(qty int) error {
	if qty < 1 {
		return errors.New("quantity must be at least 1")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.Quantity = qty
	return b.persist()
}

// SetExtra sets the quantity for an add-on extra. Zero removes it.
func (b *Booking) SetExtra(id int64, qty int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.findExtra(id) == nil {
		return errors.New("unknown extra")
	}
	if qty < 0 {
		return errors.New("extra quantity cannot be negative")
	}

	if qty == 0 {
		delete(b.draft.Extras, id)
	} else {
		b.draft.Extras[id] = qty
	}
	return b.persist()
}

// SetSchedule records the requested date and time slot.
func (b *Booking) SetSchedule(date, timeSlot string) error {
	if date == "" || timeSlot == "" {
		return errors.New("date and time are required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.Date = date
	b.draft.Time = timeSlot
	return b.persist()
}

// SetVehicle records optional vehicle details.
func (b *Booking) SetVehicle(v *client.VehicleDetails) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.Vehicle = v
	return b.persist()
}

// CanProceed reports whether the current step's requirements are met.
func (b *Booking) CanProceed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gateSatisfied(b.draft.Step)
}

func (b *Booking) gateSatisfied(step BookingStep) bool {
	switch step {
	case StepService:
		return b.draft.ServiceID != 0 && b.draft.Quantity >= 1
	case StepExtras:
		// Extras are optional.
		return true
	case StepSchedule:
		return b.draft.Date != "" && b.draft.Time != ""
	case StepVehicle:
		return true
	case StepReview:
		return b.gateSatisfied(StepService) && b.gateSatisfied(StepSchedule)
	}
	return false
}

// Next advances one step, refusing when the current gate is unmet.
func (b *Booking) Next() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.draft.Step >= StepReview {
		return errors.New("already at the last step")
	}
	if !b.gateSatisfied(b.draft.Step) {
		return fmt.Errorf("step %s is incomplete", b.draft.Step)
	}

	b.draft.Step++
	if b.draft.Step > b.draft.Reached {
		b.draft.Reached = b.draft.Step
	}
	return b.persist()
}

// Back moves one step back. Backward movement is always allowed.
func (b *Booking) Back() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.draft.Step == StepService {
		return nil
	}
	b.draft.Step--
	return b.persist()
}

// GoTo jumps to a step. Jumping backward is free; jumping forward is only
// allowed to steps already reached.
func (b *Booking) GoTo(step BookingStep) error {
	if step < StepService || step > StepReview {
		return errors.New("unknown step")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if step > b.draft.Reached {
		return errors.New("cannot skip ahead")
	}
	b.draft.Step = step
	return b.persist()
}

// Total recomputes the order total from the catalog and the current
// selections. It is a pure function of the draft: calling it any number
// of times yields the same result and mutates nothing.
func (b *Booking) Total() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	svc := b.findService(b.draft.ServiceID)
	if svc == nil {
		return 0
	}

	total := svc.PriceCents * int64(b.draft.Quantity)
	for id, qty := range b.draft.Extras {
		extra := b.findExtra(id)
		if extra == nil {
			continue
		}
		total += extra.PriceFor(svc.Category) * int64(qty)
	}
	return total
}

// Submit sends the booking. The draft is cleared only after the server
// accepts the order; a failed submit leaves it intact for another try.
func (b *Booking) Submit(ctx context.Context) (*client.CreateOrderResponse, error) {
	b.mu.Lock()
	if !b.gateSatisfied(StepReview) {
		b.mu.Unlock()
		return nil, errors.New("booking is incomplete")
	}
	req := &client.CreateOrderRequest{
		TenantID:  b.tenantID,
		ServiceID: b.draft.ServiceID,
		Quantity:  b.draft.Quantity,
		Extras:    b.draft.Extras,
		Date:      b.draft.Date,
		Time:      b.draft.Time,
		Vehicle:   b.draft.Vehicle,
	}
	b.mu.Unlock()

	resp, err := b.api.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.draft = bookingDraft{Quantity: 1, Extras: map[int64]int{}}
	b.drafts.ClearDraft(draftKey(b.tenantID))
	b.mu.Unlock()

	return resp, nil
}

func (b *Booking) persist() error {
	return b.drafts.SaveDraft(draftKey(b.tenantID), b.draft)
}

func (b *Booking) findService(id int64) *client.WashService {
	for i := range b.services {
		if b.services[i].ID == id {
			return &b.services[i]
		}
	}
	return nil
}

func (b *Booking) findExtra(id int64) *client.Extra {
	for i := range b.extras {
		if b.extras[i].ID == id {
			return &b.extras[i]
		}
	}
	return nil
}
