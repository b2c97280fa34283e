package wizard_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/washloop/washloop-api/client"
	"github.com/washloop/washloop-api/client/wizard"
)

func catalogServer(t *testing.T, failOrders *atomic.Bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /services", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]client.WashService{
			{ID: 1, Name: "Express Wash", Category: "sedan", PriceCents: 10000, Active: true},
			{ID: 2, Name: "Full Valet", Category: "suv", PriceCents: 35000, Active: true},
			{ID: 3, Name: "Retired Package", Category: "sedan", PriceCents: 5000, Active: false},
		})
	})
	mux.HandleFunc("GET /services/extras", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]client.Extra{
			{ID: 10, Name: "Wax", Prices: map[string]int64{"default": 2000, "suv": 3000}},
			{ID: 11, Name: "Interior", Prices: map[string]int64{"default": 5000}},
		})
	})
	mux.HandleFunc("POST /orders/create", func(w http.ResponseWriter, r *http.Request) {
		if failOrders != nil && failOrders.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "boom", "code": "INTERNAL_ERROR"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(client.CreateOrderResponse{OrderID: 42, QRData: "washloop:order:abc"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newBooking(t *testing.T, srv *httptest.Server, drafts wizard.DraftStore) *wizard.Booking {
	t.Helper()
	b := wizard.NewBooking(client.New(srv.URL), drafts, "default")
	if err := b.LoadCatalog(context.Background()); err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	return b
}

func TestBookingForwardGate(t *testing.T) {
	srv := catalogServer(t, nil)
	b := newBooking(t, srv, wizard.NewMemoryDrafts())

	if b.CanProceed() {
		t.Fatal("service step must not pass with no selection")
	}
	if err := b.Next(); err == nil {
		t.Fatal("Next must refuse with an unmet gate")
	}

	if err := b.SelectService(1); err != nil {
		t.Fatalf("SelectService failed: %v", err)
	}
	if !b.CanProceed() {
		t.Fatal("service step should pass after selection")
	}
	if err := b.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if b.Step() != wizard.StepExtras {
		t.Fatalf("step = %s, want extras", b.Step())
	}
}

func TestBookingRejectsInactiveService(t *testing.T) {
	srv := catalogServer(t, nil)
	b := newBooking(t, srv, wizard.NewMemoryDrafts())

	if err := b.SelectService(3); err == nil {
		t.Fatal("expected inactive service to be rejected")
	}
	if err := b.SelectService(99); err == nil {
		t.Fatal("expected unknown service to be rejected")
	}
}

func TestBookingBackwardFreeForwardGated(t *testing.T) {
	srv := catalogServer(t, nil)
	b := newBooking(t, srv, wizard.NewMemoryDrafts())

	b.SelectService(1)
	b.Next() // extras
	b.Next() // schedule

	if err := b.GoTo(wizard.StepService); err != nil {
		t.Fatalf("backward jump failed: %v", err)
	}
	if err := b.GoTo(wizard.StepSchedule); err != nil {
		t.Fatalf("jump to a reached step failed: %v", err)
	}
	if err := b.GoTo(wizard.StepReview); err == nil {
		t.Fatal("jump past the reached step must fail")
	}
}

func TestBookingTotalIsPure(t *testing.T) {
	srv := catalogServer(t, nil)
	b := newBooking(t, srv, wizard.NewMemoryDrafts())

	b.SelectService(2) // suv, 35000
	b.SetQuantity(2)
	b.SetExtra(10, 1) // suv wax, 3000
	b.SetExtra(11, 1) // interior default, 5000

	want := int64(2*35000 + 3000 + 5000)
	first := b.Total()
	if first != want {
		t.Fatalf("total = %d, want %d", first, want)
	}
	for i := 0; i < 5; i++ {
		if got := b.Total(); got != first {
			t.Fatalf("total changed on repeat call: %d vs %d", got, first)
		}
	}
}

func TestBookingServiceChangeDropsExtras(t *testing.T) {
	srv := catalogServer(t, nil)
	b := newBooking(t, srv, wizard.NewMemoryDrafts())

	b.SelectService(2)
	b.SetExtra(10, 1)
	b.SelectService(1)

	if got := b.Total(); got != 10000 {
		t.Fatalf("total after service change = %d, want 10000", got)
	}
}

func TestBookingDraftResume(t *testing.T) {
	srv := catalogServer(t, nil)
	drafts := wizard.NewMemoryDrafts()

	b := newBooking(t, srv, drafts)
	b.SelectService(1)
	b.SetQuantity(3)
	b.Next()
	b.SetExtra(11, 1)
	b.Next()
	b.SetSchedule("2026-09-01", "10:30")

	// A new wizard over the same store resumes where the first left off.
	resumed := newBooking(t, srv, drafts)
	if resumed.Step() != wizard.StepSchedule {
		t.Fatalf("resumed step = %s, want schedule", resumed.Step())
	}
	if got := resumed.Total(); got != int64(3*10000+5000) {
		t.Fatalf("resumed total = %d, want %d", got, 3*10000+5000)
	}
}

func TestBookingSubmitFailureKeepsDraft(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)

	srv := catalogServer(t, &fail)
	drafts := wizard.NewMemoryDrafts()
	b := newBooking(t, srv, drafts)

	b.SelectService(1)
	b.Next()
	b.Next()
	b.SetSchedule("2026-09-01", "10:30")

	if _, err := b.Submit(context.Background()); err == nil {
		t.Fatal("expected submit to fail")
	}

	// Draft is intact; the same submission succeeds once the server does.
	fail.Store(false)
	resp, err := b.Submit(context.Background())
	if err != nil {
		t.Fatalf("retry submit failed: %v", err)
	}
	if resp.OrderID != 42 || resp.QRData == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	// Success clears the draft.
	resumed := newBooking(t, srv, drafts)
	if resumed.Step() != wizard.StepService || resumed.Total() != 0 {
		t.Fatal("expected a fresh draft after a successful submit")
	}
}

func TestBookingSubmitRefusesIncomplete(t *testing.T) {
	srv := catalogServer(t, nil)
	b := newBooking(t, srv, wizard.NewMemoryDrafts())

	b.SelectService(1)
	if _, err := b.Submit(context.Background()); err == nil {
		t.Fatal("expected submit to refuse an incomplete booking")
	}
}
