package domain

import "testing"

func TestOrderTotal(t *testing.T) {
	svc := &WashService{ID: 1, Category: "suv", PriceCents: 15000}
	extras := []Extra{
		{ID: 10, Name: "Wax", Prices: map[string]int64{"default": 2000, "suv": 3000}},
		{ID: 11, Name: "Interior", Prices: map[string]int64{"default": 5000}},
	}

	total := OrderTotal(svc, 2, extras, map[int64]int{10: 1, 11: 2})

	want := int64(2*15000 + 3000 + 2*5000)
	if total != want {
		t.Fatalf("total = %d, want %d", total, want)
	}
}

func TestOrderTotalIgnoresUnknownExtras(t *testing.T) {
	svc := &WashService{ID: 1, Category: "sedan", PriceCents: 10000}
	extras := []Extra{
		{ID: 10, Name: "Wax", Prices: map[string]int64{"default": 2000}},
	}

	total := OrderTotal(svc, 1, extras, map[int64]int{99: 5})

	if total != 10000 {
		t.Fatalf("total = %d, want 10000", total)
	}
}

func TestOrderTotalIsStable(t *testing.T) {
	svc := &WashService{ID: 1, Category: "sedan", PriceCents: 12500}
	extras := []Extra{
		{ID: 10, Name: "Wax", Prices: map[string]int64{"default": 2000}},
	}
	selected := map[int64]int{10: 1}

	first := OrderTotal(svc, 3, extras, selected)
	for i := 0; i < 5; i++ {
		if got := OrderTotal(svc, 3, extras, selected); got != first {
			t.Fatalf("total changed between calls: %d vs %d", got, first)
		}
	}
}

func TestExtraPriceFallsBackToDefault(t *testing.T) {
	extra := Extra{ID: 1, Prices: map[string]int64{"default": 1500, "suv": 2500}}

	if got := extra.PriceFor("suv"); got != 2500 {
		t.Fatalf("suv price = %d, want 2500", got)
	}
	if got := extra.PriceFor("hatchback"); got != 1500 {
		t.Fatalf("fallback price = %d, want 1500", got)
	}
}
