package prefetch

import (
	"context"
	"errors"
	"testing"
	"time"
)

// manualIdle queues scheduled work so tests control exactly when it runs.
type manualIdle struct {
	queue []func()
}

func (m *manualIdle) Schedule(fn func()) { m.queue = append(m.queue, fn) }

func (m *manualIdle) RunAll() {
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
	}
}

type probeFunc func() bool

func (p probeFunc) Constrained() bool { return p() }

// manualTimer captures retry callbacks instead of firing them on a clock.
type manualTimer struct {
	delays    []time.Duration
	callbacks []func()
}

func (m *manualTimer) After(d time.Duration, fn func()) {
	m.delays = append(m.delays, d)
	m.callbacks = append(m.callbacks, fn)
}

func (m *manualTimer) FireNext() bool {
	if len(m.callbacks) == 0 {
		return false
	}
	fn := m.callbacks[0]
	m.callbacks = m.callbacks[1:]
	m.delays = m.delays[1:]
	fn()
	return true
}

func TestScheduleIsIdempotent(t *testing.T) {
	idle := &manualIdle{}
	s := NewScheduler(WithIdleScheduler(idle))

	calls := 0
	s.Register(TargetLoyalty, func(ctx context.Context) error {
		calls++
		return nil
	})

	ctx := context.Background()
	s.Schedule(ctx, TargetLoyalty)
	s.Schedule(ctx, TargetLoyalty) // in flight, must not queue again
	idle.RunAll()
	s.Schedule(ctx, TargetLoyalty) // completed, must not queue again
	idle.RunAll()

	if calls != 1 {
		t.Fatalf("fetcher ran %d times, want 1", calls)
	}
	if !s.Completed(TargetLoyalty) {
		t.Fatal("target should be completed")
	}
}

func TestScheduleUnknownTargetIsNoop(t *testing.T) {
	idle := &manualIdle{}
	s := NewScheduler(WithIdleScheduler(idle))

	s.Schedule(context.Background(), Target("bogus"))
	if len(idle.queue) != 0 {
		t.Fatal("unknown target must not queue work")
	}
}

func TestFailuresStopAfterThreeAttempts(t *testing.T) {
	idle := &manualIdle{}
	timer := &manualTimer{}
	s := NewScheduler(WithIdleScheduler(idle), withAfter(timer.After))

	calls := 0
	s.Register(TargetAnalytics, func(ctx context.Context) error {
		calls++
		return errors.New("upstream down")
	})

	ctx := context.Background()
	s.Schedule(ctx, TargetAnalytics)
	idle.RunAll()

	// Each failure schedules a retry with a growing delay.
	if len(timer.delays) != 1 || timer.delays[0] != 2*time.Second {
		t.Fatalf("unexpected first retry delay: %v", timer.delays)
	}
	timer.FireNext()
	idle.RunAll()

	if len(timer.delays) != 1 || timer.delays[0] != 4*time.Second {
		t.Fatalf("unexpected second retry delay: %v", timer.delays)
	}
	timer.FireNext()
	idle.RunAll()

	if calls != 3 {
		t.Fatalf("fetcher ran %d times, want 3", calls)
	}
	if len(timer.callbacks) != 0 {
		t.Fatal("no retry may be scheduled after the attempt limit")
	}

	// The target is permanently parked; further schedules are no-ops.
	s.Schedule(ctx, TargetAnalytics)
	idle.RunAll()
	if calls != 3 {
		t.Fatalf("exhausted target ran again, calls = %d", calls)
	}
}

func TestConstrainedNetworkSkipsOnlyTheWarmStep(t *testing.T) {
	idle := &manualIdle{}
	constrained := true
	s := NewScheduler(
		WithIdleScheduler(idle),
		WithNetworkProbe(probeFunc(func() bool { return constrained })),
	)

	fetches, warms := 0, 0
	s.Register(TargetCatalog, func(ctx context.Context) error {
		fetches++
		return nil
	})
	s.RegisterWarm(TargetCatalog, func(ctx context.Context) error {
		warms++
		return nil
	})

	ctx := context.Background()
	s.Schedule(ctx, TargetCatalog)
	idle.RunAll()

	if fetches != 1 || !s.Completed(TargetCatalog) {
		t.Fatalf("the data fetch must run on a constrained network, fetches=%d", fetches)
	}
	if warms != 0 || s.Warmed(TargetCatalog) {
		t.Fatalf("the warm step must wait for an unconstrained network, warms=%d", warms)
	}

	// Still constrained: scheduling again must not sneak the warm in.
	s.Schedule(ctx, TargetCatalog)
	idle.RunAll()
	if warms != 0 {
		t.Fatalf("warm ran while constrained, warms=%d", warms)
	}

	constrained = false
	s.Schedule(ctx, TargetCatalog)
	idle.RunAll()

	if fetches != 1 || warms != 1 || !s.Warmed(TargetCatalog) {
		t.Fatalf("expected the pending warm to run once the network clears, fetches=%d warms=%d", fetches, warms)
	}

	s.Schedule(ctx, TargetCatalog)
	idle.RunAll()
	if warms != 1 {
		t.Fatalf("a warmed target must be a no-op, warms=%d", warms)
	}
}

func TestWarmRunsAfterFetchOnFastNetwork(t *testing.T) {
	idle := &manualIdle{}
	s := NewScheduler(WithIdleScheduler(idle))

	var order []string
	s.Register(TargetAdmin, func(ctx context.Context) error {
		order = append(order, "fetch")
		return nil
	})
	s.RegisterWarm(TargetAdmin, func(ctx context.Context) error {
		order = append(order, "warm")
		return nil
	})

	s.Schedule(context.Background(), TargetAdmin)
	idle.RunAll()

	if len(order) != 2 || order[0] != "fetch" || order[1] != "warm" {
		t.Fatalf("expected fetch then warm in one pass, got %v", order)
	}
	if !s.Completed(TargetAdmin) || !s.Warmed(TargetAdmin) {
		t.Fatal("target should be completed and warmed")
	}
}

func TestObserveRouteByRole(t *testing.T) {
	idle := &manualIdle{}
	s := NewScheduler(WithIdleScheduler(idle))

	ran := map[Target]int{}
	for _, target := range []Target{TargetCatalog, TargetLoyalty, TargetOrders, TargetAnalytics, TargetAdmin} {
		tg := target
		s.Register(tg, func(ctx context.Context) error {
			ran[tg]++
			return nil
		})
	}

	ctx := context.Background()

	s.ObserveRoute(ctx, "/", "user")
	idle.RunAll()
	if ran[TargetCatalog] != 1 || ran[TargetLoyalty] != 1 {
		t.Fatalf("user home should warm catalog and loyalty: %v", ran)
	}
	if ran[TargetAnalytics] != 0 || ran[TargetAdmin] != 0 {
		t.Fatalf("user must not warm back-office bundles: %v", ran)
	}

	s.Reset()
	ran = map[Target]int{}
	s.ObserveRoute(ctx, "/", "staff")
	idle.RunAll()
	if ran[TargetAnalytics] != 1 || ran[TargetOrders] != 1 {
		t.Fatalf("staff home should warm analytics and orders: %v", ran)
	}

	s.Reset()
	ran = map[Target]int{}
	s.ObserveRoute(ctx, "/dashboard", "admin")
	idle.RunAll()
	if ran[TargetAdmin] != 1 {
		t.Fatalf("admin should warm the admin bundle: %v", ran)
	}
}

func TestResetAllowsRefetch(t *testing.T) {
	idle := &manualIdle{}
	s := NewScheduler(WithIdleScheduler(idle))

	calls := 0
	s.Register(TargetLoyalty, func(ctx context.Context) error {
		calls++
		return nil
	})

	ctx := context.Background()
	s.Schedule(ctx, TargetLoyalty)
	idle.RunAll()
	s.Reset()
	s.Schedule(ctx, TargetLoyalty)
	idle.RunAll()

	if calls != 2 {
		t.Fatalf("fetcher ran %d times, want 2 after Reset", calls)
	}
}

func TestDefaultSingleton(t *testing.T) {
	ResetDefault()
	first := Default()
	if first != Default() {
		t.Fatal("Default must return the same scheduler")
	}
	ResetDefault()
	if first == Default() {
		t.Fatal("ResetDefault must discard the old scheduler")
	}
}
