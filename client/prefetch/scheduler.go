// Package prefetch warms client-side data during idle time so the next
// screen's data is already on hand. Every target is attempted at most a
// bounded number of times and never more than once concurrently. A target
// has a light data fetch, which runs on any network, and an optional heavy
// warm step that steps aside on a constrained network and is picked up by
// a later Schedule.
package prefetch

import (
	"context"
	"sync"
	"time"

	"github.com/washloop/washloop-api/client"
)

// Target names one prefetchable bundle.
type Target string

const (
	TargetCatalog   Target = "catalog"
	TargetLoyalty   Target = "loyalty"
	TargetOrders    Target = "orders"
	TargetAnalytics Target = "analytics"
	TargetAdmin     Target = "admin"
)

// Fetcher loads one target's data into whatever cache the caller uses.
type Fetcher func(ctx context.Context) error

// IdleScheduler defers a unit of work until the host application is idle.
type IdleScheduler interface {
	Schedule(fn func())
}

// NetworkProbe reports whether the network is currently constrained, for
// example metered or saturated. Heavy warm steps step aside on a
// constrained network; light data fetches and foreground requests still go
// through.
type NetworkProbe interface {
	Constrained() bool
}

// goIdle runs work immediately on a goroutine. It is the default when no
// host idle hook is available.
type goIdle struct{}

func (goIdle) Schedule(fn func()) { go fn() }

// alwaysFast is the default probe; it never reports a constrained network.
type alwaysFast struct{}

func (alwaysFast) Constrained() bool { return false }

const (
	maxAttempts = 3
	backoffStep = 2 * time.Second
)

type targetState struct {
	completed bool
	warmed    bool
	inflight  bool
	attempts  int
}

// Scheduler tracks per-target prefetch state. Scheduling is idempotent: a
// target that is completed, already in flight, or out of attempts is a
// no-op, so callers can schedule on every route change without thought.
type Scheduler struct {
	idle  IdleScheduler
	probe NetworkProbe
	after func(time.Duration, func())

	mu       sync.Mutex
	fetchers map[Target]Fetcher
	warmers  map[Target]Fetcher
	states   map[Target]*targetState
}

type Option func(*Scheduler)

// WithIdleScheduler plugs in the host application's idle hook.
func WithIdleScheduler(idle IdleScheduler) Option {
	return func(s *Scheduler) { s.idle = idle }
}

// WithNetworkProbe plugs in a connectivity probe.
func WithNetworkProbe(probe NetworkProbe) Option {
	return func(s *Scheduler) { s.probe = probe }
}

// withAfter overrides the retry timer, for tests.
func withAfter(after func(time.Duration, func())) Option {
	return func(s *Scheduler) { s.after = after }
}

func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		idle:     goIdle{},
		probe:    alwaysFast{},
		after:    func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		fetchers: make(map[Target]Fetcher),
		warmers:  make(map[Target]Fetcher),
		states:   make(map[Target]*targetState),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register installs the light data fetcher for a target. Registering again
// replaces the fetcher and resets the target's state.
func (s *Scheduler) Register(target Target, fetch Fetcher) {
	s.mu.Lock()
	s.fetchers[target] = fetch
	s.states[target] = &targetState{}
	s.mu.Unlock()
}

// RegisterWarm installs the optional heavy warm step for a target. It runs
// after the data fetch succeeds, only on an unconstrained network, and is
// best effort: a skipped or failed warm leaves the target completed and a
// later Schedule retries just the warm.
func (s *Scheduler) RegisterWarm(target Target, warm Fetcher) {
	s.mu.Lock()
	s.warmers[target] = warm
	s.mu.Unlock()
}

// Schedule queues a prefetch for the target during idle time. Calling it
// repeatedly for the same target causes at most one data attempt; on a
// completed target it only picks up a pending warm step.
func (s *Scheduler) Schedule(ctx context.Context, target Target) {
	s.mu.Lock()
	fetch, ok := s.fetchers[target]
	if !ok {
		s.mu.Unlock()
		return
	}
	st := s.states[target]
	if st.inflight {
		s.mu.Unlock()
		return
	}
	if st.completed {
		warm, pending := s.warmers[target]
		if !pending || st.warmed {
			s.mu.Unlock()
			return
		}
		st.inflight = true
		s.mu.Unlock()
		s.idle.Schedule(func() { s.runWarm(ctx, target, warm) })
		return
	}
	if st.attempts >= maxAttempts {
		s.mu.Unlock()
		return
	}
	st.inflight = true
	s.mu.Unlock()

	s.idle.Schedule(func() { s.run(ctx, target, fetch) })
}

func (s *Scheduler) run(ctx context.Context, target Target, fetch Fetcher) {
	s.mu.Lock()
	st := s.states[target]
	st.attempts++
	attempt := st.attempts
	s.mu.Unlock()

	err := fetch(ctx)

	s.mu.Lock()
	if err != nil {
		st.inflight = false
		exhausted := st.attempts >= maxAttempts
		s.mu.Unlock()
		if exhausted {
			return
		}
		s.after(time.Duration(attempt)*backoffStep, func() {
			s.Schedule(ctx, target)
		})
		return
	}

	st.completed = true
	warm, ok := s.warmers[target]
	if !ok {
		st.inflight = false
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.runWarm(ctx, target, warm)
}

func (s *Scheduler) runWarm(ctx context.Context, target Target, warm Fetcher) {
	if s.probe.Constrained() {
		// Skip the heavy step; the data is already fetched and a later
		// Schedule retries the warm when conditions improve.
		s.mu.Lock()
		s.states[target].inflight = false
		s.mu.Unlock()
		return
	}

	err := warm(ctx)

	s.mu.Lock()
	st := s.states[target]
	st.inflight = false
	if err == nil {
		st.warmed = true
	}
	s.mu.Unlock()
}

// Completed reports whether the target has been successfully prefetched.
func (s *Scheduler) Completed(target Target) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[target]
	return ok && st.completed
}

// Warmed reports whether the target's heavy warm step has also run. A
// target with no warm step registered never reports warmed.
func (s *Scheduler) Warmed(target Target) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[target]
	return ok && st.warmed
}

// Attempts returns how many attempts have run for the target.
func (s *Scheduler) Attempts(target Target) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[target]
	if !ok {
		return 0
	}
	return st.attempts
}

// Reset clears all target state, leaving fetchers registered. Mainly for
// tests and for logout, when cached per-user data must be refetched.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	for target := range s.states {
		s.states[target] = &targetState{}
	}
	s.mu.Unlock()
}

// ObserveRoute schedules the bundles worth having ready for the given
// route and role. Regular users get catalog and loyalty data on the home
// screen; staff get the day's analytics and order history; admins get the
// admin bundle as soon as they land anywhere in the back office.
func (s *Scheduler) ObserveRoute(ctx context.Context, route, role string) {
	switch {
	case route == "/" && (role == "" || role == "user"):
		s.Schedule(ctx, TargetCatalog)
		s.Schedule(ctx, TargetLoyalty)
	case route == "/" || route == "/dashboard":
		s.Schedule(ctx, TargetAnalytics)
		s.Schedule(ctx, TargetOrders)
	}

	switch role {
	case "admin", "developer", "superadmin":
		s.Schedule(ctx, TargetAdmin)
	}
}

// RegisterDefaults wires the standard targets to API calls. The results
// land in the HTTP cache layer; completion alone is what later screens
// benefit from. The bulkier secondary payloads go in as warm steps so a
// constrained network still gets the primary data.
func RegisterDefaults(s *Scheduler, api *client.Client, tenantID string) {
	opts := &client.CatalogOptions{TenantID: tenantID}

	s.Register(TargetCatalog, func(ctx context.Context) error {
		_, err := api.Services(ctx, opts)
		return err
	})
	s.RegisterWarm(TargetCatalog, func(ctx context.Context) error {
		_, err := api.Extras(ctx, opts)
		return err
	})
	s.Register(TargetLoyalty, func(ctx context.Context) error {
		_, err := api.Loyalty(ctx)
		return err
	})
	s.Register(TargetOrders, func(ctx context.Context) error {
		_, err := api.Orders(ctx, &client.ListOptions{Limit: 20})
		return err
	})
	s.Register(TargetAnalytics, func(ctx context.Context) error {
		_, err := api.Analytics(ctx, opts)
		return err
	})
	s.Register(TargetAdmin, func(ctx context.Context) error {
		_, err := api.Analytics(ctx, opts)
		return err
	})
	s.RegisterWarm(TargetAdmin, func(ctx context.Context) error {
		_, err := api.Branding(ctx, opts)
		return err
	})
}

var (
	defaultMu        sync.Mutex
	defaultScheduler *Scheduler
)

// Default returns the process-wide scheduler, creating it on first use.
func Default() *Scheduler {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultScheduler == nil {
		defaultScheduler = NewScheduler()
	}
	return defaultScheduler
}

// ResetDefault discards the process-wide scheduler so the next Default
// call builds a fresh one. For tests.
func ResetDefault() {
	defaultMu.Lock()
	defaultScheduler = nil
	defaultMu.Unlock()
}
