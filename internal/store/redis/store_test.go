package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/washloop/washloop-api/internal/domain"
	redisstore "github.com/washloop/washloop-api/internal/store/redis"
)

func testClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestCooldownStartAndRemaining(t *testing.T) {
	client, mr := testClient(t)
	store := redisstore.NewCooldownStore(client)
	ctx := context.Background()

	ok, err := store.StartCooldown(ctx, "otp:resend:+27821234567", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first StartCooldown = %v, %v", ok, err)
	}

	ok, err = store.StartCooldown(ctx, "otp:resend:+27821234567", time.Minute)
	if err != nil || ok {
		t.Fatalf("second StartCooldown should refuse, got %v, %v", ok, err)
	}

	remaining, err := store.CooldownRemaining(ctx, "otp:resend:+27821234567")
	if err != nil {
		t.Fatalf("CooldownRemaining failed: %v", err)
	}
	if remaining <= 0 || remaining > time.Minute {
		t.Fatalf("remaining = %s", remaining)
	}

	mr.FastForward(61 * time.Second)

	ok, err = store.StartCooldown(ctx, "otp:resend:+27821234567", time.Minute)
	if err != nil || !ok {
		t.Fatalf("StartCooldown after expiry = %v, %v", ok, err)
	}
}

func TestCooldownRemainingZeroWhenIdle(t *testing.T) {
	client, _ := testClient(t)
	store := redisstore.NewCooldownStore(client)

	remaining, err := store.CooldownRemaining(context.Background(), "never-used")
	if err != nil || remaining != 0 {
		t.Fatalf("remaining = %s, err = %v", remaining, err)
	}
}

func TestAllowRateLimit(t *testing.T) {
	client, mr := testClient(t)
	store := redisstore.NewCooldownStore(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := store.Allow(ctx, "otp:203.0.113.7", 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("hit %d should be allowed: %v, %v", i+1, ok, err)
		}
	}

	ok, err := store.Allow(ctx, "otp:203.0.113.7", 3, time.Minute)
	if err != nil || ok {
		t.Fatalf("fourth hit should be blocked: %v, %v", ok, err)
	}

	mr.FastForward(61 * time.Second)

	ok, err = store.Allow(ctx, "otp:203.0.113.7", 3, time.Minute)
	if err != nil || !ok {
		t.Fatalf("window should reset after expiry: %v, %v", ok, err)
	}
}

func TestAllowFailsOpenOnRedisError(t *testing.T) {
	client, mr := testClient(t)
	store := redisstore.NewCooldownStore(client)
	mr.Close()

	ok, err := store.Allow(context.Background(), "otp:203.0.113.7", 3, time.Minute)
	if err == nil {
		t.Fatal("expected an error from a dead redis")
	}
	if !ok {
		t.Fatal("a broken cache must fail open, not lock users out")
	}
}

func TestIdempotencyStoreRoundTrip(t *testing.T) {
	client, mr := testClient(t)
	store := redisstore.NewIdempotencyStore(client)
	ctx := context.Background()

	val, err := store.Get(ctx, "idempotency:missing")
	if err != nil || val != "" {
		t.Fatalf("missing key: %q, %v", val, err)
	}

	if err := store.Set(ctx, "idempotency:abc", `{"order_id":42}`, time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, err = store.Get(ctx, "idempotency:abc")
	if err != nil || val != `{"order_id":42}` {
		t.Fatalf("Get = %q, %v", val, err)
	}

	mr.FastForward(2 * time.Hour)
	val, err = store.Get(ctx, "idempotency:abc")
	if err != nil || val != "" {
		t.Fatalf("expired key should be gone: %q, %v", val, err)
	}
}

func TestAnalyticsCacheRoundTrip(t *testing.T) {
	client, mr := testClient(t)
	cache := redisstore.NewAnalyticsCache(client, 15*time.Minute)
	ctx := context.Background()

	if cached, err := cache.GetSummary(ctx, "default"); err != nil || cached != nil {
		t.Fatalf("empty cache: %+v, %v", cached, err)
	}

	summary := &domain.AnalyticsSummary{
		TenantID:     "default",
		TotalOrders:  12,
		PaidOrders:   9,
		RevenueCents: 450000,
		GeneratedAt:  time.Now().UTC(),
	}
	if err := cache.SetSummary(ctx, summary); err != nil {
		t.Fatalf("SetSummary failed: %v", err)
	}

	cached, err := cache.GetSummary(ctx, "default")
	if err != nil || cached == nil {
		t.Fatalf("GetSummary failed: %v", err)
	}
	if cached.TotalOrders != 12 || cached.RevenueCents != 450000 {
		t.Fatalf("unexpected cached summary: %+v", cached)
	}

	mr.FastForward(16 * time.Minute)
	if cached, err := cache.GetSummary(ctx, "default"); err != nil || cached != nil {
		t.Fatalf("summary should expire with the TTL: %+v, %v", cached, err)
	}
}
