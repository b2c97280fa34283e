package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	redisstore "github.com/washloop/washloop-api/internal/store/redis"
	"github.com/washloop/washloop-api/pkg/middleware"
)

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a generated request id")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") != "req-123" {
		t.Fatalf("expected the client id to be echoed, got %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestHealthEndpoint(t *testing.T) {
	handler := middleware.Health(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("non-health path should pass through, got %d", rec.Code)
	}
}

func idempotencyHandler(t *testing.T) (http.Handler, *atomic.Int64) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	var hits atomic.Int64
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		if r.URL.Query().Get("fail") == "1" {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"boom"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		if n == 1 {
			w.Write([]byte(`{"order_id":42}`))
		} else {
			w.Write([]byte(`{"order_id":43}`))
		}
	})

	return middleware.Idempotency(redisstore.NewIdempotencyStore(client))(inner), &hits
}

func TestIdempotencyReplaysCachedResponse(t *testing.T) {
	handler, hits := idempotencyHandler(t)

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders/create", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(first, req)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/orders/create", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(second, req)

	if hits.Load() != 1 {
		t.Fatalf("handler ran %d times, want 1", hits.Load())
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body %q differs from original %q", second.Body.String(), first.Body.String())
	}
}

func TestIdempotencyDistinctKeysRunSeparately(t *testing.T) {
	handler, hits := idempotencyHandler(t)

	for _, key := range []string{"key-1", "key-2"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/orders/create", nil)
		req.Header.Set("Idempotency-Key", key)
		handler.ServeHTTP(rec, req)
	}

	if hits.Load() != 2 {
		t.Fatalf("handler ran %d times, want 2", hits.Load())
	}
}

func TestIdempotencyDoesNotCacheFailures(t *testing.T) {
	handler, hits := idempotencyHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/orders/create?fail=1", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected failure, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/orders/create", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	handler.ServeHTTP(rec, req)

	if hits.Load() != 2 {
		t.Fatalf("failed responses must not be replayed, handler ran %d times", hits.Load())
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("retry should reach the handler, got %d", rec.Code)
	}
}

func TestIdempotencySkipsNonPostAndMissingKey(t *testing.T) {
	handler, hits := idempotencyHandler(t)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/create", nil))
	}
	if hits.Load() != 2 {
		t.Fatalf("requests without a key must not be deduplicated, ran %d", hits.Load())
	}
}
