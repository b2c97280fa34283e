package wizard_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/washloop/washloop-api/client"
	"github.com/washloop/washloop-api/client/wizard"
)

func TestCodeEntryTyping(t *testing.T) {
	var entry wizard.CodeEntry

	if err := entry.Type('x'); err == nil {
		t.Fatal("expected non-digit to be rejected")
	}

	for _, r := range "123" {
		if err := entry.Type(r); err != nil {
			t.Fatalf("Type(%c) failed: %v", r, err)
		}
	}
	if entry.Cursor() != 3 || entry.Code() != "123" {
		t.Fatalf("cursor=%d code=%q after three digits", entry.Cursor(), entry.Code())
	}

	entry.Backspace()
	if entry.Cursor() != 2 || entry.Code() != "12" {
		t.Fatalf("cursor=%d code=%q after backspace", entry.Cursor(), entry.Code())
	}

	for _, r := range "3456" {
		entry.Type(r)
	}
	if !entry.Complete() || entry.Code() != "123456" {
		t.Fatalf("expected complete code, got %q", entry.Code())
	}

	// Typing into a full entry changes nothing.
	entry.Type('9')
	if entry.Code() != "123456" {
		t.Fatalf("full entry mutated: %q", entry.Code())
	}
}

func TestCodeEntryPaste(t *testing.T) {
	var entry wizard.CodeEntry
	entry.Type('9')

	entry.Paste("code: 654 321")
	if entry.Code() != "654321" || !entry.Complete() {
		t.Fatalf("pasted code = %q", entry.Code())
	}
}

type fakeClock struct {
	elapsed atomic.Int64
	t0      time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t0: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.t0.Add(time.Duration(c.elapsed.Load())) }
func (c *fakeClock) Advance(d time.Duration) { c.elapsed.Add(int64(d)) }

func (c *fakeClock) Sleep(context.Context, time.Duration) error { return nil }

func otpServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var sends atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/request-otp", func(w http.ResponseWriter, r *http.Request) {
		sends.Add(1)
		json.NewEncoder(w).Encode(client.RequestOTPResponse{SessionID: "sess-1", ExpiresIn: 600})
	})
	mux.HandleFunc("POST /auth/confirm-otp", func(w http.ResponseWriter, r *http.Request) {
		var req client.ConfirmOTPRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Code != "123456" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "incorrect code", "code": "INVALID_CODE"})
			return
		}
		json.NewEncoder(w).Encode(client.LoginResponse{AccessToken: "otp-token"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &sends
}

func TestOTPResendCooldown(t *testing.T) {
	srv, sends := otpServer(t)
	clock := newFakeClock()

	otp := wizard.NewOTP(client.New(srv.URL), "+27821234567", "", wizard.WithClock(clock.Now, clock.Sleep))

	if err := otp.Send(context.Background()); err != nil {
		t.Fatalf("first Send failed: %v", err)
	}
	if otp.CooldownRemaining() != 60*time.Second {
		t.Fatalf("cooldown = %s, want 60s", otp.CooldownRemaining())
	}

	// A resend inside the window is refused locally, without a request.
	if err := otp.Send(context.Background()); err == nil {
		t.Fatal("expected resend inside cooldown to be refused")
	}
	if sends.Load() != 1 {
		t.Fatalf("cooldown refusal must not hit the network, saw %d sends", sends.Load())
	}

	clock.Advance(61 * time.Second)
	if err := otp.Send(context.Background()); err != nil {
		t.Fatalf("resend after cooldown failed: %v", err)
	}
	if sends.Load() != 2 {
		t.Fatalf("sends = %d, want 2", sends.Load())
	}
}

func TestOTPConfirm(t *testing.T) {
	srv, _ := otpServer(t)
	clock := newFakeClock()

	otp := wizard.NewOTP(client.New(srv.URL), "+27821234567", "", wizard.WithClock(clock.Now, clock.Sleep))
	if err := otp.Send(context.Background()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if _, err := otp.Confirm(context.Background(), nil); err == nil {
		t.Fatal("expected Confirm to refuse an incomplete code")
	}

	otp.Entry.Paste("123456")
	resp, err := otp.Confirm(context.Background(), nil)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if resp.AccessToken != "otp-token" {
		t.Fatalf("unexpected token %q", resp.AccessToken)
	}
}

func TestOTPConfirmWrongCodeNotRetried(t *testing.T) {
	srv, _ := otpServer(t)
	clock := newFakeClock()

	var confirms atomic.Int64
	counting := client.New(srv.URL, client.WithHTTPClient(&http.Client{
		Transport: countTransport{inner: http.DefaultTransport, path: "/auth/confirm-otp", hits: &confirms},
	}))

	otp := wizard.NewOTP(counting, "+27821234567", "", wizard.WithClock(clock.Now, clock.Sleep))
	if err := otp.Send(context.Background()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	otp.Entry.Paste("999999")
	_, err := otp.Confirm(context.Background(), nil)
	if !client.IsKind(err, client.ErrInvalidCode) {
		t.Fatalf("expected invalid code error, got %v", err)
	}
	if confirms.Load() != 1 {
		t.Fatalf("a definitive rejection must not be retried, saw %d attempts", confirms.Load())
	}
}

func TestOTPConfirmRetriesTransportFailures(t *testing.T) {
	srv, _ := otpServer(t)
	clock := newFakeClock()

	flaky := &flakyTransport{inner: http.DefaultTransport, path: "/auth/confirm-otp", failures: 2}
	api := client.New(srv.URL, client.WithHTTPClient(&http.Client{Transport: flaky}))

	otp := wizard.NewOTP(api, "+27821234567", "", wizard.WithClock(clock.Now, clock.Sleep))
	if err := otp.Send(context.Background()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	otp.Entry.Paste("123456")
	resp, err := otp.Confirm(context.Background(), nil)
	if err != nil {
		t.Fatalf("Confirm should succeed on the third attempt: %v", err)
	}
	if resp.AccessToken != "otp-token" {
		t.Fatalf("unexpected token %q", resp.AccessToken)
	}
}

func TestOTPConfirmGivesUpAfterThreeAttempts(t *testing.T) {
	srv, _ := otpServer(t)
	clock := newFakeClock()

	flaky := &flakyTransport{inner: http.DefaultTransport, path: "/auth/confirm-otp", failures: 10}
	api := client.New(srv.URL, client.WithHTTPClient(&http.Client{Transport: flaky}))

	otp := wizard.NewOTP(api, "+27821234567", "", wizard.WithClock(clock.Now, clock.Sleep))
	if err := otp.Send(context.Background()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	otp.Entry.Paste("123456")
	if _, err := otp.Confirm(context.Background(), nil); !client.IsKind(err, client.ErrTransport) {
		t.Fatalf("expected transport error after retries, got %v", err)
	}
	if got := flaky.calls.Load(); got != 3 {
		t.Fatalf("attempts = %d, want 3", got)
	}
}

type countTransport struct {
	inner http.RoundTripper
	path  string
	hits  *atomic.Int64
}

func (c countTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.URL.Path == c.path {
		c.hits.Add(1)
	}
	return c.inner.RoundTrip(r)
}

type flakyTransport struct {
	inner    http.RoundTripper
	path     string
	failures int
	calls    atomic.Int64
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.URL.Path != f.path {
		return f.inner.RoundTrip(r)
	}
	n := f.calls.Add(1)
	if int(n) <= f.failures {
		return nil, errors.New("connection reset")
	}
	return f.inner.RoundTrip(r)
}
