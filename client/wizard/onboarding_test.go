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

type signupCapture struct {
	count    atomic.Int64
	email    string
	password string
	tenantID string
}

func onboardingServer(t *testing.T, signups *signupCapture, signupStatus int) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signup", func(w http.ResponseWriter, r *http.Request) {
		var req client.SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad signup body: %v", err)
		}
		signups.count.Add(1)
		signups.email = req.Email
		signups.password = req.Password
		signups.tenantID = req.TenantID

		w.Header().Set("Content-Type", "application/json")
		if signupStatus == http.StatusConflict {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "an account with this email already exists", "code": "CONFLICT"})
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "Signup successful. Continue to phone verification.",
			"user":    map[string]interface{}{"id": 1, "email": req.Email},
		})
	})
	mux.HandleFunc("POST /auth/request-otp", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"session_id": "sess-1", "expires_in": 600})
	})
	mux.HandleFunc("POST /auth/confirm-otp", func(w http.ResponseWriter, r *http.Request) {
		var req client.ConfirmOTPRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req.Code != "123456" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid code", "code": "INVALID_CODE"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "verified-token"})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": 1, "email": "thandi@example.com", "role": "user", "onboarding_complete": true,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOnboardingSignupThenVerify(t *testing.T) {
	signups := &signupCapture{}
	srv := onboardingServer(t, signups, http.StatusCreated)

	api := client.New(srv.URL)
	session := client.NewSession(api, client.NewMemoryCredentials())
	onboarding := wizard.NewOnboarding(api, session, wizard.NewMemoryDrafts())
	ctx := context.Background()

	if err := onboarding.SetDetails("Thandi", "N", "+27821234567", "thandi@example.com", "default", true); err != nil {
		t.Fatalf("SetDetails failed: %v", err)
	}
	if err := onboarding.SetPassword("correct-horse"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}

	if err := onboarding.RequestCode(ctx); err != nil {
		t.Fatalf("RequestCode failed: %v", err)
	}
	if signups.count.Load() != 1 {
		t.Fatalf("signup calls = %d, want 1", signups.count.Load())
	}
	if signups.email != "thandi@example.com" || signups.password != "correct-horse" || signups.tenantID != "default" {
		t.Fatalf("unexpected signup body: %+v", signups)
	}
	if onboarding.Step() != wizard.OnboardCode {
		t.Fatalf("step = %v, want code entry", onboarding.Step())
	}

	onboarding.Entry().Paste("123456")
	profile, err := onboarding.Confirm(ctx)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if profile.Email != "thandi@example.com" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if session.State().Status != client.StatusAuthenticated {
		t.Fatalf("session status = %s, want authenticated", session.State().Status)
	}
	if onboarding.Step() != wizard.OnboardDone {
		t.Fatalf("step = %v, want done", onboarding.Step())
	}
}

func TestOnboardingExistingAccountProceedsToCode(t *testing.T) {
	signups := &signupCapture{}
	srv := onboardingServer(t, signups, http.StatusConflict)

	api := client.New(srv.URL)
	session := client.NewSession(api, client.NewMemoryCredentials())
	onboarding := wizard.NewOnboarding(api, session, wizard.NewMemoryDrafts())

	if err := onboarding.SetDetails("Thandi", "N", "+27821234567", "thandi@example.com", "default", false); err != nil {
		t.Fatalf("SetDetails failed: %v", err)
	}
	if err := onboarding.SetPassword("correct-horse"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}

	if err := onboarding.RequestCode(context.Background()); err != nil {
		t.Fatalf("an existing account must not block verification: %v", err)
	}
	if onboarding.Step() != wizard.OnboardCode {
		t.Fatalf("step = %v, want code entry", onboarding.Step())
	}
}

func TestOnboardingRequiresPasswordForNewAccount(t *testing.T) {
	signups := &signupCapture{}
	srv := onboardingServer(t, signups, http.StatusCreated)

	api := client.New(srv.URL)
	session := client.NewSession(api, client.NewMemoryCredentials())
	onboarding := wizard.NewOnboarding(api, session, wizard.NewMemoryDrafts())

	if err := onboarding.SetDetails("Thandi", "N", "+27821234567", "thandi@example.com", "default", false); err != nil {
		t.Fatalf("SetDetails failed: %v", err)
	}

	if err := onboarding.RequestCode(context.Background()); err == nil {
		t.Fatal("expected an error without a password")
	}
	if signups.count.Load() != 0 {
		t.Fatalf("no signup may be attempted without a password, saw %d", signups.count.Load())
	}

	if err := onboarding.SetPassword("short1"); err == nil {
		t.Fatal("expected a too-short password to be rejected")
	}
}
