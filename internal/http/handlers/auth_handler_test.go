package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/washloop/washloop-api/internal/domain"
	"github.com/washloop/washloop-api/internal/http/handlers"
	mw "github.com/washloop/washloop-api/internal/http/middleware"
	"github.com/washloop/washloop-api/pkg/auth"
	"github.com/washloop/washloop-api/pkg/config"
)

// ---------- Mocks ----------

type mockAuthService struct {
	users map[int64]*domain.User

	loginResp *domain.LoginResponse
	loginErr  error
}

func newMockAuthService() *mockAuthService {
	return &mockAuthService{users: make(map[int64]*domain.User)}
}

func (m *mockAuthService) Signup(_ context.Context, req *domain.SignupRequest) (*domain.User, error) {
	return &domain.User{ID: 1, Email: req.Email, Role: domain.RoleUser}, nil
}

func (m *mockAuthService) Login(_ context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.loginResp, nil
}

func (m *mockAuthService) WhoAmI(_ context.Context, userID int64) (*domain.Profile, error) {
	user, ok := m.users[userID]
	if !ok {
		return nil, domain.E(domain.KindNotFound, "user not found")
	}
	return user.ToProfile(), nil
}

func (m *mockAuthService) RequestOTP(context.Context, *domain.RequestOTPRequest, string) (*domain.RequestOTPResponse, error) {
	return &domain.RequestOTPResponse{SessionID: "sess-1", ExpiresIn: 600}, nil
}

func (m *mockAuthService) ConfirmOTP(context.Context, *domain.ConfirmOTPRequest) (*domain.LoginResponse, error) {
	return &domain.LoginResponse{AccessToken: "otp-token"}, nil
}

func (m *mockAuthService) SendMagicLoginLink(context.Context, string) error { return nil }

func (m *mockAuthService) MagicLogin(context.Context, string) (*domain.LoginResponse, error) {
	return &domain.LoginResponse{AccessToken: "magic-token"}, nil
}

func (m *mockAuthService) GetUser(_ context.Context, id int64) (*domain.User, error) {
	return m.users[id], nil
}

func (m *mockAuthService) UpdateUser(_ context.Context, id int64, _ *domain.UpdateUserRequest) (*domain.User, error) {
	return m.users[id], nil
}

func (m *mockAuthService) DeleteUser(context.Context, int64) error { return nil }

func (m *mockAuthService) ListUsers(context.Context, string, int, int) ([]domain.User, error) {
	return nil, nil
}

func (m *mockAuthService) UpdateUserRole(context.Context, string, int64, string) error { return nil }

// ---------- Harness ----------

const testSecret = "test-secret"

func testRouter(svc *mockAuthService) http.Handler {
	cfg := config.Load()
	cfg.Auth.JWTSecret = testSecret

	h := handlers.New(svc, nil, nil, nil, nil, nil, cfg)

	r := chi.NewRouter()
	r.Post("/auth/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireJWT(testSecret, ""))
		r.Get("/auth/me", h.Me)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireJWT(testSecret, domain.RoleAdmin))
		r.Get("/admin/ping", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func tokenFor(t *testing.T, userID int64, role string) string {
	t.Helper()
	token, err := auth.NewAccessToken(userID, "t1@example.com", role, "", "default", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

// ---------- Tests ----------

func TestLoginFormContract(t *testing.T) {
	svc := newMockAuthService()
	svc.loginResp = &domain.LoginResponse{AccessToken: "tok-1"}
	router := testRouter(svc)

	form := url.Values{"username": {"t1@example.com"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["access_token"] != "tok-1" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestLoginErrorCodes(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"wrong password", domain.E(domain.KindInvalidCredentials, "invalid credentials"), 401, "INVALID_CREDENTIALS"},
		{"unknown email", domain.E(domain.KindNotRegistered, "no account exists for this email"), 404, "NOT_REGISTERED"},
		{"unverified phone", domain.E(domain.KindOnboardingIncomplete, "phone verification pending"), 403, "ONBOARDING_INCOMPLETE"},
		{"rate limited", domain.E(domain.KindCooldownActive, "slow down"), 429, "RATE_LIMIT_EXCEEDED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newMockAuthService()
			svc.loginErr = tc.err
			router := testRouter(svc)

			form := url.Values{"username": {"t1@example.com"}, "password": {"x"}}
			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if body := decodeBody(t, rec); body["code"] != tc.wantCode {
				t.Fatalf("code = %v, want %s", body["code"], tc.wantCode)
			}
		})
	}
}

func TestMeReturnsProfile(t *testing.T) {
	svc := newMockAuthService()
	svc.users[7] = &domain.User{ID: 7, Email: "t1@example.com", Role: domain.RoleUser, TenantID: "default"}
	router := testRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, 7, domain.RoleUser))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["email"] != "t1@example.com" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestMeStaleUserReportsInvalidToken(t *testing.T) {
	svc := newMockAuthService() // user 7 does not exist
	router := testRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, 7, domain.RoleUser))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if body := decodeBody(t, rec); body["code"] != "INVALID_TOKEN" {
		t.Fatalf("code = %v, want INVALID_TOKEN so the client drops the credential", body["code"])
	}
}

func TestMeWithoutTokenIsUnauthorized(t *testing.T) {
	router := testRouter(newMockAuthService())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAdminRouteEnforcesRole(t *testing.T) {
	router := testRouter(newMockAuthService())

	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, 7, domain.RoleStaff))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff on an admin route: status = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, 7, domain.RoleSuperadmin))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("superadmin on an admin route: status = %d, want 200", rec.Code)
	}
}
