package handlers

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/washloop/washloop-api/internal/domain"
	"github.com/washloop/washloop-api/internal/service"
	"github.com/washloop/washloop-api/pkg/config"
)

type Handlers struct {
	authService    service.AuthService
	orderService   service.OrderService
	paymentService service.PaymentService
	loyaltyService service.LoyaltyService
	tenantService  service.TenantService
	catalog        CatalogReader
	config         *config.Config
}

// CatalogReader is the read path for the public catalog endpoints; reads go
// through the warm cache with a repository fallback.
type CatalogReader interface {
	Services(ctx context.Context, tenantID string) ([]domain.WashService, error)
	Extras(ctx context.Context, tenantID string) ([]domain.Extra, error)
}

func New(
	authService service.AuthService,
	orderService service.OrderService,
	paymentService service.PaymentService,
	loyaltyService service.LoyaltyService,
	tenantService service.TenantService,
	catalog CatalogReader,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		authService:    authService,
		orderService:   orderService,
		paymentService: paymentService,
		loyaltyService: loyaltyService,
		tenantService:  tenantService,
		catalog:        catalog,
		config:         cfg,
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message, code string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
		"code":  code,
	})
}

// writeDomainError maps the closed error taxonomy onto HTTP statuses and
// stable error codes the client SDK branches on.
func writeDomainError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindValidation:
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")
	case domain.KindInvalidCode:
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_CODE")
	case domain.KindInvalidCredentials:
		writeError(w, http.StatusUnauthorized, err.Error(), "INVALID_CREDENTIALS")
	case domain.KindNotRegistered:
		writeError(w, http.StatusNotFound, err.Error(), "NOT_REGISTERED")
	case domain.KindOnboardingIncomplete:
		writeError(w, http.StatusForbidden, err.Error(), "ONBOARDING_INCOMPLETE")
	case domain.KindForbidden:
		writeError(w, http.StatusForbidden, err.Error(), "FORBIDDEN")
	case domain.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case domain.KindAlreadyExists, domain.KindConflict:
		writeError(w, http.StatusConflict, err.Error(), "CONFLICT")
	case domain.KindCooldownActive:
		writeError(w, http.StatusTooManyRequests, err.Error(), "RATE_LIMIT_EXCEEDED")
	default:
		writeError(w, http.StatusInternalServerError, "Something went wrong", "INTERNAL_ERROR")
	}
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
