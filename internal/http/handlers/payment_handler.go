package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	mw "github.com/washloop/washloop-api/internal/http/middleware"
	"github.com/washloop/washloop-api/pkg/logger"
)

func (h *Handlers) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)

	var req struct {
		OrderID int64 `json:"order_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == 0 {
		writeError(w, http.StatusBadRequest, "order_id is required", "INVALID_INPUT")
		return
	}

	response, err := h.paymentService.CreateIntent(r.Context(), claims.Sub, req.OrderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// StripeWebhook is unauthenticated; the Stripe signature header is the
// authentication.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read payload", "INVALID_INPUT")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := h.paymentService.HandleWebhook(r.Context(), payload, signature); err != nil {
		logger.ErrorContext(r.Context(), "Webhook processing failed", "error", err)
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
