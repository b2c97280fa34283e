package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/washloop/washloop-api/internal/domain"
	mw "github.com/washloop/washloop-api/internal/http/middleware"
)

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)

	var req domain.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	tenantID := req.TenantID
	if tenantID == "" {
		tenantID = claims.TenantID
	}

	response, err := h.orderService.CreateOrder(r.Context(), claims.Sub, tenantID, &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, response)
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order ID", "INVALID_INPUT")
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), id, claims.Sub, claims.Role)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *Handlers) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)
	limit, offset := parsePagination(r)

	orders, err := h.orderService.ListMyOrders(r.Context(), claims.Sub, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (h *Handlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order ID", "INVALID_INPUT")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	if err := h.orderService.CancelOrder(r.Context(), id, claims.Sub, claims.Role, req.Reason); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RedeemOrder is the staff-side QR scan endpoint.
func (h *Handlers) RedeemOrder(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order ID", "INVALID_INPUT")
		return
	}

	if err := h.orderService.RedeemOrder(r.Context(), id, claims.Role); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Order redeemed"})
}
