package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/washloop/washloop-api/internal/domain"
	mw "github.com/washloop/washloop-api/internal/http/middleware"
)

func (h *Handlers) MyLoyalty(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)

	tenantID := claims.TenantID
	if tenantID == "" {
		tenantID = h.tenantParam(r)
	}

	summary, err := h.loyaltyService.Summary(r.Context(), claims.Sub, tenantID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *Handlers) RedeemReward(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)

	var req domain.RedeemRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}
	if err := req.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	tenantID := claims.TenantID
	if tenantID == "" {
		tenantID = h.tenantParam(r)
	}

	if err := h.loyaltyService.Redeem(r.Context(), claims.Sub, tenantID, req.RewardID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Reward redeemed"})
}
