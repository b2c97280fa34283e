package handlers

import (
	"net/http"
)

func (h *Handlers) tenantParam(r *http.Request) string {
	if t := r.URL.Query().Get("tenant_id"); t != "" {
		return t
	}
	return "default"
}

func (h *Handlers) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.catalog.Services(r.Context(), h.tenantParam(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, services)
}

func (h *Handlers) ListExtras(w http.ResponseWriter, r *http.Request) {
	extras, err := h.catalog.Extras(r.Context(), h.tenantParam(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, extras)
}

// TenantBranding is public: the client needs colors and logo before login.
func (h *Handlers) TenantBranding(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.tenantService.GetTenant(r.Context(), h.tenantParam(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}
