package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/washloop/washloop-api/internal/domain"
	mw "github.com/washloop/washloop-api/internal/http/middleware"
)

// Login accepts form-urlencoded credentials (username, password) and returns
// an access token. The field is named username for OAuth2 password-grant
// compatibility but carries the email.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form data", "INVALID_INPUT")
		return
	}

	req := domain.LoginRequest{
		Email:    r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	response, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

// Signup creates a pending user; phone verification completes onboarding.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	user, err := h.authService.Signup(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Signup successful. Continue to phone verification.",
		"user":    user.ToProfile(),
	})
}

// Me is the who-am-I probe the client session manager issues at startup.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	claims := mw.Claims(r)
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Missing credentials", "UNAUTHORIZED")
		return
	}

	profile, err := h.authService.WhoAmI(r.Context(), claims.Sub)
	if err != nil {
		// A vanished user means the token is stale; report unauthorized so
		// the client discards the credential.
		writeError(w, http.StatusUnauthorized, "Invalid token", "INVALID_TOKEN")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

func (h *Handlers) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.RequestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	response, err := h.authService.RequestOTP(r.Context(), &req, getClientIP(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) ConfirmOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.ConfirmOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON format", "INVALID_INPUT")
		return
	}

	response, err := h.authService.ConfirmOTP(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required", "INVALID_INPUT")
		return
	}

	if err := h.authService.SendMagicLoginLink(r.Context(), req.Email); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "If the account exists, a login link has been sent",
	})
}

func (h *Handlers) MagicLogin(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		var req struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = req.Token
		}
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, "Missing login token", "INVALID_INPUT")
		return
	}

	response, err := h.authService.MagicLogin(r.Context(), token)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}
