package rest

import (
	"log/slog"
	"net/http"

	"chathub/auth"
	"chathub/domain"
	apperrors "chathub/errors"
	"chathub/services"
)

type AuthHandler struct {
	log  *slog.Logger
	auth *services.AuthService
}

func NewAuthHandler(log *slog.Logger, authService *services.AuthService) *AuthHandler {
	return &AuthHandler{log: log, auth: authService}
}

type authResponse struct {
	User domain.Snapshot `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.log, w, err)
		return
	}
	user, pair, err := h.auth.Register(req)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	h.setSessionCookies(w, pair)
	writeJSON(h.log, w, http.StatusCreated, authResponse{User: user.Snapshot()})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(h.log, w, err)
		return
	}
	user, pair, err := h.auth.Login(req)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	h.setSessionCookies(w, pair)
	writeJSON(h.log, w, http.StatusOK, authResponse{User: user.Snapshot()})
}

// Refresh mints a new access token from the refresh token cookie.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.RefreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(h.log, w, apperrors.Unauthorized("refresh token required"))
		return
	}
	user, access, err := h.auth.Refresh(cookie.Value)
	if err != nil {
		writeError(h.log, w, err)
		return
	}
	setTokenCookie(w, auth.AccessCookieName, access, h.auth.AccessExpire())
	writeJSON(h.log, w, http.StatusOK, authResponse{User: user.Snapshot()})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	clearTokenCookie(w, auth.AccessCookieName)
	clearTokenCookie(w, auth.RefreshCookieName)
	writeJSON(h.log, w, http.StatusNoContent, nil)
}

func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, pair auth.TokenPair) {
	setTokenCookie(w, auth.AccessCookieName, pair.AccessToken, h.auth.AccessExpire())
	setTokenCookie(w, auth.RefreshCookieName, pair.RefreshToken, h.auth.RefreshExpire())
}
