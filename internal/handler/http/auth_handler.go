package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"

	"github.com/vasiliy-maslov/table-order/internal/auth"
	"github.com/vasiliy-maslov/table-order/internal/validate"
)

type AuthHandler struct {
	service  auth.Service
	validate *validator.Validate
}

func NewAuthHandler(service auth.Service) *AuthHandler {
	return &AuthHandler{
		service:  service,
		validate: validate.New(),
	}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/login", h.handleLogin)
	router.Post("/auth/verify", h.handleVerify)
	router.Post("/auth/set-password", h.handleSetPassword)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationError(w, r, err)
		return
	}

	session, err := h.service.Login(r.Context(), req.UserID, req.Password)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to authenticate")
		return
	}

	respondWithJSON(w, http.StatusOK, LoginResponse{
		Token: session.Token,
		User:  toAdminUserResponse(session.User),
	})
}

func (h *AuthHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		respondWithError(w, http.StatusUnauthorized, "No token provided")
		return
	}

	user, err := h.service.Verify(r.Context(), strings.TrimSpace(token))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to verify token")
		return
	}

	respondWithJSON(w, http.StatusOK, VerifyResponse{
		Valid: true,
		User:  toAdminUserResponse(user),
	})
}

func (h *AuthHandler) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req SetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondWithValidationError(w, r, err)
		return
	}

	if err := h.service.SetPassword(r.Context(), req.UserID, req.Password); err != nil {
		respondWithServiceError(w, r, err, "Failed to set password")
		return
	}
	respondWithJSON(w, http.StatusOK, MessageResponse{Message: "Password set successfully"})
}
