package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/vasiliy-maslov/table-order/internal/customer"
)

// UserHandler serves customers derived from order history. PATCH and
// DELETE are accepted but never write anything.
type UserHandler struct {
	service customer.Service
}

func NewUserHandler(service customer.Service) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Get("/users", h.handleList)
	router.Get("/users/{id}", h.handleGet)
	router.Patch("/users/{id}", h.handleUpdate)
	router.Delete("/users/{id}", h.handleDelete)
}

func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	customers, err := h.service.List(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to fetch users")
		return
	}

	resp := make([]UserResponse, 0, len(customers))
	for i := range customers {
		resp = append(resp, toUserResponse(&customers[i]))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to fetch user")
		return
	}
	respondWithJSON(w, http.StatusOK, toUserResponse(c))
}

func (h *UserHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update user")
		return
	}

	ignored := make([]string, 0, len(body))
	for field := range body {
		ignored = append(ignored, field)
	}
	sort.Strings(ignored)

	if len(ignored) > 0 {
		hlog.FromRequest(r).Info().Str("user_id", c.UserID).Strs("ignored_fields", ignored).Msg("Derived user is read-only, update ignored")
	}
	respondWithJSON(w, http.StatusOK, UserUpdateResponse{
		UserResponse:  toUserResponse(c),
		ReadOnly:      true,
		IgnoredFields: ignored,
	})
}

func (h *UserHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to delete user")
		return
	}
	respondWithJSON(w, http.StatusOK, UserDeleteResponse{
		Message:  "Users are derived from order history and cannot be deleted",
		UserID:   c.UserID,
		Deleted:  false,
		ReadOnly: true,
	})
}
