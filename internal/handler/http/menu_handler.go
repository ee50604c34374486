package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/hlog"

	"github.com/vasiliy-maslov/table-order/internal/menu"
	"github.com/vasiliy-maslov/table-order/internal/validate"
)

type MenuHandler struct {
	service  menu.Service
	validate *validator.Validate
}

func NewMenuHandler(service menu.Service) *MenuHandler {
	return &MenuHandler{
		service:  service,
		validate: validate.New(),
	}
}

func (h *MenuHandler) RegisterRoutes(router chi.Router) {
	router.Get("/menu", h.handleList)
	router.Post("/menu", h.handleCreate)
	router.Get("/menu/{id}", h.handleGet)
	router.Patch("/menu/{id}", h.handleUpdate)
	router.Delete("/menu/{id}", h.handleDelete)
}

func (h *MenuHandler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to fetch menu items")
		return
	}

	resp := make([]MenuItemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toMenuItemResponse(&items[i]))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *MenuHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to fetch menu item")
		return
	}
	respondWithJSON(w, http.StatusOK, toMenuItemResponse(item))
}

func (h *MenuHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		respondWithValidationError(w, r, err)
		return
	}

	item, err := h.service.Create(r.Context(), menu.CreateInput{
		NameEn:      req.NameEn,
		NameJp:      req.NameJp,
		Price:       priceText(req.Price),
		ImageURL:    req.ImageURL,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		IsActive:    req.IsActive,
		IsAddon:     req.IsAddon,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to create menu item")
		return
	}

	respondWithJSON(w, http.StatusCreated, toMenuItemResponse(item))
}

func (h *MenuHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	in := menu.UpdateInput{
		NameEn:      req.NameEn,
		NameJp:      req.NameJp,
		ImageURL:    req.ImageURL,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		IsActive:    req.IsActive,
		IsAddon:     req.IsAddon,
	}
	if req.Price != nil {
		price := priceText(req.Price)
		in.Price = &price
	}

	item, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update menu item")
		return
	}
	respondWithJSON(w, http.StatusOK, toMenuItemResponse(item))
}

func (h *MenuHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.SoftDelete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to delete menu item")
		return
	}
	respondWithJSON(w, http.StatusOK, MenuDeleteResponse{
		Message:  "Menu item deleted successfully",
		MenuItem: toMenuItemResponse(item),
	})
}
