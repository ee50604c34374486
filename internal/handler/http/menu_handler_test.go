package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	handler "github.com/vasiliy-maslov/table-order/internal/handler/http"
	"github.com/vasiliy-maslov/table-order/internal/menu"
)

const testMenuID = "665f1c2e9b1e8a3d4c5b6a70"

func sampleMenuItem() *menu.MenuItem {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return &menu.MenuItem{
		ID:        testMenuID,
		NameEn:    "Ramen",
		NameJp:    "ラーメン",
		Price:     decimal.RequireFromString("980.50"),
		ImageURL:  "/images/ramen.png",
		Category:  "Noodles",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func serveMenu(t *testing.T, svc *MockMenuService, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	handler.NewMenuHandler(svc).RegisterRoutes(router)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestMenuHandler_handleList(t *testing.T) {
	mockService := new(MockMenuService)
	item := sampleMenuItem()
	mockService.On("List", mock.Anything).Return([]menu.MenuItem{*item}, nil).Once()

	rr := serveMenu(t, mockService, httptest.NewRequest(http.MethodGet, "/menu", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got []handler.MenuItemResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	want := []handler.MenuItemResponse{{
		ID:        testMenuID,
		IDAlias:   testMenuID,
		NameEn:    "Ramen",
		NameJp:    "ラーメン",
		Price:     980.5,
		ImageURL:  "/images/ramen.png",
		Category:  "Noodles",
		IsActive:  true,
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("menu list mismatch (-want +got):\n%s", diff)
	}
	mockService.AssertExpectations(t)
}

func TestMenuHandler_handleList_Empty(t *testing.T) {
	mockService := new(MockMenuService)
	mockService.On("List", mock.Anything).Return([]menu.MenuItem{}, nil).Once()

	rr := serveMenu(t, mockService, httptest.NewRequest(http.MethodGet, "/menu", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestMenuHandler_handleCreate_Success(t *testing.T) {
	tests := []struct {
		name      string
		price     string
		wantPrice string
	}{
		{name: "numeric string", price: `"980.50"`, wantPrice: "980.50"},
		{name: "json number", price: `980.5`, wantPrice: "980.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockMenuService)
			mockService.On("Create", mock.Anything, mock.MatchedBy(func(in menu.CreateInput) bool {
				return in.NameEn == "Ramen" && in.Price == tt.wantPrice && in.IsActive == nil
			})).Return(sampleMenuItem(), nil).Once()

			body := `{"nameEn":"Ramen","nameJp":"ラーメン","price":` + tt.price + `,"imageUrl":"/images/ramen.png","category":"Noodles"}`
			req := httptest.NewRequest(http.MethodPost, "/menu", bytes.NewBufferString(body))
			req.Header.Set("Content-Type", "application/json")

			rr := serveMenu(t, mockService, req)
			require.Equal(t, http.StatusCreated, rr.Code)

			var got handler.MenuItemResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
			assert.Equal(t, testMenuID, got.ID)
			assert.Equal(t, 980.5, got.Price)
			mockService.AssertExpectations(t)
		})
	}
}

func TestMenuHandler_handleCreate_MissingFields(t *testing.T) {
	mockService := new(MockMenuService)

	req := httptest.NewRequest(http.MethodPost, "/menu", bytes.NewBufferString(`{"nameEn":"Ramen","category":"Noodles"}`))
	rr := serveMenu(t, mockService, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var got handler.MissingFieldsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "Missing required fields", got.Error)
	assert.Equal(t, []string{"nameJp", "price", "imageUrl"}, got.MissingFields)
	mockService.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestMenuHandler_handleCreate_InvalidPrice(t *testing.T) {
	mockService := new(MockMenuService)
	mockService.On("Create", mock.Anything, mock.Anything).Return(nil, menu.ErrInvalidPrice).Once()

	body := `{"nameEn":"Ramen","nameJp":"ラーメン","price":"-1","imageUrl":"/r.png","category":"Noodles"}`
	rr := serveMenu(t, mockService, httptest.NewRequest(http.MethodPost, "/menu", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var got map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "Price must be a valid positive number", got["error"])
	_, hasDetails := got["details"]
	assert.False(t, hasDetails, "details must not leak outside development")
}

func TestMenuHandler_handleCreate_InvalidJSON(t *testing.T) {
	mockService := new(MockMenuService)

	rr := serveMenu(t, mockService, httptest.NewRequest(http.MethodPost, "/menu", bytes.NewBufferString(`{"nameEn": "Ramen"`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var got map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Contains(t, got["error"], "Invalid request payload")
	mockService.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestMenuHandler_handleUpdate(t *testing.T) {
	mockService := new(MockMenuService)
	updated := sampleMenuItem()
	updated.Price = decimal.RequireFromString("1200")

	mockService.On("Update", mock.Anything, testMenuID, mock.MatchedBy(func(in menu.UpdateInput) bool {
		return in.Price != nil && *in.Price == "1200" && in.NameEn == nil && in.IsActive == nil
	})).Return(updated, nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/menu/"+testMenuID, bytes.NewBufferString(`{"price":1200}`))
	rr := serveMenu(t, mockService, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var got handler.MenuItemResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, float64(1200), got.Price)
	mockService.AssertExpectations(t)
}

func TestMenuHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		err        error
		wantStatus int
		wantError  string
	}{
		{name: "update invalid id", method: http.MethodPatch, err: menu.ErrInvalidID, wantStatus: http.StatusBadRequest, wantError: "Invalid menu item ID format"},
		{name: "update missing", method: http.MethodPatch, err: menu.ErrNotFound, wantStatus: http.StatusNotFound, wantError: "Menu item not found"},
		{name: "delete missing", method: http.MethodDelete, err: menu.ErrNotFound, wantStatus: http.StatusNotFound, wantError: "Menu item not found"},
		{name: "delete timeout", method: http.MethodDelete, err: context.DeadlineExceeded, wantStatus: http.StatusGatewayTimeout, wantError: "Gateway Timeout"},
		{name: "get unexpected", method: http.MethodGet, err: assert.AnError, wantStatus: http.StatusInternalServerError, wantError: "Failed to fetch menu item"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockMenuService)
			switch tt.method {
			case http.MethodPatch:
				mockService.On("Update", mock.Anything, "abc", mock.Anything).Return(nil, tt.err).Once()
			case http.MethodDelete:
				mockService.On("SoftDelete", mock.Anything, "abc").Return(nil, tt.err).Once()
			default:
				mockService.On("Get", mock.Anything, "abc").Return(nil, tt.err).Once()
			}

			req := httptest.NewRequest(tt.method, "/menu/abc", bytes.NewBufferString(`{}`))
			rr := serveMenu(t, mockService, req)
			require.Equal(t, tt.wantStatus, rr.Code)

			var got map[string]string
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
			assert.Equal(t, tt.wantError, got["error"])
			mockService.AssertExpectations(t)
		})
	}
}

func TestMenuHandler_handleDelete(t *testing.T) {
	mockService := new(MockMenuService)
	deleted := sampleMenuItem()
	deleted.IsActive = false
	mockService.On("SoftDelete", mock.Anything, testMenuID).Return(deleted, nil).Once()

	rr := serveMenu(t, mockService, httptest.NewRequest(http.MethodDelete, "/menu/"+testMenuID, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got handler.MenuDeleteResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, "Menu item deleted successfully", got.Message)
	assert.False(t, got.MenuItem.IsActive)
	assert.Equal(t, testMenuID, got.MenuItem.ID)
}
