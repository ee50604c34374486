package http

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/vasiliy-maslov/table-order/internal/auth"
	"github.com/vasiliy-maslov/table-order/internal/customer"
	"github.com/vasiliy-maslov/table-order/internal/menu"
	"github.com/vasiliy-maslov/table-order/internal/order"
	"github.com/vasiliy-maslov/table-order/internal/payment"
)

// Response shapes are identical for every storage backend.

type MenuItemResponse struct {
	ID          string    `json:"_id"`
	IDAlias     string    `json:"id"`
	NameEn      string    `json:"nameEn"`
	NameJp      string    `json:"nameJp"`
	Price       float64   `json:"price"`
	ImageURL    string    `json:"imageUrl"`
	Category    string    `json:"category"`
	Subcategory *string   `json:"subcategory"`
	IsAddon     bool      `json:"isAddon"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type MenuDeleteResponse struct {
	Message  string           `json:"message"`
	MenuItem MenuItemResponse `json:"menuItem"`
}

type CreateMenuItemRequest struct {
	NameEn      string          `json:"nameEn" validate:"required"`
	NameJp      string          `json:"nameJp" validate:"required"`
	Price       json.RawMessage `json:"price" validate:"required"`
	ImageURL    string          `json:"imageUrl" validate:"required"`
	Category    string          `json:"category" validate:"required"`
	Subcategory *string         `json:"subcategory"`
	IsActive    *bool           `json:"isActive"`
	IsAddon     bool            `json:"isAddon"`
}

type UpdateMenuItemRequest struct {
	NameEn      *string         `json:"nameEn"`
	NameJp      *string         `json:"nameJp"`
	Price       json.RawMessage `json:"price"`
	ImageURL    *string         `json:"imageUrl"`
	Category    *string         `json:"category"`
	Subcategory *string         `json:"subcategory"`
	IsActive    *bool           `json:"isActive"`
	IsAddon     *bool           `json:"isAddon"`
}

type OrderLineResponse struct {
	ItemID       string  `json:"itemId"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	ParentItemID *string `json:"parentItemId,omitempty"`
}

type OrderResponse struct {
	ID            string              `json:"_id"`
	OrderID       string              `json:"orderId"`
	UserID        string              `json:"userId"`
	DisplayName   string              `json:"displayName"`
	TableNumber   string              `json:"tableNumber"`
	PaymentMethod *string             `json:"paymentMethod,omitempty"`
	Items         []OrderLineResponse `json:"items"`
	Total         float64             `json:"total"`
	Status        string              `json:"status"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

type CreateOrderAddonRequest struct {
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity"`
}

type CreateOrderItemRequest struct {
	ItemID   string                    `json:"itemId" validate:"required"`
	Quantity int                       `json:"quantity"`
	Addons   []CreateOrderAddonRequest `json:"addons" validate:"dive"`
}

type CreateOrderRequest struct {
	UserID        string                   `json:"userId" validate:"required"`
	DisplayName   string                   `json:"displayName" validate:"required"`
	TableNumber   string                   `json:"tableNumber" validate:"required"`
	PaymentMethod string                   `json:"paymentMethod" validate:"omitempty,oneof=paypay manual"`
	Items         []CreateOrderItemRequest `json:"items" validate:"required,dive"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

type UserResponse struct {
	ID            string    `json:"_id"`
	UserID        string    `json:"userId"`
	DisplayName   string    `json:"displayName"`
	Role          string    `json:"role"`
	TotalOrders   int       `json:"totalOrders"`
	TotalSpent    float64   `json:"totalSpent"`
	LastOrderDate time.Time `json:"lastOrderDate"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UserUpdateResponse answers PATCH on a derived user. Nothing is written.
type UserUpdateResponse struct {
	UserResponse
	ReadOnly      bool     `json:"readOnly"`
	IgnoredFields []string `json:"ignoredFields"`
}

type UserDeleteResponse struct {
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	Deleted  bool   `json:"deleted"`
	ReadOnly bool   `json:"readOnly"`
}

type AdminUserResponse struct {
	ID          string    `json:"_id"`
	IDAlias     string    `json:"id"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Email       *string   `json:"email,omitempty"`
	Phone       *string   `json:"phone,omitempty"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type LoginRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type SetPasswordRequest struct {
	UserID   string `json:"userId" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string            `json:"token"`
	User  AdminUserResponse `json:"user"`
}

type VerifyResponse struct {
	Valid bool              `json:"valid"`
	User  AdminUserResponse `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type QRResponse struct {
	OrderID    string `json:"orderId"`
	PaymentURL string `json:"paymentUrl"`
	QRURL      string `json:"qrUrl"`
	Provider   string `json:"provider"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type RouteNotFoundResponse struct {
	Error           string   `json:"error"`
	Path            string   `json:"path"`
	AvailableRoutes []string `json:"availableRoutes"`
}

// priceText returns the textual form of a JSON number or numeric string.
// Anything else is passed through and rejected by menu.ParsePrice.
func priceText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	var s string
	if len(raw) > 0 && raw[0] == '"' && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}

func toMenuItemResponse(m *menu.MenuItem) MenuItemResponse {
	return MenuItemResponse{
		ID:          m.ID,
		IDAlias:     m.ID,
		NameEn:      m.NameEn,
		NameJp:      m.NameJp,
		Price:       m.Price.InexactFloat64(),
		ImageURL:    m.ImageURL,
		Category:    m.Category,
		Subcategory: m.Subcategory,
		IsAddon:     m.IsAddon,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, OrderLineResponse{
			ItemID:       l.ItemID,
			Name:         l.Name,
			Quantity:     l.Quantity,
			Price:        l.Price.InexactFloat64(),
			ParentItemID: l.ParentItemID,
		})
	}

	var method *string
	if o.PaymentMethod != nil {
		m := string(*o.PaymentMethod)
		method = &m
	}

	return OrderResponse{
		ID:            o.ID,
		OrderID:       o.Code,
		UserID:        o.UserID,
		DisplayName:   o.DisplayName,
		TableNumber:   o.TableNumber,
		PaymentMethod: method,
		Items:         items,
		Total:         o.Total.InexactFloat64(),
		Status:        o.Status.String(),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toCreateOrderInput(req CreateOrderRequest, idempotencyKey string) order.CreateInput {
	items := make([]order.ItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		addons := make([]order.AddonInput, 0, len(it.Addons))
		for _, a := range it.Addons {
			addons = append(addons, order.AddonInput{ItemID: a.ItemID, Quantity: a.Quantity})
		}
		items = append(items, order.ItemInput{ItemID: it.ItemID, Quantity: it.Quantity, Addons: addons})
	}
	return order.CreateInput{
		UserID:         req.UserID,
		DisplayName:    req.DisplayName,
		TableNumber:    req.TableNumber,
		PaymentMethod:  req.PaymentMethod,
		Items:          items,
		IdempotencyKey: idempotencyKey,
	}
}

// Derived users have no id of their own, so _id carries the user id.
func toUserResponse(c *customer.Customer) UserResponse {
	return UserResponse{
		ID:            c.UserID,
		UserID:        c.UserID,
		DisplayName:   c.DisplayName,
		Role:          c.Role,
		TotalOrders:   c.TotalOrders,
		TotalSpent:    c.TotalSpent.InexactFloat64(),
		LastOrderDate: c.LastOrderDate,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func toAdminUserResponse(u *auth.AdminUser) AdminUserResponse {
	return AdminUserResponse{
		ID:          u.ID,
		IDAlias:     u.ID,
		UserID:      u.UserID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Phone:       u.Phone,
		Role:        strings.ToLower(string(u.Role)),
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func toQRResponse(q *payment.QR) QRResponse {
	return QRResponse{
		OrderID:    q.OrderID,
		PaymentURL: q.PaymentURL,
		QRURL:      q.QRURL,
		Provider:   q.Provider,
	}
}
