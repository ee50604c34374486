package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusReceived  Status = "Received"
	StatusPreparing Status = "Preparing"
	StatusReady     Status = "Ready"
	StatusCompleted Status = "Completed"
)

func (s Status) String() string {
	return string(s)
}

// Valid reports whether s is one of the four kitchen states. Any valid
// state may follow any other.
func (s Status) Valid() bool {
	switch s {
	case StatusReceived, StatusPreparing, StatusReady, StatusCompleted:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentPayPay PaymentMethod = "paypay"
	PaymentManual PaymentMethod = "manual"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentPayPay || p == PaymentManual
}

// Line is a snapshot of a menu item taken when the order was placed.
// It is never modified afterwards.
type Line struct {
	ID           string
	OrderID      string
	ItemID       string
	Name         string
	Quantity     int
	Price        decimal.Decimal
	ParentItemID *string
	CreatedAt    time.Time
}

type Order struct {
	ID            string
	Code          string
	UserID        string
	DisplayName   string
	TableNumber   string
	PaymentMethod *PaymentMethod
	Lines         []Line
	Total         decimal.Decimal
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Summary is the slice of an order needed to aggregate customers.
type Summary struct {
	UserID      string
	DisplayName string
	Total       decimal.Decimal
	CreatedAt   time.Time
}

type AddonInput struct {
	ItemID   string
	Quantity int
}

type ItemInput struct {
	ItemID   string
	Quantity int
	Addons   []AddonInput
}

type CreateInput struct {
	UserID         string
	DisplayName    string
	TableNumber    string
	PaymentMethod  string
	Items          []ItemInput
	IdempotencyKey string
}
