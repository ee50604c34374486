package menu

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID          string
	NameEn      string
	NameJp      string
	Price       decimal.Decimal
	ImageURL    string
	Category    string
	Subcategory *string
	IsAddon     bool
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput carries the raw price text so that numbers and numeric
// strings are handled the same way.
type CreateInput struct {
	NameEn      string
	NameJp      string
	Price       string
	ImageURL    string
	Category    string
	Subcategory *string
	IsActive    *bool
	IsAddon     bool
}

// UpdateInput is a partial update; nil fields are left untouched.
// An empty Subcategory clears it.
type UpdateInput struct {
	NameEn      *string
	NameJp      *string
	Price       *string
	ImageURL    *string
	Category    *string
	Subcategory *string
	IsActive    *bool
	IsAddon     *bool
}

// Changes is the validated form of UpdateInput handed to the repository.
type Changes struct {
	NameEn      *string
	NameJp      *string
	Price       *decimal.Decimal
	ImageURL    *string
	Category    *string
	Subcategory *string
	IsActive    *bool
	IsAddon     *bool
	UpdatedAt   time.Time
}
