package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleManager Role = "Manager"
)

// CanAdminister reports whether the role may use the admin console.
func (r Role) CanAdminister() bool {
	return r == RoleAdmin || r == RoleManager
}

type AdminUser struct {
	ID           string
	UserID       string
	DisplayName  string
	Email        *string
	Phone        *string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Claims are carried by admin session tokens.
type Claims struct {
	AdminID     string `json:"id"`
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	jwt.RegisteredClaims
}

type Session struct {
	Token string
	User  *AdminUser
}

type CreateAdminInput struct {
	UserID      string
	DisplayName string
	Email       string
	Phone       string
	Role        Role
	Password    string
}
