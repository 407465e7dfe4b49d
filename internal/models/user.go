package models

import (
	"time"
)

// RoleAdmin is the role name that grants back-office access.
const RoleAdmin = "admin"

// User represents an authentication principal
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role,omitempty"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NewAccount is the data needed to create a user together with its profile.
type NewAccount struct {
	Email        string
	PasswordHash string
	FullName     string
	Phone        *string
	ReferralCode string // code of the sponsoring consultant, may be empty
	OwnCode      string // referral code handed out to the new consultant
	GrantAdmin   bool
}

// SignupRequest represents the request payload for user registration
type SignupRequest struct {
	Email        string  `json:"email" binding:"required,email"`
	Password     string  `json:"password" binding:"required,min=8"`
	FullName     string  `json:"full_name" binding:"required,min=2"`
	Phone        *string `json:"phone,omitempty"`
	ReferralCode string  `json:"referral_code,omitempty"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	Rotate       *bool  `json:"rotate,omitempty"`
}

// LogoutRequest revokes one refresh token, or every session of the caller when empty.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token            string    `json:"token"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshToken     string    `json:"refresh_token,omitempty"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at,omitempty"`
	User             User      `json:"user"`
}

// SessionResponse describes the caller's current session.
type SessionResponse struct {
	User      User      `json:"user"`
	Profile   *Profile  `json:"profile,omitempty"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RefreshToken is a stored session record. Only the hash is persisted.
type RefreshToken struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	Revoked   bool
}

// UpdateRoleRequest grants or revokes the admin role.
type UpdateRoleRequest struct {
	Admin *bool `json:"admin" binding:"required"`
}
