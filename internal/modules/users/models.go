// Package users provides accounts, password authentication and bearer tokens.
package users

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPasswordMismatch   = errors.New("new passwords do not match")
	ErrInvalidToken       = errors.New("invalid token")
)

// User is a registered business account
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CompanyName  string    `json:"company_name"`
	BusinessType string    `json:"business_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest is the payload for creating an account
type RegisterRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	CompanyName  string `json:"company_name"`
	BusinessType string `json:"business_type"`
}

// ProfileUpdate holds the editable company settings
type ProfileUpdate struct {
	CompanyName  string `json:"company_name"`
	BusinessType string `json:"business_type"`
}

// PasswordChange is the payload for changing a password
type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}
