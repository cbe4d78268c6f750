package models

import "time"

// Roles understood by the permission checks.
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

type User struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	PasswordHash  string    `json:"-"` // Never expose in JSON
	Role          string    `json:"role"` // admin or employee
	AssignedAreas []string  `json:"assigned_areas"` // collection areas this collector covers
	IsActive      bool      `json:"is_active"`
	TOTPSecret    string    `json:"-"`
	TOTPEnabled   bool      `json:"totp_enabled"`
	TOTPVerifiedAt *time.Time `json:"totp_verified_at,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Actor builds the explicit acting-user value passed to services.
func (u *User) Actor() Actor {
	return Actor{
		UserID: u.ID,
		Name:   u.Name,
		Role:   u.Role,
		Areas:  u.AssignedAreas,
	}
}

// SignupRequest represents the request body for signup
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	Password      string   `json:"password"`
	Role          string   `json:"role"`
	AssignedAreas []string `json:"assigned_areas"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	Phone         string   `json:"phone"`
	Password      string   `json:"password,omitempty"` // Optional
	Role          string   `json:"role"`
	AssignedAreas []string `json:"assigned_areas"`
}
