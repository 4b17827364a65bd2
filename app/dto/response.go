package dto

import (
	"time"

	"github.com/avelier/doorkeeper/app/models"
)

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	User        UserResponse `json:"user"`
	AccessToken string       `json:"access_token"`
}

// UserResponse represents user data in API responses (excludes sensitive fields)
type UserResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
}

// ProfileResponse is the full non-secret profile view
type ProfileResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// MeResponse confirms a valid token and echoes the principal
type MeResponse struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message"`
}

// MessageResponse carries a bare status message
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// NewUserResponse projects a stored user into its public view.
func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
	}
}

// NewProfileResponse projects a stored user into the full profile view.
func NewProfileResponse(u *models.User) ProfileResponse {
	return ProfileResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     u.UpdatedAt.Format(time.RFC3339),
	}
}
