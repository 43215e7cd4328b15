package user

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RegisterRequest payload for POST /user/create.
// swagger:model RegisterRequest
type RegisterRequest struct {
	Name            string `json:"name" example:"Ana"`
	Email           string `json:"email" example:"ana@example.com"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest payload for POST /user/login.
// swagger:model LoginRequest
type LoginRequest struct {
	Email    string `json:"email" example:"ana@example.com"`
	Password string `json:"password"`
}
