package converter

import "notes-client/internal/model"

// LoginRequest тело POST /v1/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse ответ на вход, регистрацию и GET /v1/auth/session
type SessionResponse struct {
	Token string     `json:"token,omitempty"`
	User  model.User `json:"user"`
}

// PasswordChangeRequest тело POST /v1/auth/password
type PasswordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// CategoriesResponse ответ GET /v1/categories
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// TagsResponse ответ GET /v1/tags
type TagsResponse struct {
	Tags []string `json:"tags"`
}

// StatisticsResponse ответ GET /v1/statistics
type StatisticsResponse struct {
	Statistics model.Statistics `json:"statistics"`
}
