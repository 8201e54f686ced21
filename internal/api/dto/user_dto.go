package dto

import (
	"time"

	"github.com/spec-kit/account-api/internal/domain"
)

// UserCreateRequest payload for registration.
type UserCreateRequest struct {
	Email    string  `json:"email" validate:"required,email,max=320"`
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Password string  `json:"password" validate:"required,min=8,max=100"`
	FullName *string `json:"full_name" validate:"omitempty,max=100"`
}

// UserUpdateRequest is a partial update; absent fields are left untouched.
type UserUpdateRequest struct {
	Email       *string `json:"email" validate:"omitempty,email,max=320"`
	Username    *string `json:"username" validate:"omitempty,min=3,max=50"`
	FullName    *string `json:"full_name" validate:"omitempty,max=100"`
	Password    *string `json:"password" validate:"omitempty,min=8,max=100"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// Patch converts the request to a domain patch.
func (r UserUpdateRequest) Patch() domain.UserPatch {
	return domain.UserPatch{
		Email:       r.Email,
		Username:    r.Username,
		FullName:    r.FullName,
		Password:    r.Password,
		IsActive:    r.IsActive,
		IsSuperuser: r.IsSuperuser,
	}
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	FullName    *string   `json:"full_name"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
