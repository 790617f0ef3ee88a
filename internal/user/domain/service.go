package domain

import (
	"context"
	"errors"
)

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

type UpdateUserRequest struct {
	FullName *string `json:"full_name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type ListUserRequest struct {
	Role     string
	IsActive *bool
	Limit    int
	Offset   int
}

type Service interface {
	Create(ctx context.Context, req CreateUserRequest) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	List(ctx context.Context, req ListUserRequest) ([]User, error)
	Update(ctx context.Context, id string, req UpdateUserRequest) (User, error)
	Deactivate(ctx context.Context, id string) error
}

var (
	ErrUserNotFound  = errors.New("user_not_found")
	ErrInvalidUserID = errors.New("invalid_user_id")
	ErrEmailTaken    = errors.New("email_taken")
	ErrInvalidRole   = errors.New("invalid_role")
)
