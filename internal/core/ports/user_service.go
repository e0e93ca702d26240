package ports

import (
	"context"

	"github.com/labook/users-api/internal/core/domain"
)

// SignupInput is the DTO for creating an account.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput is the DTO for authenticating.
type LoginInput struct {
	Email    string
	Password string
}

// ListUsersInput carries the optional name query and the caller's token.
type ListUsersInput struct {
	Query string
	Token string
}

// GetUserInput identifies the user to fetch.
type GetUserInput struct {
	ID    string
	Token string
}

// DeleteUserInput identifies the user to delete. Password is the target
// account's password, required by some (caller, target) role pairs.
type DeleteUserInput struct {
	ID       string
	Token    string
	Password *string
}

// AuthOutput is returned by signup and login.
type AuthOutput struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// MessageOutput is a plain confirmation.
type MessageOutput struct {
	Message string `json:"message"`
}

// UserService defines the account use cases.
type UserService interface {
	Signup(ctx context.Context, input SignupInput) (*AuthOutput, error)
	Login(ctx context.Context, input LoginInput) (*AuthOutput, error)
	ListUsers(ctx context.Context, input ListUsersInput) ([]domain.UserView, error)
	GetUserByID(ctx context.Context, input GetUserInput) (*domain.UserView, error)
	DeleteUserByID(ctx context.Context, input DeleteUserInput) (*MessageOutput, error)
}
