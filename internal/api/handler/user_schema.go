package handler

import (
	"github.com/labook/users-api/internal/core/ports"
)

// --- Request types ---

type signupRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// deleteUserRequest carries the target account's password. The body is
// optional; a present password must not be empty.
type deleteUserRequest struct {
	Password *string `json:"password,omitempty" validate:"omitempty,min=1"`
}

// --- Response types ---

type authResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Mappers ---

func (r signupRequest) toInput() ports.SignupInput {
	return ports.SignupInput{Name: r.Name, Email: r.Email, Password: r.Password}
}

func (r loginRequest) toInput() ports.LoginInput {
	return ports.LoginInput{Email: r.Email, Password: r.Password}
}

func toAuthResponse(out *ports.AuthOutput) authResponse {
	return authResponse{Message: out.Message, Token: out.Token}
}
