package domain

import "time"

// Role is the closed set of account roles.
type Role string

const (
	RoleNormal Role = "NORMAL"
	RoleAdmin  Role = "ADMIN"
	RoleMaster Role = "MASTER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleNormal, RoleAdmin, RoleMaster:
		return true
	}
	return false
}

// User is an account as persisted by the user store.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// View returns the public projection of u.
func (u *User) View() UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// UserView is a User without the password hash, safe to expose.
type UserView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// TokenPayload is the identity signed into a token at issuance.
//
// It is a snapshot: a later change to the stored user's name or role is not
// reflected until a new token is issued, and authorization decisions are made
// on this snapshot alone.
type TokenPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// PayloadFor builds the token payload for u.
func PayloadFor(u *User) TokenPayload {
	return TokenPayload{ID: u.ID, Name: u.Name, Role: u.Role}
}
