package ports

import (
	"context"

	"github.com/labook/users-api/internal/core/domain"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// FindUsers returns users whose name contains q (case-insensitive).
	// An empty q returns every user.
	FindUsers(ctx context.Context, q string) ([]*domain.User, error)
	// FindByID returns the full record, password hash included.
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindViewByID returns the public view of a user. Implementations may
	// serve it from a cache.
	FindViewByID(ctx context.Context, id string) (*domain.UserView, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	// Insert stores a new user. Returns domain.ErrUserExists on a duplicate email.
	Insert(ctx context.Context, user *domain.User) error
	// DeleteByID removes the user. Returns domain.ErrUserNotFound when no
	// record was deleted.
	DeleteByID(ctx context.Context, id string) error
}
