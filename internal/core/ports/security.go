package ports

import "github.com/labook/users-api/internal/core/domain"

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	// Compare reports whether plain matches hash. A non-nil error means the
	// comparison itself failed, not a mismatch.
	Compare(plain, hash string) (bool, error)
}

// TokenManager issues and decodes signed tokens.
type TokenManager interface {
	CreateToken(payload domain.TokenPayload) (string, error)
	// GetPayload returns an error for any invalid, expired or malformed token.
	GetPayload(token string) (*domain.TokenPayload, error)
}

// IDGenerator produces globally unique ids.
type IDGenerator interface {
	Generate() string
}
