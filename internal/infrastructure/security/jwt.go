package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/labook/users-api/internal/core/domain"
)

const defaultTokenTTL = 24 * time.Hour

var errInvalidClaims = errors.New("token has no subject or an unknown role")

// Claims is the JWT body: the user snapshot plus registered claims.
type Claims struct {
	jwt.RegisteredClaims
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
}

// JWTManager implements ports.TokenManager with HS256 tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager returns a manager signing with secret. A non-positive ttl
// falls back to 24h.
func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// CreateToken signs payload. The user id travels as the subject.
func (m *JWTManager) CreateToken(payload domain.TokenPayload) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   payload.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Name: payload.Name,
		Role: payload.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// GetPayload verifies the signature, expiry and role of token.
func (m *JWTManager) GetPayload(token string) (*domain.TokenPayload, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("parse token: %w", jwt.ErrTokenInvalidClaims)
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, errInvalidClaims
	}

	return &domain.TokenPayload{ID: claims.Subject, Name: claims.Name, Role: claims.Role}, nil
}
