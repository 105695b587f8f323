package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"acquisitions-api/internal/domain"
)

// DefaultTokenTTL is the validity window of an issued session token.
const DefaultTokenTTL = 24 * time.Hour

// Claims are the identity facts embedded in a session token.
type Claims struct {
	ID    int64
	Email string
	Role  domain.Role
}

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

// Issuer signs session tokens.
type Issuer interface {
	Issue(claims Claims) (string, error)
}

// Verifier validates session tokens.
type Verifier interface {
	Verify(token string) (Claims, error)
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID int64       `json:"id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
}

// TokenManager issues and verifies HS256 session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a TokenManager. A non-positive TTL uses DefaultTokenTTL.
func NewTokenManager(cfg TokenConfig) *TokenManager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the validity window applied to issued tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

func (m *TokenManager) Issue(claims Claims) (string, error) {
	if len(m.secret) == 0 {
		return "", fmt.Errorf("signing secret is not configured: %w", ErrSigning)
	}

	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(claims.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID: claims.ID,
		Email:  claims.Email,
		Role:   claims.Role,
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

func (m *TokenManager) Verify(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, ErrInvalidToken
	}

	parsed := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, parsed, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || parsed.UserID <= 0 || parsed.Email == "" || !parsed.Role.Valid() {
		return Claims{}, ErrInvalidToken
	}

	return Claims{
		ID:    parsed.UserID,
		Email: parsed.Email,
		Role:  parsed.Role,
	}, nil
}
