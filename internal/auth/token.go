package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/bookhive/internal/domain"
)

var (
	// ErrTokenExpired means the signature was valid but exp has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other decode failure.
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager. leeway is the tolerated clock skew on exp.
func NewTokenManager(secret string, leeway time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), leeway: leeway, now: time.Now}
}

// Claims describes JWT payload.
type Claims struct {
	User    domain.TokenUser `json:"user"`
	Refresh bool             `json:"refresh"`
	jwt.RegisteredClaims
}

// Kind returns the token kind encoded by the refresh flag.
func (c *Claims) Kind() domain.TokenKind {
	if c.Refresh {
		return domain.TokenKindRefresh
	}
	return domain.TokenKindAccess
}

// Encode signs a token for user that expires ttl from now. Every call gets a new jti.
func (tm *TokenManager) Encode(user domain.TokenUser, ttl time.Duration, kind domain.TokenKind) (string, error) {
	now := tm.now()
	claims := &Claims{
		User:    user,
		Refresh: kind == domain.TokenKindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// Decode validates signature, algorithm and expiry and returns the claims.
// Errors are ErrTokenExpired or ErrTokenInvalid wrapping the parser cause.
func (tm *TokenManager) Decode(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(tm.leeway),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
