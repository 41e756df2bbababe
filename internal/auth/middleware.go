package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/bookhive/internal/domain"
	apperrors "github.com/spec-kit/bookhive/pkg/util/errorutil"
)

const (
	claimsKey          = "auth_claims"
	rejectionLoggedKey = "auth_rejection_logged"
)

// RejectionRecorder counts gateway and guard rejections by reason code.
type RejectionRecorder interface {
	RecordAuthRejection(reason string)
}

// Gateway validates bearer tokens: decode, denylist lookup, kind check.
type Gateway struct {
	tokens  *TokenManager
	revoked RevocationStore
	logger  *zap.Logger
	metrics RejectionRecorder
}

// NewGateway constructs the gateway. metrics may be nil.
func NewGateway(tokens *TokenManager, revoked RevocationStore, logger *zap.Logger, metrics RejectionRecorder) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{tokens: tokens, revoked: revoked, logger: logger, metrics: metrics}
}

// Authenticate runs the pipeline for an Authorization header value and returns
// the claims when the token is acceptable for an endpoint requiring want.
func (g *Gateway) Authenticate(ctx context.Context, header string, want domain.TokenKind) (*Claims, error) {
	claims, err := g.authenticate(ctx, header, want)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// authenticate returns any claims decoded before a rejection so callers can log them.
func (g *Gateway) authenticate(ctx context.Context, header string, want domain.TokenKind) (*Claims, error) {
	token, ok := bearerToken(header)
	if !ok {
		return nil, apperrors.NewForbidden(apperrors.CodeMissingToken, "missing or malformed authorization header")
	}

	claims, err := g.tokens.Decode(token)
	if err != nil {
		return nil, &apperrors.DomainError{
			Code:       apperrors.CodeInvalidToken,
			Message:    "token is invalid or has expired",
			HTTPStatus: http.StatusForbidden,
			Err:        err,
		}
	}

	revoked, err := g.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return claims, apperrors.NewDependencyUnavailable("revocation store", err)
	}
	if revoked {
		return claims, apperrors.NewForbidden(apperrors.CodeTokenRevoked, "token has been revoked")
	}

	if claims.Kind() != want {
		if want == domain.TokenKindRefresh {
			return claims, apperrors.NewForbidden(apperrors.CodeRefreshTokenRequired, "please provide a refresh token")
		}
		return claims, apperrors.NewForbidden(apperrors.CodeAccessTokenRequired, "please provide an access token instead of a refresh token")
	}

	return claims, nil
}

// Require returns a fiber handler enforcing the pipeline for the given token kind.
func (g *Gateway) Require(want domain.TokenKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := g.authenticate(c.UserContext(), c.Get(fiber.HeaderAuthorization), want)
		if err != nil {
			g.reject(c, claims, err)
			return err
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// RequireAccessToken rejects refresh tokens.
func (g *Gateway) RequireAccessToken() fiber.Handler {
	return g.Require(domain.TokenKindAccess)
}

// RequireRefreshToken rejects access tokens.
func (g *Gateway) RequireRefreshToken() fiber.Handler {
	return g.Require(domain.TokenKindRefresh)
}

func (g *Gateway) reject(c *fiber.Ctx, claims *Claims, err error) {
	domainErr := apperrors.ToDomainError(err)
	fields := []zap.Field{
		zap.String("path", c.Path()),
		zap.String("method", c.Method()),
		zap.String("reason", domainErr.Code),
	}
	if claims != nil {
		fields = append(fields, zap.String("account_id", claims.User.ID), zap.String("jti", claims.ID))
	}
	if errors.Is(err, ErrTokenExpired) {
		fields = append(fields, zap.Bool("expired", true))
	}

	if domainErr.HTTPStatus >= http.StatusInternalServerError {
		g.logger.Error("auth gateway failed", append(fields, zap.Error(domainErr.Err))...)
	} else {
		g.logger.Warn("auth gateway rejected request", fields...)
	}
	if g.metrics != nil {
		g.metrics.RecordAuthRejection(domainErr.Code)
	}
	c.Locals(rejectionLoggedKey, true)
}

// RejectionLogged reports whether the gateway or role guard already logged
// the error returned for this request.
func RejectionLogged(c *fiber.Ctx) bool {
	logged, _ := c.Locals(rejectionLoggedKey).(bool)
	return logged
}

// ClaimsFromContext returns the claims stored by the gateway.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
