package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/bookhive/internal/domain"
	apperrors "github.com/spec-kit/bookhive/pkg/util/errorutil"
)

const accountKey = "auth_account"

// AccountFinder resolves the account named by a token.
type AccountFinder interface {
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// Authorize allows account iff its role is one of allowed.
func Authorize(account *domain.Account, allowed ...domain.Role) error {
	if account == nil {
		return apperrors.NewForbidden(apperrors.CodeAccountNotFound, "account not found")
	}
	for _, role := range allowed {
		if account.Role == role {
			return nil
		}
	}
	return apperrors.NewForbidden(apperrors.CodeForbidden, "insufficient permission")
}

// RoleGuard loads the caller's account and checks its role.
type RoleGuard struct {
	accounts AccountFinder
	logger   *zap.Logger
	metrics  RejectionRecorder
}

// NewRoleGuard builds the guard. metrics may be nil.
func NewRoleGuard(accounts AccountFinder, logger *zap.Logger, metrics RejectionRecorder) *RoleGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleGuard{accounts: accounts, logger: logger, metrics: metrics}
}

// Resolve looks up the account for claims and authorizes it.
func (g *RoleGuard) Resolve(ctx context.Context, claims *Claims, allowed ...domain.Role) (*domain.Account, error) {
	account, err := g.accounts.GetAccountByEmail(ctx, claims.User.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewForbidden(apperrors.CodeAccountNotFound, "account not found")
		}
		return nil, apperrors.NewDependencyUnavailable("account store", fmt.Errorf("load account: %w", err))
	}
	if err := Authorize(account, allowed...); err != nil {
		return nil, err
	}
	return account, nil
}

// Require must be mounted after Gateway.RequireAccessToken.
func (g *RoleGuard) Require(allowed ...domain.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		if !ok {
			return apperrors.NewForbidden(apperrors.CodeMissingToken, "authentication required")
		}

		account, err := g.Resolve(c.UserContext(), claims, allowed...)
		if err != nil {
			domainErr := apperrors.ToDomainError(err)
			fields := []zap.Field{
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("account_id", claims.User.ID),
				zap.String("reason", domainErr.Code),
			}
			if domainErr.HTTPStatus >= http.StatusInternalServerError {
				g.logger.Error("role guard failed", append(fields, zap.Error(domainErr.Err))...)
			} else {
				g.logger.Warn("role guard rejected request", fields...)
			}
			if g.metrics != nil {
				g.metrics.RecordAuthRejection(domainErr.Code)
			}
			c.Locals(rejectionLoggedKey, true)
			return err
		}

		c.Locals(accountKey, account)
		return c.Next()
	}
}

// AccountFromContext returns the account resolved by the role guard.
func AccountFromContext(c *fiber.Ctx) (*domain.Account, bool) {
	val := c.Locals(accountKey)
	if val == nil {
		return nil, false
	}
	account, ok := val.(*domain.Account)
	return account, ok
}
