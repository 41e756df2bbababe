package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/spec-kit/bookhive/internal/api/http/handlers"
	"github.com/spec-kit/bookhive/internal/auth"
	"github.com/spec-kit/bookhive/internal/domain"
	"github.com/spec-kit/bookhive/internal/observability"
	apperrors "github.com/spec-kit/bookhive/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Accounts    *handlers.AccountsHandler
	Gateway     *auth.Gateway
	Roles       *auth.RoleGuard
	Metrics     *observability.Metrics
	LoginLimit  int
	LoginWindow time.Duration
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	users := app.Group("/api/users")
	users.Post("/signup", cfg.Accounts.SignUp)
	users.Post("/auth/token", loginLimiter(cfg.LoginLimit, cfg.LoginWindow), cfg.Accounts.Token)
	users.Post("/auth/refresh-token", cfg.Gateway.RequireRefreshToken(), cfg.Accounts.RefreshToken)
	users.Get("/auth/token/revoke", cfg.Gateway.RequireAccessToken(), cfg.Accounts.RevokeToken)

	// /me before /:id so it is not captured as an identifier
	users.Get("/me", cfg.Gateway.RequireAccessToken(), cfg.Roles.Require(domain.RoleUser, domain.RoleAdmin), cfg.Accounts.Me)
	users.Get("/:id", cfg.Gateway.RequireAccessToken(), cfg.Roles.Require(domain.RoleAdmin), cfg.Accounts.GetByID)
}

// loginLimiter throttles credential attempts per client IP. limit <= 0 disables it.
func loginLimiter(limit int, window time.Duration) fiber.Handler {
	if limit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	if window <= 0 {
		window = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        limit,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return apperrors.NewTooManyRequests("too many login attempts, try again later")
		},
	})
}
