package http

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"github.com/spec-kit/bookhive/internal/auth"
	"github.com/spec-kit/bookhive/internal/observability"
	apperrors "github.com/spec-kit/bookhive/pkg/util/errorutil"
)

// RegisterMiddlewares attaches global middlewares such as error handling, CORS and logging.
// The request logger sits outside the error handler so it sees the final status.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(cors.New())
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			logged := false
			if r := recover(); r != nil {
				logged = true
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				sentry.WithScope(func(scope *sentry.Scope) {
					scope.SetExtra("panic", r)
					scope.SetExtra("path", c.Path())
					sentry.CaptureMessage("panic in request")
				})
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				domainErr := toDomainError(err)
				metrics.RecordError(observability.RouteLabel(c), c.Method(), domainErr.Code)
				response := fiber.Map{"error": fiber.Map{
					"code":    domainErr.Code,
					"message": domainErr.Message,
				}}
				if len(domainErr.Details) > 0 {
					response["error"].(fiber.Map)["details"] = domainErr.Details
				}
				if !logged && !auth.RejectionLogged(c) {
					logRejection(logger, c, domainErr)
				}
				if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
					sentry.CaptureException(domainErr)
				}
				c.Status(domainErr.HTTPStatus)
				_ = c.JSON(response)
				err = nil
			}
		}()
		return c.Next()
	}
}

// logRejection writes the single log entry for an error response. The gateway
// and role guard log their own rejections and are skipped here.
func logRejection(logger *zap.Logger, c *fiber.Ctx, domainErr *apperrors.DomainError) {
	fields := []zap.Field{
		zap.String("path", c.Path()),
		zap.String("method", c.Method()),
		zap.String("reason", domainErr.Code),
	}
	accountID := domainErr.AccountID
	if claims, ok := auth.ClaimsFromContext(c); ok && accountID == "" {
		accountID = claims.User.ID
	}
	if accountID != "" {
		fields = append(fields, zap.String("account_id", accountID))
	}

	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed", append(fields, zap.Error(domainErr))...)
		return
	}
	logger.Warn("request rejected", fields...)
}

// toDomainError additionally understands fiber's own errors (unknown route,
// method not allowed, unparsable body) so they keep their status.
func toDomainError(err error) *apperrors.DomainError {
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		return apperrors.ToDomainError(err)
	}
	switch fe.Code {
	case fiber.StatusNotFound:
		return apperrors.NewDomainError(apperrors.CodeNotFound, fe.Message, fe.Code, nil)
	case fiber.StatusTooManyRequests:
		return apperrors.NewDomainError(apperrors.CodeTooManyRequests, fe.Message, fe.Code, nil)
	}
	if fe.Code >= fiber.StatusInternalServerError {
		return apperrors.NewInternalError(fe).(*apperrors.DomainError)
	}
	code := strings.ToUpper(strings.ReplaceAll(utils.StatusMessage(fe.Code), " ", "_"))
	return apperrors.NewDomainError(code, fe.Message, fe.Code, nil)
}
