package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bookhive/internal/api/dto"
	"github.com/spec-kit/bookhive/internal/auth"
	"github.com/spec-kit/bookhive/internal/service"
	apperrors "github.com/spec-kit/bookhive/pkg/util/errorutil"
)

const tokenType = "bearer"

// AccountsHandler exposes signup, token and profile endpoints.
type AccountsHandler struct {
	accounts *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accountService *service.AccountService) *AccountsHandler {
	return &AccountsHandler{accounts: accountService}
}

// SignUp handles POST /api/users/signup.
func (h *AccountsHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	account, err := h.accounts.SignUp(c.UserContext(), service.SignUpInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.NewAccountResponse(account))
}

// Token handles POST /api/users/auth/token.
func (h *AccountsHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	pair, err := h.accounts.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    tokenType,
	})
}

// RefreshToken handles POST /api/users/auth/refresh-token. Requires a refresh bearer.
func (h *AccountsHandler) RefreshToken(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewForbidden(apperrors.CodeMissingToken, "authentication required")
	}

	token, err := h.accounts.Refresh(c.UserContext(), claims.User)
	if err != nil {
		return err
	}
	return c.JSON(dto.AccessTokenResponse{AccessToken: token, TokenType: tokenType})
}

// RevokeToken handles GET /api/users/auth/token/revoke. Revokes the presented access token.
func (h *AccountsHandler) RevokeToken(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromContext(c)
	if !ok {
		return apperrors.NewForbidden(apperrors.CodeMissingToken, "authentication required")
	}

	if err := h.accounts.Revoke(c.UserContext(), claims.User.ID, claims.ID); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "token revoked"})
}

// Me handles GET /api/users/me.
func (h *AccountsHandler) Me(c *fiber.Ctx) error {
	account, ok := auth.AccountFromContext(c)
	if !ok {
		return apperrors.NewForbidden(apperrors.CodeAccountNotFound, "account not found")
	}
	return c.JSON(dto.NewAccountResponse(account))
}

// GetByID handles GET /api/users/:id. Admin only.
func (h *AccountsHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFound("user", nil)
	}

	account, err := h.accounts.GetAccount(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", nil)
		}
		return apperrors.NewDependencyUnavailable("account store", err)
	}
	return c.JSON(dto.NewAccountResponse(account))
}
