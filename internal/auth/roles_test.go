package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/bookhive/internal/domain"
	apperrors "github.com/spec-kit/bookhive/pkg/util/errorutil"
)

type stubFinder struct {
	accounts map[string]*domain.Account
	err      error
}

func (s stubFinder) GetAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	account, ok := s.accounts[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return account, nil
}

func TestAuthorize(t *testing.T) {
	user := &domain.Account{ID: "1", Role: domain.RoleUser}
	admin := &domain.Account{ID: "2", Role: domain.RoleAdmin}

	assert.True(t, apperrors.HasCode(Authorize(user, domain.RoleAdmin), apperrors.CodeForbidden))
	assert.NoError(t, Authorize(admin, domain.RoleAdmin))
	assert.NoError(t, Authorize(user, domain.RoleUser, domain.RoleAdmin))
	assert.True(t, apperrors.HasCode(Authorize(admin), apperrors.CodeForbidden))
	assert.True(t, apperrors.HasCode(Authorize(nil, domain.RoleUser), apperrors.CodeAccountNotFound))
}

func TestRoleGuard_Require(t *testing.T) {
	store, _ := newTestRevocationStore(t)
	tokens := NewTokenManager(testSecret, 0)
	recorder := &countingRecorder{}
	gw := NewGateway(tokens, store, nil, recorder)

	finder := stubFinder{accounts: map[string]*domain.Account{
		"user@x.com":  {ID: "1", Email: "user@x.com", Role: domain.RoleUser},
		"admin@x.com": {ID: "2", Email: "admin@x.com", Role: domain.RoleAdmin},
	}}
	guard := NewRoleGuard(finder, zap.NewNop(), recorder)

	app := fiber.New(fiber.Config{ErrorHandler: renderError})
	app.Get("/access", gw.RequireAccessToken(), guard.Require(domain.RoleAdmin), func(c *fiber.Ctx) error {
		account, ok := AccountFromContext(c)
		if !ok {
			return errors.New("account missing from context")
		}
		return c.JSON(fiber.Map{"email": account.Email})
	})
	f := &gatewayFixture{app: app, tokens: tokens}

	tokenFor := func(email string, role domain.Role) string {
		token, err := tokens.Encode(domain.TokenUser{ID: "x", Email: email, Role: role}, time.Hour, domain.TokenKindAccess)
		require.NoError(t, err)
		return "Bearer " + token
	}

	status, email := f.do(t, http.MethodGet, "/access", tokenFor("admin@x.com", domain.RoleAdmin))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "admin@x.com", email)

	status, code := f.do(t, http.MethodGet, "/access", tokenFor("user@x.com", domain.RoleUser))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeForbidden, code)

	// role comes from the store, not from the token payload
	status, code = f.do(t, http.MethodGet, "/access", tokenFor("user@x.com", domain.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeForbidden, code)

	status, code = f.do(t, http.MethodGet, "/access", tokenFor("gone@x.com", domain.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeAccountNotFound, code)

	assert.Equal(t, []string{apperrors.CodeForbidden, apperrors.CodeForbidden, apperrors.CodeAccountNotFound}, recorder.reasons)
}

func TestRoleGuard_LookupFailure(t *testing.T) {
	guard := NewRoleGuard(stubFinder{err: errors.New("db down")}, nil, nil)
	claims := &Claims{User: domain.TokenUser{Email: "user@x.com"}}

	account, err := guard.Resolve(context.Background(), claims, domain.RoleUser)
	assert.Nil(t, account)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDependencyUnavailable))
}
