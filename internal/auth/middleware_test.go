package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/bookhive/internal/domain"
	apperrors "github.com/spec-kit/bookhive/pkg/util/errorutil"
)

type failingStore struct{ err error }

func (f failingStore) Revoke(context.Context, string, time.Duration) error { return f.err }
func (f failingStore) IsRevoked(context.Context, string) (bool, error)     { return false, f.err }

type countingRecorder struct{ reasons []string }

func (r *countingRecorder) RecordAuthRejection(reason string) { r.reasons = append(r.reasons, reason) }

func renderError(c *fiber.Ctx, err error) error {
	domainErr := apperrors.ToDomainError(err)
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{"code": domainErr.Code}})
}

type gatewayFixture struct {
	app      *fiber.App
	tokens   *TokenManager
	store    RevocationStore
	logs     *observer.ObservedLogs
	recorder *countingRecorder
}

func newGatewayFixture(t *testing.T, store RevocationStore) *gatewayFixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	tokens := NewTokenManager(testSecret, 0)
	recorder := &countingRecorder{}
	gw := NewGateway(tokens, store, zap.New(core), recorder)

	app := fiber.New(fiber.Config{ErrorHandler: renderError})
	ok := func(c *fiber.Ctx) error {
		claims, _ := ClaimsFromContext(c)
		return c.JSON(fiber.Map{"email": claims.User.Email})
	}
	app.Get("/access", gw.RequireAccessToken(), ok)
	app.Post("/refresh", gw.RequireRefreshToken(), ok)

	return &gatewayFixture{app: app, tokens: tokens, store: store, logs: logs, recorder: recorder}
}

func (f *gatewayFixture) do(t *testing.T, method, path, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Email string `json:"email"`
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	if resp.StatusCode == http.StatusOK {
		return resp.StatusCode, body.Email
	}
	return resp.StatusCode, body.Error.Code
}

func (f *gatewayFixture) token(t *testing.T, ttl time.Duration, kind domain.TokenKind) string {
	t.Helper()
	token, err := f.tokens.Encode(testUser, ttl, kind)
	require.NoError(t, err)
	return token
}

func TestGateway_AcceptsMatchingKind(t *testing.T) {
	store, _ := newTestRevocationStore(t)
	f := newGatewayFixture(t, store)

	status, email := f.do(t, http.MethodGet, "/access", "Bearer "+f.token(t, time.Hour, domain.TokenKindAccess))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, testUser.Email, email)

	status, email = f.do(t, http.MethodPost, "/refresh", "bearer "+f.token(t, time.Hour, domain.TokenKindRefresh))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, testUser.Email, email)
	assert.Empty(t, f.recorder.reasons)
}

func TestGateway_HeaderProblems(t *testing.T) {
	store, _ := newTestRevocationStore(t)
	f := newGatewayFixture(t, store)

	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic abc", "Token abc.def.ghi"} {
		status, code := f.do(t, http.MethodGet, "/access", header)
		assert.Equal(t, http.StatusForbidden, status, "header %q", header)
		assert.Equal(t, apperrors.CodeMissingToken, code)
	}
}

func TestGateway_InvalidOrExpired(t *testing.T) {
	store, _ := newTestRevocationStore(t)
	f := newGatewayFixture(t, store)

	foreign, err := NewTokenManager(otherSecret, 0).Encode(testUser, time.Hour, domain.TokenKindAccess)
	require.NoError(t, err)

	for _, token := range []string{"garbage", foreign, f.token(t, -time.Minute, domain.TokenKindAccess)} {
		status, code := f.do(t, http.MethodGet, "/access", "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, apperrors.CodeInvalidToken, code)
	}

	expired := f.logs.FilterField(zap.Bool("expired", true)).Len()
	assert.Equal(t, 1, expired, "only the expired token is flagged in logs")
}

func TestGateway_WrongKind(t *testing.T) {
	store, _ := newTestRevocationStore(t)
	f := newGatewayFixture(t, store)

	status, code := f.do(t, http.MethodGet, "/access", "Bearer "+f.token(t, time.Hour, domain.TokenKindRefresh))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeAccessTokenRequired, code)

	status, code = f.do(t, http.MethodPost, "/refresh", "Bearer "+f.token(t, time.Hour, domain.TokenKindAccess))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeRefreshTokenRequired, code)

	assert.Equal(t, []string{apperrors.CodeAccessTokenRequired, apperrors.CodeRefreshTokenRequired}, f.recorder.reasons)
}

func TestGateway_RevokedUntilTTLElapses(t *testing.T) {
	store, mini := newTestRevocationStore(t)
	f := newGatewayFixture(t, store)
	token := f.token(t, 2*time.Hour, domain.TokenKindAccess)

	claims, err := f.tokens.Decode(token)
	require.NoError(t, err)
	require.NoError(t, store.Revoke(context.Background(), claims.ID, time.Hour))

	status, code := f.do(t, http.MethodGet, "/access", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apperrors.CodeTokenRevoked, code)

	entries := f.logs.FilterMessage("auth gateway rejected request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, testUser.ID, fields["account_id"])
	assert.Equal(t, apperrors.CodeTokenRevoked, fields["reason"])
	for _, v := range fields {
		assert.NotEqual(t, token, v, "token must never be logged")
	}

	mini.FastForward(time.Hour + time.Second)
	status, _ = f.do(t, http.MethodGet, "/access", "Bearer "+token)
	assert.Equal(t, http.StatusOK, status)
}

func TestGateway_FailsClosedWhenStoreUnavailable(t *testing.T) {
	f := newGatewayFixture(t, failingStore{err: errors.New("connection refused")})

	status, code := f.do(t, http.MethodGet, "/access", "Bearer "+f.token(t, time.Hour, domain.TokenKindAccess))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, apperrors.CodeDependencyUnavailable, code)
	assert.Equal(t, 1, f.logs.FilterMessage("auth gateway failed").Len())
}

func TestGateway_AuthenticateReturnsNoClaimsOnRejection(t *testing.T) {
	store, _ := newTestRevocationStore(t)
	tokens := NewTokenManager(testSecret, 0)
	gw := NewGateway(tokens, store, nil, nil)

	refresh, err := tokens.Encode(testUser, time.Hour, domain.TokenKindRefresh)
	require.NoError(t, err)

	claims, err := gw.Authenticate(context.Background(), "Bearer "+refresh, domain.TokenKindAccess)
	assert.Nil(t, claims)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAccessTokenRequired))

	claims, err = gw.Authenticate(context.Background(), "Bearer "+refresh, domain.TokenKindRefresh)
	require.NoError(t, err)
	assert.Equal(t, testUser, claims.User)
}
