package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/bookhive/internal/auth"
	"github.com/spec-kit/bookhive/internal/config"
	"github.com/spec-kit/bookhive/internal/domain"
	"github.com/spec-kit/bookhive/internal/events"
	"github.com/spec-kit/bookhive/internal/repository"
	apperrors "github.com/spec-kit/bookhive/pkg/util/errorutil"
)

// SignUpInput carries the fields accepted at registration.
type SignUpInput struct {
	Username  string
	Email     string
	Password  string
	FirstName *string
	LastName  *string
}

// AccountService coordinates registration, login, refresh and revocation.
type AccountService struct {
	accounts           repository.AccountRepository
	revocations        auth.RevocationStore
	dispatcher         events.Dispatcher
	logger             *zap.Logger
	hasher             *auth.Hasher
	tokenMgr           *auth.TokenManager
	accessTTL          time.Duration
	refreshTTL         time.Duration
	refreshedAccessTTL time.Duration
}

// AccountDependencies encapsulates collaborators of the account service.
type AccountDependencies struct {
	AccountRepo repository.AccountRepository
	Revocations auth.RevocationStore
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(cfg config.Config, deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		accounts:    deps.AccountRepo,
		revocations: deps.Revocations,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		hasher: auth.NewHasher(auth.HasherParams{
			Time:     uint32(cfg.Auth.Argon2Time),
			MemoryKB: uint32(cfg.Auth.Argon2MemoryKB),
			Threads:  uint8(cfg.Auth.Argon2Threads),
		}),
		tokenMgr:           auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.ClockSkew()),
		accessTTL:          cfg.Auth.AccessTTL(),
		refreshTTL:         cfg.Auth.RefreshTTL(),
		refreshedAccessTTL: cfg.Auth.RefreshedAccessTTL(),
	}
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp registers a new account with the default role.
func (s *AccountService) SignUp(ctx context.Context, in SignUpInput) (*domain.Account, error) {
	email := NormalizeEmail(in.Email)

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, errAlreadyExists()
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewDependencyUnavailable("account store", err)
	}

	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		Username:     strings.TrimSpace(in.Username),
		Email:        email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		Role:         domain.DefaultRole,
		IsVerified:   false,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		// lost the race against a concurrent signup; the unique index decided
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, errAlreadyExists()
		}
		return nil, apperrors.NewDependencyUnavailable("account store", err)
	}

	s.publish(ctx, events.EventAccountRegistered, account.ID, events.AccountRegisteredPayload{
		Username: account.Username,
		Email:    account.Email,
	})
	return account, nil
}

// Authenticate verifies credentials and issues an access/refresh pair.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	account, err := s.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.NewDependencyUnavailable("account store", err)
	}

	ok, err := s.hasher.ComparePassword(account.PasswordHash, password)
	if err != nil {
		return nil, apperrors.WithAccount(apperrors.NewInternalError(fmt.Errorf("stored password hash: %w", err)), account.ID)
	}
	if !ok {
		return nil, apperrors.WithAccount(
			apperrors.NewUnauthorized(apperrors.CodeInvalidCredentials, "invalid email or password"),
			account.ID,
		)
	}

	user := account.TokenUser()
	access, err := s.tokenMgr.Encode(user, s.accessTTL, domain.TokenKindAccess)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	refresh, err := s.tokenMgr.Encode(user, s.refreshTTL, domain.TokenKindRefresh)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.EventAccountLoggedIn, account.ID, nil)
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh mints a short-lived access token for a payload already validated by
// the refresh-token gateway.
func (s *AccountService) Refresh(_ context.Context, user domain.TokenUser) (string, error) {
	token, err := s.tokenMgr.Encode(user, s.refreshedAccessTTL, domain.TokenKindAccess)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return token, nil
}

// Revoke denylists jti for the longest token lifetime.
func (s *AccountService) Revoke(ctx context.Context, accountID, jti string) error {
	if err := s.revocations.Revoke(ctx, jti, s.MaxTokenLifetime()); err != nil {
		return apperrors.NewDependencyUnavailable("revocation store", err)
	}
	s.publish(ctx, events.EventTokenRevoked, accountID, events.TokenRevokedPayload{JTI: jti})
	return nil
}

// MaxTokenLifetime is the longest TTL any issued token can carry.
func (s *AccountService) MaxTokenLifetime() time.Duration {
	longest := s.accessTTL
	for _, ttl := range []time.Duration{s.refreshTTL, s.refreshedAccessTTL} {
		if ttl > longest {
			longest = ttl
		}
	}
	return longest
}

// GetAccount loads an account by identifier.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

// GetAccountByEmail loads an account by (normalised) email.
func (s *AccountService) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.accounts.GetByEmail(ctx, NormalizeEmail(email))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AccountService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AccountService) publish(ctx context.Context, eventType events.EventType, accountID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		AccountID: accountID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func errAlreadyExists() error {
	return apperrors.NewConflict(apperrors.CodeAlreadyExists, "user already exists", nil)
}
