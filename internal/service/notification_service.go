package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/bookhive/internal/config"
	"github.com/spec-kit/bookhive/internal/events"
)

// NotificationService reacts to account events. Delivery is stubbed through the logger.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAccountRegistered, n.handleAccountRegistered)
	n.dispatcher.Subscribe(events.EventAccountLoggedIn, n.handleAccountLoggedIn)
	n.dispatcher.Subscribe(events.EventTokenRevoked, n.handleTokenRevoked)
}

func (n *NotificationService) handleAccountRegistered(ctx context.Context, event events.Event) error {
	n.logger.Info("AccountRegistered", zap.String("account_id", event.AccountID))
	if payload, ok := event.Payload.(events.AccountRegisteredPayload); ok {
		n.sendVerificationEmailStub(ctx, event.AccountID, payload.Email)
	}
	return nil
}

func (n *NotificationService) handleAccountLoggedIn(_ context.Context, event events.Event) error {
	n.logger.Debug("AccountLoggedIn", zap.String("account_id", event.AccountID))
	return nil
}

func (n *NotificationService) handleTokenRevoked(_ context.Context, event events.Event) error {
	fields := []zap.Field{zap.String("account_id", event.AccountID)}
	if payload, ok := event.Payload.(events.TokenRevokedPayload); ok {
		fields = append(fields, zap.String("jti", payload.JTI))
	}
	n.logger.Info("TokenRevoked", fields...)
	return nil
}

func (n *NotificationService) sendVerificationEmailStub(_ context.Context, accountID, to string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendVerificationEmailStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", to),
		zap.String("account_id", accountID))
}
