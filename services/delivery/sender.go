package delivery

import (
	"context"
	"fmt"

	"nudge/models"
	"nudge/services/notification"

	"go.uber.org/zap"
)

// Registry is what the sender needs from the device registry.
type Registry interface {
	TokenLookup
	Tokens(ctx context.Context) ([]string, error)
	EvictToken(ctx context.Context, ownerID, token string) error
}

// Sender runs the immediate push paths: one device or every device.
type Sender struct {
	resolver   *Resolver
	registry   Registry
	dispatcher notification.Dispatcher
	logger     *zap.Logger
}

func NewSender(registry Registry, dispatcher notification.Dispatcher, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		resolver:   NewResolver(registry),
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SendPush delivers to req.Token, or to the device registered for req.UserID.
// A token the provider rejects is evicted before the error is returned.
func (s *Sender) SendPush(ctx context.Context, req models.SendPushRequest) (string, error) {
	token := req.Token
	if token == "" {
		var err error
		if token, err = s.resolver.ResolveOwner(ctx, req.UserID); err != nil {
			return "", err
		}
	}

	id, err := s.dispatcher.SendToToken(ctx, token, req.Title, req.Body, req.Data)
	if err != nil {
		if notification.IsTokenInvalid(err) {
			if evictErr := s.registry.EvictToken(ctx, req.UserID, token); evictErr != nil {
				s.logger.Error("failed to evict device", zap.String("userId", req.UserID), zap.Error(evictErr))
			}
		}
		return "", err
	}
	return id, nil
}

// Broadcast sends to every registered token and evicts the ones the provider rejected.
func (s *Sender) Broadcast(ctx context.Context, req models.SendBroadcastRequest) (notification.BroadcastResult, error) {
	tokens, err := s.registry.Tokens(ctx)
	if err != nil {
		return notification.BroadcastResult{}, fmt.Errorf("list device tokens: %w", err)
	}
	if len(tokens) == 0 {
		return notification.BroadcastResult{}, nil
	}

	result, err := s.dispatcher.SendBroadcast(ctx, tokens, req.Title, req.Body, req.Data)
	for _, tok := range result.InvalidTokens {
		if evictErr := s.registry.EvictToken(ctx, "", tok); evictErr != nil {
			s.logger.Warn("failed to evict device after broadcast", zap.Error(evictErr))
		}
	}
	if err != nil && result.SuccessCount == 0 {
		return result, err
	}
	if err != nil {
		s.logger.Warn("broadcast partially failed", zap.Error(err))
	}
	return result, nil
}
