package notification

import (
	"context"
	"fmt"

	"nudge/models"
	"nudge/utils"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// multicastLimit is the FCM cap on tokens per multicast call.
const multicastLimit = 500

// Messenger is the subset of *messaging.Client the dispatcher needs.
type Messenger interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Dispatcher defines methods for sending FCM pushes.
type Dispatcher interface {
	// SendToToken delivers one message. Provider failures wrap models.ErrTokenInvalid or models.ErrNetwork.
	SendToToken(ctx context.Context, token, title, body string, data map[string]string) (string, error)
	// SendBroadcast fans a message out to every token; per-token failures only affect the counts.
	SendBroadcast(ctx context.Context, tokens []string, title, body string, data map[string]string) (BroadcastResult, error)
}

// BroadcastResult aggregates a multicast. InvalidTokens is for registry cleanup, not for callers of the HTTP API.
type BroadcastResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
}

// DefaultDispatcher is the production implementation.
type DefaultDispatcher struct {
	client    Messenger
	channelID string
	logger    *zap.Logger
}

func NewDefaultDispatcher(client Messenger, channelID string, logger *zap.Logger) (*DefaultDispatcher, error) {
	if client == nil {
		return nil, fmt.Errorf("notification dispatcher initialization error: messaging client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultDispatcher{client: client, channelID: channelID, logger: logger}, nil
}

func (d *DefaultDispatcher) androidConfig() *messaging.AndroidConfig {
	return &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			ChannelID: d.channelID,
			Sound:     "default",
		},
	}
}

func apnsConfig() *messaging.APNSConfig {
	badge := 1
	return &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{
				Sound: "default",
				Badge: &badge,
			},
		},
	}
}

// SendToToken shapes a reminder push for one device.
func (d *DefaultDispatcher) SendToToken(
	ctx context.Context,
	token, title, body string,
	data map[string]string,
) (string, error) {
	if token == "" {
		return "", models.ErrNoTargetFound
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data:    data,
		Android: d.androidConfig(),
		APNS:    apnsConfig(),
	}

	id, err := d.client.Send(ctx, msg)
	if err != nil {
		utils.PushSendsTotal.WithLabelValues("single", "error").Inc()
		return "", Classify(err)
	}

	utils.PushSendsTotal.WithLabelValues("single", "ok").Inc()
	d.logger.Debug("push sent", zap.String("messageId", id))
	return id, nil
}

// SendBroadcast sends in chunks of multicastLimit. A failed chunk call counts all of its tokens
// as failures and the remaining chunks still go out; the last call error is returned.
func (d *DefaultDispatcher) SendBroadcast(
	ctx context.Context,
	tokens []string,
	title, body string,
	data map[string]string,
) (BroadcastResult, error) {
	var (
		result  BroadcastResult
		lastErr error
	)

	for start := 0; start < len(tokens); start += multicastLimit {
		end := min(start+multicastLimit, len(tokens))
		chunk := tokens[start:end]

		resp, err := d.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: chunk,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
			Data:    data,
			Android: d.androidConfig(),
			APNS:    apnsConfig(),
		})
		if err != nil {
			d.logger.Error("multicast chunk failed",
				zap.Int("from", start), zap.Int("to", end-1), zap.Error(err))
			result.FailureCount += len(chunk)
			lastErr = Classify(err)
			continue
		}

		result.SuccessCount += resp.SuccessCount
		result.FailureCount += resp.FailureCount
		for i, r := range resp.Responses {
			if r != nil && r.Error != nil && IsTokenInvalid(r.Error) && i < len(chunk) {
				result.InvalidTokens = append(result.InvalidTokens, chunk[i])
			}
		}
	}

	utils.PushSendsTotal.WithLabelValues("broadcast", "ok").Add(float64(result.SuccessCount))
	utils.PushSendsTotal.WithLabelValues("broadcast", "error").Add(float64(result.FailureCount))
	d.logger.Info("broadcast complete",
		zap.Int("sent", result.SuccessCount), zap.Int("failed", result.FailureCount))
	return result, lastErr
}
