// Package api is the device-side client for the reminder server's HTTP endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"nudge/client/notify"
	"nudge/client/store"
	"nudge/models"
)

// ErrNotConfigured is returned when no server URL has been saved yet.
var ErrNotConfigured = errors.New("api: server url not configured")

// StatusError is a non-2xx reply from the server.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: %s failed [%d]: %s", e.Endpoint, e.Code, e.Body)
}

// Client posts JSON to the server. Identity and the base URL are read from settings.
type Client struct {
	settings notify.Settings
	http     *http.Client
	logger   *zap.Logger

	mu      sync.Mutex
	baseURL string
}

func NewClient(settings notify.Settings, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{settings: settings, http: httpClient, logger: logger}
}

// ClearURLCache forgets the cached base URL so the next call re-reads settings.
func (c *Client) ClearURLCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = ""
}

func (c *Client) base() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.baseURL == "" {
		c.baseURL = strings.TrimRight(c.setting(store.KeyServerURL), "/")
	}
	return c.baseURL
}

func (c *Client) setting(key string) string {
	if c.settings == nil {
		return ""
	}
	var v string
	if _, err := c.settings.Get(key, &v); err != nil {
		c.logger.Warn("failed to read setting", zap.String("key", key), zap.Error(err))
		return ""
	}
	return v
}

func (c *Client) call(ctx context.Context, endpoint, bearer string, body, out any) error {
	base := c.base()
	if base == "" {
		c.logger.Warn("no server url configured, skipping call", zap.String("endpoint", endpoint))
		return ErrNotConfigured
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("api: encode %s: %w", endpoint, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("api: build %s: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("api network error", zap.String("endpoint", endpoint), zap.Error(err))
		return fmt.Errorf("api: %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("api call failed", zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode))
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode %s: %w", endpoint, err)
	}
	return nil
}

// RegisterDeviceToken associates token with the saved user id.
func (c *Client) RegisterDeviceToken(ctx context.Context, token, platform string) error {
	return c.call(ctx, "registerToken", "", models.RegisterTokenRequest{
		Token:    token,
		UserID:   c.setting(store.KeyUserID),
		Platform: platform,
	}, nil)
}

// RemoveDeviceToken unregisters the saved push token or user. Nothing is sent when neither is saved.
func (c *Client) RemoveDeviceToken(ctx context.Context) error {
	req := models.RemoveTokenRequest{
		Token:  c.setting(store.KeyPushToken),
		UserID: c.setting(store.KeyUserID),
	}
	if req.Token == "" && req.UserID == "" {
		return nil
	}
	return c.call(ctx, "removeToken", "", req, nil)
}

// ScheduleReminder asks the server to deliver a push at req.ScheduledAt and returns its id.
// Saved identity fills UserID and Token when they are empty.
func (c *Client) ScheduleReminder(ctx context.Context, req models.ScheduleReminderRequest) (string, error) {
	if req.UserID == "" {
		req.UserID = c.setting(store.KeyUserID)
	}
	if req.Token == "" {
		req.Token = c.setting(store.KeyPushToken)
	}
	var out struct {
		Success    bool   `json:"success"`
		ReminderID string `json:"reminderId"`
	}
	if err := c.call(ctx, "scheduleReminder", "", req, &out); err != nil {
		return "", err
	}
	return out.ReminderID, nil
}

// CancelReminder removes a reminder by id, or every unsent reminder for a task or note.
func (c *Client) CancelReminder(ctx context.Context, req models.CancelReminderRequest) error {
	if req.UserID == "" {
		req.UserID = c.setting(store.KeyUserID)
	}
	return c.call(ctx, "cancelReminder", "", req, nil)
}

// SendImmediatePush pushes a notification to this device right away.
func (c *Client) SendImmediatePush(ctx context.Context, title, body string, data map[string]string) (string, error) {
	req := models.SendPushRequest{
		UserID: c.setting(store.KeyUserID),
		Token:  c.setting(store.KeyPushToken),
		Title:  title,
		Body:   body,
		Data:   data,
	}
	var out struct {
		Success   bool   `json:"success"`
		MessageID string `json:"messageId"`
	}
	if err := c.call(ctx, "sendPush", "", req, &out); err != nil {
		return "", err
	}
	return out.MessageID, nil
}

// BroadcastResult mirrors the sendBroadcast reply.
type BroadcastResult struct {
	Success bool `json:"success"`
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
}

// SendBroadcast pushes to every registered device. adminToken is sent as a bearer token.
func (c *Client) SendBroadcast(ctx context.Context, req models.SendBroadcastRequest, adminToken string) (BroadcastResult, error) {
	var out BroadcastResult
	err := c.call(ctx, "sendBroadcast", adminToken, req, &out)
	return out, err
}
