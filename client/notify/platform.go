// Package notify schedules local notifications on the client and turns taps on them into
// application events. The host's notification subsystem is reached through Platform; when the
// host has none (a browser), a timer-based web fallback channel is used instead.
package notify

import (
	"context"
	"time"
)

// PermissionState mirrors the host's display permission.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// ChannelConfig describes a platform notification channel (Android 8+).
type ChannelConfig struct {
	ID          string
	Name        string
	Description string
	Importance  int
	Visibility  int
	Lights      bool
	Vibration   bool
}

// Action is one button on a notification.
type Action struct {
	ID          string
	Title       string
	Destructive bool
}

// ActionType is a named set of buttons a notification can opt into.
type ActionType struct {
	ID      string
	Actions []Action
}

// Notification is a scheduled or delivered local notification.
type Notification struct {
	ID             int
	Title          string
	Body           string
	At             time.Time
	ChannelID      string
	ActionTypeID   string
	SmallIcon      string
	AllowWhileIdle bool
	Extra          map[string]string
}

// ActionPerformed is a user tap on a notification or one of its buttons.
type ActionPerformed struct {
	ActionID     string
	Notification Notification
}

// Platform is the host notification subsystem. Methods may return an error wrapping
// models.ErrCapabilityUnavailable when the host lacks the feature.
type Platform interface {
	CheckPermissions(ctx context.Context) (PermissionState, error)
	RequestPermissions(ctx context.Context) (PermissionState, error)
	CreateChannel(ctx context.Context, cfg ChannelConfig) error
	RegisterActionTypes(ctx context.Context, types []ActionType) error
	Schedule(ctx context.Context, notifications []Notification) error
	Cancel(ctx context.Context, ids []int) error
	GetPending(ctx context.Context) ([]Notification, error)
	OnActionPerformed(fn func(ActionPerformed))
	OnNotificationReceived(fn func(Notification))
}

// SystemNotifier is the host's immediate OS-level notification API (the browser Notification API).
type SystemNotifier interface {
	Permission() PermissionState
	RequestPermission(ctx context.Context) PermissionState
	Notify(title, body string) error
}

// Settings is the persistence the scheduler needs; client/store.BoltStore satisfies it.
type Settings interface {
	Get(key string, dst any) (bool, error)
	Set(key string, v any) error
}
