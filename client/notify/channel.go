package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"nudge/models"

	"go.uber.org/zap"
)

const (
	ChannelID          = "npd_reminders"
	TaskActionTypeID   = "TASK_REMINDER_ACTION_TYPE"
	SnoozeActionTypeID = "SNOOZE_ACTION_TYPE"

	smallIcon = "npd_notification_icon"

	// webHorizon bounds fallback timers; later reminders are left to the server sweep.
	webHorizon = 24 * time.Hour
)

var reminderChannel = ChannelConfig{
	ID:          ChannelID,
	Name:        "Reminders",
	Description: "Task and note reminders",
	Importance:  5,
	Visibility:  1,
	Lights:      true,
	Vibration:   true,
}

var reminderActionTypes = []ActionType{
	{
		ID: TaskActionTypeID,
		Actions: []Action{
			{ID: ActionComplete, Title: "Complete"},
			{ID: ActionSnooze, Title: "Snooze"},
		},
	},
	{
		ID: SnoozeActionTypeID,
		Actions: []Action{
			{ID: ActionSnooze5, Title: "5 min"},
			{ID: ActionSnooze15, Title: "15 min"},
			{ID: ActionSnooze1h, Title: "1 hour"},
		},
	},
}

// ChannelKind tells the two delivery channels apart.
type ChannelKind string

const (
	KindNative      ChannelKind = "native"
	KindWebFallback ChannelKind = "web"
)

// Channel delivers notifications through one mechanism.
type Channel interface {
	Kind() ChannelKind
	// Prepare negotiates permission and runs one-time setup, returning the permission state.
	Prepare(ctx context.Context) PermissionState
	// Deliver schedules n. models.ErrPermissionDenied means the user refused notifications.
	Deliver(ctx context.Context, n Notification) error
	// Cancel removes scheduled notifications; unknown ids are ignored.
	Cancel(ctx context.Context, ids []int)
	Pending(ctx context.Context) []Notification
	Close()
}

// SelectChannel picks the native channel when the host has a notification subsystem and the
// web fallback otherwise. It is called once at startup.
func SelectChannel(platform Platform, notifier SystemNotifier, logger *zap.Logger) Channel {
	if platform != nil {
		return NewNativeChannel(platform, logger)
	}
	return NewWebFallbackChannel(notifier, logger)
}

func isCapabilityUnavailable(err error) bool {
	return errors.Is(err, models.ErrCapabilityUnavailable)
}

// SetupState tracks one-time native setup. Each step is attempted once per process.
type SetupState int

const (
	StateUninitialized SetupState = iota
	StateChannelEnsured
	StateActionTypesEnsured
	StateReady
)

func (s SetupState) String() string {
	switch s {
	case StateChannelEnsured:
		return "channel_ensured"
	case StateActionTypesEnsured:
		return "action_types_ensured"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// NativeChannel schedules through the host notification subsystem.
type NativeChannel struct {
	platform Platform
	logger   *zap.Logger

	mu    sync.Mutex
	state SetupState
}

func NewNativeChannel(platform Platform, logger *zap.Logger) *NativeChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NativeChannel{platform: platform, logger: logger}
}

func (c *NativeChannel) Kind() ChannelKind { return KindNative }

// State reports how far setup has progressed.
func (c *NativeChannel) State() SetupState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *NativeChannel) logSetupError(step string, err error) {
	if err != nil && !isCapabilityUnavailable(err) {
		c.logger.Warn("notification setup step failed", zap.String("step", step), zap.Error(err))
	}
}

// ensureSetup walks the setup states. A failed step still advances so it is never retried.
func (c *NativeChannel) ensureSetup(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateUninitialized {
		c.logSetupError("create_channel", c.platform.CreateChannel(ctx, reminderChannel))
		c.state = StateChannelEnsured
	}
	if c.state == StateChannelEnsured {
		c.logSetupError("register_action_types", c.platform.RegisterActionTypes(ctx, reminderActionTypes))
		c.state = StateActionTypesEnsured
	}
	if c.state == StateActionTypesEnsured {
		c.state = StateReady
		c.logger.Debug("notification channel ready", zap.String("channel", ChannelID))
	}
}

func (c *NativeChannel) Prepare(ctx context.Context) PermissionState {
	perm, err := c.platform.RequestPermissions(ctx)
	if err != nil {
		c.logSetupError("request_permissions", err)
		perm = PermissionDenied
	}
	c.ensureSetup(ctx)
	return perm
}

func (c *NativeChannel) ensurePermission(ctx context.Context) error {
	perm, err := c.platform.CheckPermissions(ctx)
	if err != nil {
		return err
	}
	if perm == PermissionGranted {
		return nil
	}
	perm, err = c.platform.RequestPermissions(ctx)
	if err != nil {
		return err
	}
	if perm != PermissionGranted {
		return models.ErrPermissionDenied
	}
	return nil
}

func (c *NativeChannel) Deliver(ctx context.Context, n Notification) error {
	if err := c.ensurePermission(ctx); err != nil {
		return err
	}
	c.ensureSetup(ctx)

	n.ChannelID = ChannelID
	n.SmallIcon = smallIcon
	n.AllowWhileIdle = true
	if n.Extra[models.PayloadType] == string(models.SourceTask) {
		n.ActionTypeID = TaskActionTypeID
	}
	return c.platform.Schedule(ctx, []Notification{n})
}

func (c *NativeChannel) Cancel(ctx context.Context, ids []int) {
	if len(ids) == 0 {
		return
	}
	if err := c.platform.Cancel(ctx, ids); err != nil && !isCapabilityUnavailable(err) {
		c.logger.Warn("failed to cancel notifications", zap.Ints("ids", ids), zap.Error(err))
	}
}

func (c *NativeChannel) Pending(ctx context.Context) []Notification {
	pending, err := c.platform.GetPending(ctx)
	if err != nil {
		if !isCapabilityUnavailable(err) {
			c.logger.Warn("failed to list pending notifications", zap.Error(err))
		}
		return nil
	}
	return pending
}

func (c *NativeChannel) Close() {}

// WebFallbackChannel fires notifications from in-process timers when there is no native subsystem.
type WebFallbackChannel struct {
	notifier SystemNotifier
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	timers map[int]*webTimer
	closed bool
}

type webTimer struct {
	timer *time.Timer
	n     Notification
}

func NewWebFallbackChannel(notifier SystemNotifier, logger *zap.Logger) *WebFallbackChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebFallbackChannel{
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		timers:   make(map[int]*webTimer),
	}
}

func (c *WebFallbackChannel) Kind() ChannelKind { return KindWebFallback }

func (c *WebFallbackChannel) Prepare(context.Context) PermissionState {
	if c.notifier == nil {
		return PermissionDenied
	}
	return c.notifier.Permission()
}

// Deliver arms a timer when n is due within the next 24 hours. Anything else is silently
// not scheduled.
func (c *WebFallbackChannel) Deliver(_ context.Context, n Notification) error {
	delay := n.At.Sub(c.now())
	if delay <= 0 || delay >= webHorizon {
		c.logger.Debug("fallback timer outside horizon, not scheduled",
			zap.Int("id", n.ID), zap.Duration("delay", delay))
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	if prev, ok := c.timers[n.ID]; ok {
		prev.timer.Stop()
	}
	id := n.ID
	c.timers[id] = &webTimer{
		n:     n,
		timer: time.AfterFunc(delay, func() { c.fire(id) }),
	}
	return nil
}

func (c *WebFallbackChannel) fire(id int) {
	c.mu.Lock()
	wt, ok := c.timers[id]
	if ok {
		delete(c.timers, id)
	}
	closed := c.closed
	c.mu.Unlock()
	if !ok || closed || c.notifier == nil {
		return
	}

	if c.notifier.Permission() != PermissionGranted {
		c.notifier.RequestPermission(context.Background())
	}
	if c.notifier.Permission() != PermissionGranted {
		return
	}
	if err := c.notifier.Notify(wt.n.Title, wt.n.Body); err != nil {
		c.logger.Debug("system notification failed", zap.Int("id", id), zap.Error(err))
	}
}

func (c *WebFallbackChannel) Cancel(_ context.Context, ids []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if wt, ok := c.timers[id]; ok {
			wt.timer.Stop()
			delete(c.timers, id)
		}
	}
}

func (c *WebFallbackChannel) Pending(context.Context) []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Notification, 0, len(c.timers))
	for _, wt := range c.timers {
		out = append(out, wt.n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// Close stops every armed timer; later deliveries are ignored.
func (c *WebFallbackChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, wt := range c.timers {
		wt.timer.Stop()
		delete(c.timers, id)
	}
	c.closed = true
}
