package notify

import (
	"context"
	"errors"
	"maps"
	"math/rand/v2"
	"sync"
	"time"

	"nudge/models"

	"go.uber.org/zap"
)

// Action ids carried by notification buttons.
const (
	ActionComplete = "complete"
	ActionSnooze   = "snooze"
	ActionSnooze5  = "snooze_5"
	ActionSnooze15 = "snooze_15"
	ActionSnooze1h = "snooze_1h"
)

const (
	maxGeneratedID     = 100000
	defaultEventBuffer = 64
)

// ErrClosed is returned by Schedule after Close.
var ErrClosed = errors.New("notify: scheduler closed")

// SnoozeOption is a user-facing snooze duration.
type SnoozeOption string

const (
	Snooze5Min     SnoozeOption = "5min"
	Snooze15Min    SnoozeOption = "15min"
	Snooze1Hour    SnoozeOption = "1hour"
	Snooze3Hours   SnoozeOption = "3hours"
	SnoozeTomorrow SnoozeOption = "tomorrow"
)

var snoozeMinutes = map[SnoozeOption]int{
	Snooze5Min:     5,
	Snooze15Min:    15,
	Snooze1Hour:    60,
	Snooze3Hours:   180,
	SnoozeTomorrow: 1440,
}

// Duration returns the snooze offset; unknown options snooze for 15 minutes.
func (o SnoozeOption) Duration() time.Duration {
	if m, ok := snoozeMinutes[o]; ok {
		return time.Duration(m) * time.Minute
	}
	return 15 * time.Minute
}

var actionSnooze = map[string]SnoozeOption{
	ActionSnooze:   Snooze15Min,
	ActionSnooze5:  Snooze5Min,
	ActionSnooze15: Snooze15Min,
	ActionSnooze1h: Snooze1Hour,
}

// EventKind classifies events sent to the application layer.
type EventKind string

const (
	EventCompleted EventKind = "completed"
	EventOpened    EventKind = "opened"
	EventSnoozed   EventKind = "snoozed"
	EventReceived  EventKind = "received"
)

// Event is emitted on the channel returned by Scheduler.Events.
type Event struct {
	Kind         EventKind
	TaskID       string
	NoteID       string
	Notification Notification
	// SnoozedID is the id of the rescheduled notification for EventSnoozed.
	SnoozedID int
}

// Request describes one local notification to schedule. ID zero asks for a fresh id; fixed-purpose
// slots (streak or gamification reminders) pass their own.
type Request struct {
	Title string
	Body  string
	At    time.Time
	ID    int
	Extra map[string]string
}

// Options configures a Scheduler. Platform nil selects the web fallback channel.
type Options struct {
	Platform    Platform
	Notifier    SystemNotifier
	Settings    Settings
	Logger      *zap.Logger
	EventBuffer int
}

// Scheduler owns local notification scheduling for one client process.
type Scheduler struct {
	channel  Channel
	fallback *WebFallbackChannel
	platform Platform
	settings Settings
	logger   *zap.Logger
	now      func() time.Time
	newID    func() int

	mu          sync.Mutex
	live        map[int]struct{}
	history     []HistoryEntry
	permission  PermissionState
	initialized bool
	closed      bool
	events      chan Event
}

func NewScheduler(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	buf := opts.EventBuffer
	if buf <= 0 {
		buf = defaultEventBuffer
	}

	s := &Scheduler{
		channel:    SelectChannel(opts.Platform, opts.Notifier, logger),
		platform:   opts.Platform,
		settings:   opts.Settings,
		logger:     logger,
		now:        time.Now,
		newID:      func() int { return rand.IntN(maxGeneratedID) + 1 },
		live:       make(map[int]struct{}),
		permission: PermissionPrompt,
		events:     make(chan Event, buf),
	}
	if wf, ok := s.channel.(*WebFallbackChannel); ok {
		s.fallback = wf
	} else {
		s.fallback = NewWebFallbackChannel(opts.Notifier, logger)
	}
	return s
}

// Channel returns the delivery channel selected at construction.
func (s *Scheduler) Channel() Channel { return s.channel }

// Native reports whether the host notification subsystem is in use.
func (s *Scheduler) Native() bool { return s.channel.Kind() == KindNative }

// Events delivers completion, open, snooze and receipt events. It is closed by Close.
func (s *Scheduler) Events() <-chan Event { return s.events }

// Permission returns the last known permission state.
func (s *Scheduler) Permission() PermissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

// Initialize negotiates permission, runs channel setup and subscribes to platform events.
// Later calls are no-ops.
func (s *Scheduler) Initialize(ctx context.Context) {
	s.mu.Lock()
	if s.initialized || s.closed {
		s.mu.Unlock()
		return
	}
	s.initialized = true
	s.mu.Unlock()

	perm := s.channel.Prepare(ctx)
	if s.platform != nil {
		s.platform.OnActionPerformed(s.handleAction)
		s.platform.OnNotificationReceived(s.handleReceived)
	}

	s.mu.Lock()
	s.permission = perm
	s.mu.Unlock()
	s.logger.Info("notification scheduler initialized",
		zap.String("channel", string(s.channel.Kind())), zap.String("permission", string(perm)))
}

func (s *Scheduler) allocateID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		id := s.newID()
		if _, taken := s.live[id]; !taken {
			s.live[id] = struct{}{}
			return id
		}
	}
}

func (s *Scheduler) forget(ids ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.live, id)
	}
}

// Schedule registers one notification and returns its handle id. Permission denial and platform
// failures are absorbed: the id is still returned and delivery is best effort.
func (s *Scheduler) Schedule(ctx context.Context, req Request) (int, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}

	id := req.ID
	if id == 0 {
		id = s.allocateID()
	} else {
		s.mu.Lock()
		s.live[id] = struct{}{}
		s.mu.Unlock()
	}

	n := Notification{ID: id, Title: req.Title, Body: req.Body, At: req.At, Extra: maps.Clone(req.Extra)}
	err := s.channel.Deliver(ctx, n)
	switch {
	case err == nil:
		s.logger.Debug("notification scheduled", zap.Int("id", id), zap.Time("at", req.At))
		return id, nil
	case errors.Is(err, models.ErrPermissionDenied):
		s.mu.Lock()
		s.permission = PermissionDenied
		s.mu.Unlock()
		s.logger.Warn("notification permission denied", zap.Int("id", id))
		return id, nil
	case !isCapabilityUnavailable(err):
		s.logger.Warn("native schedule failed, using web fallback", zap.Int("id", id), zap.Error(err))
	}

	if err := s.fallback.Deliver(ctx, n); err != nil {
		s.logger.Warn("fallback schedule failed", zap.Int("id", id), zap.Error(err))
	}
	return id, nil
}

// Cancel removes notifications by id. Unknown ids are ignored and nothing is returned.
func (s *Scheduler) Cancel(ctx context.Context, ids []int) {
	if len(ids) == 0 {
		return
	}
	s.channel.Cancel(ctx, ids)
	if Channel(s.fallback) != s.channel {
		s.fallback.Cancel(ctx, ids)
	}
	s.forget(ids...)
}

// CancelAll removes every pending notification.
func (s *Scheduler) CancelAll(ctx context.Context) {
	pending := s.Pending(ctx)
	ids := make([]int, 0, len(pending))
	for _, n := range pending {
		ids = append(ids, n.ID)
	}
	s.Cancel(ctx, ids)

	s.mu.Lock()
	clear(s.live)
	s.mu.Unlock()
	s.logger.Info("all reminders cancelled", zap.Int("count", len(ids)))
}

// Pending lists notifications still waiting to fire on either channel.
func (s *Scheduler) Pending(ctx context.Context) []Notification {
	pending := s.channel.Pending(ctx)
	if Channel(s.fallback) != s.channel {
		pending = append(pending, s.fallback.Pending(ctx)...)
	}
	return pending
}

// Snooze reschedules a delivered notification after opt, keeping its correlation fields.
func (s *Scheduler) Snooze(ctx context.Context, n Notification, opt SnoozeOption) (int, error) {
	extra := map[string]string{"snoozed": "true"}
	for _, key := range []string{models.PayloadTaskID, models.PayloadNoteID} {
		if v := n.Extra[key]; v != "" {
			extra[key] = v
		}
	}
	extra[models.PayloadType] = string(models.SourceTask)
	if t := n.Extra[models.PayloadType]; t != "" {
		extra[models.PayloadType] = t
	}

	title := n.Title
	if title == "" {
		title = "Snoozed Reminder"
	}
	return s.Schedule(ctx, Request{
		Title: title,
		Body:  n.Body,
		At:    s.now().Add(opt.Duration()),
		Extra: extra,
	})
}

func (s *Scheduler) emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- e:
	default:
		s.logger.Warn("event buffer full, dropping event", zap.String("kind", string(e.Kind)))
	}
}

// handleAction routes a tap on a notification or one of its buttons.
func (s *Scheduler) handleAction(a ActionPerformed) {
	taskID := a.Notification.Extra[models.PayloadTaskID]
	noteID := a.Notification.Extra[models.PayloadNoteID]

	switch {
	case taskID != "":
		if a.ActionID == ActionComplete {
			s.emit(Event{Kind: EventCompleted, TaskID: taskID, Notification: a.Notification})
			return
		}
		if opt, ok := actionSnooze[a.ActionID]; ok {
			id, err := s.Snooze(context.Background(), a.Notification, opt)
			if err != nil {
				s.logger.Warn("snooze failed", zap.String("taskId", taskID), zap.Error(err))
				return
			}
			s.emit(Event{Kind: EventSnoozed, TaskID: taskID, Notification: a.Notification, SnoozedID: id})
			return
		}
		s.emit(Event{Kind: EventOpened, TaskID: taskID, Notification: a.Notification})
	case noteID != "":
		s.emit(Event{Kind: EventOpened, NoteID: noteID, Notification: a.Notification})
	}
}

// handleReceived records a delivered notification in history.
func (s *Scheduler) handleReceived(n Notification) {
	s.forget(n.ID)
	if err := s.appendHistory(n); err != nil {
		s.logger.Warn("failed to store notification history", zap.Error(err))
	}
	s.emit(Event{
		Kind:         EventReceived,
		TaskID:       n.Extra[models.PayloadTaskID],
		NoteID:       n.Extra[models.PayloadNoteID],
		Notification: n,
	})
}

// Close stops fallback timers and closes the event channel.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	s.channel.Close()
	if Channel(s.fallback) != s.channel {
		s.fallback.Close()
	}
}
