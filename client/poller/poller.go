// Package poller raises in-app alerts for task and note reminders when no native notification
// subsystem is available.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"nudge/client/notify"
	"nudge/client/store"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultWindow   = 60 * time.Second

	markerCap    = 200
	markerTarget = 100
)

// VibrationPattern is the buzz pattern (milliseconds on/off) for in-app alerts.
var VibrationPattern = []int{200, 100, 200, 100, 200}

// Alert is one in-app reminder surfaced to the user.
type Alert struct {
	Kind     string
	ID       string
	Title    string
	Body     string
	Priority string
	At       time.Time
}

// Alerter shows an in-app alert.
type Alerter interface {
	Alert(ctx context.Context, a Alert)
}

// Source supplies the items the poller checks.
type Source interface {
	Tasks(ctx context.Context) ([]notify.Task, error)
	Notes(ctx context.Context) ([]notify.Note, error)
}

// Config tunes a Poller. Zero values pick the defaults.
type Config struct {
	Interval time.Duration
	Window   time.Duration
}

// Poller checks Source on a fixed period and alerts once for every reminder whose time fell
// within the trailing window.
type Poller struct {
	source   Source
	alerter  Alerter
	notifier notify.SystemNotifier
	settings notify.Settings
	logger   *zap.Logger
	cfg      Config
	now      func() time.Time

	mu      sync.Mutex
	markers *MarkerBuffer
	loaded  bool
	stop    context.CancelFunc
	stopped bool
}

func New(source Source, alerter Alerter, notifier notify.SystemNotifier, settings notify.Settings, cfg Config, logger *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		source:   source,
		alerter:  alerter,
		notifier: notifier,
		settings: settings,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		markers:  NewMarkerBuffer(markerCap, markerTarget),
	}
}

// ShouldRun reports whether polling is needed for the given delivery channel.
func ShouldRun(kind notify.ChannelKind) bool {
	return kind == notify.KindWebFallback
}

// Run checks immediately and then every Interval until ctx is cancelled or Stop is called.
// Permission is requested once up front when it is still undecided. Run returns at once after Stop.
func (p *Poller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stop = cancel
	p.mu.Unlock()

	if p.notifier != nil && p.notifier.Permission() == notify.PermissionPrompt {
		p.notifier.RequestPermission(ctx)
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := p.Check(ctx); err != nil {
			p.logger.Warn("reminder poll failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Stop ends a running Run loop and prevents later ones from starting.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.stop != nil {
		p.stop()
	}
}

// Check runs one poll, alerting for each newly due reminder.
func (p *Poller) Check(ctx context.Context) error {
	tasks, err := p.source.Tasks(ctx)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	notes, err := p.source.Notes(ctx)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadMarkers()

	now := p.now()
	lower := now.Add(-p.cfg.Window)
	due := func(at time.Time) bool { return at.After(lower) && !at.After(now) }

	var raised []Alert
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		at, ok := t.ReminderAt()
		if !ok || !due(at) {
			continue
		}
		key := MarkerKey("task", t.ID, at)
		if p.markers.Has(key) {
			continue
		}
		p.markers.Add(key, at)
		raised = append(raised, Alert{Kind: "task", ID: t.ID, Title: "Task Reminder", Body: t.Text, Priority: t.Priority, At: at})
	}
	for _, n := range notes {
		if n.ReminderTime == nil || !due(*n.ReminderTime) {
			continue
		}
		key := MarkerKey("note", n.ID, *n.ReminderTime)
		if p.markers.Has(key) {
			continue
		}
		p.markers.Add(key, *n.ReminderTime)
		raised = append(raised, Alert{Kind: "note", ID: n.ID, Title: "Note Reminder", Body: n.Title, Priority: "medium", At: *n.ReminderTime})
	}
	if len(raised) == 0 {
		return nil
	}

	p.markers.Trim(lower)
	p.saveMarkers()

	for _, a := range raised {
		p.alerter.Alert(ctx, a)
		p.systemNotify(a)
		p.logger.Info("in-app reminder raised", zap.String("kind", a.Kind), zap.String("id", a.ID))
	}
	return nil
}

func (p *Poller) systemNotify(a Alert) {
	if p.notifier == nil || p.notifier.Permission() != notify.PermissionGranted {
		return
	}
	if err := p.notifier.Notify(a.Title, a.Body); err != nil {
		p.logger.Debug("system notification failed", zap.String("id", a.ID), zap.Error(err))
	}
}

func (p *Poller) loadMarkers() {
	if p.loaded || p.settings == nil {
		p.loaded = true
		return
	}
	p.loaded = true
	var keys []string
	if _, err := p.settings.Get(store.KeyFiredReminders, &keys); err != nil {
		p.logger.Warn("failed to load fired reminder markers", zap.Error(err))
		return
	}
	p.markers.Restore(keys)
}

func (p *Poller) saveMarkers() {
	if p.settings == nil {
		return
	}
	if err := p.settings.Set(store.KeyFiredReminders, p.markers.Keys()); err != nil {
		p.logger.Warn("failed to save fired reminder markers", zap.Error(err))
	}
}
