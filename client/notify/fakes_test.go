package notify

import (
	"context"
	"sort"
	"sync"
	"time"
)

type fakePlatform struct {
	mu sync.Mutex

	perm          PermissionState
	requestResult PermissionState

	checkErr    error
	channelErr  error
	actionErr   error
	scheduleErr error
	pendingErr  error

	requestCalls int
	channelCalls int
	actionCalls  int
	scheduled    []Notification
	cancelled    []int
	pending      map[int]Notification

	onAction   func(ActionPerformed)
	onReceived func(Notification)
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		perm:          PermissionGranted,
		requestResult: PermissionGranted,
		pending:       map[int]Notification{},
	}
}

func (p *fakePlatform) CheckPermissions(context.Context) (PermissionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.perm, p.checkErr
}

func (p *fakePlatform) RequestPermissions(context.Context) (PermissionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestCalls++
	p.perm = p.requestResult
	return p.perm, nil
}

func (p *fakePlatform) CreateChannel(context.Context, ChannelConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channelCalls++
	return p.channelErr
}

func (p *fakePlatform) RegisterActionTypes(context.Context, []ActionType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actionCalls++
	return p.actionErr
}

func (p *fakePlatform) Schedule(_ context.Context, ns []Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.scheduleErr != nil {
		return p.scheduleErr
	}
	for _, n := range ns {
		p.scheduled = append(p.scheduled, n)
		p.pending[n.ID] = n
	}
	return nil
}

func (p *fakePlatform) Cancel(_ context.Context, ids []int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		p.cancelled = append(p.cancelled, id)
		delete(p.pending, id)
	}
	return nil
}

func (p *fakePlatform) GetPending(context.Context) ([]Notification, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pendingErr != nil {
		return nil, p.pendingErr
	}
	out := make([]Notification, 0, len(p.pending))
	for _, n := range p.pending {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *fakePlatform) OnActionPerformed(fn func(ActionPerformed)) { p.onAction = fn }

func (p *fakePlatform) OnNotificationReceived(fn func(Notification)) { p.onReceived = fn }

type fakeNotifier struct {
	mu       sync.Mutex
	perm     PermissionState
	grantOn  bool
	requests int
	shown    []string
}

func (n *fakeNotifier) Permission() PermissionState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.perm
}

func (n *fakeNotifier) RequestPermission(context.Context) PermissionState {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests++
	if n.grantOn {
		n.perm = PermissionGranted
	}
	return n.perm
}

func (n *fakeNotifier) Notify(title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, title+"|"+body)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.shown)
}

// newTestScheduler pins the scheduler and its fallback channel to a fixed clock.
func newTestScheduler(platform Platform, notifier SystemNotifier, settings Settings, now time.Time) *Scheduler {
	var s *Scheduler
	if platform == nil {
		s = NewScheduler(Options{Notifier: notifier, Settings: settings})
	} else {
		s = NewScheduler(Options{Platform: platform, Notifier: notifier, Settings: settings})
	}
	clock := func() time.Time { return now }
	s.now = clock
	s.fallback.now = clock
	return s
}
