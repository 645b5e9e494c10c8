package utils

import (
	"context"
	"sort"
	"sync"
	"time"
)

// HealthCheck probes one external dependency.
type HealthCheck func(ctx context.Context) error

// HealthStatus represents current status of external services.
type HealthStatus struct {
	Services  map[string]bool `json:"services"`
	Healthy   bool            `json:"healthy"`
	CheckedAt time.Time       `json:"checkedAt"`
}

// HealthMonitor keeps the latest snapshot of dependency health.
type HealthMonitor struct {
	checks map[string]HealthCheck

	mu      sync.RWMutex
	current HealthStatus
}

func NewHealthMonitor(checks map[string]HealthCheck) *HealthMonitor {
	return &HealthMonitor{
		checks:  checks,
		current: HealthStatus{Services: map[string]bool{}, Healthy: true},
	}
}

// Status returns latest stored health snapshot.
func (m *HealthMonitor) Status() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Check runs every probe once and stores the result.
func (m *HealthMonitor) Check(ctx context.Context) HealthStatus {
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := HealthStatus{Services: make(map[string]bool, len(names)), Healthy: true, CheckedAt: time.Now()}
	for _, name := range names {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		ok := m.checks[name](pctx) == nil
		cancel()
		status.Services[name] = ok
		status.Healthy = status.Healthy && ok
	}

	m.mu.Lock()
	m.current = status
	m.mu.Unlock()
	return status
}

// Start performs periodic health checks until ctx is cancelled.
func (m *HealthMonitor) Start(ctx context.Context, interval time.Duration) {
	go func() {
		m.Check(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}
