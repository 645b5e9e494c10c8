package reminderRepo

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"nudge/models"
)

// MemoryReminderRepo keeps reminders in process memory. Used with STORAGE_DRIVER=memory and in tests.
type MemoryReminderRepo struct {
	mu        sync.Mutex
	reminders map[string]models.Reminder
}

func NewMemoryReminderRepo() *MemoryReminderRepo {
	return &MemoryReminderRepo{reminders: make(map[string]models.Reminder)}
}

func clone(r models.Reminder) models.Reminder {
	r.Payload = maps.Clone(r.Payload)
	if r.SentAt != nil {
		at := *r.SentAt
		r.SentAt = &at
	}
	return r
}

func (m *MemoryReminderRepo) Create(_ context.Context, r *models.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.reminders[r.ID]; exists {
		return fmt.Errorf("reminder %s already exists", r.ID)
	}
	m.reminders[r.ID] = clone(*r)
	return nil
}

func (m *MemoryReminderRepo) GetByID(_ context.Context, id string) (*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reminders[id]
	if !ok {
		return nil, fmt.Errorf("reminder %s: %w", id, models.ErrNotFound)
	}
	r = clone(r)
	return &r, nil
}

// FindDue returns due reminders ordered by scheduledAt so tests are deterministic.
func (m *MemoryReminderRepo) FindDue(_ context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []models.Reminder
	for _, r := range m.reminders {
		if !r.Sent && !r.ScheduledAt.After(now) {
			due = append(due, clone(r))
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].ScheduledAt.Equal(due[j].ScheduledAt) {
			return due[i].ID < due[j].ID
		}
		return due[i].ScheduledAt.Before(due[j].ScheduledAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (m *MemoryReminderRepo) updateUnsent(id string, fn func(r *models.Reminder) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reminders[id]
	if !ok || r.Sent {
		return false
	}
	if !fn(&r) {
		return false
	}
	m.reminders[id] = r
	return true
}

func (m *MemoryReminderRepo) MarkSent(_ context.Context, id string, sentAt time.Time) (bool, error) {
	return m.updateUnsent(id, func(r *models.Reminder) bool {
		r.Sent = true
		r.SentAt = &sentAt
		r.LastError = ""
		return true
	}), nil
}

func (m *MemoryReminderRepo) MarkFailed(_ context.Context, id string, lastError string) (bool, error) {
	return m.updateUnsent(id, func(r *models.Reminder) bool {
		r.Sent = true
		r.LastError = lastError
		return true
	}), nil
}

func (m *MemoryReminderRepo) Advance(_ context.Context, id string, from, next time.Time) (bool, error) {
	return m.updateUnsent(id, func(r *models.Reminder) bool {
		if !r.ScheduledAt.Equal(from) {
			return false
		}
		r.ScheduledAt = next
		r.LastError = ""
		return true
	}), nil
}

func (m *MemoryReminderRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reminders, id)
	return nil
}

func (m *MemoryReminderRepo) DeleteUnsentBySource(_ context.Context, field models.SourceField, value, ownerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.reminders {
		if r.Sent || r.Payload[string(field)] != value {
			continue
		}
		if ownerID != "" && r.OwnerID != ownerID {
			continue
		}
		delete(m.reminders, id)
		n++
	}
	return n, nil
}

// Len reports how many reminders are stored.
func (m *MemoryReminderRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reminders)
}
