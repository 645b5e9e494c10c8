package notify

import (
	"maps"
	"slices"
	"time"

	"nudge/client/store"
)

const historyLimit = 100

// HistoryEntry is one delivered notification, newest first in History.
type HistoryEntry struct {
	ID        int               `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Timestamp time.Time         `json:"timestamp"`
	Read      bool              `json:"read"`
	Extra     map[string]string `json:"extra,omitempty"`
}

func (s *Scheduler) loadHistory() ([]HistoryEntry, error) {
	if s.settings == nil {
		return slices.Clone(s.history), nil
	}
	var h []HistoryEntry
	if _, err := s.settings.Get(store.KeyNotificationHistory, &h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Scheduler) saveHistory(h []HistoryEntry) error {
	if s.settings == nil {
		s.history = h
		return nil
	}
	return s.settings.Set(store.KeyNotificationHistory, h)
}

func (s *Scheduler) appendHistory(n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.loadHistory()
	if err != nil {
		return err
	}
	entry := HistoryEntry{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Timestamp: s.now().UTC(),
		Extra:     maps.Clone(n.Extra),
	}
	h = append([]HistoryEntry{entry}, h...)
	if len(h) > historyLimit {
		h = h[:historyLimit]
	}
	return s.saveHistory(h)
}

// History returns delivered notifications, newest first.
func (s *Scheduler) History() ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadHistory()
}

// MarkHistoryRead flags every entry with id as read.
func (s *Scheduler) MarkHistoryRead(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.loadHistory()
	if err != nil {
		return err
	}
	for i := range h {
		if h[i].ID == id {
			h[i].Read = true
		}
	}
	return s.saveHistory(h)
}

func (s *Scheduler) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveHistory([]HistoryEntry{})
}
