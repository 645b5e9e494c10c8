package reminderRepo

import (
	"context"
	"time"

	"nudge/models"
)

// ReminderRepository defines methods for reminder data access. Sweep writes are conditional on
// the reminder still being unsent so an overlapping sweep cannot undo a terminal state.
type ReminderRepository interface {
	// Create inserts a new reminder.
	Create(ctx context.Context, r *models.Reminder) error
	// GetByID returns models.ErrNotFound when the reminder does not exist.
	GetByID(ctx context.Context, id string) (*models.Reminder, error)
	// FindDue returns up to limit unsent reminders scheduled at or before now.
	FindDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error)
	// MarkSent finishes a one-shot reminder. Reports false if it was no longer unsent.
	MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error)
	// MarkFailed finishes a reminder with an error message. Reports false if it was no longer unsent.
	MarkFailed(ctx context.Context, id string, lastError string) (bool, error)
	// Advance moves an unsent reminder from occurrence `from` to `next`. Reports false when
	// another writer already moved or finished it.
	Advance(ctx context.Context, id string, from, next time.Time) (bool, error)
	// Delete removes a reminder by ID. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error
	// DeleteUnsentBySource removes unsent reminders whose payload field equals value,
	// optionally restricted to one owner.
	DeleteUnsentBySource(ctx context.Context, field models.SourceField, value, ownerID string) (int64, error)
}
