// Package reminder creates, cancels and delivers server-side reminders.
package reminder

import (
	"context"
	"time"

	reminderRepo "nudge/database/repository/reminder"
	"nudge/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReminderService interface {
	// Schedule stores a new unsent reminder and returns its id.
	Schedule(ctx context.Context, req models.ScheduleReminderRequest) (string, error)
	// Cancel deletes one reminder by id, or every unsent reminder carrying the given taskId/noteId.
	// A request naming none of them is a no-op.
	Cancel(ctx context.Context, req models.CancelReminderRequest) error
}

// DefaultReminderService is the production implementation.
type DefaultReminderService struct {
	Repo   reminderRepo.ReminderRepository
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

func NewDefaultReminderService(repo reminderRepo.ReminderRepository, logger *zap.Logger) *DefaultReminderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultReminderService{
		Repo:   repo,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}
