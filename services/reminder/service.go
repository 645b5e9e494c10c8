package reminder

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"nudge/models"

	"go.uber.org/zap"
)

// parseScheduledAt accepts RFC 3339 timestamps with or without fractional seconds.
func parseScheduledAt(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("scheduledAt %q is not an ISO-8601 timestamp: %w", raw, models.ErrValidation)
}

func (s *DefaultReminderService) Schedule(ctx context.Context, req models.ScheduleReminderRequest) (string, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.ScheduledAt) == "" {
		return "", fmt.Errorf("scheduledAt and title are required: %w", models.ErrValidation)
	}
	at, err := parseScheduledAt(req.ScheduledAt)
	if err != nil {
		return "", err
	}

	rule := models.RepeatNone
	if req.RepeatType != nil {
		rule = models.ParseRepeatRule(*req.RepeatType)
	}

	payload := maps.Clone(req.Data)
	if payload == nil {
		payload = map[string]string{}
	}
	kind, ref := models.SourceFromPayload(payload)

	r := &models.Reminder{
		ID:          s.newID(),
		OwnerID:     req.UserID,
		Token:       req.Token,
		SourceKind:  kind,
		SourceRef:   ref,
		Title:       req.Title,
		Body:        req.Body,
		ScheduledAt: at,
		RepeatRule:  rule,
		Payload:     payload,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.Repo.Create(ctx, r); err != nil {
		return "", fmt.Errorf("failed to save reminder: %w", err)
	}

	s.logger.Info("reminder scheduled",
		zap.String("id", r.ID),
		zap.String("kind", string(kind)),
		zap.Time("scheduledAt", at),
		zap.String("repeat", string(rule)))
	return r.ID, nil
}

func (s *DefaultReminderService) Cancel(ctx context.Context, req models.CancelReminderRequest) error {
	switch {
	case req.ReminderID != "":
		if err := s.Repo.Delete(ctx, req.ReminderID); err != nil && !errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("failed to delete reminder: %w", err)
		}
		s.logger.Info("reminder cancelled", zap.String("id", req.ReminderID))
		return nil
	case req.TaskID != "":
		return s.cancelBySource(ctx, models.SourceFieldTask, req.TaskID, req.UserID)
	case req.NoteID != "":
		return s.cancelBySource(ctx, models.SourceFieldNote, req.NoteID, req.UserID)
	}
	return nil
}

func (s *DefaultReminderService) cancelBySource(ctx context.Context, field models.SourceField, value, ownerID string) error {
	n, err := s.Repo.DeleteUnsentBySource(ctx, field, value, ownerID)
	if err != nil {
		return fmt.Errorf("failed to cancel reminders for %s %s: %w", field, value, err)
	}
	s.logger.Info("reminders cancelled",
		zap.String("field", string(field)), zap.String("value", value), zap.Int64("count", n))
	return nil
}
