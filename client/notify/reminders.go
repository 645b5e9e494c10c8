package notify

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"nudge/client/store"
	"nudge/models"

	"go.uber.org/zap"
)

const (
	taskReminderTitle = "⏰ Task Reminder"
	noteReminderTitle = "📝 Note Reminder"

	budgetAlertThreshold = 80.0
	defaultBillLeadDays  = 3
)

// Task is the slice of a to-do item the reminder paths read.
type Task struct {
	ID           string
	Text         string
	Priority     string
	Completed    bool
	ReminderTime *time.Time
	DueDate      *time.Time
}

// ReminderAt returns the reminder time, falling back to the due date.
func (t Task) ReminderAt() (time.Time, bool) {
	switch {
	case t.ReminderTime != nil && !t.ReminderTime.IsZero():
		return *t.ReminderTime, true
	case t.DueDate != nil && !t.DueDate.IsZero():
		return *t.DueDate, true
	}
	return time.Time{}, false
}

// Note is the slice of a note the reminder paths read.
type Note struct {
	ID           string
	Title        string
	ReminderTime *time.Time
}

// Habit repeats daily at Hour:Minute local time.
type Habit struct {
	ID     string
	Name   string
	Hour   int
	Minute int
}

// AutoReminderTimes are the hours used by ScheduleAutoReminders.
type AutoReminderTimes struct {
	Morning   int `json:"morning"`
	Afternoon int `json:"afternoon"`
	Evening   int `json:"evening"`
}

var defaultAutoReminderTimes = AutoReminderTimes{Morning: 9, Afternoon: 14, Evening: 19}

// RecurringExpense is a monthly bill.
type RecurringExpense struct {
	ID           string
	Description  string
	Amount       float64
	DayOfMonth   int
	Enabled      bool
	ReminderDays int
}

// ScheduleTaskReminder schedules one notification at the task's reminder time (or due date).
func (s *Scheduler) ScheduleTaskReminder(ctx context.Context, task Task) ([]int, error) {
	at, ok := task.ReminderAt()
	if !ok {
		s.logger.Debug("no reminder time set for task", zap.String("taskId", task.ID))
		return nil, nil
	}
	priority := task.Priority
	if priority == "" {
		priority = "medium"
	}

	id, err := s.Schedule(ctx, Request{
		Title: taskReminderTitle,
		Body:  task.Text,
		At:    at,
		Extra: map[string]string{
			models.PayloadTaskID: task.ID,
			models.PayloadType:   string(models.SourceTask),
			"priority":           priority,
		},
	})
	if err != nil {
		return nil, err
	}
	return []int{id}, nil
}

// RescheduleAllTasks schedules every task that has a reminder time or due date.
func (s *Scheduler) RescheduleAllTasks(ctx context.Context, tasks []Task) error {
	for _, t := range tasks {
		if _, err := s.ScheduleTaskReminder(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// ScheduleNoteReminder schedules one notification at the note's reminder time.
func (s *Scheduler) ScheduleNoteReminder(ctx context.Context, note Note) ([]int, error) {
	if note.ReminderTime == nil || note.ReminderTime.IsZero() {
		return nil, nil
	}
	id, err := s.Schedule(ctx, Request{
		Title: noteReminderTitle,
		Body:  note.Title,
		At:    *note.ReminderTime,
		Extra: map[string]string{
			models.PayloadNoteID: note.ID,
			models.PayloadType:   string(models.SourceNote),
		},
	})
	if err != nil {
		return nil, err
	}
	return []int{id}, nil
}

// ScheduleHabitReminder schedules the next Hour:Minute occurrence of a habit.
func (s *Scheduler) ScheduleHabitReminder(ctx context.Context, habit Habit) (int, error) {
	if habit.Hour < 0 || habit.Hour > 23 || habit.Minute < 0 || habit.Minute > 59 {
		return 0, fmt.Errorf("habit time %02d:%02d: %w", habit.Hour, habit.Minute, models.ErrValidation)
	}
	now := s.now()
	at := time.Date(now.Year(), now.Month(), now.Day(), habit.Hour, habit.Minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return s.Schedule(ctx, Request{
		Title: "Habit Reminder",
		Body:  habit.Name,
		At:    at,
		Extra: map[string]string{
			models.PayloadHabitID: habit.ID,
			models.PayloadType:    string(models.SourceHabit),
		},
	})
}

// AutoReminderTimes returns the saved auto-reminder hours or the 9/14/19 defaults.
func (s *Scheduler) AutoReminderTimes() AutoReminderTimes {
	if s.settings != nil {
		var t AutoReminderTimes
		ok, err := s.settings.Get(store.KeyAutoReminderTimes, &t)
		if err != nil {
			s.logger.Warn("failed to load auto-reminder times", zap.Error(err))
		}
		if ok && err == nil {
			return t
		}
	}
	return defaultAutoReminderTimes
}

// ScheduleAutoReminders schedules morning, afternoon and evening reminders on the task's due
// date (today when it has none), skipping slots already in the past.
func (s *Scheduler) ScheduleAutoReminders(ctx context.Context, task Task) ([]int, error) {
	times := s.AutoReminderTimes()
	now := s.now()
	day := now
	if task.DueDate != nil && !task.DueDate.IsZero() {
		day = task.DueDate.In(now.Location())
	}

	slots := []struct {
		label string
		hour  int
	}{
		{"morning", times.Morning},
		{"afternoon", times.Afternoon},
		{"evening", times.Evening},
	}

	var ids []int
	for _, slot := range slots {
		at := time.Date(day.Year(), day.Month(), day.Day(), slot.hour, 0, 0, 0, day.Location())
		if !at.After(now) {
			continue
		}
		id, err := s.Schedule(ctx, Request{
			Title: strings.ToUpper(slot.label[:1]) + slot.label[1:] + " Reminder",
			Body:  task.Text,
			At:    at,
			Extra: map[string]string{
				models.PayloadTaskID: task.ID,
				models.PayloadType:   string(models.SourceTask),
				"autoReminder":       slot.label,
			},
		})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ScheduleBudgetAlert fires a budget notification half a second from now.
func (s *Scheduler) ScheduleBudgetAlert(ctx context.Context, category string, spent, budget float64, currency string) (int, error) {
	if budget <= 0 {
		return 0, fmt.Errorf("budget for %s must be positive: %w", category, models.ErrValidation)
	}
	percentage := int(math.Round(spent / budget * 100))
	return s.Schedule(ctx, Request{
		Title: "Budget Alert: " + category,
		Body: fmt.Sprintf("You've spent %s%.2f of %s%.2f (%d%%)",
			currency, spent, currency, budget, percentage),
		At: s.now().Add(500 * time.Millisecond),
		Extra: map[string]string{
			models.PayloadType: string(models.SourceBudget),
			"category":         category,
			"percentage":       fmt.Sprint(percentage),
		},
	})
}

// CheckBudgetAlerts alerts for every category at or above 80% of its budget.
func (s *Scheduler) CheckBudgetAlerts(ctx context.Context, spending, budgets map[string]float64, currency string) ([]int, error) {
	categories := make([]string, 0, len(budgets))
	for c := range budgets {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var ids []int
	for _, c := range categories {
		budget := budgets[c]
		if budget <= 0 || spending[c]/budget*100 < budgetAlertThreshold {
			continue
		}
		id, err := s.ScheduleBudgetAlert(ctx, c, spending[c], budget, currency)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ScheduleBillReminder schedules a reminder leadDays before due. It reports false when that
// moment has already passed.
func (s *Scheduler) ScheduleBillReminder(ctx context.Context, billID, description string, amount float64, due time.Time, leadDays int, currency string) (int, bool, error) {
	at := due.AddDate(0, 0, -leadDays)
	if !at.After(s.now()) {
		return 0, false, nil
	}
	id, err := s.Schedule(ctx, Request{
		Title: "Bill Due Soon",
		Body:  fmt.Sprintf("%s - %s%.2f due %s", description, currency, amount, due.Format("Jan 2, 2006")),
		At:    at,
		Extra: map[string]string{
			models.PayloadType:   string(models.SourceBill),
			models.PayloadBillID: billID,
			"dueDate":            due.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// CheckBillReminders schedules reminders for the next due date of every enabled expense.
func (s *Scheduler) CheckBillReminders(ctx context.Context, expenses []RecurringExpense, currency string) ([]int, error) {
	now := s.now()
	var ids []int
	for _, e := range expenses {
		if !e.Enabled {
			continue
		}
		due := time.Date(now.Year(), now.Month(), e.DayOfMonth, 0, 0, 0, 0, now.Location())
		if due.Before(now) {
			due = due.AddDate(0, 1, 0)
		}
		lead := e.ReminderDays
		if lead <= 0 {
			lead = defaultBillLeadDays
		}
		id, ok, err := s.ScheduleBillReminder(ctx, e.ID, e.Description, e.Amount, due, lead, currency)
		if err != nil {
			return ids, err
		}
		if ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
