// File: models/reminder.go
package models

import (
	"strings"
	"time"
)

// RepeatRule controls how a delivered reminder is rescheduled.
type RepeatRule string

const (
	RepeatNone    RepeatRule = "none"
	RepeatDaily   RepeatRule = "daily"
	RepeatWeekly  RepeatRule = "weekly"
	RepeatMonthly RepeatRule = "monthly"
	RepeatYearly  RepeatRule = "yearly"
)

// ParseRepeatRule maps request input onto a rule. Empty and "none"/"null" mean one-shot;
// anything else is kept verbatim so the recurrence calculator can apply its default.
func ParseRepeatRule(raw string) RepeatRule {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "", "none", "null":
		return RepeatNone
	}
	return RepeatRule(s)
}

// IsRecurring reports whether a successful delivery should advance instead of finish.
func (r RepeatRule) IsRecurring() bool {
	return r != "" && r != RepeatNone
}

// SourceKind names the kind of item a reminder belongs to.
type SourceKind string

const (
	SourceTask         SourceKind = "task"
	SourceNote         SourceKind = "note"
	SourceBudget       SourceKind = "budget"
	SourceBill         SourceKind = "bill"
	SourceHabit        SourceKind = "habit"
	SourceGamification SourceKind = "gamification"
)

// Valid reports whether k is one of the known kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceTask, SourceNote, SourceBudget, SourceBill, SourceHabit, SourceGamification:
		return true
	}
	return false
}

// Payload keys carrying the correlation id of the owning item.
const (
	PayloadTaskID  = "taskId"
	PayloadNoteID  = "noteId"
	PayloadBillID  = "billId"
	PayloadHabitID = "habitId"
	PayloadType    = "type"
)

var sourceRefKeys = []struct {
	key  string
	kind SourceKind
}{
	{PayloadTaskID, SourceTask},
	{PayloadNoteID, SourceNote},
	{PayloadBillID, SourceBill},
	{PayloadHabitID, SourceHabit},
}

// SourceFromPayload derives the owning item of a reminder from its payload.
func SourceFromPayload(payload map[string]string) (SourceKind, string) {
	kind := SourceKind(payload[PayloadType])
	ref := ""
	inferred := SourceTask
	for _, k := range sourceRefKeys {
		if v := payload[k.key]; v != "" {
			ref = v
			inferred = k.kind
			break
		}
	}
	if !kind.Valid() {
		kind = inferred
	}
	return kind, ref
}

// Reminder is a schedulable obligation handled by the sweep.
type Reminder struct {
	ID          string            `bson:"id" json:"id"`
	OwnerID     string            `bson:"ownerId,omitempty" json:"ownerId,omitempty"`
	Token       string            `bson:"token,omitempty" json:"token,omitempty"`
	SourceKind  SourceKind        `bson:"sourceKind" json:"sourceKind"`
	SourceRef   string            `bson:"sourceRef,omitempty" json:"sourceRef,omitempty"`
	Title       string            `bson:"title" json:"title"`
	Body        string            `bson:"body" json:"body"`
	ScheduledAt time.Time         `bson:"scheduledAt" json:"scheduledAt"`
	RepeatRule  RepeatRule        `bson:"repeatRule" json:"repeatRule"`
	Payload     map[string]string `bson:"payload,omitempty" json:"payload,omitempty"`
	Sent        bool              `bson:"sent" json:"sent"`
	LastError   string            `bson:"lastError,omitempty" json:"lastError,omitempty"`
	CreatedAt   time.Time         `bson:"createdAt" json:"createdAt"`
	SentAt      *time.Time        `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
}

// SourceField selects which correlation id a bulk cancel matches on.
type SourceField string

const (
	SourceFieldTask SourceField = PayloadTaskID
	SourceFieldNote SourceField = PayloadNoteID
)
