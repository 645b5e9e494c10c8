package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TypeReminderSweep = "reminder:sweep"

// SweepQueue keeps sweep tasks apart from any other work sharing the Redis instance.
const SweepQueue = "reminders"

// SweepPayload identifies who enqueued a sweep; the sweep itself reads the clock when it runs.
type SweepPayload struct {
	Source string `json:"source"`
}

// NewSweepTask builds the periodic sweep task. Unique keeps at most one pending sweep per lease
// window. Failed runs are not retried; the next tick runs again.
func NewSweepTask(source string, window time.Duration) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(SweepPayload{Source: source})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeReminderSweep, b)
	opts := []asynq.Option{
		asynq.Queue(SweepQueue),
		asynq.MaxRetry(0),
		asynq.Unique(window),
		asynq.Timeout(window),
	}
	return task, opts, nil
}

// ParseSweepPayload decodes a sweep task payload. An empty payload is valid.
func ParseSweepPayload(task *asynq.Task) (SweepPayload, error) {
	var p SweepPayload
	if len(task.Payload()) == 0 {
		return p, nil
	}
	err := json.Unmarshal(task.Payload(), &p)
	return p, err
}
