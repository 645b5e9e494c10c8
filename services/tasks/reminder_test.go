package tasks

import (
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSweepTask(t *testing.T) {
	task, opts, err := NewSweepTask("scheduler", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, TypeReminderSweep, task.Type())
	assert.Len(t, opts, 4)

	p, err := ParseSweepPayload(task)
	require.NoError(t, err)
	assert.Equal(t, "scheduler", p.Source)
}

func TestParseSweepPayload(t *testing.T) {
	p, err := ParseSweepPayload(asynq.NewTask(TypeReminderSweep, nil))
	require.NoError(t, err)
	assert.Empty(t, p.Source)

	_, err = ParseSweepPayload(asynq.NewTask(TypeReminderSweep, []byte("{")))
	assert.Error(t, err)
}
