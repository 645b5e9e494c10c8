package utils

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthMonitor_Check(t *testing.T) {
	m := NewHealthMonitor(map[string]HealthCheck{
		"mongo": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	assert.True(t, m.Status().Healthy, "no check has run yet")

	status := m.Check(context.Background())

	assert.False(t, status.Healthy)
	assert.True(t, status.Services["mongo"])
	assert.False(t, status.Services["redis"])
	assert.Equal(t, status, m.Status())
}
