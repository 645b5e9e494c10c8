package utils

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SweepRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nudge_sweep_runs_total",
			Help: "Reminder sweep runs by result (ok, skipped, error)",
		},
		[]string{"result"},
	)

	SweepRemindersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nudge_sweep_reminders_total",
			Help: "Reminders handled by the sweep by outcome",
		},
		[]string{"outcome"},
	)

	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nudge_sweep_duration_seconds",
			Help:    "Duration of one reminder sweep",
			Buckets: prometheus.DefBuckets,
		},
	)

	PushSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nudge_push_sends_total",
			Help: "Push messages sent by mode (single, broadcast) and result",
		},
		[]string{"mode", "result"},
	)

	DevicesEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nudge_devices_evicted_total",
			Help: "Device records removed after the provider rejected their token",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SweepRunsTotal,
		SweepRemindersTotal,
		SweepDuration,
		PushSendsTotal,
		DevicesEvictedTotal,
	)
}
