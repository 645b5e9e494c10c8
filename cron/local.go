// Package cron triggers the reminder sweep, either in-process or through a Redis-backed queue.
package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// LocalTrigger runs the sweep on an in-process cron schedule. A tick that lands while the previous
// sweep is still running is skipped.
type LocalTrigger struct {
	cron   *cron.Cron
	spec   string
	runner SweepRunner
	logger *zap.Logger
}

// cronLogger adapts zap to the robfig/cron logger interface.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

func NewLocalTrigger(spec string, runner SweepRunner, logger *zap.Logger) (*LocalTrigger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	cl := cronLogger{s: logger.Sugar()}
	t := &LocalTrigger{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		spec:   spec,
		runner: runner,
		logger: logger,
	}
	return t, nil
}

// Run schedules the sweep and blocks until ctx is cancelled, then waits for an in-flight sweep.
func (t *LocalTrigger) Run(ctx context.Context) error {
	if _, err := t.cron.AddFunc(t.spec, func() { t.sweep(ctx) }); err != nil {
		return err
	}
	t.cron.Start()
	t.logger.Info("local sweep trigger started", zap.String("schedule", t.spec))

	<-ctx.Done()
	<-t.cron.Stop().Done()
	t.logger.Info("local sweep trigger stopped")
	return nil
}

func (t *LocalTrigger) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := t.runner.Run(ctx); err != nil {
		t.logger.Error("sweep failed", zap.Error(err))
	}
}
