package cron

import (
	"context"
	"fmt"
	"time"

	"nudge/config"
	"nudge/services/reminder"
	"nudge/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// SweepRunner runs one reminder sweep.
type SweepRunner interface {
	Run(ctx context.Context) (reminder.SweepReport, error)
}

// QueueTrigger enqueues the sweep through an asynq periodic task and runs it in an asynq worker,
// so several replicas can share one schedule.
type QueueTrigger struct {
	scheduler *asynq.Scheduler
	server    *asynq.Server
	mux       *asynq.ServeMux
	logger    *zap.Logger
}

// RedisOpt builds asynq connection options from the queue database settings.
func RedisOpt(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisQueueDB,
	}
}

func NewQueueTrigger(redisOpt asynq.RedisClientOpt, spec string, window time.Duration, runner SweepRunner, logger *zap.Logger) (*QueueTrigger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sugar := logger.Sugar()

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Logger:   sugar,
		Location: time.UTC,
	})
	task, opts, err := tasks.NewSweepTask("scheduler", window)
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(spec, task, opts...); err != nil {
		return nil, fmt.Errorf("register sweep schedule %q: %w", spec, err)
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{tasks.SweepQueue: 1},
		Logger:      sugar,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeReminderSweep, handleSweepTask(runner, logger))

	return &QueueTrigger{scheduler: scheduler, server: server, mux: mux, logger: logger}, nil
}

// Run starts the worker and the scheduler and blocks until ctx is cancelled.
func (q *QueueTrigger) Run(ctx context.Context) error {
	if err := q.server.Start(q.mux); err != nil {
		return fmt.Errorf("start sweep worker: %w", err)
	}
	if err := q.scheduler.Start(); err != nil {
		q.server.Shutdown()
		return fmt.Errorf("start sweep scheduler: %w", err)
	}
	q.logger.Info("queue sweep trigger started")

	<-ctx.Done()
	q.scheduler.Shutdown()
	q.server.Shutdown()
	q.logger.Info("queue sweep trigger stopped")
	return nil
}

func handleSweepTask(runner SweepRunner, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseSweepPayload(task)
		if err != nil {
			logger.Error("invalid sweep payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		report, err := runner.Run(ctx)
		if err != nil {
			logger.Error("sweep failed", zap.String("source", p.Source), zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logger.Debug("sweep task done", zap.String("source", p.Source), zap.Int("due", report.Due))
		return nil
	}
}
