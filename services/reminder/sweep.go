package reminder

import (
	"context"
	"errors"
	"time"

	lockRepo "nudge/database/repository/lock"
	reminderRepo "nudge/database/repository/reminder"
	"nudge/models"
	"nudge/services/notification"
	"nudge/services/recurrence"
	"nudge/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	sweepLockKey     = "reminder-sweep"
	defaultBatchSize = 100
)

// TargetResolver picks the push token a reminder goes to.
type TargetResolver interface {
	Resolve(ctx context.Context, r *models.Reminder) (string, error)
}

// Sender delivers a single push.
type Sender interface {
	SendToToken(ctx context.Context, token, title, body string, data map[string]string) (string, error)
}

// Evictor removes device records whose token the provider rejected.
type Evictor interface {
	EvictToken(ctx context.Context, ownerID, token string) error
}

// SweepConfig tunes one sweep run. Zero values fall back to the defaults.
type SweepConfig struct {
	BatchSize int
	LockTTL   time.Duration
	Timeout   time.Duration
}

// SweepReport summarises a run.
type SweepReport struct {
	Skipped   bool
	Due       int
	Delivered int
	Advanced  int
	NoTarget  int
	Failed    int
	Evicted   int
	Errors    int
	// Superseded counts items another sweep had already moved or settled.
	Superseded int
}

// Sweeper delivers due reminders in bounded sequential batches.
type Sweeper struct {
	repo     reminderRepo.ReminderRepository
	resolver TargetResolver
	sender   Sender
	evictor  Evictor
	locker   lockRepo.Locker
	cfg      SweepConfig
	owner    string
	logger   *zap.Logger
	now      func() time.Time
}

func NewSweeper(
	repo reminderRepo.ReminderRepository,
	resolver TargetResolver,
	sender Sender,
	evictor Evictor,
	locker lockRepo.Locker,
	cfg SweepConfig,
	logger *zap.Logger,
) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 55 * time.Second
	}
	if locker == nil {
		locker = lockRepo.NoopLocker{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		repo:     repo,
		resolver: resolver,
		sender:   sender,
		evictor:  evictor,
		locker:   locker,
		cfg:      cfg,
		owner:    uuid.NewString(),
		logger:   logger,
		now:      time.Now,
	}
}

// Run processes one batch of due reminders. Item failures are recorded on the item and never abort
// the batch; only a failed due-query is returned as an error.
func (s *Sweeper) Run(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	start := time.Now()
	defer func() { utils.SweepDuration.Observe(time.Since(start).Seconds()) }()

	acquired, err := s.locker.TryAcquire(ctx, sweepLockKey, s.owner, s.cfg.LockTTL)
	switch {
	case err != nil:
		s.logger.Warn("sweep lease unavailable, running without it", zap.Error(err))
	case !acquired:
		s.logger.Info("previous sweep still holds the lease, skipping")
		utils.SweepRunsTotal.WithLabelValues("skipped").Inc()
		report.Skipped = true
		return report, nil
	default:
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), sweepLockKey, s.owner); err != nil {
				s.logger.Warn("failed to release sweep lease", zap.Error(err))
			}
		}()
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	now := s.now()
	due, err := s.repo.FindDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		utils.SweepRunsTotal.WithLabelValues("error").Inc()
		return report, err
	}
	report.Due = len(due)

	for i := range due {
		if ctx.Err() != nil {
			s.logger.Warn("sweep interrupted, leaving remainder for the next run",
				zap.Int("remaining", len(due)-i))
			break
		}
		outcome := s.process(ctx, &due[i], &report)
		utils.SweepRemindersTotal.WithLabelValues(outcome).Inc()
	}

	utils.SweepRunsTotal.WithLabelValues("ok").Inc()
	if report.Due > 0 {
		s.logger.Info("sweep complete",
			zap.Int("due", report.Due),
			zap.Int("delivered", report.Delivered),
			zap.Int("advanced", report.Advanced),
			zap.Int("superseded", report.Superseded),
			zap.Int("noTarget", report.NoTarget),
			zap.Int("failed", report.Failed),
			zap.Int("errors", report.Errors))
	}
	return report, nil
}

func (s *Sweeper) process(ctx context.Context, r *models.Reminder, report *SweepReport) string {
	log := s.logger.With(zap.String("reminderId", r.ID))

	// Outcome writes must land even if the sweep is cancelled mid-send, or the item is pushed again.
	settle := context.WithoutCancel(ctx)

	token, err := s.resolver.Resolve(ctx, r)
	if errors.Is(err, models.ErrNoTargetFound) {
		if _, err := s.repo.MarkFailed(settle, r.ID, models.MsgNoTokenFound); err != nil {
			log.Error("failed to record missing target", zap.Error(err))
			report.Errors++
			return "error"
		}
		report.NoTarget++
		return "no_target"
	}
	if err != nil {
		// Storage trouble: leave the reminder due so the next run retries the lookup.
		log.Error("failed to resolve delivery target", zap.Error(err))
		report.Errors++
		return "error"
	}

	if _, err := s.sender.SendToToken(ctx, token, r.Title, r.Body, r.Payload); err != nil {
		log.Warn("reminder delivery failed", zap.Error(err))
		if _, markErr := s.repo.MarkFailed(settle, r.ID, err.Error()); markErr != nil {
			log.Error("failed to record delivery error", zap.Error(markErr))
			report.Errors++
		}
		if notification.IsTokenInvalid(err) && s.evictor != nil {
			if evictErr := s.evictor.EvictToken(settle, r.OwnerID, token); evictErr != nil {
				log.Error("failed to evict device", zap.Error(evictErr))
			} else {
				report.Evicted++
			}
		}
		report.Failed++
		return "failed"
	}

	if r.RepeatRule.IsRecurring() {
		next := recurrence.Next(r.ScheduledAt, r.RepeatRule)
		ok, err := s.repo.Advance(settle, r.ID, r.ScheduledAt, next)
		if err != nil {
			log.Error("failed to advance recurring reminder", zap.Error(err))
			report.Errors++
			return "error"
		}
		if !ok {
			log.Info("reminder changed during sweep, not advancing")
			report.Superseded++
			return "superseded"
		}
		report.Advanced++
		return "advanced"
	}

	ok, err := s.repo.MarkSent(settle, r.ID, s.now().UTC())
	if err != nil {
		log.Error("failed to mark reminder sent", zap.Error(err))
		report.Errors++
		return "error"
	}
	if !ok {
		log.Info("reminder already settled by another sweep")
		report.Superseded++
		return "superseded"
	}
	report.Delivered++
	return "delivered"
}
