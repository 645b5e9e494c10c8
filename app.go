package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"nudge/config"
	"nudge/cron"
	"nudge/database"
	deviceRepo "nudge/database/repository/device"
	lockRepo "nudge/database/repository/lock"
	reminderRepo "nudge/database/repository/reminder"
	"nudge/handlers"
	"nudge/routes"
	"nudge/services/delivery"
	"nudge/services/device"
	"nudge/services/notification"
	"nudge/services/reminder"
	"nudge/utils"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// app holds the wired server components.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	mongo    *mongo.Client
	redis    *redis.Client
	registry *device.DefaultRegistry
	sweeper  *reminder.Sweeper
	bundle   *handlers.HandlerBundle
	health   *utils.HealthMonitor
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	checks := map[string]utils.HealthCheck{}

	// Storage.
	var (
		devices   deviceRepo.DeviceRepository
		reminders reminderRepo.ReminderRepository
	)
	switch cfg.StorageDriver {
	case "memory":
		logger.Warn("using in-memory storage, data is lost on restart")
		devices = deviceRepo.NewMemoryDeviceRepo()
		reminders = reminderRepo.NewMemoryReminderRepo()
	case "mongo", "":
		client, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.mongo = client
		db := client.Database(cfg.DatabaseName)
		devices = deviceRepo.NewMongoDeviceRepo(db)
		reminders = reminderRepo.NewMongoReminderRepo(db)
		checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	// Sweep lease. Redis when reachable, otherwise a process-local lock.
	var locker lockRepo.Locker = lockRepo.NewMemoryLocker()
	if cfg.RedisAddr != "" {
		rc, err := utils.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("redis unavailable, sweep lease is process-local", zap.Error(err))
		} else {
			a.redis = rc
			locker = lockRepo.NewRedisLocker(rc)
			checks["redis"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
		}
	}

	// Push.
	messenger, err := utils.FirebaseInit(ctx, cfg.FirebaseCredentialsFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	dispatcher, err := notification.NewDefaultDispatcher(messenger, cfg.PushChannelID, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.registry = device.NewDefaultRegistry(devices, logger)
	resolver := delivery.NewResolver(a.registry)
	sender := delivery.NewSender(a.registry, dispatcher, logger)
	reminderService := reminder.NewDefaultReminderService(reminders, logger)

	a.sweeper = reminder.NewSweeper(reminders, resolver, dispatcher, a.registry, locker, reminder.SweepConfig{
		BatchSize: cfg.SweepBatchSize,
		LockTTL:   cfg.SweepLockTTL,
		Timeout:   cfg.SweepTimeout,
	}, logger)

	a.health = utils.NewHealthMonitor(checks)
	a.bundle = handlers.NewHandlerBundle(a.registry, reminderService, sender, a.health, cfg.AdminJWTSecret)
	return a, nil
}

// Close releases external connections.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.mongo != nil {
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.logger.Warn("mongo disconnect failed", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
}

type trigger interface {
	Run(ctx context.Context) error
}

func (a *app) sweepTrigger() (trigger, error) {
	switch a.cfg.SweepTrigger {
	case "local", "":
		return cron.NewLocalTrigger(a.cfg.SweepSchedule, a.sweeper, a.logger)
	case "queue":
		return cron.NewQueueTrigger(cron.RedisOpt(a.cfg), a.cfg.SweepSchedule, a.cfg.SweepLockTTL, a.sweeper, a.logger)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown SWEEP_TRIGGER %q", a.cfg.SweepTrigger)
	}
}

func serve(parent context.Context, cfg config.Config, logger *zap.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	trig, err := a.sweepTrigger()
	if err != nil {
		return err
	}
	a.health.Start(ctx, 30*time.Second)

	router := routes.NewRouter(a.bundle, logger, cfg.MaxRequestsPerMin)
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Sugar().Infof("Starting server on %s...", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if trig != nil {
		g.Go(func() error {
			logger.Info("reminder sweep trigger started", zap.String("trigger", cfg.SweepTrigger), zap.String("schedule", cfg.SweepSchedule))
			return trig.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server exiting")
	return nil
}
