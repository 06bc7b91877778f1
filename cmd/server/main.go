package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"classbook/internal/adapters/email"
	web "classbook/internal/adapters/http"
	"classbook/internal/adapters/http/middleware"
	"classbook/internal/adapters/http/perf"
	"classbook/internal/adapters/logging"
	"classbook/internal/adapters/queue"
	"classbook/internal/adapters/storage"
	accessStore "classbook/internal/adapters/storage/access"
	auditStore "classbook/internal/adapters/storage/audit"
	bookingStore "classbook/internal/adapters/storage/booking"
	capacityStore "classbook/internal/adapters/storage/capacity"
	classInstanceStore "classbook/internal/adapters/storage/classinstance"
	memberStore "classbook/internal/adapters/storage/member"
	outboxStore "classbook/internal/adapters/storage/outbox"
	scheduleStore "classbook/internal/adapters/storage/schedule"
	"classbook/internal/adapters/storage/uow"
	waitlistStore "classbook/internal/adapters/storage/waitlist"
	"classbook/internal/adapters/telemetry"
	"classbook/internal/application/orchestrators"
	"classbook/internal/config"
	"classbook/internal/domain/booking"
	"classbook/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.Install(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, cfg.OtelEndpoint, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing_shutdown_failed", "error", err.Error())
		}
	}()

	// Database: WAL pragmas are applied by storage.Open, schema by goose.
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.Migrate(ctx, db); err != nil {
		return err
	}

	collector := perf.NewCollector(cfg.PerfRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)

	members := memberStore.NewSQLiteStore(timedDB)
	outboxes := outboxStore.NewSQLiteStore(timedDB)
	audits := auditStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		ClassStore:    classInstanceStore.NewSQLiteStore(timedDB),
		BookingStore:  bookingStore.NewSQLiteStore(timedDB),
		WaitlistStore: waitlistStore.NewSQLiteStore(timedDB),
		AccessStore:   accessStore.NewSQLiteStore(timedDB),
		CapacityStore: capacityStore.NewSQLiteStore(timedDB),
		MemberStore:   members,
		OutboxStore:   outboxes,
		AuditStore:    audits,
	}

	// Notification delivery: email always, the broker when configured.
	var sender email.Sender
	if cfg.Email.ResendKey != "" {
		sender = email.NewResendSender(cfg.Email.ResendKey, cfg.Email.From)
		slog.Info("email_sender_configured", "provider", "resend")
	} else {
		sender = email.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("email_delivery_disabled", "reason", "CLASSBOOK_EMAIL_RESEND_KEY is not set")
		}
	}
	executors := map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeEmail: &orchestrators.EmailExecutor{Members: members, Sender: sender, From: cfg.Email.From},
	}
	channels := []string{outbox.ActionTypeEmail}
	if cfg.AMQP.URL != "" {
		publisher := queue.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		defer publisher.Close()
		executors[outbox.ActionTypePublish] = &orchestrators.PublishExecutor{Publisher: publisher}
		channels = append(channels, outbox.ActionTypePublish)
	}
	processor := orchestrators.NewOutboxProcessor(outboxes, executors)

	engine := orchestrators.EngineDeps{
		Tx: uow.NewSQLRunner(timedDB),
		Effects: &orchestrators.EffectDispatcher{
			Notifier: &orchestrators.OutboxNotifier{Store: outboxes, Channels: channels},
			Auditor:  audits,
		},
		AttendanceWindow: &booking.AttendanceWindow{Early: cfg.Attendance.Early, Late: cfg.Attendance.Late},
		Perf:             collector,
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis_unreachable", "addr", cfg.Redis.Addr, "error", err.Error())
		}
	}
	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillTokens, cfg.RateLimit.RefillInterval)

	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		slog.Warn("jwt_secret_generated", "reason", "CLASSBOOK_JWT_SECRET is not set; tokens will not survive a restart")
	}

	// Background workers stop when stopCh closes.
	stopCh := make(chan struct{})
	defer close(stopCh)
	startWorkers(cfg, stopCh, engine, processor, scheduleStore.NewSQLiteStore(timedDB), limiter)

	e := web.NewRouter(stores, web.Options{
		Engine:    engine,
		Outbox:    processor,
		Collector: collector,
		DB:        timedDB,
		JWTSecret: []byte(secret),
		RateLimit: middleware.RateLimitConfig{
			Enabled:        cfg.RateLimit.Enabled,
			Capacity:       cfg.RateLimit.Capacity,
			RefillTokens:   cfg.RateLimit.RefillTokens,
			RefillInterval: cfg.RateLimit.RefillInterval,
			TTL:            cfg.RateLimit.TTL,
			Prefix:         cfg.RateLimit.Prefix,
		},
		Redis:         rdb,
		Limiter:       limiter,
		SlowRequestMs: cfg.SlowRequestMs,
		Version:       version,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_starting", zap.String("version", version), zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server_stopping")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}

// startWorkers launches the periodic jobs.
func startWorkers(cfg config.Config, stopCh <-chan struct{}, engine orchestrators.EngineDeps,
	processor *orchestrators.OutboxProcessor, schedules orchestrators.ScheduleLister, limiter *middleware.RateLimiter) {
	w := cfg.Worker
	zone, err := time.LoadLocation(w.ScheduleTimezone)
	if err != nil {
		// Validate already loaded it once.
		zone = time.UTC
	}

	orchestrators.StartBackgroundWorker("outbox", w.OutboxInterval, w.JobTimeout, stopCh, processor.ProcessPending)

	orchestrators.StartBackgroundWorker("promotion_sweep", w.PromotionSweepInterval, w.JobTimeout, stopCh, func(ctx context.Context) error {
		_, err := orchestrators.ExecutePromotionSweep(ctx, orchestrators.PromotionSweepInput{}, engine)
		return err
	})

	generate := func(ctx context.Context) error {
		_, err := orchestrators.ExecuteGenerateClassInstances(ctx, orchestrators.GenerateClassInstancesInput{
			HorizonWeeks: w.ScheduleHorizonWeeks,
			Location:     zone,
		}, schedules, engine)
		return err
	}
	// Fill the horizon once at startup so a fresh deploy has classes before the first tick.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), w.JobTimeout)
		defer cancel()
		if err := generate(ctx); err != nil {
			slog.Error("background_job_failed", "worker", "schedule_generation", "error", err.Error())
		}
	}()
	orchestrators.StartBackgroundWorker("schedule_generation", w.ScheduleInterval, w.JobTimeout, stopCh, generate)

	orchestrators.StartBackgroundWorker("outbox_purge", time.Hour, w.JobTimeout, stopCh, func(ctx context.Context) error {
		_, err := processor.PurgeDelivered(ctx, w.OutboxRetention)
		return err
	})

	if cfg.RateLimit.Enabled {
		orchestrators.StartBackgroundWorker("rate_limit_sweep", time.Minute, w.JobTimeout, stopCh, func(context.Context) error {
			limiter.Sweep(cfg.RateLimit.TTL)
			return nil
		})
	}
}
