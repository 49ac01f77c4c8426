// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/medtrackhq/medtrack-be/internal/adapters/db"
	redis_a "github.com/medtrackhq/medtrack-be/internal/adapters/redis_adapter"
	"github.com/medtrackhq/medtrack-be/internal/adapters/storage"
	"github.com/medtrackhq/medtrack-be/internal/core/services"
	"github.com/medtrackhq/medtrack-be/internal/pkg/config"
	"github.com/medtrackhq/medtrack-be/internal/pkg/logger"
	"github.com/medtrackhq/medtrack-be/internal/workers"
)

func main() {
	slogger := logger.SetupLogger("info", "json")

	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("starting worker",
		slog.String("environment", cfg.App.Environment),
		slog.String("redis_addr", cfg.Asynq.RedisAddr))

	ctx := context.Background()
	database, err := initDatabase(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close()

	// Redis cache for job status tracking and cache invalidation
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slogger.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer redisClient.Close()
	cache := redis_a.NewCache(redisClient, cfg.Redis.TTL, slogger)

	// Object storage for generated reports
	s3Storage, err := storage.NewS3Storage(ctx, &storage.S3Config{
		Region:          cfg.AWS.Region,
		Bucket:          cfg.AWS.S3Bucket,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		Endpoint:        cfg.AWS.S3Endpoint,
		UsePathStyle:    cfg.AWS.UsePathStyle,
	}, slogger)
	if err != nil {
		slogger.Error("failed to initialize object storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Repositories and services
	medicineRepo := db.NewMedicineRepository(database, slogger)
	saleRepo := db.NewSaleRepository(database, slogger)
	medicineService := services.NewMedicineService(medicineRepo, slogger)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Asynq.RedisAddr,
			Password: cfg.Asynq.RedisPassword,
			DB:       cfg.Asynq.RedisDB,
		},
		asynq.Config{
			Concurrency:     cfg.Asynq.Concurrency,
			Queues:          cfg.Asynq.Queues,
			StrictPriority:  cfg.Asynq.StrictPriority,
			ErrorHandler:    asynq.ErrorHandlerFunc(handleError),
			RetryDelayFunc:  exponentialBackoff,
			ShutdownTimeout: cfg.Asynq.ShutdownTimeout,
			HealthCheckFunc: healthCheck,
			Logger:          newAsynqLogger(slogger),
		},
	)

	mux := asynq.NewServeMux()

	// Supplier invoice imports
	pdfProcessor := workers.NewPDFProcessor(medicineService, cache, slogger)
	mux.HandleFunc(workers.TypePDFProcess, pdfProcessor.ProcessPDF)

	// Catalog spreadsheet imports
	excelProcessor := workers.NewExcelProcessor(medicineService, cache, slogger)
	mux.HandleFunc(workers.TypeExcelImport, excelProcessor.ProcessExcel)

	// Sales report generation
	reportProcessor := workers.NewReportProcessor(saleRepo, s3Storage, slogger)
	mux.HandleFunc(workers.TypeGenerateReport, reportProcessor.GenerateReport)

	// Email notifications and expiry alerts
	notificationProcessor := workers.NewNotificationProcessor(cfg, medicineRepo, slogger)
	mux.HandleFunc(workers.TypeSendEmail, notificationProcessor.SendEmail)
	mux.HandleFunc(workers.TypeExpiryCheck, notificationProcessor.CheckExpiringStock)

	// Cleanup
	cleanupProcessor := workers.NewCleanupProcessor(s3Storage, cfg, slogger)
	mux.HandleFunc(workers.TypeCleanupOldData, cleanupProcessor.CleanupOldData)
	mux.HandleFunc(workers.TypeCleanupTempFiles, cleanupProcessor.CleanupTempFiles)

	// Periodic tasks
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     cfg.Asynq.RedisAddr,
			Password: cfg.Asynq.RedisPassword,
			DB:       cfg.Asynq.RedisDB,
		},
		&asynq.SchedulerOpts{Logger: newAsynqLogger(slogger)},
	)
	registerPeriodicTasks(scheduler, slogger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Run(mux); err != nil {
			slogger.Error("failed to run worker server", slog.String("error", err.Error()))
			shutdown <- syscall.SIGTERM
		}
	}()

	go func() {
		if err := scheduler.Run(); err != nil {
			slogger.Error("failed to run scheduler", slog.String("error", err.Error()))
			shutdown <- syscall.SIGTERM
		}
	}()

	slogger.Info("worker started successfully",
		slog.Int("concurrency", cfg.Asynq.Concurrency),
		slog.Any("queues", cfg.Asynq.Queues))

	sig := <-shutdown
	slogger.Info("shutdown signal received", slog.String("signal", sig.String()))

	scheduler.Shutdown()
	srv.Shutdown()
	slogger.Info("worker shutdown complete")
}

func registerPeriodicTasks(scheduler *asynq.Scheduler, logger *slog.Logger) {
	entries := []struct {
		cronspec string
		task     *asynq.Task
	}{
		{"0 6 * * *", asynq.NewTask(workers.TypeGenerateReport, []byte(`{"report_type":"daily"}`))},
		{"0 7 * * 1", asynq.NewTask(workers.TypeGenerateReport, []byte(`{"report_type":"weekly"}`))},
		{"0 8 1 * *", asynq.NewTask(workers.TypeGenerateReport, []byte(`{"report_type":"monthly"}`))},
		{"0 9 * * *", asynq.NewTask(workers.TypeExpiryCheck, nil)},
		{"0 3 * * *", asynq.NewTask(workers.TypeCleanupOldData, nil)},
		{"30 3 * * *", asynq.NewTask(workers.TypeCleanupTempFiles, nil)},
	}

	for _, e := range entries {
		entryID, err := scheduler.Register(e.cronspec, e.task, asynq.Queue("low"))
		if err != nil {
			logger.Error("failed to register periodic task",
				slog.String("type", e.task.Type()),
				slog.String("error", err.Error()))
			continue
		}
		logger.Info("registered periodic task",
			slog.String("type", e.task.Type()),
			slog.String("cronspec", e.cronspec),
			slog.String("entry_id", entryID))
	}
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*db.Database, error) {
	dbConfig := &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     10, // Fewer connections for worker
		MinConnections:     2,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		StatementCacheMode: cfg.Database.StatementCacheMode,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}

	return db.NewDatabase(ctx, dbConfig, logger)
}

func handleError(ctx context.Context, task *asynq.Task, err error) {
	slog.ErrorContext(ctx, "task processing failed",
		slog.String("type", task.Type()),
		slog.String("payload", string(task.Payload())),
		slog.String("error", err.Error()))
}

func exponentialBackoff(n int, e error, t *asynq.Task) time.Duration {
	baseDelay := time.Second
	maxDelay := 10 * time.Minute
	delay := baseDelay * time.Duration(1<<uint(n))
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

func healthCheck(err error) {
	if err != nil {
		slog.Error("worker health check failed", slog.String("error", err.Error()))
	}
}

// asynqLogger adapts slog for Asynq
type asynqLogger struct {
	logger *slog.Logger
}

func newAsynqLogger(logger *slog.Logger) *asynqLogger {
	return &asynqLogger{
		logger: logger.With(slog.String("component", "asynq")),
	}
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
	os.Exit(1)
}
