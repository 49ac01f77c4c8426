// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/medtrackhq/medtrack-be/internal/adapters/db"
	redis_a "github.com/medtrackhq/medtrack-be/internal/adapters/redis_adapter"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
	"github.com/medtrackhq/medtrack-be/internal/core/services"
	"github.com/medtrackhq/medtrack-be/internal/handlers"
	"github.com/medtrackhq/medtrack-be/internal/handlers/middleware"
	"github.com/medtrackhq/medtrack-be/internal/pkg/config"
	"github.com/medtrackhq/medtrack-be/internal/pkg/logger"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

func main() {
	slogger := logger.SetupLogger("debug", "json")

	if err := run(slogger); err != nil {
		slogger.Error("api exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(slogger *slog.Logger) error {
	slogger.Info("starting pharmacy inventory management system",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("go_version", GoVersion),
	)

	cfg, err := config.Load(slogger)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("log_level", cfg.App.LogLevel),
	)

	ctx := context.Background()

	deps, err := buildDependencies(ctx, cfg, slogger)
	if err != nil {
		return err
	}
	defer deps.cleanup()

	// Production schemas are migrated by the deploy pipeline, not at boot.
	if cfg.App.Environment != "production" {
		if err := migrateSchema(ctx, cfg, slogger); err != nil {
			slogger.Warn("migrations failed, continuing with current schema",
				slog.Any("error", err))
		}
	}

	server := buildHTTPServer(cfg, deps, slogger)

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("listening",
			slog.String("address", cfg.GetServerAddress()),
			slog.Bool("tls", cfg.Server.TLSEnabled),
		)

		if cfg.Server.TLSEnabled {
			serverErrors <- server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("graceful shutdown failed, closing", slog.Any("error", err))
			server.Close()
		}

		slogger.Info("server shutdown complete")
	}

	return nil
}

// dependencies holds every long-lived client plus the handlers built on
// top of them. cleanup closes them in reverse dependency order.
type dependencies struct {
	database         *db.Database
	redisClient      *redis.Client
	redisCache       ports.CacheRepository
	asynqClient      *asynq.Client
	asynqInspector   *asynq.Inspector
	medicineService  *services.MedicineService
	saleService      *services.SaleService
	medicineHandler  *handlers.MedicineHandler
	saleHandler      *handlers.SaleHandler
	authHandler      *handlers.AuthHandler
	healthHandler    *handlers.HealthHandler
	dashboardHandler *handlers.DashboardHandler
	exportHandler    *handlers.ExportHandler
	importHandler    *handlers.ImportHandler
}

func (d *dependencies) cleanup() {
	if d.asynqClient != nil {
		d.asynqClient.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.database != nil {
		d.database.Close()
	}
}

func buildDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	deps := &dependencies{}

	database, err := connectPostgres(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.database = database

	redisClient, err := connectRedis(ctx, cfg, logger)
	if err != nil {
		deps.cleanup()
		return nil, err
	}
	deps.redisClient = redisClient
	deps.redisCache = redis_a.NewCache(redisClient, cfg.Redis.TTL, logger)

	asynqRedisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Asynq.RedisAddr,
		Password: cfg.Asynq.RedisPassword,
		DB:       cfg.Asynq.RedisDB,
	}
	deps.asynqClient = asynq.NewClient(asynqRedisOpt)
	deps.asynqInspector = asynq.NewInspector(asynqRedisOpt)

	medicineRepo := db.NewMedicineRepository(database, logger)
	saleRepo := db.NewSaleRepository(database, logger)
	userRepo := db.NewUserRepository(database, logger)

	deps.medicineService = services.NewMedicineService(medicineRepo, logger)
	deps.saleService = services.NewSaleService(saleRepo, medicineRepo, database, logger)

	deps.medicineHandler = handlers.NewMedicineHandler(deps.medicineService, deps.redisCache, logger)
	deps.saleHandler = handlers.NewSaleHandler(deps.saleService, deps.redisCache, logger)
	deps.authHandler = handlers.NewAuthHandler(userRepo, cfg.Security, logger)
	deps.healthHandler = handlers.NewHealthHandler(database, redisClient, deps.asynqInspector, cfg, logger)
	deps.dashboardHandler = handlers.NewDashboardHandler(database, deps.redisCache, logger)
	deps.exportHandler = handlers.NewExportHandler(medicineRepo, saleRepo, deps.redisCache, logger)

	maxFileSize := int64(cfg.FileProcessing.PDFMaxSizeMB * 1024 * 1024)
	deps.importHandler = handlers.NewImportHandler(deps.asynqClient, deps.redisCache, logger, maxFileSize, cfg.FileProcessing.TempDir)

	logger.Info("all dependencies initialized")
	return deps, nil
}

func connectPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*db.Database, error) {
	logger.Info("connecting to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Name),
	)

	return db.NewDatabase(ctx, &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     cfg.Database.MaxConnections,
		MinConnections:     cfg.Database.MinConnections,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		StatementCacheMode: cfg.Database.StatementCacheMode,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}, logger)
}

func connectRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redis.Client, error) {
	logger.Info("connecting to Redis",
		slog.String("host", cfg.Redis.Host),
		slog.String("port", cfg.Redis.Port),
	)

	client := redis.NewClient(&redis.Options{
		Addr:            fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password:        cfg.Redis.Password,
		DB:              cfg.Redis.DB,
		MaxRetries:      cfg.Redis.MaxRetries,
		MinRetryBackoff: cfg.Redis.MinRetryBackoff,
		MaxRetryBackoff: cfg.Redis.MaxRetryBackoff,
		DialTimeout:     cfg.Redis.DialTimeout,
		ReadTimeout:     cfg.Redis.ReadTimeout,
		WriteTimeout:    cfg.Redis.WriteTimeout,
		PoolSize:        cfg.Redis.PoolSize,
		MinIdleConns:    cfg.Redis.MinIdleConns,
		ConnMaxLifetime: cfg.Redis.MaxConnAge,
		PoolTimeout:     cfg.Redis.PoolTimeout,
		ConnMaxIdleTime: cfg.Redis.IdleTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

func buildHTTPServer(cfg *config.Config, deps *dependencies, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	registerRoutes(mux, deps, cfg)

	// Innermost wraps first, so the request passes through the chain in
	// the reverse of this order.
	var handler http.Handler = mux
	handler = middleware.Compression(handler)
	handler = middleware.Timeout(cfg.Server.WriteTimeout)(handler)

	if cfg.App.Environment != "test" {
		handler = middleware.RequestID(handler)
		handler = middleware.Logger(logger)(handler)
		handler = middleware.Recovery(logger)(handler)
	}

	if cfg.Security.RateLimitRequests > 0 {
		handler = middleware.RateLimit(cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration)(handler)
	}

	if len(cfg.Security.AllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.Security.AllowedOrigins)(handler)
	}

	if cfg.Security.SecureHeaders {
		handler = middleware.SecureHeaders(handler)
	}

	return &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}

func registerRoutes(mux *http.ServeMux, deps *dependencies, cfg *config.Config) {
	apiV1 := "/api/v1"

	// Health endpoints stay open; load balancers do not carry tokens.
	if cfg.Server.EnableHealthCheck {
		mux.HandleFunc("GET /health", deps.healthHandler.Health)
		mux.HandleFunc("GET /ready", deps.healthHandler.Readiness)
		mux.HandleFunc("GET "+apiV1+"/health", deps.healthHandler.Health)
	}

	mux.HandleFunc("POST "+apiV1+"/auth/register", deps.authHandler.Register)
	mux.HandleFunc("POST "+apiV1+"/auth/login", deps.authHandler.Login)

	// Everything below requires a valid token
	auth := middleware.JWTAuth(cfg.Security.JWTSecret)
	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, auth(h))
	}

	protected("GET "+apiV1+"/medicines/{id}", deps.medicineHandler.GetMedicine)
	protected("GET "+apiV1+"/medicines", deps.medicineHandler.ListMedicines)
	protected("POST "+apiV1+"/medicines", deps.medicineHandler.CreateMedicine)
	protected("PUT "+apiV1+"/medicines/{id}", deps.medicineHandler.UpdateMedicine)
	protected("DELETE "+apiV1+"/medicines/{id}", deps.medicineHandler.DeleteMedicine)

	protected("POST "+apiV1+"/medicines/{id}/sales", deps.saleHandler.SellMedicine)
	protected("GET "+apiV1+"/sales/{id}", deps.saleHandler.GetSale)
	protected("GET "+apiV1+"/sales", deps.saleHandler.ListSales)
	protected("DELETE "+apiV1+"/sales/{id}", deps.saleHandler.DeleteSale)

	protected("POST "+apiV1+"/import/pdf", deps.importHandler.ImportPDF)
	protected("POST "+apiV1+"/import/excel", deps.importHandler.ImportExcel)
	protected("POST "+apiV1+"/import/batch", deps.importHandler.ImportBatch)
	protected("GET "+apiV1+"/import/status/{jobId}", deps.importHandler.ImportStatus)

	protected("GET "+apiV1+"/export/excel", deps.exportHandler.ExportExcel)
	protected("GET "+apiV1+"/export/json", deps.exportHandler.ExportJSON)

	protected("GET "+apiV1+"/dashboard", deps.dashboardHandler.GetDashboard)

	if cfg.Server.EnablePprof && cfg.IsDevelopment() {
		mux.HandleFunc("GET /debug/pprof/", http.HandlerFunc(http.DefaultServeMux.ServeHTTP))
	}
}

func migrateSchema(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("running database migrations")

	return db.RunMigrationsWithRetry(ctx, &db.MigrationConfig{
		DatabaseURL: cfg.GetDatabaseURL(),
		SourcePath:  cfg.Database.MigrationPath,
		TableName:   "schema_migrations",
		SchemaName:  "public",
	}, logger, 3)
}
