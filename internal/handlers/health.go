// internal/handlers/health.go
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/medtrackhq/medtrack-be/internal/adapters/db"
	"github.com/medtrackhq/medtrack-be/internal/pkg/config"
)

// HealthHandler reports liveness and readiness of the api process and its
// dependencies (Postgres, Redis, and the import/report job queues).
type HealthHandler struct {
	db        *db.Database
	redis     *redis.Client
	asynq     *asynq.Inspector
	config    *config.Config
	logger    *slog.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(
	database *db.Database,
	redisClient *redis.Client,
	asynqInspector *asynq.Inspector,
	cfg *config.Config,
	logger *slog.Logger,
) *HealthHandler {
	return &HealthHandler{
		db:        database,
		redis:     redisClient,
		asynq:     asynqInspector,
		config:    cfg,
		logger:    logger.With(slog.String("handler", "health")),
		startTime: time.Now(),
	}
}

// HealthStatus is the /health response body.
type HealthStatus struct {
	Status      string                 `json:"status"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Uptime      string                 `json:"uptime"`
	Timestamp   time.Time              `json:"timestamp"`
	Components  map[string]CheckResult `json:"components"`
	Runtime     RuntimeInfo            `json:"runtime"`
}

// CheckResult is the outcome of a single dependency check.
type CheckResult struct {
	Status       string         `json:"status"`
	Message      string         `json:"message,omitempty"`
	ResponseTime string         `json:"response_time,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// RuntimeInfo carries process-level numbers for the ops dashboard.
type RuntimeInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemoryAllocMB uint64 `json:"memory_alloc_mb"`
	NumGC         uint32 `json:"num_gc"`
}

// Health handles the /health endpoint
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := HealthStatus{
		Status:      "healthy",
		Version:     h.config.App.Version,
		Environment: h.config.App.Environment,
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:   time.Now(),
		Components:  make(map[string]CheckResult),
		Runtime:     runtimeInfo(),
	}

	checks := map[string]func(context.Context) CheckResult{
		"database": h.checkDatabase,
		"redis":    h.checkRedis,
	}
	if h.asynq != nil {
		checks["queues"] = h.checkQueues
	}

	for name, check := range checks {
		result := check(ctx)
		health.Components[name] = result
		if result.Status != "healthy" {
			health.Status = "degraded"
		}
	}

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(health); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode health response",
			slog.String("error", err.Error()))
	}
}

// Readiness handles the /ready endpoint
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ready := true
	details := make(map[string]string)

	if err := h.db.Ping(ctx); err != nil {
		ready = false
		details["database"] = "not ready"
	} else {
		details["database"] = "ready"
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		ready = false
		details["redis"] = "not ready"
	} else {
		details["redis"] = "ready"
	}

	statusCode := http.StatusOK
	if !ready {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(map[string]any{
		"ready":   ready,
		"details": details,
	}); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode readiness response",
			slog.String("error", err.Error()))
	}
}

func (h *HealthHandler) checkDatabase(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Status:  "healthy",
		Details: make(map[string]any),
	}

	if err := h.db.Ping(ctx); err != nil {
		result.Status = "unhealthy"
		result.Message = err.Error()
		h.logger.ErrorContext(ctx, "database health check failed",
			slog.String("error", err.Error()))
		return result
	}

	for k, v := range h.db.Health(ctx) {
		result.Details[k] = v
	}

	result.ResponseTime = time.Since(start).String()
	return result
}

func (h *HealthHandler) checkRedis(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Status:  "healthy",
		Details: make(map[string]any),
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		result.Status = "unhealthy"
		result.Message = err.Error()
		h.logger.ErrorContext(ctx, "redis health check failed",
			slog.String("error", err.Error()))
		return result
	}

	poolStats := h.redis.PoolStats()
	result.Details["total_conns"] = poolStats.TotalConns
	result.Details["idle_conns"] = poolStats.IdleConns
	result.Details["stale_conns"] = poolStats.StaleConns

	result.ResponseTime = time.Since(start).String()
	return result
}

// checkQueues reports the depth of the background queues. A growing retry
// or archived count usually means a bad import file is stuck.
func (h *HealthHandler) checkQueues(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Status:  "healthy",
		Details: make(map[string]any),
	}

	queues, err := h.asynq.Queues()
	if err != nil {
		result.Status = "unhealthy"
		result.Message = err.Error()
		h.logger.ErrorContext(ctx, "queue health check failed",
			slog.String("error", err.Error()))
		return result
	}

	queueStats := make(map[string]any)
	for _, queue := range queues {
		info, err := h.asynq.GetQueueInfo(queue)
		if err != nil {
			continue
		}
		queueStats[queue] = map[string]any{
			"size":      info.Size,
			"active":    info.Active,
			"pending":   info.Pending,
			"scheduled": info.Scheduled,
			"retry":     info.Retry,
			"archived":  info.Archived,
		}
	}
	result.Details["queues"] = queueStats

	if servers, err := h.asynq.Servers(); err == nil && len(servers) > 0 {
		result.Details["servers"] = len(servers)
		result.Details["workers"] = servers[0].ActiveWorkers
	}

	result.ResponseTime = time.Since(start).String()
	return result
}

func runtimeInfo() RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		MemoryAllocMB: memStats.Alloc / 1024 / 1024,
		NumGC:         memStats.NumGC,
	}
}
