// internal/workers/cleanup_processor.go
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/medtrackhq/medtrack-be/internal/adapters/storage"
	"github.com/medtrackhq/medtrack-be/internal/pkg/config"
)

// reportRetention is how long generated sales reports are kept in object storage.
const reportRetention = 90 * 24 * time.Hour

// CleanupProcessor handles cleanup tasks
type CleanupProcessor struct {
	storage storage.StorageClient
	config  *config.Config
	logger  *slog.Logger
}

// NewCleanupProcessor creates a new cleanup processor
func NewCleanupProcessor(st storage.StorageClient, cfg *config.Config, logger *slog.Logger) *CleanupProcessor {
	return &CleanupProcessor{
		storage: st,
		config:  cfg,
		logger:  logger.With(slog.String("processor", "cleanup")),
	}
}

// CleanupOldData removes generated reports past their retention period.
func (p *CleanupProcessor) CleanupOldData(ctx context.Context, t *asynq.Task) error {
	p.logger.InfoContext(ctx, "cleaning up old reports")

	keys, err := p.storage.List(ctx, "reports/")
	if err != nil {
		return fmt.Errorf("failed to list report objects: %w", err)
	}

	cutoff := time.Now().Add(-reportRetention)
	var stale []string
	for _, key := range keys {
		ts, ok := reportTimestamp(key)
		if ok && ts.Before(cutoff) {
			stale = append(stale, key)
		}
	}

	if len(stale) == 0 {
		p.logger.InfoContext(ctx, "no stale reports found")
		return nil
	}

	if err := p.storage.DeleteMultiple(ctx, stale); err != nil {
		return fmt.Errorf("failed to delete stale reports: %w", err)
	}

	p.logger.InfoContext(ctx, "old reports cleaned up",
		slog.Int("objects_deleted", len(stale)))

	return nil
}

// reportTimestamp extracts the generation time embedded in a report key,
// e.g. reports/daily/sales_20250102_150405.xlsx.
func reportTimestamp(key string) (time.Time, bool) {
	base := filepath.Base(key)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	idx := strings.Index(base, "_")
	if idx < 0 {
		return time.Time{}, false
	}
	ts, err := time.Parse("20060102_150405", base[idx+1:])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// CleanupTempFiles removes old temporary files
func (p *CleanupProcessor) CleanupTempFiles(ctx context.Context, t *asynq.Task) error {
	p.logger.InfoContext(ctx, "cleaning up temp files")

	tempDir := p.config.FileProcessing.TempDir
	maxAge := 24 * time.Hour

	var deletedCount int
	err := filepath.Walk(tempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && time.Since(info.ModTime()) > maxAge {
			if err := os.Remove(path); err != nil {
				p.logger.WarnContext(ctx, "failed to delete temp file",
					slog.String("file", path),
					slog.Any("error", err))
			} else {
				deletedCount++
			}
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to walk temp directory: %w", err)
	}

	p.logger.InfoContext(ctx, "temp files cleaned up",
		slog.Int("files_deleted", deletedCount))

	return nil
}
