// internal/workers/types.go
package workers

import (
	"context"
	"log/slog"
	"time"

	redis_a "github.com/medtrackhq/medtrack-be/internal/adapters/redis_adapter"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
)

// Task types registered with the asynq server.
const (
	TypeExcelImport      = "import:excel"
	TypePDFProcess       = "import:pdf"
	TypeGenerateReport   = "report:generate"
	TypeExpiryCheck      = "expiry:check"
	TypeSendEmail        = "email:send"
	TypeCleanupOldData   = "cleanup:old_data"
	TypeCleanupTempFiles = "cleanup:temp_files"
)

// Job lifecycle states tracked in the cache.
const (
	JobStatusQueued              = "queued"
	JobStatusProcessing          = "processing"
	JobStatusCompleted           = "completed"
	JobStatusCompletedWithErrors = "completed_with_errors"
	JobStatusFailed              = "failed"
)

// ExcelJobPayload represents the payload for catalog spreadsheet imports
type ExcelJobPayload struct {
	JobID    string `json:"job_id"`
	BatchID  string `json:"batch_id,omitempty"`
	FilePath string `json:"file_path"`
}

// PDFJobPayload represents the payload for supplier invoice imports
type PDFJobPayload struct {
	JobID         string `json:"job_id"`
	BatchID       string `json:"batch_id,omitempty"`
	FilePath      string `json:"file_path"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	SupplierName  string `json:"supplier_name,omitempty"`
}

// ReportJobPayload represents the payload for report generation
type ReportJobPayload struct {
	ReportType string `json:"report_type"`
}

// JobStatus is the cached state of a background import job. It lives under
// the import-job cache prefix with a 24h TTL.
type JobStatus struct {
	JobID          string    `json:"job_id"`
	JobType        string    `json:"job_type"`
	Status         string    `json:"status"`
	Processed      int       `json:"processed"`
	Failed         int       `json:"failed"`
	Errors         []string  `json:"errors,omitempty"`
	ProcessingTime string    `json:"processing_time,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const jobStatusTTL = 24 * time.Hour

// jobTracker persists job progress so the status endpoint can report it.
type jobTracker struct {
	cache  ports.CacheRepository
	logger *slog.Logger
}

func (t *jobTracker) update(ctx context.Context, status JobStatus) {
	status.UpdatedAt = time.Now()

	key := redis_a.BuildKey(redis_a.PrefixImportJob, status.JobID)

	var existing JobStatus
	if err := t.cache.Get(ctx, key, &existing); err == nil {
		status.JobType = existing.JobType
		status.CreatedAt = existing.CreatedAt
	}
	if status.CreatedAt.IsZero() {
		status.CreatedAt = status.UpdatedAt
	}

	if err := t.cache.SetWithTTL(ctx, key, status, jobStatusTTL); err != nil {
		t.logger.WarnContext(ctx, "failed to update job status",
			slog.String("job_id", status.JobID),
			slog.String("status", status.Status),
			slog.String("error", err.Error()))
	}
}

func (t *jobTracker) markProcessing(ctx context.Context, jobID string) {
	t.update(ctx, JobStatus{JobID: jobID, Status: JobStatusProcessing})
}

func (t *jobTracker) markFailed(ctx context.Context, jobID string, errMsg string) {
	t.update(ctx, JobStatus{
		JobID:  jobID,
		Status: JobStatusFailed,
		Errors: []string{errMsg},
	})
}
