// internal/handlers/import.go
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	redis_a "github.com/medtrackhq/medtrack-be/internal/adapters/redis_adapter"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
	"github.com/medtrackhq/medtrack-be/internal/workers"
)

// ImportHandler handles import operations
type ImportHandler struct {
	asynqClient *asynq.Client
	cache       ports.CacheRepository
	logger      *slog.Logger
	maxFileSize int64
	uploadDir   string
}

// NewImportHandler creates a new import handler
func NewImportHandler(asynqClient *asynq.Client, cache ports.CacheRepository, logger *slog.Logger, maxFileSize int64, uploadDir string) *ImportHandler {
	return &ImportHandler{
		asynqClient: asynqClient,
		cache:       cache,
		logger:      logger.With(slog.String("handler", "import")),
		maxFileSize: maxFileSize,
		uploadDir:   uploadDir,
	}
}

// ImportExcel handles POST /api/v1/import/excel. The spreadsheet is saved to
// the upload directory and processed by the catalog import worker.
func (h *ImportHandler) ImportExcel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" &&
		contentType != "application/vnd.ms-excel" {
		h.respondError(w, http.StatusBadRequest, "Only Excel files are allowed")
		return
	}

	tempFile, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to save upload",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	jobID := uuid.New().String()
	payload := workers.ExcelJobPayload{
		JobID:    jobID,
		FilePath: tempFile,
	}

	b, err := json.Marshal(payload)
	if err != nil {
		os.Remove(tempFile)
		h.logger.ErrorContext(ctx, "failed to marshal excel payload",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to queue import job")
		return
	}

	task := asynq.NewTask(workers.TypeExcelImport, b)
	info, err := h.asynqClient.Enqueue(task,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour))
	if err != nil {
		os.Remove(tempFile)
		h.logger.ErrorContext(ctx, "failed to enqueue task",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to queue import job")
		return
	}

	h.recordJobQueued(ctx, jobID, "excel_import")

	h.logger.InfoContext(ctx, "Excel import queued",
		slog.String("job_id", jobID),
		slog.String("task_id", info.ID))

	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":  jobID,
		"status":  "queued",
		"message": "Excel import has been queued for processing",
	})
}

// ImportPDF handles POST /api/v1/import/pdf. Supplier invoices are parsed by
// the invoice worker and reconciled against the catalog.
func (h *ImportHandler) ImportPDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(h.maxFileSize); err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	if header.Header.Get("Content-Type") != "application/pdf" {
		h.respondError(w, http.StatusBadRequest, "Only PDF files are allowed")
		return
	}

	invoiceNumber := r.FormValue("invoice_number")
	if invoiceNumber == "" {
		h.respondError(w, http.StatusBadRequest, "invoice_number is required")
		return
	}
	supplierName := r.FormValue("supplier_name")

	tempFile, err := h.saveUpload(file, header.Filename)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to save upload",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	jobID := uuid.New().String()
	payload := workers.PDFJobPayload{
		JobID:         jobID,
		FilePath:      tempFile,
		InvoiceNumber: invoiceNumber,
		SupplierName:  supplierName,
	}

	b, err := json.Marshal(payload)
	if err != nil {
		os.Remove(tempFile)
		h.logger.ErrorContext(ctx, "failed to marshal pdf payload",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to queue import job")
		return
	}

	task := asynq.NewTask(workers.TypePDFProcess, b)
	info, err := h.asynqClient.Enqueue(task,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
		asynq.Retention(24*time.Hour))
	if err != nil {
		os.Remove(tempFile)
		h.logger.ErrorContext(ctx, "failed to enqueue task",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to queue import job")
		return
	}

	h.recordJobQueued(ctx, jobID, "pdf_import")

	h.logger.InfoContext(ctx, "PDF import queued",
		slog.String("job_id", jobID),
		slog.String("task_id", info.ID),
		slog.String("invoice_number", invoiceNumber))

	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":  jobID,
		"status":  "queued",
		"message": "PDF import has been queued for processing",
	})
}

// ImportBatch handles POST /api/v1/import/batch
func (h *ImportHandler) ImportBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(h.maxFileSize * 10); err != nil {
		h.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	fileType := r.FormValue("type")
	if fileType != "pdf" && fileType != "excel" {
		h.respondError(w, http.StatusBadRequest, "Invalid file type. Must be pdf or excel")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		h.respondError(w, http.StatusBadRequest, "No files provided")
		return
	}

	batchID := uuid.New().String()
	var jobIDs []string

	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			h.logger.WarnContext(ctx, "failed to open file in batch",
				slog.String("filename", fileHeader.Filename),
				slog.String("error", err.Error()))
			continue
		}

		tempFile, err := h.saveUpload(file, fileHeader.Filename)
		file.Close()
		if err != nil {
			h.logger.WarnContext(ctx, "failed to save file in batch",
				slog.String("filename", fileHeader.Filename),
				slog.String("error", err.Error()))
			continue
		}

		jobID := uuid.New().String()

		var taskType string
		var b []byte
		switch fileType {
		case "pdf":
			taskType = workers.TypePDFProcess
			b, err = json.Marshal(workers.PDFJobPayload{
				JobID:    jobID,
				BatchID:  batchID,
				FilePath: tempFile,
			})
		case "excel":
			taskType = workers.TypeExcelImport
			b, err = json.Marshal(workers.ExcelJobPayload{
				JobID:    jobID,
				BatchID:  batchID,
				FilePath: tempFile,
			})
		}
		if err != nil {
			os.Remove(tempFile)
			continue
		}

		if _, err := h.asynqClient.Enqueue(asynq.NewTask(taskType, b), asynq.Queue("low")); err != nil {
			os.Remove(tempFile)
			continue
		}

		h.recordJobQueued(ctx, jobID, fileType+"_import")
		jobIDs = append(jobIDs, jobID)
	}

	h.logger.InfoContext(ctx, "Batch import queued",
		slog.String("batch_id", batchID),
		slog.Int("total_files", len(files)),
		slog.Int("queued_jobs", len(jobIDs)))

	h.respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"batch_id":    batchID,
		"job_ids":     jobIDs,
		"total_files": len(files),
		"queued_jobs": len(jobIDs),
		"status":      "queued",
		"message":     fmt.Sprintf("Batch import of %d files has been queued", len(jobIDs)),
	})
}

// ImportStatus handles GET /api/v1/import/status/{jobId}
func (h *ImportHandler) ImportStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := r.PathValue("jobId")

	var status workers.JobStatus
	err := h.cache.Get(ctx, redis_a.BuildKey(redis_a.PrefixImportJob, jobID), &status)
	if err != nil {
		if err == redis_a.ErrCacheMiss {
			h.respondError(w, http.StatusNotFound, "Job not found")
			return
		}

		h.logger.ErrorContext(ctx, "failed to get job status",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to get job status")
		return
	}

	h.respondJSON(w, http.StatusOK, status)
}


func (h *ImportHandler) saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	tempFile := filepath.Join(h.uploadDir, fmt.Sprintf("%s_%s", uuid.New().String(), filename))
	dst, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	return tempFile, nil
}

func (h *ImportHandler) recordJobQueued(ctx context.Context, jobID, jobType string) {
	status := workers.JobStatus{
		JobID:     jobID,
		JobType:   jobType,
		Status:    workers.JobStatusQueued,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	key := redis_a.BuildKey(redis_a.PrefixImportJob, jobID)
	if err := h.cache.SetWithTTL(ctx, key, status, 24*time.Hour); err != nil {
		h.logger.WarnContext(ctx, "failed to record job status",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
	}
}

func (h *ImportHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *ImportHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
