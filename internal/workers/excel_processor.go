// internal/workers/excel_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	redis_a "github.com/medtrackhq/medtrack-be/internal/adapters/redis_adapter"
	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
)

// ExcelProcessor imports medicine catalog rows from spreadsheets. Expected
// column order: name, manufacturer, mfg date, expiry date, unit price, stock.
type ExcelProcessor struct {
	service ports.MedicineService
	cache   ports.CacheRepository
	jobs    *jobTracker
	logger  *slog.Logger
}

// NewExcelProcessor creates a new Excel processor
func NewExcelProcessor(service ports.MedicineService, cache ports.CacheRepository, logger *slog.Logger) *ExcelProcessor {
	l := logger.With(slog.String("processor", "excel"))
	return &ExcelProcessor{
		service: service,
		cache:   cache,
		jobs:    &jobTracker{cache: cache, logger: l},
		logger:  l,
	}
}

// ProcessExcel processes a spreadsheet and imports the medicines it lists
func (p *ExcelProcessor) ProcessExcel(ctx context.Context, t *asynq.Task) error {
	start := time.Now()

	var payload ExcelJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p.logger.InfoContext(ctx, "processing Excel file",
		slog.String("job_id", payload.JobID),
		slog.String("file_path", payload.FilePath))

	p.jobs.markProcessing(ctx, payload.JobID)

	file, err := xlsx.OpenFile(payload.FilePath)
	if err != nil {
		p.jobs.markFailed(ctx, payload.JobID, err.Error())
		return fmt.Errorf("failed to open Excel file: %w", err)
	}

	var (
		processed int
		failed    int
		errs      []string
	)

	if len(file.Sheets) > 0 {
		sheet := file.Sheets[0]
		rowIdx := 0

		err = sheet.ForEachRow(func(r *xlsx.Row) error {
			// Skip header row
			if rowIdx == 0 {
				rowIdx++
				return nil
			}
			rowIdx++

			medicine := p.parseRow(r)
			if medicine == nil {
				return nil
			}

			if err := p.service.AddMedicine(ctx, medicine); err != nil {
				failed++
				if len(errs) < 20 {
					errs = append(errs, fmt.Sprintf("row %d: %v", rowIdx, err))
				}
				return nil
			}

			processed++
			return nil
		})
		if err != nil {
			p.jobs.markFailed(ctx, payload.JobID, err.Error())
			return fmt.Errorf("failed to process Excel rows: %w", err)
		}
	}

	status := JobStatusCompleted
	if failed > 0 {
		status = JobStatusCompletedWithErrors
	}
	p.jobs.update(ctx, JobStatus{
		JobID:          payload.JobID,
		Status:         status,
		Processed:      processed,
		Failed:         failed,
		Errors:         errs,
		ProcessingTime: time.Since(start).String(),
	})

	if processed > 0 {
		redis_a.InvalidateMedicineCaches(ctx, p.cache, p.logger)
	}

	// Clean up temp file
	if strings.HasPrefix(payload.FilePath, "/tmp/") {
		os.Remove(payload.FilePath)
	}

	p.logger.InfoContext(ctx, "Excel processing completed",
		slog.String("job_id", payload.JobID),
		slog.Int("medicines_imported", processed),
		slog.Int("rows_failed", failed))

	return nil
}

func (p *ExcelProcessor) parseRow(r *xlsx.Row) *domain.Medicine {
	get := func(i int) string {
		c := r.GetCell(i)
		if c == nil {
			return ""
		}
		return strings.TrimSpace(c.String())
	}

	getDecimal := func(i int) decimal.Decimal {
		s := get(i)
		if s == "" {
			return decimal.Zero
		}
		d, _ := decimal.NewFromString(strings.TrimPrefix(s, "$"))
		return d
	}

	getDate := func(i int) time.Time {
		s := get(i)
		if s == "" {
			return time.Time{}
		}
		for _, layout := range []string{"2006-01-02", "01/02/2006", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		return time.Time{}
	}

	getInt := func(i int) int {
		s := get(i)
		if s == "" {
			return 0
		}
		var n int
		fmt.Sscanf(s, "%d", &n)
		return n
	}

	name := get(0)
	if name == "" {
		return nil
	}

	return &domain.Medicine{
		Name:             name,
		ManufacturerName: get(1),
		MfgDate:          getDate(2),
		ExpiryDate:       getDate(3),
		UnitPrice:        getDecimal(4),
		Stock:            getInt(5),
	}
}
