// internal/workers/report_processor.go
package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	"github.com/medtrackhq/medtrack-be/internal/adapters/storage"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
)

// ReportProcessor builds periodic sales reports and uploads them to object
// storage for bookkeeping.
type ReportProcessor struct {
	sales   ports.SaleRepository
	storage storage.StorageClient
	logger  *slog.Logger
}

// NewReportProcessor creates a new report processor
func NewReportProcessor(sales ports.SaleRepository, st storage.StorageClient, logger *slog.Logger) *ReportProcessor {
	return &ReportProcessor{
		sales:   sales,
		storage: st,
		logger:  logger.With(slog.String("processor", "report")),
	}
}

// GenerateReport builds a sales report workbook for the requested period and
// uploads it under reports/<type>/.
func (p *ReportProcessor) GenerateReport(ctx context.Context, t *asynq.Task) error {
	var payload ReportJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	reportType := payload.ReportType
	if reportType == "" {
		reportType = "daily"
	}

	now := time.Now()
	var since time.Time
	switch reportType {
	case "daily":
		since = now.AddDate(0, 0, -1)
	case "weekly":
		since = now.AddDate(0, 0, -7)
	case "monthly":
		since = now.AddDate(0, -1, 0)
	default:
		return fmt.Errorf("unknown report type: %s", reportType)
	}

	p.logger.InfoContext(ctx, "generating sales report",
		slog.String("type", reportType),
		slog.Time("since", since))

	sales, total, err := p.sales.FindAll(ctx, ports.SaleFilter{
		PurchasedAfter: &since,
		Limit:          100_000,
	})
	if err != nil {
		return fmt.Errorf("failed to load sales: %w", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sales")
	if err != nil {
		return fmt.Errorf("failed to add worksheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range []string{"ID", "Medicine", "Customer", "Phone", "Quantity", "Unit Price", "Bill Amount", "Purchase Date"} {
		header.AddCell().Value = h
	}

	var revenue decimal.Decimal
	var units int
	for _, s := range sales {
		row := sheet.AddRow()
		row.AddCell().Value = strconv.FormatInt(s.ID, 10)
		row.AddCell().Value = s.MedicineName
		row.AddCell().Value = s.CustomerName
		row.AddCell().Value = s.CustomerPhone
		row.AddCell().Value = strconv.Itoa(s.Quantity)
		row.AddCell().Value = s.UnitPrice.StringFixed(2)
		row.AddCell().Value = s.BillAmount.StringFixed(2)
		row.AddCell().Value = s.PurchaseDate.Format("2006-01-02 15:04:05")

		revenue = revenue.Add(s.BillAmount)
		units += s.Quantity
	}

	summary := sheet.AddRow()
	summary.AddCell().Value = "Total"
	summary.AddCell()
	summary.AddCell()
	summary.AddCell()
	summary.AddCell().Value = strconv.Itoa(units)
	summary.AddCell()
	summary.AddCell().Value = revenue.StringFixed(2)

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return fmt.Errorf("failed to write report workbook: %w", err)
	}

	key := fmt.Sprintf("reports/%s/sales_%s.xlsx", reportType, now.Format("20060102_150405"))
	location, err := p.storage.Upload(ctx, key, &buf,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err != nil {
		return fmt.Errorf("failed to upload report: %w", err)
	}

	// The link outlives the log line; staff pull the workbook from the ops
	// dashboard within the week.
	downloadURL, err := p.storage.GetPresignedURL(ctx, key, 7*24*time.Hour)
	if err != nil {
		p.logger.WarnContext(ctx, "failed to presign report URL",
			slog.String("key", key),
			slog.String("error", err.Error()))
		downloadURL = location
	}

	p.logger.InfoContext(ctx, "sales report uploaded",
		slog.String("type", reportType),
		slog.String("key", key),
		slog.String("url", downloadURL),
		slog.Int64("sales", total),
		slog.String("revenue", revenue.StringFixed(2)))

	return nil
}
