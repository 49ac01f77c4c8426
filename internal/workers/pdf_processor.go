// internal/workers/pdf_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"

	redis_a "github.com/medtrackhq/medtrack-be/internal/adapters/redis_adapter"
	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
)

// PDFProcessor imports supplier invoices. Each invoice line item becomes a
// catalog entry stocked with the delivered quantity.
type PDFProcessor struct {
	service ports.MedicineService
	cache   ports.CacheRepository
	jobs    *jobTracker
	logger  *slog.Logger
}

// NewPDFProcessor creates a new PDF processor
func NewPDFProcessor(service ports.MedicineService, cache ports.CacheRepository, logger *slog.Logger) *PDFProcessor {
	l := logger.With(slog.String("processor", "pdf"))
	return &PDFProcessor{
		service: service,
		cache:   cache,
		jobs:    &jobTracker{cache: cache, logger: l},
		logger:  l,
	}
}

// ProcessPDF processes a supplier invoice PDF and imports its line items
func (p *PDFProcessor) ProcessPDF(ctx context.Context, t *asynq.Task) error {
	start := time.Now()

	var payload PDFJobPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	p.logger.InfoContext(ctx, "processing invoice PDF",
		slog.String("job_id", payload.JobID),
		slog.String("invoice_number", payload.InvoiceNumber))

	p.jobs.markProcessing(ctx, payload.JobID)

	items, err := p.extractLineItems(ctx, payload.FilePath)
	if err != nil {
		p.jobs.markFailed(ctx, payload.JobID, err.Error())
		return fmt.Errorf("failed to extract line items: %w", err)
	}

	var (
		processed int
		failed    int
		errs      []string
	)

	for _, item := range items {
		medicine := &domain.Medicine{
			Name:             item.name,
			ManufacturerName: payload.SupplierName,
			UnitPrice:        item.unitPrice,
			Stock:            item.quantity,
		}
		if medicine.ManufacturerName == "" {
			medicine.ManufacturerName = "Unknown supplier"
		}

		if err := p.service.AddMedicine(ctx, medicine); err != nil {
			failed++
			if len(errs) < 20 {
				errs = append(errs, fmt.Sprintf("%s: %v", item.name, err))
			}
			continue
		}
		processed++
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

	// Clean up temporary file
	if strings.HasPrefix(payload.FilePath, os.TempDir()) || strings.HasPrefix(payload.FilePath, "/tmp/") {
		_ = os.Remove(payload.FilePath)
	}

	p.logger.InfoContext(ctx, "invoice PDF processing completed",
		slog.String("job_id", payload.JobID),
		slog.Int("items_imported", processed),
		slog.Int("items_failed", failed))

	return nil
}

type invoiceLineItem struct {
	name      string
	quantity  int
	unitPrice decimal.Decimal
}

func (p *PDFProcessor) extractLineItems(ctx context.Context, filePath string) ([]invoiceLineItem, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var textLines []string
	totalPages := r.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			p.logger.WarnContext(ctx, "failed to extract text from page",
				slog.Int("page", pageNum),
				slog.String("error", err.Error()))
			continue
		}

		textLines = append(textLines, strings.Split(text, "\n")...)
	}

	items := p.parseInvoiceLines(textLines)

	p.logger.InfoContext(ctx, "extracted line items from PDF",
		slog.Int("count", len(items)))

	return items, nil
}

var (
	invoiceHeaderRe = regexp.MustCompile(`(?i)(ITEM.*QTY.*PRICE|DESCRIPTION.*QUANTITY)`)
	invoiceFooterRe = regexp.MustCompile(`(?i)(SUBTOTAL|TOTAL|A payment of|AMOUNT DUE)`)
	linePriceRe     = regexp.MustCompile(`\$?\s*\d{1,3}(?:,\d{3})*\.\d{2}\s*$`)
	lineQuantityRe  = regexp.MustCompile(`\b(\d+)\s*[xX]\s*$`)
)

// parseInvoiceLines scans the invoice body between the column header and the
// totals footer. A line item ends with a unit price; an optional "N x" before
// the price carries the quantity, which defaults to 1.
func (p *PDFProcessor) parseInvoiceLines(lines []string) []invoiceLineItem {
	var items []invoiceLineItem

	startIdx := 0
	for i, line := range lines {
		if invoiceHeaderRe.MatchString(line) {
			startIdx = i + 1
			break
		}
	}

	var descBuffer []string

	for i := startIdx; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		if invoiceFooterRe.MatchString(line) {
			break
		}

		if !linePriceRe.MatchString(line) {
			descBuffer = append(descBuffer, line)
			continue
		}

		priceStr := linePriceRe.FindString(line)
		unitPrice := parseCurrency(priceStr)

		rest := strings.TrimSpace(linePriceRe.ReplaceAllString(line, ""))

		quantity := 1
		if m := lineQuantityRe.FindStringSubmatch(rest); m != nil {
			if q, err := strconv.Atoi(m[1]); err == nil && q > 0 {
				quantity = q
			}
			rest = strings.TrimSpace(lineQuantityRe.ReplaceAllString(rest, ""))
		}

		name := rest
		if len(descBuffer) > 0 {
			name = strings.TrimSpace(strings.Join(append(descBuffer, rest), " "))
			descBuffer = descBuffer[:0]
		}

		name = cleanLineItemName(name)
		if name == "" {
			continue
		}

		items = append(items, invoiceLineItem{
			name:      name,
			quantity:  quantity,
			unitPrice: unitPrice,
		})
	}

	return items
}

func cleanLineItemName(name string) string {
	// Strip leading line numbers and SKU-like codes
	name = regexp.MustCompile(`^\d+\s+`).ReplaceAllString(name, "")
	name = regexp.MustCompile(`\b[A-Z0-9]{8,}\b`).ReplaceAllString(name, "")

	name = regexp.MustCompile(`-{3,}`).ReplaceAllString(name, "")
	name = regexp.MustCompile(`\s+`).ReplaceAllString(name, " ")

	return strings.TrimSpace(name)
}

func parseCurrency(val string) decimal.Decimal {
	cleaned := strings.ReplaceAll(val, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}
