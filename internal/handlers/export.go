// internal/handlers/export.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v3"

	redis_a "github.com/medtrackhq/medtrack-be/internal/adapters/redis_adapter"
	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
)

// ExportParams defines parameters for export operations
type ExportParams struct {
	DateFrom *time.Time `json:"date_from"`
	DateTo   *time.Time `json:"date_to"`
	Format   string     `json:"format"`
}

// JSONExportResponse represents the JSON export response structure
type JSONExportResponse struct {
	Medicines []*domain.Medicine `json:"medicines"`
	Sales     []*domain.Sale     `json:"sales"`
	Metadata  ExportMetadata     `json:"metadata"`
}

// ExportMetadata contains metadata about the export
type ExportMetadata struct {
	ExportDate     time.Time  `json:"export_date"`
	MedicineCount  int        `json:"medicine_count"`
	SaleCount      int        `json:"sale_count"`
	SalesDateFrom  *time.Time `json:"sales_date_from,omitempty"`
	SalesDateTo    *time.Time `json:"sales_date_to,omitempty"`
}

// ExportHandler handles export operations
type ExportHandler struct {
	medicines ports.MedicineRepository
	sales     ports.SaleRepository
	cache     ports.CacheRepository
	logger    *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(medicines ports.MedicineRepository, sales ports.SaleRepository, cache ports.CacheRepository, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		medicines: medicines,
		sales:     sales,
		cache:     cache,
		logger:    logger.With(slog.String("handler", "export")),
	}
}

// ExportExcel handles GET /api/v1/export/excel
func (h *ExportHandler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := h.parseExportParams(r)

	h.logger.InfoContext(ctx, "Starting Excel export",
		slog.Any("params", params))

	medicines, sales, err := h.loadExportData(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to retrieve export data", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve data")
		return
	}

	excelData, err := h.generateExcelFile(medicines, sales)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to generate Excel file", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to generate Excel file")
		return
	}

	filename := fmt.Sprintf("pharmacy_export_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(excelData)))
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	if _, err := w.Write(excelData); err != nil {
		h.logger.ErrorContext(ctx, "Failed to write Excel response", slog.String("error", err.Error()))
		return
	}

	h.logger.InfoContext(ctx, "Excel export completed successfully",
		slog.Int("medicines", len(medicines)),
		slog.Int("sales", len(sales)),
		slog.String("filename", filename))
}

// ExportJSON handles GET /api/v1/export/json
func (h *ExportHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := h.parseExportParams(r)

	h.logger.InfoContext(ctx, "Starting JSON export",
		slog.Any("params", params))

	cacheKey := redis_a.BuildKey(redis_a.PrefixExport, "json", h.getCacheKeyFromParams(params))
	var cachedData []byte
	if err := h.cache.Get(ctx, cacheKey, &cachedData); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Cache", "HIT")
		w.Header().Set("Content-Length", strconv.Itoa(len(cachedData)))

		if _, err := w.Write(cachedData); err != nil {
			h.logger.ErrorContext(ctx, "Failed to write cached JSON response", slog.String("error", err.Error()))
			return
		}

		h.logger.InfoContext(ctx, "JSON export served from cache")
		return
	}

	medicines, sales, err := h.loadExportData(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to retrieve export data", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve data")
		return
	}

	response := JSONExportResponse{
		Medicines: medicines,
		Sales:     sales,
		Metadata: ExportMetadata{
			ExportDate:    time.Now(),
			MedicineCount: len(medicines),
			SaleCount:     len(sales),
			SalesDateFrom: params.DateFrom,
			SalesDateTo:   params.DateTo,
		},
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to marshal JSON response", slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to generate JSON")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.Header().Set("Content-Length", strconv.Itoa(len(responseData)))

	if _, err := w.Write(responseData); err != nil {
		h.logger.ErrorContext(ctx, "Failed to write JSON response", slog.String("error", err.Error()))
		return
	}

	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := h.cache.SetWithTTL(cacheCtx, cacheKey, responseData, 5*time.Minute); err != nil {
			h.logger.WarnContext(cacheCtx, "Failed to cache JSON response", slog.String("error", err.Error()))
		}
	}()

	h.logger.InfoContext(ctx, "JSON export completed successfully",
		slog.Int("medicines", len(medicines)),
		slog.Int("sales", len(sales)))
}


// parseExportParams parses and validates export parameters from the request
func (h *ExportHandler) parseExportParams(r *http.Request) *ExportParams {
	params := &ExportParams{}

	if from := r.URL.Query().Get("date_from"); from != "" {
		if t, err := time.Parse("2006-01-02", from); err == nil {
			params.DateFrom = &t
		}
	}

	if to := r.URL.Query().Get("date_to"); to != "" {
		if t, err := time.Parse("2006-01-02", to); err == nil {
			params.DateTo = &t
		}
	}

	params.Format = r.URL.Query().Get("format")
	if params.Format == "" {
		params.Format = "xlsx"
	}

	return params
}

// loadExportData pulls the full catalog and the sales ledger for the requested
// date range. Pagination is bypassed: exports are whole-dataset snapshots.
func (h *ExportHandler) loadExportData(ctx context.Context, params *ExportParams) ([]*domain.Medicine, []*domain.Sale, error) {
	medicines, _, err := h.medicines.FindAll(ctx, ports.MedicineFilter{Limit: exportBatchLimit})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load medicines: %w", err)
	}

	filter := ports.SaleFilter{Limit: exportBatchLimit}
	if params.DateFrom != nil {
		filter.PurchasedAfter = params.DateFrom
	}
	if params.DateTo != nil {
		filter.PurchasedBefore = params.DateTo
	}

	sales, _, err := h.sales.FindAll(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load sales: %w", err)
	}

	return medicines, sales, nil
}

const exportBatchLimit = 100_000

// generateExcelFile creates an Excel workbook with one sheet per dataset
func (h *ExportHandler) generateExcelFile(medicines []*domain.Medicine, sales []*domain.Sale) ([]byte, error) {
	file := xlsx.NewFile()

	medSheet, err := file.AddSheet("Medicines")
	if err != nil {
		return nil, fmt.Errorf("failed to add worksheet: %w", err)
	}

	medHeaders := []string{
		"ID", "Name", "Manufacturer", "Mfg Date", "Expiry Date",
		"Unit Price", "Stock", "Stock Value", "Created At", "Updated At",
	}
	writeHeaderRow(medSheet, medHeaders)

	for _, m := range medicines {
		row := medSheet.AddRow()
		addCells(row,
			strconv.FormatInt(m.ID, 10),
			m.Name,
			m.ManufacturerName,
			safeDate(m.MfgDate),
			safeDate(m.ExpiryDate),
			m.UnitPrice.StringFixed(2),
			strconv.Itoa(m.Stock),
			m.StockValue().StringFixed(2),
			m.CreatedAt.Format("2006-01-02 15:04:05"),
			m.UpdatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	saleSheet, err := file.AddSheet("Sales")
	if err != nil {
		return nil, fmt.Errorf("failed to add worksheet: %w", err)
	}

	saleHeaders := []string{
		"ID", "Medicine", "Manufacturer", "Customer", "Phone",
		"Quantity", "Unit Price", "Bill Amount", "Purchase Date",
	}
	writeHeaderRow(saleSheet, saleHeaders)

	var totalRevenue decimal.Decimal
	for _, s := range sales {
		row := saleSheet.AddRow()
		addCells(row,
			strconv.FormatInt(s.ID, 10),
			s.MedicineName,
			s.ManufacturerName,
			s.CustomerName,
			s.CustomerPhone,
			strconv.Itoa(s.Quantity),
			s.UnitPrice.StringFixed(2),
			s.BillAmount.StringFixed(2),
			s.PurchaseDate.Format("2006-01-02 15:04:05"),
		)
		totalRevenue = totalRevenue.Add(s.BillAmount)
	}

	totalRow := saleSheet.AddRow()
	addCells(totalRow, "", "", "", "", "", "", "Total", totalRevenue.StringFixed(2), "")

	for i := 0; i < len(medHeaders); i++ {
		medSheet.SetColWidth(i, i, 18)
	}
	for i := 0; i < len(saleHeaders); i++ {
		saleSheet.SetColWidth(i, i, 18)
	}

	var buffer bytes.Buffer
	if err := file.Write(&buffer); err != nil {
		return nil, fmt.Errorf("failed to write Excel file to buffer: %w", err)
	}

	return buffer.Bytes(), nil
}

func writeHeaderRow(sheet *xlsx.Sheet, headers []string) {
	headerRow := sheet.AddRow()
	for _, header := range headers {
		cell := headerRow.AddCell()
		cell.Value = header
		cell.GetStyle().Font.Bold = true
		cell.GetStyle().Fill.PatternType = "solid"
		cell.GetStyle().Fill.FgColor = "CCCCCC"
	}
}

func addCells(row *xlsx.Row, values ...string) {
	for _, value := range values {
		cell := row.AddCell()
		cell.Value = value
	}
}

func safeDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func (h *ExportHandler) getCacheKeyFromParams(params *ExportParams) string {
	key := "full"
	if params.DateFrom != nil {
		key += fmt.Sprintf("_from_%s", params.DateFrom.Format("20060102"))
	}
	if params.DateTo != nil {
		key += fmt.Sprintf("_to_%s", params.DateTo.Format("20060102"))
	}
	return key
}

func (h *ExportHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
