package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medtrackhq/medtrack-be/internal/adapters/db"
	redis_a "github.com/medtrackhq/medtrack-be/internal/adapters/redis_adapter"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
)

// DashboardHandler handles dashboard operations
type DashboardHandler struct {
	db     *db.Database
	cache  ports.CacheRepository
	logger *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(db *db.Database, cache ports.CacheRepository, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		db:     db,
		cache:  cache,
		logger: logger.With(slog.String("handler", "dashboard")),
	}
}

// GetDashboard handles GET /api/v1/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cacheKey := redis_a.BuildKey(redis_a.PrefixDashboard, "main")
	var dashboard DashboardData

	err := h.cache.GetOrSet(ctx, cacheKey, &dashboard, func() (interface{}, error) {
		return h.loadDashboardData(ctx)
	}, 5*time.Minute)

	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load dashboard",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	h.respondJSON(w, http.StatusOK, dashboard)
}

func (h *DashboardHandler) loadDashboardData(ctx context.Context) (*DashboardData, error) {
	dashboard := &DashboardData{
		Timestamp: time.Now(),
	}

	summaryQuery := `
		SELECT
			COUNT(*) AS total_medicines,
			COALESCE(SUM(stock), 0) AS total_units,
			COALESCE(SUM(unit_price * stock), 0) AS stock_value,
			COUNT(*) FILTER (WHERE stock = 0) AS out_of_stock,
			COUNT(*) FILTER (WHERE stock > 0 AND stock <= 10) AS low_stock,
			COUNT(*) FILTER (WHERE expiry_date < NOW()) AS expired,
			COUNT(*) FILTER (WHERE expiry_date >= NOW() AND expiry_date < NOW() + INTERVAL '30 days') AS expiring_soon
		FROM medicines
	`

	err := h.db.QueryRow(ctx, summaryQuery).Scan(
		&dashboard.Summary.TotalMedicines,
		&dashboard.Summary.TotalUnits,
		&dashboard.Summary.StockValue,
		&dashboard.Summary.OutOfStock,
		&dashboard.Summary.LowStock,
		&dashboard.Summary.Expired,
		&dashboard.Summary.ExpiringSoon,
	)
	if err != nil {
		return nil, err
	}

	salesQuery := `
		SELECT
			COUNT(*) AS total_sales,
			COALESCE(SUM(bill_amount), 0) AS total_revenue,
			COALESCE(SUM(bill_amount) FILTER (WHERE purchase_date >= NOW() - INTERVAL '30 days'), 0) AS revenue_30d,
			COALESCE(SUM(quantity), 0) AS units_sold
		FROM sales
	`

	err = h.db.QueryRow(ctx, salesQuery).Scan(
		&dashboard.Summary.TotalSales,
		&dashboard.Summary.TotalRevenue,
		&dashboard.Summary.Revenue30Days,
		&dashboard.Summary.UnitsSold,
	)
	if err != nil {
		return nil, err
	}

	topSellersQuery := `
		SELECT medicine_name, manufacturer_name, SUM(quantity) AS units, SUM(bill_amount) AS revenue
		FROM sales
		WHERE purchase_date >= NOW() - INTERVAL '30 days'
		GROUP BY medicine_name, manufacturer_name
		ORDER BY units DESC
		LIMIT 10
	`

	rows, err := h.db.Query(ctx, topSellersQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var top TopSeller
		if err := rows.Scan(&top.MedicineName, &top.ManufacturerName, &top.Units, &top.Revenue); err != nil {
			continue
		}
		dashboard.TopSellers = append(dashboard.TopSellers, top)
	}

	expiringQuery := `
		SELECT id, name, manufacturer_name, expiry_date, stock
		FROM medicines
		WHERE expiry_date >= NOW() AND expiry_date < NOW() + INTERVAL '30 days' AND stock > 0
		ORDER BY expiry_date ASC
		LIMIT 20
	`

	expRows, err := h.db.Query(ctx, expiringQuery)
	if err == nil {
		defer expRows.Close()
		for expRows.Next() {
			var item ExpiringMedicine
			if err := expRows.Scan(&item.ID, &item.Name, &item.ManufacturerName, &item.ExpiryDate, &item.Stock); err == nil {
				dashboard.ExpiringSoon = append(dashboard.ExpiringSoon, item)
			}
		}
	}

	return dashboard, nil
}

// Type definitions

type DashboardData struct {
	Summary      DashboardSummary   `json:"summary"`
	TopSellers   []TopSeller        `json:"top_sellers"`
	ExpiringSoon []ExpiringMedicine `json:"expiring_soon"`
	Timestamp    time.Time          `json:"timestamp"`
}

type DashboardSummary struct {
	TotalMedicines int64           `json:"total_medicines"`
	TotalUnits     int64           `json:"total_units"`
	StockValue     decimal.Decimal `json:"stock_value"`
	OutOfStock     int64           `json:"out_of_stock"`
	LowStock       int64           `json:"low_stock"`
	Expired        int64           `json:"expired"`
	ExpiringSoon   int64           `json:"expiring_soon"`
	TotalSales     int64           `json:"total_sales"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	Revenue30Days  decimal.Decimal `json:"revenue_30d"`
	UnitsSold      int64           `json:"units_sold"`
}

type TopSeller struct {
	MedicineName     string          `json:"medicine_name"`
	ManufacturerName string          `json:"manufacturer_name"`
	Units            int64           `json:"units"`
	Revenue          decimal.Decimal `json:"revenue"`
}

type ExpiringMedicine struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	ManufacturerName string    `json:"manufacturer_name"`
	ExpiryDate       time.Time `json:"expiry_date"`
	Stock            int       `json:"stock"`
}

// Helper methods

func (h *DashboardHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *DashboardHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
