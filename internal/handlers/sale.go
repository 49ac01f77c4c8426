// internal/handlers/sale.go
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	redis_a "github.com/medtrackhq/medtrack-be/internal/adapters/redis_adapter"
	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
)

// SaleHandler handles sale-related HTTP requests
type SaleHandler struct {
	service ports.SaleService
	cache   ports.CacheRepository
	logger  *slog.Logger
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(service ports.SaleService, cache ports.CacheRepository, logger *slog.Logger) *SaleHandler {
	return &SaleHandler{
		service: service,
		cache:   cache,
		logger:  logger.With(slog.String("handler", "sale")),
	}
}

// SellMedicine handles POST /api/v1/medicines/{id}/sales
func (h *SaleHandler) SellMedicine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	medicineID, err := parseID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid medicine ID")
		return
	}

	var req SellMedicineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sale, err := h.service.SellMedicine(ctx, medicineID, req.ToDomain())
	if err != nil {
		switch {
		case domain.IsValidation(err):
			h.respondError(w, http.StatusBadRequest, err.Error())
		case domain.IsNotFound(err):
			h.respondError(w, http.StatusNotFound, "Medicine not found")
		case errors.Is(err, domain.ErrInsufficientStock):
			h.respondError(w, http.StatusUnprocessableEntity, "Insufficient stock")
		case errors.Is(err, domain.ErrConcurrencyConflict):
			h.respondError(w, http.StatusConflict, "Sale conflicted with a concurrent transaction, please retry")
		default:
			h.logger.ErrorContext(ctx, "failed to sell medicine",
				slog.Int64("medicine_id", medicineID),
				slog.String("error", err.Error()))
			h.respondError(w, http.StatusInternalServerError, "Failed to complete sale")
		}
		return
	}

	redis_a.InvalidateSaleCaches(ctx, h.cache, h.logger)

	h.respondJSON(w, http.StatusCreated, sale)
}

// GetSale handles GET /api/v1/sales/{id}
func (h *SaleHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid sale ID")
		return
	}

	sale, err := h.service.GetByID(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			h.respondError(w, http.StatusNotFound, "Sale not found")
			return
		}

		h.logger.ErrorContext(ctx, "failed to get sale",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve sale")
		return
	}

	h.respondJSON(w, http.StatusOK, sale)
}

// ListSales handles GET /api/v1/sales
func (h *SaleHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := h.parseListParams(r)

	cacheKey := redis_a.BuildKey(redis_a.PrefixSale, "list",
		params.MedicineName, params.CustomerName, params.CustomerPhone,
		strconv.Itoa(params.Page), strconv.Itoa(params.PageSize))

	var result ports.SaleListResult
	err := h.cache.GetOrSet(ctx, cacheKey, &result, func() (interface{}, error) {
		res, err := h.service.List(ctx, params)
		if err != nil {
			return nil, err
		}
		return res, nil
	}, 5*time.Minute)

	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list sales",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to list sales")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// DeleteSale handles DELETE /api/v1/sales/{id}
func (h *SaleHandler) DeleteSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid sale ID")
		return
	}

	if err := h.service.DeleteSale(ctx, id); err != nil {
		if domain.IsNotFound(err) {
			h.respondError(w, http.StatusNotFound, "Sale not found")
			return
		}

		h.logger.ErrorContext(ctx, "failed to delete sale",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to delete sale")
		return
	}

	redis_a.InvalidateSaleCaches(ctx, h.cache, h.logger)

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Sale deleted successfully",
		"id":      id,
	})
}

// parseListParams parses query parameters for listing sales
func (h *SaleHandler) parseListParams(r *http.Request) ports.SaleListParams {
	params := ports.SaleListParams{
		Page:     1,
		PageSize: 50,
	}

	if page := r.URL.Query().Get("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			params.Page = p
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			if l > 100 {
				params.PageSize = 100
			} else {
				params.PageSize = l
			}
		}
	}

	params.MedicineName = r.URL.Query().Get("medicine")
	params.CustomerName = r.URL.Query().Get("customer")
	params.CustomerPhone = r.URL.Query().Get("phone")

	return params
}

func (h *SaleHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *SaleHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// SellMedicineRequest represents the request body for selling a medicine
type SellMedicineRequest struct {
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	PersonID      *int64          `json:"person_id,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

// ToDomain converts the request to a domain sale input
func (r *SellMedicineRequest) ToDomain() *domain.SaleInput {
	return &domain.SaleInput{
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		PersonID:      r.PersonID,
		Quantity:      r.Quantity,
		UnitPrice:     r.UnitPrice,
	}
}
