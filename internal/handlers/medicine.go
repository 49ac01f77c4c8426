// internal/handlers/medicine.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	redis_a "github.com/medtrackhq/medtrack-be/internal/adapters/redis_adapter"
	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
)

// MedicineHandler handles medicine-related HTTP requests
type MedicineHandler struct {
	service ports.MedicineService
	cache   ports.CacheRepository
	logger  *slog.Logger
}

// NewMedicineHandler creates a new medicine handler
func NewMedicineHandler(service ports.MedicineService, cache ports.CacheRepository, logger *slog.Logger) *MedicineHandler {
	return &MedicineHandler{
		service: service,
		cache:   cache,
		logger:  logger.With(slog.String("handler", "medicine")),
	}
}

// GetMedicine handles GET /api/v1/medicines/{id}
func (h *MedicineHandler) GetMedicine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid medicine ID")
		return
	}

	medicine, err := h.service.GetByID(ctx, id)
	if err != nil {
		if domain.IsNotFound(err) {
			h.respondError(w, http.StatusNotFound, "Medicine not found")
			return
		}

		h.logger.ErrorContext(ctx, "failed to get medicine",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve medicine")
		return
	}

	h.respondJSON(w, http.StatusOK, medicine)
}

// ListMedicines handles GET /api/v1/medicines
func (h *MedicineHandler) ListMedicines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := h.parseListParams(r)

	cacheKey := redis_a.BuildKey(redis_a.PrefixMedicine, "list",
		params.Name, params.ManufacturerName,
		strconv.Itoa(params.Page), strconv.Itoa(params.PageSize))

	var result ports.MedicineListResult
	err := h.cache.GetOrSet(ctx, cacheKey, &result, func() (interface{}, error) {
		res, err := h.service.List(ctx, params)
		if err != nil {
			return nil, err
		}
		return res, nil
	}, 5*time.Minute)

	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list medicines",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to list medicines")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// CreateMedicine handles POST /api/v1/medicines
func (h *MedicineHandler) CreateMedicine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req MedicineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	medicine := req.ToDomain()

	if err := h.service.AddMedicine(ctx, medicine); err != nil {
		if domain.IsValidation(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		h.logger.ErrorContext(ctx, "failed to create medicine",
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to create medicine")
		return
	}

	redis_a.InvalidateMedicineCaches(ctx, h.cache, h.logger)

	h.respondJSON(w, http.StatusCreated, medicine)
}

// UpdateMedicine handles PUT /api/v1/medicines/{id}
func (h *MedicineHandler) UpdateMedicine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid medicine ID")
		return
	}

	var req MedicineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	medicine := req.ToDomain()

	if err := h.service.UpdateMedicine(ctx, id, medicine); err != nil {
		if domain.IsValidation(err) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if domain.IsNotFound(err) {
			h.respondError(w, http.StatusNotFound, "Medicine not found")
			return
		}

		h.logger.ErrorContext(ctx, "failed to update medicine",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to update medicine")
		return
	}

	redis_a.InvalidateMedicineCaches(ctx, h.cache, h.logger)

	h.respondJSON(w, http.StatusOK, medicine)
}

// DeleteMedicine handles DELETE /api/v1/medicines/{id}
func (h *MedicineHandler) DeleteMedicine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseID(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid medicine ID")
		return
	}

	if err := h.service.DeleteMedicine(ctx, id); err != nil {
		if domain.IsNotFound(err) {
			h.respondError(w, http.StatusNotFound, "Medicine not found")
			return
		}

		h.logger.ErrorContext(ctx, "failed to delete medicine",
			slog.Int64("id", id),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to delete medicine")
		return
	}

	redis_a.InvalidateMedicineCaches(ctx, h.cache, h.logger)

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Medicine deleted successfully",
		"id":      id,
	})
}

// parseListParams parses query parameters for listing medicines
func (h *MedicineHandler) parseListParams(r *http.Request) ports.MedicineListParams {
	params := ports.MedicineListParams{
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

	params.Name = r.URL.Query().Get("name")
	params.ManufacturerName = r.URL.Query().Get("manufacturer")

	return params
}

func (h *MedicineHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *MedicineHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// parseID extracts the numeric id path value
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// Request/Response DTOs

// MedicineRequest represents the request body for creating or updating a medicine
type MedicineRequest struct {
	Name             string          `json:"name"`
	ManufacturerName string          `json:"manufacturer_name"`
	ManufacturerID   int64           `json:"manufacturer_id,omitempty"`
	MfgDate          time.Time       `json:"mfg_date"`
	ExpiryDate       time.Time       `json:"expiry_date"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Stock            int             `json:"stock"`
}

// ToDomain converts the request to a domain model
func (r *MedicineRequest) ToDomain() *domain.Medicine {
	return &domain.Medicine{
		Name:             r.Name,
		ManufacturerName: r.ManufacturerName,
		ManufacturerID:   r.ManufacturerID,
		MfgDate:          r.MfgDate,
		ExpiryDate:       r.ExpiryDate,
		UnitPrice:        r.UnitPrice,
		Stock:            r.Stock,
	}
}
