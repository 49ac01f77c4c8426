// internal/core/ports/medicine_service.go
package ports

import (
	"context"

	"github.com/medtrackhq/medtrack-be/internal/core/domain"
)

// MedicineService defines the application service port for the inventory store.
// This interface is implemented by the application service.
type MedicineService interface {
	AddMedicine(ctx context.Context, m *domain.Medicine) error
	GetByID(ctx context.Context, id int64) (*domain.Medicine, error)
	UpdateMedicine(ctx context.Context, id int64, m *domain.Medicine) error
	DeleteMedicine(ctx context.Context, id int64) error
	List(ctx context.Context, params MedicineListParams) (*MedicineListResult, error)
}

// MedicineListParams holds parameters for listing medicines
type MedicineListParams struct {
	Name             string
	ManufacturerName string
	Page             int
	PageSize         int
}

// MedicineListResult holds the result of listing medicines
type MedicineListResult struct {
	Items      []*domain.Medicine `json:"items"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalCount int64              `json:"total_count"`
	TotalPages int                `json:"total_pages"`
}
