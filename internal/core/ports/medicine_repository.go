// internal/core/ports/medicine_repository.go
package ports

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/medtrackhq/medtrack-be/internal/core/domain"
)

// MedicineFilter narrows a medicine listing. Every set field becomes a
// case-insensitive substring constraint; zero-value fields impose none.
type MedicineFilter struct {
	Name             string
	ManufacturerName string
	Limit            int
	Offset           int
}

// MedicineRepository defines the persistence port for the inventory store.
// FindByID returns (nil, nil) when the id is unknown.
type MedicineRepository interface {
	Save(ctx context.Context, m *domain.Medicine) error
	Update(ctx context.Context, m *domain.Medicine) error
	FindByID(ctx context.Context, id int64) (*domain.Medicine, error)
	FindAll(ctx context.Context, filter MedicineFilter) ([]*domain.Medicine, int64, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	Exists(ctx context.Context, id int64) (bool, error)

	// Transactional variants used by the sale flow. FindByIDForUpdate takes a
	// row lock on the medicine; AdjustStock applies delta and returns the new
	// stock level.
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Medicine, error)
	AdjustStock(ctx context.Context, tx pgx.Tx, id int64, delta int) (int, error)
}
