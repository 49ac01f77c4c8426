// internal/core/ports/sale_repository.go
package ports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/medtrackhq/medtrack-be/internal/core/domain"
)

// SaleFilter narrows a sales-ledger listing. Set string fields are
// case-insensitive substring constraints; absent fields impose none. The
// purchase-date bounds are inclusive.
type SaleFilter struct {
	MedicineName    string
	CustomerName    string
	CustomerPhone   string
	PurchasedAfter  *time.Time
	PurchasedBefore *time.Time
	Limit           int
	Offset          int
}

// SaleRepository defines the persistence port for the sales ledger.
// Ledger entries are insert-only: there is no update path.
type SaleRepository interface {
	SaveTx(ctx context.Context, tx pgx.Tx, sale *domain.Sale) error
	FindByID(ctx context.Context, id int64) (*domain.Sale, error)
	FindAll(ctx context.Context, filter SaleFilter) ([]*domain.Sale, int64, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}
