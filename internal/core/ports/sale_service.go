// internal/core/ports/sale_service.go
package ports

import (
	"context"

	"github.com/medtrackhq/medtrack-be/internal/core/domain"
)

// SaleService defines the application service port for the sales ledger and
// the sale transaction flow.
type SaleService interface {
	// SellMedicine executes one sale: validates input, computes the bill,
	// writes the ledger entry, and decrements the medicine's stock, all in a
	// single transaction. Error surface: *domain.NotFoundError,
	// *domain.ValidationError, domain.ErrInsufficientStock,
	// domain.ErrConcurrencyConflict.
	SellMedicine(ctx context.Context, medicineID int64, input *domain.SaleInput) (*domain.Sale, error)

	GetByID(ctx context.Context, id int64) (*domain.Sale, error)
	List(ctx context.Context, params SaleListParams) (*SaleListResult, error)
	DeleteSale(ctx context.Context, id int64) error
}

// SaleListParams holds parameters for listing ledger entries
type SaleListParams struct {
	MedicineName  string
	CustomerName  string
	CustomerPhone string
	Page          int
	PageSize      int
}

// SaleListResult holds the result of listing ledger entries
type SaleListResult struct {
	Items      []*domain.Sale `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalCount int64          `json:"total_count"`
	TotalPages int            `json:"total_pages"`
}
