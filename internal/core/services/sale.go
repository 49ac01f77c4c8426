// internal/core/services/sale.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
)

// maxSaleAttempts bounds retries when concurrent sales collide on the same
// medicine row under serializable isolation.
const maxSaleAttempts = 3

// SaleService handles the sale transaction flow and the sales ledger
type SaleService struct {
	saleRepo ports.SaleRepository
	medRepo  ports.MedicineRepository
	db       ports.Database
	logger   *slog.Logger
}

// Statically assert that *SaleService implements the SaleService interface.
var _ ports.SaleService = (*SaleService)(nil)

// NewSaleService creates a new sale service
func NewSaleService(saleRepo ports.SaleRepository, medRepo ports.MedicineRepository, db ports.Database, logger *slog.Logger) *SaleService {
	return &SaleService{
		saleRepo: saleRepo,
		medRepo:  medRepo,
		db:       db,
		logger:   logger.With(slog.String("service", "sale")),
	}
}

// SellMedicine executes one sale against a medicine. The ledger write and
// the stock decrement commit together or not at all: the medicine row is
// locked inside a serializable transaction, the snapshot and the bill are
// taken from the locked row, and a stock floor check rejects oversells
// before any write happens.
func (s *SaleService) SellMedicine(ctx context.Context, medicineID int64, input *domain.SaleInput) (*domain.Sale, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var sale *domain.Sale

	for attempt := 1; attempt <= maxSaleAttempts; attempt++ {
		err := s.db.TransactionWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
			med, err := s.medRepo.FindByIDForUpdate(ctx, tx, medicineID)
			if err != nil {
				return err
			}
			if med == nil {
				return domain.NewNotFoundError("medicine", medicineID)
			}

			if med.Stock < input.Quantity {
				return fmt.Errorf("medicine %d has %d units, requested %d: %w",
					medicineID, med.Stock, input.Quantity, domain.ErrInsufficientStock)
			}

			sale = domain.NewSale(med, input)

			if err := s.saleRepo.SaveTx(ctx, tx, sale); err != nil {
				return err
			}

			if _, err := s.medRepo.AdjustStock(ctx, tx, medicineID, -input.Quantity); err != nil {
				return err
			}

			return nil
		})

		if err == nil {
			s.logger.InfoContext(ctx, "sale completed",
				slog.Int64("sale_id", sale.ID),
				slog.Int64("medicine_id", medicineID),
				slog.Int("quantity", input.Quantity),
				slog.String("bill_amount", sale.BillAmount.String()))
			return sale, nil
		}

		if isSerializationFailure(err) {
			s.logger.WarnContext(ctx, "sale transaction collided, retrying",
				slog.Int64("medicine_id", medicineID),
				slog.Int("attempt", attempt))
			if attempt < maxSaleAttempts {
				if err := retryBackoff(ctx, attempt); err != nil {
					return nil, err
				}
			}
			continue
		}

		return nil, err
	}

	return nil, fmt.Errorf("sale of medicine %d: %w", medicineID, domain.ErrConcurrencyConflict)
}

// GetByID retrieves a ledger entry by id
func (s *SaleService) GetByID(ctx context.Context, id int64) (*domain.Sale, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}

	if sale == nil {
		return nil, domain.NewNotFoundError("sale", id)
	}

	return sale, nil
}

// List retrieves a page of ledger entries narrowed by the optional filters
func (s *SaleService) List(ctx context.Context, params ports.SaleListParams) (*ports.SaleListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 50
	}
	if params.PageSize > 500 {
		params.PageSize = 500
	}

	filter := ports.SaleFilter{
		MedicineName:  params.MedicineName,
		CustomerName:  params.CustomerName,
		CustomerPhone: params.CustomerPhone,
		Limit:         params.PageSize,
		Offset:        (params.Page - 1) * params.PageSize,
	}

	items, total, err := s.saleRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	totalPages := int(total) / params.PageSize
	if int(total)%params.PageSize > 0 {
		totalPages++
	}

	return &ports.SaleListResult{
		Items:      items,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

// DeleteSale removes a ledger entry as a correction of record. Stock is
// not restored.
func (s *SaleService) DeleteSale(ctx context.Context, id int64) error {
	if err := s.saleRepo.Delete(ctx, id); err != nil {
		if domain.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to delete sale: %w", err)
	}

	s.logger.InfoContext(ctx, "sale deleted", slog.Int64("id", id))

	return nil
}

// isSerializationFailure reports whether err is a serialization failure or
// deadlock that a fresh attempt can resolve.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// retryBackoff sleeps briefly before the next attempt, jittered so two
// colliding sales do not immediately collide again on the same schedule.
func retryBackoff(ctx context.Context, attempt int) error {
	delay := time.Duration(attempt)*10*time.Millisecond +
		time.Duration(rand.Int64N(int64(10*time.Millisecond)))

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
