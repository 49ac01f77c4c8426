// internal/adapters/db/sale_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
)

// saleRepository implements ports.SaleRepository
type saleRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewSaleRepository creates a new sale repository
func NewSaleRepository(db *Database, logger *slog.Logger) ports.SaleRepository {
	return &saleRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "sale")),
	}
}

const saleColumns = `id, medicine_id, medicine_name, manufacturer_name, manufacturer_id,
	mfg_date, expiry_date, unit_price, customer_name, customer_phone, person_id,
	quantity, bill_amount, purchase_date`

// SaveTx inserts a sale ledger entry inside tx, alongside the stock
// adjustment it records.
func (r *saleRepository) SaveTx(ctx context.Context, tx pgx.Tx, s *domain.Sale) error {
	query := `
		INSERT INTO sales (
			medicine_id, medicine_name, manufacturer_name, manufacturer_id,
			mfg_date, expiry_date, unit_price, customer_name, customer_phone,
			person_id, quantity, bill_amount, purchase_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	err := tx.QueryRow(ctx, query,
		s.MedicineID, s.MedicineName, s.ManufacturerName, s.ManufacturerID,
		s.MfgDate, s.ExpiryDate, s.UnitPrice, s.CustomerName, s.CustomerPhone,
		s.PersonID, s.Quantity, s.BillAmount, s.PurchaseDate,
	).Scan(&s.ID)

	if err != nil {
		return fmt.Errorf("failed to save sale: %w", err)
	}

	r.logger.DebugContext(ctx, "sale recorded",
		slog.Int64("id", s.ID),
		slog.Int64("medicine_id", s.MedicineID),
		slog.Int("quantity", s.Quantity))

	return nil
}

// FindByID retrieves a sale by id, returning (nil, nil) when absent
func (r *saleRepository) FindByID(ctx context.Context, id int64) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	s, err := scanSale(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find sale: %w", err)
	}

	return s, nil
}

// Delete removes a sale ledger entry. Stock is not restored, matching
// the correction-of-record semantics of the delete operation.
func (r *saleRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("sale", id)
	}

	r.logger.InfoContext(ctx, "sale deleted", slog.Int64("id", id))

	return nil
}

// Count returns the total number of sales
func (r *saleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sales`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sales: %w", err)
	}
	return count, nil
}

// FindAll retrieves sales narrowed by filter, most recent purchase first.
func (r *saleRepository) FindAll(ctx context.Context, filter ports.SaleFilter) ([]*domain.Sale, int64, error) {
	conds := squirrel.And{}
	if filter.MedicineName != "" {
		conds = append(conds, squirrel.ILike{"medicine_name": "%" + filter.MedicineName + "%"})
	}
	if filter.CustomerName != "" {
		conds = append(conds, squirrel.ILike{"customer_name": "%" + filter.CustomerName + "%"})
	}
	if filter.CustomerPhone != "" {
		conds = append(conds, squirrel.ILike{"customer_phone": "%" + filter.CustomerPhone + "%"})
	}
	if filter.PurchasedAfter != nil {
		conds = append(conds, squirrel.GtOrEq{"purchase_date": *filter.PurchasedAfter})
	}
	if filter.PurchasedBefore != nil {
		conds = append(conds, squirrel.LtOrEq{"purchase_date": *filter.PurchasedBefore})
	}

	qb := squirrel.Select(
		"id", "medicine_id", "medicine_name", "manufacturer_name", "manufacturer_id",
		"mfg_date", "expiry_date", "unit_price", "customer_name", "customer_phone",
		"person_id", "quantity", "bill_amount", "purchase_date",
	).From("sales").
		PlaceholderFormat(squirrel.Dollar)

	countQb := squirrel.Select("COUNT(*)").From("sales").
		PlaceholderFormat(squirrel.Dollar)

	if len(conds) > 0 {
		qb = qb.Where(conds)
		countQb = countQb.Where(conds)
	}

	countSQL, countArgs, err := countQb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var totalCount int64
	err = r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sales: %w", err)
	}

	qb = qb.OrderBy("purchase_date DESC", "id DESC")
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		qb = qb.Offset(uint64(filter.Offset))
	}

	listSQL, args, err := qb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var items []*domain.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sale: %w", err)
		}
		items = append(items, s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, totalCount, nil
}

// scanSale scans one sale row in saleColumns order.
func scanSale(row pgx.Row) (*domain.Sale, error) {
	s := &domain.Sale{}
	err := row.Scan(
		&s.ID, &s.MedicineID, &s.MedicineName, &s.ManufacturerName, &s.ManufacturerID,
		&s.MfgDate, &s.ExpiryDate, &s.UnitPrice, &s.CustomerName, &s.CustomerPhone,
		&s.PersonID, &s.Quantity, &s.BillAmount, &s.PurchaseDate,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}
