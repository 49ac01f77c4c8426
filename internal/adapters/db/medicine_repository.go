// internal/adapters/db/medicine_repository.go
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

// medicineRepository implements ports.MedicineRepository
type medicineRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewMedicineRepository creates a new medicine repository
func NewMedicineRepository(db *Database, logger *slog.Logger) ports.MedicineRepository {
	return &medicineRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "medicine")),
	}
}

const medicineColumns = `id, name, manufacturer_name, manufacturer_id,
	mfg_date, expiry_date, unit_price, stock, created_at, updated_at`

// Save creates a new medicine record
func (r *medicineRepository) Save(ctx context.Context, m *domain.Medicine) error {
	query := `
		INSERT INTO medicines (
			name, manufacturer_name, manufacturer_id,
			mfg_date, expiry_date, unit_price, stock,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		m.Name, m.ManufacturerName, m.ManufacturerID,
		m.MfgDate, m.ExpiryDate, m.UnitPrice, m.Stock,
		m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to save medicine: %w", err)
	}

	r.logger.DebugContext(ctx, "medicine saved",
		slog.Int64("id", m.ID),
		slog.String("name", m.Name))

	return nil
}

// Update overwrites an existing medicine record
func (r *medicineRepository) Update(ctx context.Context, m *domain.Medicine) error {
	query := `
		UPDATE medicines SET
			name = $2, manufacturer_name = $3, manufacturer_id = $4,
			mfg_date = $5, expiry_date = $6, unit_price = $7, stock = $8,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		m.ID, m.Name, m.ManufacturerName, m.ManufacturerID,
		m.MfgDate, m.ExpiryDate, m.UnitPrice, m.Stock,
	).Scan(&m.UpdatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.NewNotFoundError("medicine", m.ID)
		}
		return fmt.Errorf("failed to update medicine: %w", err)
	}

	r.logger.DebugContext(ctx, "medicine updated", slog.Int64("id", m.ID))

	return nil
}

// FindByID retrieves a medicine by id, returning (nil, nil) when absent
func (r *medicineRepository) FindByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE id = $1`

	m, err := scanMedicine(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find medicine: %w", err)
	}

	return m, nil
}

// FindByIDForUpdate retrieves a medicine by id inside tx, taking a row lock.
// Returns (nil, nil) when absent.
func (r *medicineRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Medicine, error) {
	query := `SELECT ` + medicineColumns + ` FROM medicines WHERE id = $1 FOR UPDATE`

	m, err := scanMedicine(tx.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock medicine: %w", err)
	}

	return m, nil
}

// AdjustStock applies delta to the medicine's stock inside tx and returns the
// new level. The caller is responsible for holding the row lock.
func (r *medicineRepository) AdjustStock(ctx context.Context, tx pgx.Tx, id int64, delta int) (int, error) {
	query := `
		UPDATE medicines SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING stock`

	var stock int
	err := tx.QueryRow(ctx, query, id, delta).Scan(&stock)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.NewNotFoundError("medicine", id)
		}
		return 0, fmt.Errorf("failed to adjust stock: %w", err)
	}

	return stock, nil
}

// Delete removes a medicine record. Ledger entries referencing it are
// untouched: they carry their own snapshot of the medicine's fields.
func (r *medicineRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete medicine: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("medicine", id)
	}

	r.logger.InfoContext(ctx, "medicine deleted", slog.Int64("id", id))

	return nil
}

// Count returns the total number of medicines
func (r *medicineRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM medicines`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count medicines: %w", err)
	}
	return count, nil
}

// Exists checks if a medicine exists
func (r *medicineRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM medicines WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return exists, nil
}

// FindAll retrieves medicines narrowed by filter. Substring filters match
// case-insensitively; results keep a stable id order so an empty filter
// returns the full listing unchanged.
func (r *medicineRepository) FindAll(ctx context.Context, filter ports.MedicineFilter) ([]*domain.Medicine, int64, error) {
	conds := squirrel.And{}
	if filter.Name != "" {
		conds = append(conds, squirrel.ILike{"name": "%" + filter.Name + "%"})
	}
	if filter.ManufacturerName != "" {
		conds = append(conds, squirrel.ILike{"manufacturer_name": "%" + filter.ManufacturerName + "%"})
	}

	qb := squirrel.Select(
		"id", "name", "manufacturer_name", "manufacturer_id",
		"mfg_date", "expiry_date", "unit_price", "stock",
		"created_at", "updated_at",
	).From("medicines").
		PlaceholderFormat(squirrel.Dollar)

	countQb := squirrel.Select("COUNT(*)").From("medicines").
		PlaceholderFormat(squirrel.Dollar)

	if len(conds) > 0 {
		qb = qb.Where(conds)
		countQb = countQb.Where(conds)
	}

	// Count total items (before pagination)
	countSQL, countArgs, err := countQb.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var totalCount int64
	err = r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count medicines: %w", err)
	}

	qb = qb.OrderBy("id ASC")
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
		return nil, 0, fmt.Errorf("failed to query medicines: %w", err)
	}
	defer rows.Close()

	var items []*domain.Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan medicine: %w", err)
		}
		items = append(items, m)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, totalCount, nil
}

// scanMedicine scans one medicine row in medicineColumns order.
func scanMedicine(row pgx.Row) (*domain.Medicine, error) {
	m := &domain.Medicine{}
	err := row.Scan(
		&m.ID, &m.Name, &m.ManufacturerName, &m.ManufacturerID,
		&m.MfgDate, &m.ExpiryDate, &m.UnitPrice, &m.Stock,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}
