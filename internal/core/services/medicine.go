// internal/core/services/medicine.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
)

// MedicineService handles catalog business logic
type MedicineService struct {
	repo   ports.MedicineRepository
	logger *slog.Logger
}

// Statically assert that *MedicineService implements the MedicineService interface.
var _ ports.MedicineService = (*MedicineService)(nil)

// NewMedicineService creates a new medicine service
func NewMedicineService(repo ports.MedicineRepository, logger *slog.Logger) *MedicineService {
	return &MedicineService{
		repo:   repo,
		logger: logger.With(slog.String("service", "medicine")),
	}
}

// AddMedicine validates and stores a new medicine
func (s *MedicineService) AddMedicine(ctx context.Context, m *domain.Medicine) error {
	if err := m.Validate(); err != nil {
		return err
	}

	m.PrepareForStorage()

	if err := s.repo.Save(ctx, m); err != nil {
		return fmt.Errorf("failed to save medicine: %w", err)
	}

	s.logger.InfoContext(ctx, "medicine added",
		slog.Int64("id", m.ID),
		slog.String("name", m.Name))

	return nil
}

// GetByID retrieves a medicine by id
func (s *MedicineService) GetByID(ctx context.Context, id int64) (*domain.Medicine, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get medicine: %w", err)
	}

	if m == nil {
		return nil, domain.NewNotFoundError("medicine", id)
	}

	return m, nil
}

// UpdateMedicine overwrites an existing medicine
func (s *MedicineService) UpdateMedicine(ctx context.Context, id int64, m *domain.Medicine) error {
	m.ID = id

	if err := m.Validate(); err != nil {
		return err
	}

	m.PrepareForStorage()

	if err := s.repo.Update(ctx, m); err != nil {
		if domain.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to update medicine: %w", err)
	}

	s.logger.InfoContext(ctx, "medicine updated", slog.Int64("id", id))

	return nil
}

// DeleteMedicine removes a medicine from the catalog. Existing sale ledger
// entries keep their snapshot and are not affected.
func (s *MedicineService) DeleteMedicine(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if domain.IsNotFound(err) {
			return err
		}
		return fmt.Errorf("failed to delete medicine: %w", err)
	}

	return nil
}

// List retrieves a page of medicines narrowed by the optional substring
// filters.
func (s *MedicineService) List(ctx context.Context, params ports.MedicineListParams) (*ports.MedicineListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 50
	}
	if params.PageSize > 500 {
		params.PageSize = 500
	}

	filter := ports.MedicineFilter{
		Name:             params.Name,
		ManufacturerName: params.ManufacturerName,
		Limit:            params.PageSize,
		Offset:           (params.Page - 1) * params.PageSize,
	}

	items, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list medicines: %w", err)
	}

	totalPages := int(total) / params.PageSize
	if int(total)%params.PageSize > 0 {
		totalPages++
	}

	return &ports.MedicineListResult{
		Items:      items,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}
