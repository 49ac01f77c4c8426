// internal/core/services/medicine_service_test.go
package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
	"github.com/medtrackhq/medtrack-be/internal/core/services"
	"github.com/medtrackhq/medtrack-be/test/helpers"
	"github.com/medtrackhq/medtrack-be/test/mocks"
)

func TestMedicineService_AddMedicine(t *testing.T) {
	tests := []struct {
		name          string
		medicine      *domain.Medicine
		setupMocks    func(*mocks.MockMedicineRepository)
		expectedError bool
		errorContains string
	}{
		{
			name:     "successful_add_with_valid_medicine",
			medicine: helpers.CreateTestMedicine(),
			setupMocks: func(m *mocks.MockMedicineRepository) {
				m.EXPECT().
					Save(gomock.Any(), gomock.Any()).
					Return(nil)
			},
			expectedError: false,
		},
		{
			name: "validation_fails_for_missing_name",
			medicine: helpers.CreateTestMedicine(func(m *domain.Medicine) {
				m.Name = ""
			}),
			setupMocks:    func(m *mocks.MockMedicineRepository) {},
			expectedError: true,
			errorContains: "name is required",
		},
		{
			name: "validation_fails_for_missing_manufacturer",
			medicine: helpers.CreateTestMedicine(func(m *domain.Medicine) {
				m.ManufacturerName = ""
			}),
			setupMocks:    func(m *mocks.MockMedicineRepository) {},
			expectedError: true,
			errorContains: "manufacturer_name is required",
		},
		{
			name: "validation_fails_for_negative_price",
			medicine: helpers.CreateTestMedicine(func(m *domain.Medicine) {
				m.UnitPrice = decimal.NewFromFloat(-1.00)
			}),
			setupMocks:    func(m *mocks.MockMedicineRepository) {},
			expectedError: true,
			errorContains: "unit_price cannot be negative",
		},
		{
			name: "validation_fails_for_negative_stock",
			medicine: helpers.CreateTestMedicine(func(m *domain.Medicine) {
				m.Stock = -5
			}),
			setupMocks:    func(m *mocks.MockMedicineRepository) {},
			expectedError: true,
			errorContains: "stock cannot be negative",
		},
		{
			name: "validation_fails_for_expiry_before_mfg",
			medicine: helpers.CreateTestMedicine(func(m *domain.Medicine) {
				m.ExpiryDate = m.MfgDate.AddDate(0, -1, 0)
			}),
			setupMocks:    func(m *mocks.MockMedicineRepository) {},
			expectedError: true,
			errorContains: "expiry_date",
		},
		{
			name:     "repository_save_error",
			medicine: helpers.CreateTestMedicine(),
			setupMocks: func(m *mocks.MockMedicineRepository) {
				m.EXPECT().
					Save(gomock.Any(), gomock.Any()).
					Return(errors.New("database error"))
			},
			expectedError: true,
			errorContains: "failed to save medicine",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := mocks.NewMockMedicineRepository(ctrl)
			tt.setupMocks(repo)

			svc := services.NewMedicineService(repo, helpers.TestLogger())
			err := svc.AddMedicine(context.Background(), tt.medicine)

			if tt.expectedError {
				require.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestMedicineService_GetByID(t *testing.T) {
	t.Run("returns_medicine_when_found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		expected := helpers.CreateTestMedicine(func(m *domain.Medicine) {
			m.ID = 42
		})

		repo := mocks.NewMockMedicineRepository(ctrl)
		repo.EXPECT().
			FindByID(gomock.Any(), int64(42)).
			Return(expected, nil)

		svc := services.NewMedicineService(repo, helpers.TestLogger())
		got, err := svc.GetByID(context.Background(), 42)

		require.NoError(t, err)
		assert.Equal(t, expected, got)
	})

	t.Run("returns_not_found_for_unknown_id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mocks.NewMockMedicineRepository(ctrl)
		repo.EXPECT().
			FindByID(gomock.Any(), int64(999)).
			Return(nil, nil)

		svc := services.NewMedicineService(repo, helpers.TestLogger())
		got, err := svc.GetByID(context.Background(), 999)

		require.Error(t, err)
		assert.Nil(t, got)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("propagates_repository_error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mocks.NewMockMedicineRepository(ctrl)
		repo.EXPECT().
			FindByID(gomock.Any(), int64(1)).
			Return(nil, errors.New("connection refused"))

		svc := services.NewMedicineService(repo, helpers.TestLogger())
		_, err := svc.GetByID(context.Background(), 1)

		require.Error(t, err)
		assert.False(t, domain.IsNotFound(err))
	})
}

func TestMedicineService_UpdateMedicine(t *testing.T) {
	t.Run("successful_update", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		medicine := helpers.CreateTestMedicine()

		repo := mocks.NewMockMedicineRepository(ctrl)
		repo.EXPECT().
			Update(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m *domain.Medicine) error {
				assert.Equal(t, int64(7), m.ID)
				return nil
			})

		svc := services.NewMedicineService(repo, helpers.TestLogger())
		err := svc.UpdateMedicine(context.Background(), 7, medicine)

		require.NoError(t, err)
	})

	t.Run("not_found_passes_through", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mocks.NewMockMedicineRepository(ctrl)
		repo.EXPECT().
			Update(gomock.Any(), gomock.Any()).
			Return(domain.NewNotFoundError("medicine", 7))

		svc := services.NewMedicineService(repo, helpers.TestLogger())
		err := svc.UpdateMedicine(context.Background(), 7, helpers.CreateTestMedicine())

		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("validation_runs_before_repository", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mocks.NewMockMedicineRepository(ctrl)

		svc := services.NewMedicineService(repo, helpers.TestLogger())
		err := svc.UpdateMedicine(context.Background(), 7, helpers.CreateTestMedicine(func(m *domain.Medicine) {
			m.Name = ""
		}))

		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})
}

func TestMedicineService_DeleteMedicine(t *testing.T) {
	t.Run("successful_delete", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mocks.NewMockMedicineRepository(ctrl)
		repo.EXPECT().
			Delete(gomock.Any(), int64(3)).
			Return(nil)

		svc := services.NewMedicineService(repo, helpers.TestLogger())
		require.NoError(t, svc.DeleteMedicine(context.Background(), 3))
	})

	t.Run("not_found_passes_through", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mocks.NewMockMedicineRepository(ctrl)
		repo.EXPECT().
			Delete(gomock.Any(), int64(3)).
			Return(domain.NewNotFoundError("medicine", 3))

		svc := services.NewMedicineService(repo, helpers.TestLogger())
		err := svc.DeleteMedicine(context.Background(), 3)

		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestMedicineService_List(t *testing.T) {
	t.Run("passes_filters_and_pagination_to_repository", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		medicines := helpers.CreateTestMedicines(3)

		repo := mocks.NewMockMedicineRepository(ctrl)
		repo.EXPECT().
			FindAll(gomock.Any(), ports.MedicineFilter{
				Name:             "para",
				ManufacturerName: "square",
				Limit:            20,
				Offset:           40,
			}).
			Return(medicines, int64(53), nil)

		svc := services.NewMedicineService(repo, helpers.TestLogger())
		result, err := svc.List(context.Background(), ports.MedicineListParams{
			Name:             "para",
			ManufacturerName: "square",
			Page:             3,
			PageSize:         20,
		})

		require.NoError(t, err)
		assert.Len(t, result.Items, 3)
		assert.Equal(t, int64(53), result.TotalCount)
		assert.Equal(t, 3, result.TotalPages)
	})

	t.Run("defaults_page_and_page_size", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mocks.NewMockMedicineRepository(ctrl)
		repo.EXPECT().
			FindAll(gomock.Any(), ports.MedicineFilter{Limit: 50, Offset: 0}).
			Return(nil, int64(0), nil)

		svc := services.NewMedicineService(repo, helpers.TestLogger())
		result, err := svc.List(context.Background(), ports.MedicineListParams{})

		require.NoError(t, err)
		assert.Equal(t, 1, result.Page)
		assert.Equal(t, 50, result.PageSize)
	})
}
