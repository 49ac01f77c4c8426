//go:build integration
// +build integration

package db_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/medtrackhq/medtrack-be/internal/adapters/db"
	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
	"github.com/medtrackhq/medtrack-be/internal/core/services"
	"github.com/medtrackhq/medtrack-be/test/helpers"
)

// SaleFlowSuite exercises the sale transaction end to end against a real
// database: ledger write plus stock decrement in one transaction.
type SaleFlowSuite struct {
	suite.Suite
	testDB   *helpers.TestDB
	medRepo  ports.MedicineRepository
	saleRepo ports.SaleRepository
	service  *services.SaleService
	ctx      context.Context
}

func (s *SaleFlowSuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	logger := helpers.TestLogger()
	s.medRepo = db.NewMedicineRepository(s.testDB.Database, logger)
	s.saleRepo = db.NewSaleRepository(s.testDB.Database, logger)
	s.service = services.NewSaleService(s.saleRepo, s.medRepo, s.testDB.Database, logger)
	s.ctx = context.Background()
}

func (s *SaleFlowSuite) SetupTest() {
	helpers.TruncateAllTables(s.T(), s.testDB.PgxPool)
}

func (s *SaleFlowSuite) seedMedicine(stock int) *domain.Medicine {
	m := helpers.CreateTestMedicine(func(m *domain.Medicine) {
		m.Stock = stock
	})
	s.Require().NoError(s.medRepo.Save(s.ctx, m))
	return m
}

func (s *SaleFlowSuite) TestSellMedicine_DecrementsStockAndWritesLedger() {
	med := s.seedMedicine(100)

	input := helpers.CreateTestSaleInput(func(in *domain.SaleInput) {
		in.Quantity = 10
		in.UnitPrice = decimal.NewFromFloat(2.50)
	})

	sale, err := s.service.SellMedicine(s.ctx, med.ID, input)
	s.Require().NoError(err)
	s.NotZero(sale.ID)
	s.Equal(med.ID, sale.MedicineID)
	s.True(decimal.NewFromFloat(25.00).Equal(sale.BillAmount),
		"bill should be price times quantity, got %s", sale.BillAmount)

	// Ledger entry snapshots the medicine fields
	saved, err := s.saleRepo.FindByID(s.ctx, sale.ID)
	s.Require().NoError(err)
	s.Require().NotNil(saved)
	s.Equal(med.Name, saved.MedicineName)
	s.Equal(med.ManufacturerName, saved.ManufacturerName)

	// Stock went down by exactly the quantity sold
	after, err := s.medRepo.FindByID(s.ctx, med.ID)
	s.Require().NoError(err)
	s.Equal(90, after.Stock)
}

func (s *SaleFlowSuite) TestSellMedicine_InsufficientStock() {
	med := s.seedMedicine(5)

	input := helpers.CreateTestSaleInput(func(in *domain.SaleInput) {
		in.Quantity = 10
	})

	_, err := s.service.SellMedicine(s.ctx, med.ID, input)
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrInsufficientStock)

	// Nothing was written
	after, err := s.medRepo.FindByID(s.ctx, med.ID)
	s.Require().NoError(err)
	s.Equal(5, after.Stock)

	count, err := s.saleRepo.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(0), count)
}

func (s *SaleFlowSuite) TestSellMedicine_ExactStockSellsOut() {
	med := s.seedMedicine(10)

	input := helpers.CreateTestSaleInput(func(in *domain.SaleInput) {
		in.Quantity = 10
	})

	_, err := s.service.SellMedicine(s.ctx, med.ID, input)
	s.Require().NoError(err)

	after, err := s.medRepo.FindByID(s.ctx, med.ID)
	s.Require().NoError(err)
	s.Equal(0, after.Stock)
}

func (s *SaleFlowSuite) TestSellMedicine_UnknownMedicine() {
	_, err := s.service.SellMedicine(s.ctx, 99999, helpers.CreateTestSaleInput())
	s.Require().Error(err)
	s.True(domain.IsNotFound(err))
}

// TestSellMedicine_ConcurrentSalesNoLostUpdates runs many sales against the
// same medicine at once. Every successful sale must account for its units:
// final stock equals initial stock minus the sum of sold quantities.
func (s *SaleFlowSuite) TestSellMedicine_ConcurrentSalesNoLostUpdates() {
	const (
		initialStock = 100
		workers      = 10
		perSaleQty   = 5
	)
	med := s.seedMedicine(initialStock)

	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			input := helpers.CreateTestSaleInput(func(in *domain.SaleInput) {
				in.Quantity = perSaleQty
			})
			_, err := s.service.SellMedicine(s.ctx, med.ID, input)
			results <- err
		}()
	}

	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			// Under contention a sale may give up after its retries, but it
			// must fail with the conflict error, not corrupt state.
			s.ErrorIs(err, domain.ErrConcurrencyConflict)
		}
	}
	s.Greater(succeeded, 0, "at least one sale should have succeeded")

	after, err := s.medRepo.FindByID(s.ctx, med.ID)
	s.Require().NoError(err)
	s.Equal(initialStock-succeeded*perSaleQty, after.Stock,
		"stock must reflect exactly the successful sales")

	count, err := s.saleRepo.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(succeeded), count)
}

func (s *SaleFlowSuite) TestDeleteSale_DoesNotRestoreStock() {
	med := s.seedMedicine(50)

	sale, err := s.service.SellMedicine(s.ctx, med.ID, helpers.CreateTestSaleInput(func(in *domain.SaleInput) {
		in.Quantity = 20
	}))
	s.Require().NoError(err)

	s.Require().NoError(s.service.DeleteSale(s.ctx, sale.ID))

	found, err := s.saleRepo.FindByID(s.ctx, sale.ID)
	s.Require().NoError(err)
	s.Nil(found)

	// A deleted ledger entry is a correction of record, not a refund.
	after, err := s.medRepo.FindByID(s.ctx, med.ID)
	s.Require().NoError(err)
	s.Equal(30, after.Stock)
}

func (s *SaleFlowSuite) TestLedgerSurvivesMedicineDeletion() {
	med := s.seedMedicine(50)

	sale, err := s.service.SellMedicine(s.ctx, med.ID, helpers.CreateTestSaleInput())
	s.Require().NoError(err)

	s.Require().NoError(s.medRepo.Delete(s.ctx, med.ID))

	saved, err := s.saleRepo.FindByID(s.ctx, sale.ID)
	s.Require().NoError(err)
	s.Require().NotNil(saved)
	s.Equal(med.Name, saved.MedicineName)
}

func (s *SaleFlowSuite) TestFindAll_DateRangeFilters() {
	med := s.seedMedicine(100)

	sale, err := s.service.SellMedicine(s.ctx, med.ID, helpers.CreateTestSaleInput())
	s.Require().NoError(err)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	items, total, err := s.saleRepo.FindAll(s.ctx, ports.SaleFilter{
		PurchasedAfter:  &past,
		PurchasedBefore: &future,
		Limit:           50,
	})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(items, 1)
	s.Equal(sale.ID, items[0].ID)

	_, total, err = s.saleRepo.FindAll(s.ctx, ports.SaleFilter{
		PurchasedBefore: &past,
		Limit:           50,
	})
	s.Require().NoError(err)
	s.Equal(int64(0), total)
}

func (s *SaleFlowSuite) TestFindAll_PhoneSubstringFilter() {
	med := s.seedMedicine(100)

	sale, err := s.service.SellMedicine(s.ctx, med.ID, helpers.CreateTestSaleInput(func(in *domain.SaleInput) {
		in.CustomerPhone = "01712345678"
	}))
	s.Require().NoError(err)

	_, err = s.service.SellMedicine(s.ctx, med.ID, helpers.CreateTestSaleInput(func(in *domain.SaleInput) {
		in.CustomerName = "Karim Mia"
		in.CustomerPhone = "01898765432"
	}))
	s.Require().NoError(err)

	// A fragment from the middle of the number must match.
	items, total, err := s.saleRepo.FindAll(s.ctx, ports.SaleFilter{
		CustomerPhone: "1712",
		Limit:         50,
	})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(items, 1)
	s.Equal(sale.ID, items[0].ID)
	s.Equal("01712345678", items[0].CustomerPhone)

	_, total, err = s.saleRepo.FindAll(s.ctx, ports.SaleFilter{
		CustomerPhone: "99999",
		Limit:         50,
	})
	s.Require().NoError(err)
	s.Equal(int64(0), total)
}

func TestSaleFlowSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SaleFlowSuite))
}
