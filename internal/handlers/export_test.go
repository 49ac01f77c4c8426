// internal/handlers/export_test.go
package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	redis_a "github.com/medtrackhq/medtrack-be/internal/adapters/redis_adapter"
	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
	"github.com/medtrackhq/medtrack-be/internal/handlers"
	"github.com/medtrackhq/medtrack-be/test/helpers"
	"github.com/medtrackhq/medtrack-be/test/mocks"
)

func TestExportHandler_ExportJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	medicines := mocks.NewMockMedicineRepository(ctrl)
	sales := mocks.NewMockSaleRepository(ctrl)
	cache := newTestCacheMock()
	logger := helpers.TestLogger()

	handler := handlers.NewExportHandler(medicines, sales, cache, logger)

	med := helpers.CreateTestMedicine(func(m *domain.Medicine) {
		m.ID = 1
	})
	sale := domain.NewSale(med, helpers.CreateTestSaleInput())
	sale.ID = 10

	medicines.EXPECT().
		FindAll(gomock.Any(), gomock.Any()).
		Return([]*domain.Medicine{med}, int64(1), nil)
	sales.EXPECT().
		FindAll(gomock.Any(), gomock.Any()).
		Return([]*domain.Sale{sale}, int64(1), nil)

	req := httptest.NewRequest("GET", "/api/v1/export/json", nil)
	w := httptest.NewRecorder()

	handler.ExportJSON(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "MISS", resp.Header.Get("X-Cache"))

	var response handlers.JSONExportResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Len(t, response.Medicines, 1)
	assert.Len(t, response.Sales, 1)
	assert.Equal(t, 1, response.Metadata.MedicineCount)
	assert.Equal(t, 1, response.Metadata.SaleCount)
}

func TestExportHandler_ExportJSON_ServedFromCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No expectations: the repositories must not be touched on a cache hit.
	medicines := mocks.NewMockMedicineRepository(ctrl)
	sales := mocks.NewMockSaleRepository(ctrl)
	cache := newTestCacheMock()
	logger := helpers.TestLogger()

	cached := []byte(`{"medicines":[],"sales":[],"metadata":{}}`)
	key := redis_a.BuildKey(redis_a.PrefixExport, "json", "full")
	require.NoError(t, cache.SetWithTTL(context.Background(), key, cached, time.Minute))

	handler := handlers.NewExportHandler(medicines, sales, cache, logger)

	req := httptest.NewRequest("GET", "/api/v1/export/json", nil)
	w := httptest.NewRecorder()

	handler.ExportJSON(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "HIT", resp.Header.Get("X-Cache"))
	assert.Equal(t, cached, w.Body.Bytes())
}

func TestExportHandler_ExportJSON_DateRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	medicines := mocks.NewMockMedicineRepository(ctrl)
	sales := mocks.NewMockSaleRepository(ctrl)
	cache := newTestCacheMock()
	logger := helpers.TestLogger()

	handler := handlers.NewExportHandler(medicines, sales, cache, logger)

	medicines.EXPECT().
		FindAll(gomock.Any(), gomock.Any()).
		Return(nil, int64(0), nil)
	sales.EXPECT().
		FindAll(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter ports.SaleFilter) ([]*domain.Sale, int64, error) {
			require.NotNil(t, filter.PurchasedAfter)
			require.NotNil(t, filter.PurchasedBefore)
			assert.Equal(t, "2026-01-01", filter.PurchasedAfter.Format("2006-01-02"))
			assert.Equal(t, "2026-06-30", filter.PurchasedBefore.Format("2006-01-02"))
			return nil, 0, nil
		})

	req := httptest.NewRequest("GET", "/api/v1/export/json?date_from=2026-01-01&date_to=2026-06-30", nil)
	w := httptest.NewRecorder()

	handler.ExportJSON(w, req)

	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
}

func TestExportHandler_ExportExcel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	medicines := mocks.NewMockMedicineRepository(ctrl)
	sales := mocks.NewMockSaleRepository(ctrl)
	cache := newTestCacheMock()
	logger := helpers.TestLogger()

	handler := handlers.NewExportHandler(medicines, sales, cache, logger)

	med := helpers.CreateTestMedicine(func(m *domain.Medicine) {
		m.ID = 1
	})
	sale := domain.NewSale(med, helpers.CreateTestSaleInput())
	sale.ID = 10

	medicines.EXPECT().
		FindAll(gomock.Any(), gomock.Any()).
		Return([]*domain.Medicine{med}, int64(1), nil)
	sales.EXPECT().
		FindAll(gomock.Any(), gomock.Any()).
		Return([]*domain.Sale{sale}, int64(1), nil)

	req := httptest.NewRequest("GET", "/api/v1/export/excel", nil)
	w := httptest.NewRecorder()

	handler.ExportExcel(w, req)

	resp := w.Result()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "pharmacy_export_")
	assert.NotEmpty(t, w.Body.Bytes())
}

// testCacheMock implements ports.CacheRepository for testing
type testCacheMock struct {
	mu       sync.RWMutex
	data     map[string][]byte
	ttls     map[string]time.Time
	counters map[string]int64
}

var _ ports.CacheRepository = (*testCacheMock)(nil)

func newTestCacheMock() *testCacheMock {
	return &testCacheMock{
		data:     make(map[string][]byte),
		ttls:     make(map[string]time.Time),
		counters: make(map[string]int64),
	}
}

func (m *testCacheMock) Set(ctx context.Context, key string, value interface{}) error {
	return m.SetWithTTL(ctx, key, value, time.Hour)
}

func (m *testCacheMock) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.data[key] = data
	if ttl > 0 {
		m.ttls[key] = time.Now().Add(ttl)
	}

	return nil
}

func (m *testCacheMock) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, exists := m.data[key]
	if !exists {
		return redis_a.ErrCacheMiss
	}

	if expiry, hasTTL := m.ttls[key]; hasTTL && time.Now().After(expiry) {
		return redis_a.ErrCacheMiss
	}

	return json.Unmarshal(data, dest)
}

func (m *testCacheMock) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.data, key)
		delete(m.ttls, key)
		delete(m.counters, key)
	}

	return nil
}

func (m *testCacheMock) DeletePattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keysToDelete []string
	for key := range m.data {
		if pattern == "*" || key == pattern {
			keysToDelete = append(keysToDelete, key)
		}
	}

	for _, key := range keysToDelete {
		delete(m.data, key)
		delete(m.ttls, key)
		delete(m.counters, key)
	}

	return nil
}

func (m *testCacheMock) Exists(ctx context.Context, keys ...string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, key := range keys {
		if _, exists := m.data[key]; !exists {
			return false, nil
		}
		if expiry, hasTTL := m.ttls[key]; hasTTL && time.Now().After(expiry) {
			return false, nil
		}
	}

	return true, nil
}

func (m *testCacheMock) GetOrSet(ctx context.Context, key string, dest interface{},
	fetch func() (interface{}, error), ttl time.Duration) error {

	err := m.Get(ctx, key, dest)
	if err == nil {
		return nil
	}

	if err != redis_a.ErrCacheMiss {
		return err
	}

	value, err := fetch()
	if err != nil {
		return err
	}

	if err := m.SetWithTTL(ctx, key, value, ttl); err != nil {
		return err
	}

	data, _ := json.Marshal(value)
	return json.Unmarshal(data, dest)
}

func (m *testCacheMock) Increment(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counters[key]++
	return m.counters[key], nil
}

func (m *testCacheMock) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; exists {
		if expiry, hasTTL := m.ttls[key]; !hasTTL || time.Now().Before(expiry) {
			return false, nil
		}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}

	m.data[key] = data
	if ttl > 0 {
		m.ttls[key] = time.Now().Add(ttl)
	}

	return true, nil
}

func (m *testCacheMock) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, exists := m.data[key]; !exists {
		return -2 * time.Second, nil
	}

	expiry, hasTTL := m.ttls[key]
	if !hasTTL {
		return -1 * time.Second, nil
	}

	remaining := time.Until(expiry)
	if remaining <= 0 {
		return -2 * time.Second, nil
	}

	return remaining, nil
}

func (m *testCacheMock) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string][]byte)
	m.ttls = make(map[string]time.Time)
	m.counters = make(map[string]int64)

	return nil
}

func (m *testCacheMock) Ping(ctx context.Context) error {
	return nil
}
