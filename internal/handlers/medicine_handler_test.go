// internal/handlers/medicine_handler_test.go
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/medtrackhq/medtrack-be/internal/core/domain"
	"github.com/medtrackhq/medtrack-be/internal/core/ports"
	"github.com/medtrackhq/medtrack-be/internal/handlers"
	"github.com/medtrackhq/medtrack-be/test/helpers"
	"github.com/medtrackhq/medtrack-be/test/mocks"
)

func TestMedicineHandler_GetMedicine(t *testing.T) {
	testMedicine := helpers.CreateTestMedicine(func(m *domain.Medicine) {
		m.ID = 42
	})

	tests := []struct {
		name           string
		id             string
		setupMocks     func(*mocks.MockMedicineService)
		expectedStatus int
		validateBody   func(*testing.T, []byte)
	}{
		{
			name: "successfully_retrieves_medicine",
			id:   "42",
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					GetByID(gomock.Any(), int64(42)).
					Return(testMedicine, nil)
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body []byte) {
				var response domain.Medicine
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, int64(42), response.ID)
				assert.Equal(t, testMedicine.Name, response.Name)
			},
		},
		{
			name:           "invalid_id_format",
			id:             "not-a-number",
			setupMocks:     func(m *mocks.MockMedicineService) {},
			expectedStatus: http.StatusBadRequest,
			validateBody: func(t *testing.T, body []byte) {
				var response map[string]string
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "Invalid medicine ID", response["error"])
			},
		},
		{
			name: "medicine_not_found",
			id:   "999",
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					GetByID(gomock.Any(), int64(999)).
					Return(nil, domain.NewNotFoundError("medicine", 999))
			},
			expectedStatus: http.StatusNotFound,
			validateBody: func(t *testing.T, body []byte) {
				var response map[string]string
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "Medicine not found", response["error"])
			},
		},
		{
			name: "service_error",
			id:   "42",
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					GetByID(gomock.Any(), int64(42)).
					Return(nil, errors.New("database connection failed"))
			},
			expectedStatus: http.StatusInternalServerError,
			validateBody: func(t *testing.T, body []byte) {
				var response map[string]string
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "Failed to retrieve medicine", response["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := mocks.NewMockMedicineService(ctrl)
			handler := handlers.NewMedicineHandler(mockService, newTestCacheMock(), helpers.TestLogger())

			tt.setupMocks(mockService)

			req := httptest.NewRequest("GET", "/api/v1/medicines/"+tt.id, nil)
			req.SetPathValue("id", tt.id)
			w := httptest.NewRecorder()

			handler.GetMedicine(w, req)

			resp := w.Result()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.validateBody != nil {
				tt.validateBody(t, w.Body.Bytes())
			}
		})
	}
}

func TestMedicineHandler_ListMedicines(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    map[string]string
		setupMocks     func(*mocks.MockMedicineService)
		expectedStatus int
		validateBody   func(*testing.T, []byte)
	}{
		{
			name: "successfully_lists_medicines_with_pagination",
			queryParams: map[string]string{
				"page":  "1",
				"limit": "10",
			},
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					List(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, params ports.MedicineListParams) (*ports.MedicineListResult, error) {
						assert.Equal(t, 1, params.Page)
						assert.Equal(t, 10, params.PageSize)
						return &ports.MedicineListResult{
							Items:      []*domain.Medicine{helpers.CreateTestMedicine()},
							Page:       1,
							PageSize:   10,
							TotalCount: 1,
							TotalPages: 1,
						}, nil
					})
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body []byte) {
				var response ports.MedicineListResult
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, 1, len(response.Items))
				assert.Equal(t, int64(1), response.TotalCount)
			},
		},
		{
			name: "filters_by_name_substring",
			queryParams: map[string]string{
				"name": "para",
			},
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					List(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, params ports.MedicineListParams) (*ports.MedicineListResult, error) {
						assert.Equal(t, "para", params.Name)
						return &ports.MedicineListResult{
							Items:    []*domain.Medicine{},
							Page:     1,
							PageSize: 50,
						}, nil
					})
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "filters_by_manufacturer_substring",
			queryParams: map[string]string{
				"manufacturer": "square",
			},
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					List(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, params ports.MedicineListParams) (*ports.MedicineListResult, error) {
						assert.Equal(t, "square", params.ManufacturerName)
						return &ports.MedicineListResult{
							Items:    []*domain.Medicine{},
							Page:     1,
							PageSize: 50,
						}, nil
					})
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "caps_page_size_at_100",
			queryParams: map[string]string{
				"page":  "0",
				"limit": "200",
			},
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					List(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, params ports.MedicineListParams) (*ports.MedicineListResult, error) {
						assert.Equal(t, 1, params.Page)
						assert.Equal(t, 100, params.PageSize)
						return &ports.MedicineListResult{
							Items:    []*domain.Medicine{},
							Page:     1,
							PageSize: 100,
						}, nil
					})
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:        "service_error",
			queryParams: map[string]string{},
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					List(gomock.Any(), gomock.Any()).
					Return(nil, errors.New("database error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := mocks.NewMockMedicineService(ctrl)
			handler := handlers.NewMedicineHandler(mockService, newTestCacheMock(), helpers.TestLogger())

			tt.setupMocks(mockService)

			req := httptest.NewRequest("GET", "/api/v1/medicines", nil)
			q := req.URL.Query()
			for k, v := range tt.queryParams {
				q.Add(k, v)
			}
			req.URL.RawQuery = q.Encode()

			w := httptest.NewRecorder()

			handler.ListMedicines(w, req)

			resp := w.Result()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.validateBody != nil {
				tt.validateBody(t, w.Body.Bytes())
			}
		})
	}
}

func TestMedicineHandler_ListMedicines_ServedFromCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mocks.NewMockMedicineService(ctrl)
	cache := newTestCacheMock()
	handler := handlers.NewMedicineHandler(mockService, cache, helpers.TestLogger())

	// First call populates the cache
	mockService.EXPECT().
		List(gomock.Any(), gomock.Any()).
		Return(&ports.MedicineListResult{
			Items:      []*domain.Medicine{helpers.CreateTestMedicine()},
			Page:       1,
			PageSize:   50,
			TotalCount: 1,
			TotalPages: 1,
		}, nil).
		Times(1)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/api/v1/medicines", nil)
		w := httptest.NewRecorder()
		handler.ListMedicines(w, req)
		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	}
}

func TestMedicineHandler_CreateMedicine(t *testing.T) {
	validRequest := handlers.MedicineRequest{
		Name:             "Napa Extra",
		ManufacturerName: "Beximco Pharma",
		ManufacturerID:   2,
		MfgDate:          time.Now().AddDate(0, -3, 0),
		ExpiryDate:       time.Now().AddDate(2, 0, 0),
		UnitPrice:        decimal.NewFromFloat(3.20),
		Stock:            500,
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		setupMocks     func(*mocks.MockMedicineService)
		expectedStatus int
		validateBody   func(*testing.T, []byte)
	}{
		{
			name:        "successfully_creates_medicine",
			requestBody: validRequest,
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					AddMedicine(gomock.Any(), gomock.Any()).
					DoAndReturn(func(ctx context.Context, medicine *domain.Medicine) error {
						assert.Equal(t, "Napa Extra", medicine.Name)
						assert.Equal(t, "Beximco Pharma", medicine.ManufacturerName)
						medicine.ID = 7
						return nil
					})
			},
			expectedStatus: http.StatusCreated,
			validateBody: func(t *testing.T, body []byte) {
				var response domain.Medicine
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, int64(7), response.ID)
				assert.Equal(t, "Napa Extra", response.Name)
			},
		},
		{
			name:           "invalid_json_body",
			requestBody:    "not json",
			setupMocks:     func(m *mocks.MockMedicineService) {},
			expectedStatus: http.StatusBadRequest,
			validateBody: func(t *testing.T, body []byte) {
				var response map[string]string
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "Invalid request body", response["error"])
			},
		},
		{
			name:        "validation_error",
			requestBody: handlers.MedicineRequest{},
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					AddMedicine(gomock.Any(), gomock.Any()).
					Return(domain.NewValidationError("name", "is required"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "service_error",
			requestBody: validRequest,
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					AddMedicine(gomock.Any(), gomock.Any()).
					Return(errors.New("database error"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := mocks.NewMockMedicineService(ctrl)
			handler := handlers.NewMedicineHandler(mockService, newTestCacheMock(), helpers.TestLogger())

			tt.setupMocks(mockService)

			body, _ := json.Marshal(tt.requestBody)
			req := httptest.NewRequest("POST", "/api/v1/medicines", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.CreateMedicine(w, req)

			resp := w.Result()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.validateBody != nil {
				tt.validateBody(t, w.Body.Bytes())
			}
		})
	}
}

func TestMedicineHandler_UpdateMedicine(t *testing.T) {
	validRequest := handlers.MedicineRequest{
		Name:             "Paracetamol 500mg",
		ManufacturerName: "Square Pharmaceuticals",
		MfgDate:          time.Now().AddDate(0, -6, 0),
		ExpiryDate:       time.Now().AddDate(2, 0, 0),
		UnitPrice:        decimal.NewFromFloat(2.75),
		Stock:            80,
	}

	tests := []struct {
		name           string
		id             string
		requestBody    interface{}
		setupMocks     func(*mocks.MockMedicineService)
		expectedStatus int
	}{
		{
			name:        "successfully_updates_medicine",
			id:          "42",
			requestBody: validRequest,
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					UpdateMedicine(gomock.Any(), int64(42), gomock.Any()).
					Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid_id",
			id:             "abc",
			requestBody:    validRequest,
			setupMocks:     func(m *mocks.MockMedicineService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "validation_error",
			id:          "42",
			requestBody: handlers.MedicineRequest{},
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					UpdateMedicine(gomock.Any(), int64(42), gomock.Any()).
					Return(domain.NewValidationError("name", "is required"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "medicine_not_found",
			id:          "999",
			requestBody: validRequest,
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					UpdateMedicine(gomock.Any(), int64(999), gomock.Any()).
					Return(domain.NewNotFoundError("medicine", 999))
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := mocks.NewMockMedicineService(ctrl)
			handler := handlers.NewMedicineHandler(mockService, newTestCacheMock(), helpers.TestLogger())

			tt.setupMocks(mockService)

			body, _ := json.Marshal(tt.requestBody)
			req := httptest.NewRequest("PUT", "/api/v1/medicines/"+tt.id, bytes.NewReader(body))
			req.SetPathValue("id", tt.id)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			handler.UpdateMedicine(w, req)

			resp := w.Result()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestMedicineHandler_DeleteMedicine(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		setupMocks     func(*mocks.MockMedicineService)
		expectedStatus int
		validateBody   func(*testing.T, []byte)
	}{
		{
			name: "successfully_deletes_medicine",
			id:   "42",
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					DeleteMedicine(gomock.Any(), int64(42)).
					Return(nil)
			},
			expectedStatus: http.StatusOK,
			validateBody: func(t *testing.T, body []byte) {
				var response map[string]interface{}
				err := json.Unmarshal(body, &response)
				require.NoError(t, err)
				assert.Equal(t, "Medicine deleted successfully", response["message"])
			},
		},
		{
			name:           "invalid_id",
			id:             "abc",
			setupMocks:     func(m *mocks.MockMedicineService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "medicine_not_found",
			id:   "999",
			setupMocks: func(m *mocks.MockMedicineService) {
				m.EXPECT().
					DeleteMedicine(gomock.Any(), int64(999)).
					Return(domain.NewNotFoundError("medicine", 999))
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockService := mocks.NewMockMedicineService(ctrl)
			handler := handlers.NewMedicineHandler(mockService, newTestCacheMock(), helpers.TestLogger())

			tt.setupMocks(mockService)

			req := httptest.NewRequest("DELETE", "/api/v1/medicines/"+tt.id, nil)
			req.SetPathValue("id", tt.id)
			w := httptest.NewRecorder()

			handler.DeleteMedicine(w, req)

			resp := w.Result()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.validateBody != nil {
				tt.validateBody(t, w.Body.Bytes())
			}
		})
	}
}
