// internal/workers/pdf_processor_test.go
package workers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/medtrackhq/medtrack-be/test/helpers"
	"github.com/medtrackhq/medtrack-be/test/mocks"
)

func TestParseInvoiceLines(t *testing.T) {
	processor := &PDFProcessor{logger: helpers.TestLogger()}

	tests := []struct {
		name     string
		lines    []string
		expected []invoiceLineItem
	}{
		{
			name: "items_with_quantity_and_price",
			lines: []string{
				"Invoice INV-2041",
				"ITEM           QTY    PRICE",
				"Paracetamol 500mg 10 x $4.50",
				"Amoxicillin 250mg 2 x 12.00",
				"SUBTOTAL  69.00",
			},
			expected: []invoiceLineItem{
				{name: "Paracetamol 500mg", quantity: 10, unitPrice: decimal.RequireFromString("4.50")},
				{name: "Amoxicillin 250mg", quantity: 2, unitPrice: decimal.RequireFromString("12.00")},
			},
		},
		{
			name: "quantity_defaults_to_one",
			lines: []string{
				"DESCRIPTION        QUANTITY",
				"Ibuprofen 200mg  8.99",
				"TOTAL 8.99",
			},
			expected: []invoiceLineItem{
				{name: "Ibuprofen 200mg", quantity: 1, unitPrice: decimal.RequireFromString("8.99")},
			},
		},
		{
			name: "description_wraps_across_lines",
			lines: []string{
				"ITEM QTY PRICE",
				"Cetirizine Hydrochloride",
				"Tablets 10mg 3 x 6.25",
				"AMOUNT DUE 18.75",
			},
			expected: []invoiceLineItem{
				{name: "Cetirizine Hydrochloride Tablets 10mg", quantity: 3, unitPrice: decimal.RequireFromString("6.25")},
			},
		},
		{
			name: "thousands_separator_in_price",
			lines: []string{
				"ITEM QTY PRICE",
				"Insulin Glargine 2 x $1,250.00",
				"TOTAL 2,500.00",
			},
			expected: []invoiceLineItem{
				{name: "Insulin Glargine", quantity: 2, unitPrice: decimal.RequireFromString("1250.00")},
			},
		},
		{
			name: "no_items_between_header_and_footer",
			lines: []string{
				"ITEM QTY PRICE",
				"TOTAL 0.00",
			},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := processor.parseInvoiceLines(tt.lines)
			require.Len(t, items, len(tt.expected))
			for i, want := range tt.expected {
				assert.Equal(t, want.name, items[i].name)
				assert.Equal(t, want.quantity, items[i].quantity)
				assert.True(t, want.unitPrice.Equal(items[i].unitPrice),
					"price mismatch: want %s got %s", want.unitPrice, items[i].unitPrice)
			}
		})
	}
}

func TestCleanLineItemName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"12 Paracetamol 500mg", "Paracetamol 500mg"},
		{"Amoxicillin AMX250CAP90 250mg", "Amoxicillin 250mg"},
		{"Ibuprofen    200mg", "Ibuprofen 200mg"},
		{"Cetirizine ----- 10mg", "Cetirizine 10mg"},
		{"   ", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, cleanLineItemName(tt.input), "input: %q", tt.input)
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"$4.50", "4.50"},
		{"1,250.00", "1250.00"},
		{" $ 12.00 ", "12.00"},
		{"garbage", "0"},
	}

	for _, tt := range tests {
		got := parseCurrency(tt.input)
		assert.True(t, decimal.RequireFromString(tt.expected).Equal(got),
			"input %q: want %s got %s", tt.input, tt.expected, got)
	}
}

func TestPDFProcessor_ProcessPDF(t *testing.T) {
	// A minimal single-page PDF with no extractable text. The processor
	// must still open it, record job status, and finish cleanly with zero
	// imported items.
	minimalPDF := []byte(`%PDF-1.4
1 0 obj<</Type/Catalog/Pages 2 0 R>>endobj 2 0 obj<</Type/Pages/Count 1/Kids[3 0 R]>>endobj 3 0 obj<</Type/Page/Parent 2 0 R/MediaBox[0 0 612 792]>>endobj
xref
0 4
0000000000 65535 f
0000000010 00000 n
0000000059 00000 n
0000000112 00000 n
trailer<</Size 4/Root 1 0 R>>
startxref
178
%%EOF`)

	t.Run("empty_invoice_completes_without_imports", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockMedicineService(ctrl)
		mockCache := mocks.NewMockCacheRepository(ctrl)
		logger := helpers.TestLogger()

		// Job status transitions hit the cache; nothing is imported so
		// the service and cache invalidation stay untouched.
		mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(assert.AnError).AnyTimes()
		mockCache.EXPECT().SetWithTTL(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		processor := NewPDFProcessor(mockService, mockCache, logger)

		payload := PDFJobPayload{
			JobID:         uuid.New().String(),
			FilePath:      helpers.CreateTempFile(t, minimalPDF, ".pdf"),
			InvoiceNumber: "INV-2041",
			SupplierName:  "Apex Pharma Distributors",
		}
		payloadBytes, err := json.Marshal(payload)
		require.NoError(t, err)

		task := asynq.NewTask(TypePDFProcess, payloadBytes)
		require.NoError(t, processor.ProcessPDF(context.Background(), task))
	})

	t.Run("missing_file_marks_job_failed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockService := mocks.NewMockMedicineService(ctrl)
		mockCache := mocks.NewMockCacheRepository(ctrl)

		mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(assert.AnError).AnyTimes()
		mockCache.EXPECT().SetWithTTL(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

		processor := NewPDFProcessor(mockService, mockCache, helpers.TestLogger())

		payload := PDFJobPayload{
			JobID:    uuid.New().String(),
			FilePath: "/nonexistent/invoice.pdf",
		}
		payloadBytes, err := json.Marshal(payload)
		require.NoError(t, err)

		task := asynq.NewTask(TypePDFProcess, payloadBytes)
		err = processor.ProcessPDF(context.Background(), task)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to extract line items")
	})
}
