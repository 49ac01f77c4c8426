// internal/core/domain/sale.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is one completed sale transaction. It carries a snapshot of the
// medicine's identifying fields as they were at sale time, so the ledger entry
// survives later edits or deletion of the medicine itself. A sale is never
// updated after creation; the only mutation path is an explicit delete.
type Sale struct {
	ID               int64           `json:"id"`
	MedicineID       int64           `json:"medicine_id"`
	MedicineName     string          `json:"medicine_name"`
	ManufacturerName string          `json:"manufacturer_name"`
	ManufacturerID   int64           `json:"manufacturer_id"`
	MfgDate          time.Time       `json:"mfg_date"`
	ExpiryDate       time.Time       `json:"expiry_date"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	CustomerName     string          `json:"customer_name"`
	CustomerPhone    string          `json:"customer_phone"`
	PersonID         *int64          `json:"person_id,omitempty"`
	Quantity         int             `json:"quantity"`
	BillAmount       decimal.Decimal `json:"bill_amount"`
	PurchaseDate     time.Time       `json:"purchase_date"`
}

// SaleInput holds the caller-supplied fields of a sale. The medicine snapshot
// fields are filled in from the authoritative row inside the transaction.
type SaleInput struct {
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	PersonID      *int64          `json:"person_id,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

// Validate performs domain validation on the sale input
func (in *SaleInput) Validate() error {
	if in.CustomerName == "" {
		return NewValidationError("customer_name", "is required")
	}
	if in.CustomerPhone == "" {
		return NewValidationError("customer_phone", "is required")
	}
	if in.Quantity <= 0 {
		return NewValidationError("quantity", "must be positive")
	}
	if in.UnitPrice.IsNegative() {
		return NewValidationError("unit_price", "cannot be negative")
	}
	return nil
}

// BillAmount returns unit price multiplied by quantity.
func (in *SaleInput) BillAmount() decimal.Decimal {
	return in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
}

// NewSale builds the ledger entry for selling quantity units of med. The
// medicine fields are copied from med; the price charged comes from the input.
func NewSale(med *Medicine, in *SaleInput) *Sale {
	return &Sale{
		MedicineID:       med.ID,
		MedicineName:     med.Name,
		ManufacturerName: med.ManufacturerName,
		ManufacturerID:   med.ManufacturerID,
		MfgDate:          med.MfgDate,
		ExpiryDate:       med.ExpiryDate,
		UnitPrice:        in.UnitPrice,
		CustomerName:     in.CustomerName,
		CustomerPhone:    in.CustomerPhone,
		PersonID:         in.PersonID,
		Quantity:         in.Quantity,
		BillAmount:       in.BillAmount(),
		PurchaseDate:     time.Now(),
	}
}
