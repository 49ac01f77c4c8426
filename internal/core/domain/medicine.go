// internal/core/domain/medicine.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Medicine represents a single pharmacy inventory item.
type Medicine struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	ManufacturerName string          `json:"manufacturer_name"`
	ManufacturerID   int64           `json:"manufacturer_id"`
	MfgDate          time.Time       `json:"mfg_date"`
	ExpiryDate       time.Time       `json:"expiry_date"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Stock            int             `json:"stock"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Validate performs domain validation on the medicine
func (m *Medicine) Validate() error {
	if m.Name == "" {
		return NewValidationError("name", "is required")
	}
	if m.ManufacturerName == "" {
		return NewValidationError("manufacturer_name", "is required")
	}
	if m.UnitPrice.IsNegative() {
		return NewValidationError("unit_price", "cannot be negative")
	}
	if m.Stock < 0 {
		return NewValidationError("stock", "cannot be negative")
	}
	if !m.ExpiryDate.IsZero() && !m.MfgDate.IsZero() && m.ExpiryDate.Before(m.MfgDate) {
		return NewValidationError("expiry_date", "cannot precede mfg_date")
	}
	return nil
}

// PrepareForStorage sets timestamps before the medicine is persisted
func (m *Medicine) PrepareForStorage() {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// IsExpired reports whether the medicine is past its expiry date at t.
func (m *Medicine) IsExpired(t time.Time) bool {
	return !m.ExpiryDate.IsZero() && m.ExpiryDate.Before(t)
}

// ExpiresWithin reports whether the medicine expires within d of t.
func (m *Medicine) ExpiresWithin(t time.Time, d time.Duration) bool {
	return !m.ExpiryDate.IsZero() && m.ExpiryDate.Before(t.Add(d))
}

// StockValue returns unit price multiplied by units on hand.
func (m *Medicine) StockValue() decimal.Decimal {
	return m.UnitPrice.Mul(decimal.NewFromInt(int64(m.Stock)))
}
