package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency moneda por defecto de los lotes.
const DefaultCurrency = "IRR"

// Lot representa un lote de compra de un material, con su costo, su ventana de uso
// [StartUseDate, EndUseDate] y el candado de asignación.
type Lot struct {
	ID           int64
	ItemID       int64
	LotCode      string
	Vendor       string
	InvoiceNo    string
	Notes        string
	ShadeCode    string // vacío = sin color
	PurchaseDate *time.Time
	ExpireDate   *time.Time
	StartUseDate *time.Time
	EndUseDate   *time.Time
	QtyIn        decimal.Decimal // 3 decimales
	UnitCost     decimal.Decimal // 2 decimales
	Currency     string
	Allocated    bool
	AllocatedAt  *time.Time
	CreatedAt    time.Time
}

// HasUsageWindow indica si ambas fechas de uso están definidas.
func (l *Lot) HasUsageWindow() bool {
	return l.StartUseDate != nil && l.EndUseDate != nil
}

// Overlaps indica si las ventanas de uso de dos lotes se solapan (límites inclusivos).
// Una ventana sin inicio no participa; una ventana sin fin se considera abierta.
func (l *Lot) Overlaps(other *Lot) bool {
	if l.StartUseDate == nil || other.StartUseDate == nil {
		return false
	}
	// a.start <= b.end && b.start <= a.end
	if other.EndUseDate != nil && l.StartUseDate.After(*other.EndUseDate) {
		return false
	}
	if l.EndUseDate != nil && other.StartUseDate.After(*l.EndUseDate) {
		return false
	}
	return true
}
