package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind tipo de movimiento del kárdex.
type MovementKind string

// Tipos de movimiento de inventario.
const (
	MovementPurchase  MovementKind = "purchase"   // compra (entrada)
	MovementIssue     MovementKind = "issue"      // consumo a orden (salida)
	MovementReturnIn  MovementKind = "return_in"  // devolución (entrada)
	MovementWaste     MovementKind = "waste"      // merma (salida)
	MovementAdjustPos MovementKind = "adjust_pos" // ajuste positivo
	MovementAdjustNeg MovementKind = "adjust_neg" // ajuste negativo
	MovementStocktake MovementKind = "stocktake"  // conteo físico, admite ambos signos
)

// Motivos usados por el motor de asignación de lotes.
const (
	ReasonLotAllocation         = "lot_allocation"
	ReasonRollbackLotAllocation = "rollback_lot_allocation"
)

// Valid indica si el tipo es conocido.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementPurchase, MovementIssue, MovementReturnIn, MovementWaste,
		MovementAdjustPos, MovementAdjustNeg, MovementStocktake:
		return true
	}
	return false
}

// IsOutbound indica los tipos que siempre son salida (cantidad negativa).
func (k MovementKind) IsOutbound() bool {
	return k == MovementIssue || k == MovementWaste || k == MovementAdjustNeg
}

// StockMovement representa un asiento del libro de movimientos (kárdex).
// Una vez aplicado es inmutable; la anulación (VoidedAt) solo la usa el rollback de asignaciones
// y deja el asiento en el libro para que la reproducción siga cuadrando con el snapshot.
type StockMovement struct {
	ID         int64
	ItemID     int64
	LotID      *int64
	Kind       MovementKind
	Qty        decimal.Decimal // positivo entrada, negativo salida (3 decimales)
	UnitCost   decimal.Decimal // costo unitario efectivo (2 decimales)
	TotalCost  decimal.Decimal // Qty * UnitCost (2 decimales, con signo)
	HappenedAt time.Time
	OrderID    *int64
	Reason     string
	CreatedBy  string
	RunID      string // corrida de asignación/rollback que lo generó
	VoidedAt   *time.Time
	CreatedAt  time.Time
}

// Voided indica si el asiento fue anulado por un rollback.
func (m *StockMovement) Voided() bool {
	return m.VoidedAt != nil
}

// IsEngineReason indica los motivos reservados al motor de asignación.
func IsEngineReason(reason string) bool {
	return reason == ReasonLotAllocation || reason == ReasonRollbackLotAllocation
}

// EngineOwned indica si el asiento pertenece a una corrida de asignación o de rollback.
// Esos asientos solo se revierten con el rollback del lote.
func (m *StockMovement) EngineOwned() bool {
	return m.Voided() || m.RunID != "" || IsEngineReason(m.Reason)
}
