package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockIssue registro de auditoría de material entregado a una orden.
// Solo lo crea el motor de asignación y solo lo borra el rollback de la misma corrida.
type StockIssue struct {
	ID          int64
	OrderID     int64
	ItemID      int64
	LotID       *int64
	QtyIssued   decimal.Decimal
	HappenedAt  time.Time
	Comment     string
	RunID       string
	MovementIDs []int64
	CreatedAt   time.Time
}
