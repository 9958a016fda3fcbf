package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StageMapping vincula un material con la etapa de producción en la que se consume.
type StageMapping struct {
	ID             int64
	StageKey       string
	ItemID         int64
	ShadeSensitive bool // filtrar órdenes por el color del lote
	IsActive       bool
	Note           string
	CreatedAt      time.Time
}

// StageCompletion etapa de producción terminada de una orden (dato externo, solo lectura).
type StageCompletion struct {
	OrderID   int64
	StageKey  string
	UnitCount decimal.Decimal
	Shade     string
	DoneDate  time.Time
}

// OrderMaterialCost costo de material atribuido a una orden por ítem.
type OrderMaterialCost struct {
	OrderID   int64
	ItemID    int64
	Qty       decimal.Decimal // positivo = consumido
	TotalCost decimal.Decimal
}
