package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item representa un material del almacén del laboratorio.
// StockQty y AvgUnitCost son el snapshot corriente: solo los modifica el libro de movimientos
// y siempre deben poder reconstruirse reproduciendo el libro completo del ítem.
type Item struct {
	ID           int64
	Code         string // único
	Name         string
	ItemType     string
	Category     string
	UnitMeasure  string
	PackSize     *decimal.Decimal // para conversiones de unidad (opcional)
	MinStock     decimal.Decimal
	ShadeEnabled bool // los lotes de este ítem requieren color (shade)
	IsActive     bool
	StockQty     decimal.Decimal // 3 decimales
	AvgUnitCost  decimal.Decimal // 2 decimales, promedio ponderado
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BelowMinStock indica si el stock actual está por debajo del mínimo configurado.
func (i *Item) BelowMinStock() bool {
	return i.MinStock.GreaterThan(decimal.Zero) && i.StockQty.LessThan(i.MinStock)
}
