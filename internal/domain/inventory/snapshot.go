package inventory

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
)

// Snapshot es el estado corriente de un ítem: cantidad en stock y costo promedio.
type Snapshot struct {
	Qty     decimal.Decimal
	AvgCost decimal.Decimal
}

// SnapshotOf toma el snapshot persistido del ítem.
func SnapshotOf(item *entity.Item) Snapshot {
	return Snapshot{Qty: item.StockQty, AvgCost: item.AvgUnitCost}
}

// Equal compara cantidad y costo a la precisión del libro.
func (s Snapshot) Equal(o Snapshot) bool {
	return RoundQty(s.Qty).Equal(RoundQty(o.Qty)) && RoundMoney(s.AvgCost).Equal(RoundMoney(o.AvgCost))
}

// ApplyInbound aplica una entrada (compra, devolución, ajuste positivo, conteo positivo):
// la cantidad sube y el promedio se recalcula ponderado.
func (s Snapshot) ApplyInbound(qtyIn, unitCost decimal.Decimal) Snapshot {
	return Snapshot{
		Qty:     RoundQty(s.Qty.Add(qtyIn)),
		AvgCost: CostCalculator(s.Qty, s.AvgCost, qtyIn, unitCost),
	}
}

// ApplyOutbound aplica una salida (qtyOut negativo). El promedio no cambia mientras quede stock
// y vuelve a cero cuando el stock llega a cero. Falla con ErrInsufficientStock si el stock quedaría negativo.
func (s Snapshot) ApplyOutbound(qtyOut decimal.Decimal) (Snapshot, error) {
	qty := RoundQty(s.Qty.Add(qtyOut))
	if qty.IsNegative() {
		return s, domain.InsufficientStock("la salida dejaría el stock en negativo").
			With("disponible", s.Qty.StringFixed(QtyPlaces)).
			With("solicitado", qtyOut.Abs().StringFixed(QtyPlaces))
	}
	avg := s.AvgCost
	if qty.IsZero() {
		avg = decimal.Zero
	}
	return Snapshot{Qty: qty, AvgCost: avg}, nil
}

// Apply aplica un asiento ya normalizado (cantidad con signo y costo efectivo).
func (s Snapshot) Apply(mv *entity.StockMovement) (Snapshot, error) {
	if IsInbound(mv.Kind, mv.Qty) {
		return s.ApplyInbound(mv.Qty, mv.UnitCost), nil
	}
	return s.ApplyOutbound(mv.Qty)
}

// Replay reconstruye el snapshot desde cero reproduciendo el libro completo del ítem en orden de ID.
// Es la vía de conciliación autorizada: para cualquier secuencia válida coincide con la aplicación incremental.
// Los asientos anulados se incluyen porque su corrección también está en el libro.
func Replay(entries []*entity.StockMovement) (Snapshot, error) {
	ordered := make([]*entity.StockMovement, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	snap := Snapshot{Qty: decimal.Zero, AvgCost: decimal.Zero}
	for _, mv := range ordered {
		next, err := snap.Apply(mv)
		if err != nil {
			var de *domain.Error
			if errors.As(err, &de) {
				de.With("movement_id", mv.ID)
			}
			return snap, err
		}
		snap = next
	}
	return snap, nil
}
