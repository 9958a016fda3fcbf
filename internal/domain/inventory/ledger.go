package inventory

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
)

// IsInbound clasifica el asiento: purchase, return_in, adjust_pos y stocktake no negativo son entradas;
// issue, waste, adjust_neg y stocktake negativo son salidas.
func IsInbound(kind entity.MovementKind, qty decimal.Decimal) bool {
	if kind == entity.MovementStocktake {
		return !qty.IsNegative()
	}
	return !kind.IsOutbound()
}

// Posting resultado de contabilizar un asiento: el asiento normalizado y el snapshot antes/después.
type Posting struct {
	Entry  entity.StockMovement
	Before Snapshot
	After  Snapshot
}

// Post normaliza un asiento y lo aplica sobre el snapshot del ítem, sin persistir nada.
//   - Salidas: cantidad forzada a negativo; costo = override explícito positivo o promedio actual.
//   - purchase: costo del lote si es positivo, si no el explícito; sin ninguno falla con ErrMissingCost.
//   - Otras entradas: explícito positivo, luego costo del lote, luego promedio actual.
//
// explicitCost es el costo indicado por el llamador (nil = no indicado). lot puede ser nil.
func Post(snap Snapshot, mv entity.StockMovement, explicitCost *decimal.Decimal, lot *entity.Lot) (Posting, error) {
	if !mv.Kind.Valid() {
		return Posting{}, domain.Validation("tipo de movimiento desconocido: %q", mv.Kind)
	}
	if lot != nil && lot.ItemID != mv.ItemID {
		return Posting{}, domain.Validation("el lote no pertenece al ítem del movimiento").
			With("lot_id", lot.ID).With("item_id", mv.ItemID)
	}
	if explicitCost != nil && explicitCost.IsNegative() {
		return Posting{}, domain.Validation("el costo unitario no puede ser negativo")
	}

	qty := RoundQty(mv.Qty)
	if qty.IsZero() {
		return Posting{}, domain.Validation("la cantidad del movimiento no puede ser cero").With("item_id", mv.ItemID)
	}
	switch {
	case mv.Kind.IsOutbound():
		qty = qty.Abs().Neg()
	case mv.Kind != entity.MovementStocktake:
		qty = qty.Abs()
	}
	mv.Qty = qty

	cost, err := effectiveCost(snap, mv, explicitCost, lot)
	if err != nil {
		return Posting{}, err
	}
	mv.UnitCost = RoundMoney(cost)
	mv.TotalCost = RoundMoney(mv.Qty.Mul(mv.UnitCost))

	after, err := snap.Apply(&mv)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			de.With("item_id", mv.ItemID).With("kind", string(mv.Kind))
		}
		return Posting{}, err
	}
	return Posting{Entry: mv, Before: snap, After: after}, nil
}

func effectiveCost(snap Snapshot, mv entity.StockMovement, explicit *decimal.Decimal, lot *entity.Lot) (decimal.Decimal, error) {
	lotCostOK := lot != nil && lot.UnitCost.IsPositive()
	explicitOK := explicit != nil && explicit.IsPositive()

	switch {
	case mv.Kind == entity.MovementPurchase:
		if lotCostOK {
			return lot.UnitCost, nil
		}
		if explicit != nil {
			return *explicit, nil
		}
		return decimal.Zero, domain.MissingCost("la compra requiere costo unitario (del lote o explícito)").
			With("item_id", mv.ItemID)
	case !IsInbound(mv.Kind, mv.Qty):
		if explicitOK {
			return *explicit, nil
		}
		return snap.AvgCost, nil
	default:
		if explicitOK {
			return *explicit, nil
		}
		if lotCostOK {
			return lot.UnitCost, nil
		}
		return snap.AvgCost, nil
	}
}
