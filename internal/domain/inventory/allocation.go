package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
)

// AllocationRow cantidad del lote asignada a una orden.
type AllocationRow struct {
	OrderID   int64
	UnitCount decimal.Decimal
	Shade     string
	Qty       decimal.Decimal // 3 decimales
	Cost      decimal.Decimal // roundMoney(Qty * costo unitario del lote)
}

// AllocationPlan reparto proporcional de un lote entre las órdenes que lo consumieron.
type AllocationPlan struct {
	LotQty       decimal.Decimal
	UnitCost     decimal.Decimal
	TotalUnits   decimal.Decimal
	PerUnitAvg   decimal.Decimal
	AllocatedSum decimal.Decimal
	Rows         []AllocationRow
	Skipped      int // filas con cantidad corregida <= 0
}

// Balanced indica si la suma asignada es exactamente la cantidad del lote.
func (p AllocationPlan) Balanced() bool {
	return p.AllocatedSum.Equal(p.LotQty)
}

// PlanAllocation reparte qtyIn entre las etapas terminadas, en el orden recibido:
// promedio por unidad = roundQty(qtyIn / totalUnidades), cada fila roundQty(promedio * unidades)
// y la última fila absorbe la diferencia de redondeo para que la suma sea exactamente qtyIn.
// Filas con cantidad <= 0 se omiten.
func PlanAllocation(qtyIn, unitCost decimal.Decimal, completions []entity.StageCompletion) (AllocationPlan, error) {
	lotQty := RoundQty(qtyIn)
	plan := AllocationPlan{
		LotQty:       lotQty,
		UnitCost:     RoundMoney(unitCost),
		TotalUnits:   decimal.Zero,
		PerUnitAvg:   decimal.Zero,
		AllocatedSum: decimal.Zero,
	}
	if len(completions) == 0 {
		return plan, domain.Validation("no hay órdenes relacionadas en la ventana de uso del lote")
	}
	for _, c := range completions {
		plan.TotalUnits = plan.TotalUnits.Add(c.UnitCount)
	}
	plan.TotalUnits = RoundQty(plan.TotalUnits)
	if !plan.TotalUnits.IsPositive() {
		return plan, domain.Validation("la suma de unidades es cero; no es posible asignar").
			With("orders_count", len(completions))
	}

	plan.PerUnitAvg = RoundQty(lotQty.Div(plan.TotalUnits))

	last := len(completions) - 1
	for idx, c := range completions {
		qty := RoundQty(plan.PerUnitAvg.Mul(c.UnitCount))
		if idx == last {
			qty = RoundQty(lotQty.Sub(plan.AllocatedSum))
		}
		if !qty.IsPositive() {
			plan.Skipped++
			continue
		}
		plan.Rows = append(plan.Rows, AllocationRow{
			OrderID:   c.OrderID,
			UnitCount: c.UnitCount,
			Shade:     c.Shade,
			Qty:       qty,
			Cost:      RoundMoney(qty.Mul(plan.UnitCost)),
		})
		plan.AllocatedSum = RoundQty(plan.AllocatedSum.Add(qty))
	}
	return plan, nil
}
