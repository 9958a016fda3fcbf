package inventory_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/inventory"
)

func TestPost_NormalizaSignoYCosto(t *testing.T) {
	base := inventory.Snapshot{Qty: dec("20"), AvgCost: dec("8.00")}
	lot := &entity.Lot{ID: 9, ItemID: 1, UnitCost: dec("11.00")}

	tests := []struct {
		name     string
		kind     entity.MovementKind
		qty      string
		explicit *decimal.Decimal
		lot      *entity.Lot
		wantQty  string
		wantCost string
	}{
		{"consumo con signo positivo se fuerza negativo", entity.MovementIssue, "3", nil, nil, "-3.000", "8.00"},
		{"merma con override explícito", entity.MovementWaste, "-2", ptr(dec("9.50")), nil, "-2.000", "9.50"},
		{"salida con override cero usa promedio", entity.MovementAdjustNeg, "1", ptr(decimal.Zero), nil, "-1.000", "8.00"},
		{"compra prefiere costo del lote", entity.MovementPurchase, "5", ptr(dec("99")), lot, "5.000", "11.00"},
		{"compra sin lote usa explícito", entity.MovementPurchase, "-5", ptr(dec("7.25")), nil, "5.000", "7.25"},
		{"devolución prefiere explícito", entity.MovementReturnIn, "1", ptr(dec("6.00")), lot, "1.000", "6.00"},
		{"ajuste positivo usa costo del lote", entity.MovementAdjustPos, "1", nil, lot, "1.000", "11.00"},
		{"ajuste positivo sin costo usa promedio", entity.MovementAdjustPos, "1", nil, nil, "1.000", "8.00"},
		{"conteo negativo es salida", entity.MovementStocktake, "-4", nil, nil, "-4.000", "8.00"},
		{"conteo positivo es entrada", entity.MovementStocktake, "4", ptr(dec("8.00")), nil, "4.000", "8.00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := inventory.Post(base, entity.StockMovement{ItemID: 1, Kind: tc.kind, Qty: dec(tc.qty)}, tc.explicit, tc.lot)
			require.NoError(t, err)
			assert.Equal(t, tc.wantQty, p.Entry.Qty.StringFixed(3))
			assert.Equal(t, tc.wantCost, p.Entry.UnitCost.StringFixed(2))
			assert.True(t, p.Before.Equal(base))
		})
	}
}

func TestPost_CompraSinCosto(t *testing.T) {
	lotSinCosto := &entity.Lot{ID: 1, ItemID: 1, UnitCost: decimal.Zero}
	_, err := inventory.Post(inventory.Snapshot{}, entity.StockMovement{ItemID: 1, Kind: entity.MovementPurchase, Qty: dec("1")}, nil, lotSinCosto)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingCost))
}

func TestPost_Validaciones(t *testing.T) {
	snap := inventory.Snapshot{Qty: dec("1"), AvgCost: dec("1")}

	_, err := inventory.Post(snap, entity.StockMovement{ItemID: 1, Kind: "transfer", Qty: dec("1")}, nil, nil)
	assert.True(t, errors.Is(err, domain.ErrValidation), "tipo desconocido")

	_, err = inventory.Post(snap, entity.StockMovement{ItemID: 1, Kind: entity.MovementIssue, Qty: dec("0.0004")}, nil, nil)
	assert.True(t, errors.Is(err, domain.ErrValidation), "cantidad que redondea a cero")

	_, err = inventory.Post(snap, entity.StockMovement{ItemID: 1, Kind: entity.MovementPurchase, Qty: dec("1")}, ptr(dec("-1")), nil)
	assert.True(t, errors.Is(err, domain.ErrValidation), "costo negativo")

	_, err = inventory.Post(snap, entity.StockMovement{ItemID: 1, Kind: entity.MovementPurchase, Qty: dec("1")}, nil, &entity.Lot{ID: 3, ItemID: 2, UnitCost: dec("1")})
	assert.True(t, errors.Is(err, domain.ErrValidation), "lote de otro ítem")
}

func TestPost_SalidaInsuficiente(t *testing.T) {
	snap := inventory.Snapshot{Qty: dec("1"), AvgCost: dec("4")}
	_, err := inventory.Post(snap, entity.StockMovement{ItemID: 7, Kind: entity.MovementWaste, Qty: dec("2")}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	fields := domain.FieldsOf(err)
	assert.Equal(t, int64(7), fields["item_id"])
	assert.Equal(t, "waste", fields["kind"])
}
