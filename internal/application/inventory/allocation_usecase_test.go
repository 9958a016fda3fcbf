package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
)

func TestAllocate_CorrigeUltimaFila(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "RES-A", false)
	f.stage(t, it.ID, "layering", false)
	lot := f.januaryLot(t, it.ID, "7.000", "10.00", "")
	f.done(101, "layering", "1", "", 3)
	f.done(102, "layering", "1", "", 10)
	f.done(103, "layering", "1", "", 31)
	f.done(104, "layering", "1", "", 1)
	f.store.AddCompletion(entity.StageCompletion{OrderID: 105, StageKey: "glaze", UnitCount: dec("4"), DoneDate: *date(2025, 1, 5)})

	res, err := f.alloc.Allocate(ctx, lot.ID, "ana")
	require.NoError(t, err)

	assert.Equal(t, "layering", res.StageKey)
	assert.Equal(t, 4, res.OrdersCount)
	assert.Equal(t, "1.750", res.PerUnitAvg.StringFixed(3))
	assert.Equal(t, []string{"1.750", "1.750", "1.750", "1.750"}, rowQtys(res.Rows))
	assert.True(t, res.AllocatedSum.Equal(dec("7")))
	assert.NotEmpty(t, res.RunID)
	assert.Len(t, res.IssueIDs(), 4)

	got, err := f.catalog.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.True(t, got.Allocated)
	assert.Equal(t, fixedNow, *got.AllocatedAt)

	item, err := f.catalog.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.True(t, item.StockQty.IsZero())
	assert.True(t, item.AvgUnitCost.IsZero())

	d := f.store.Dump()
	assert.Len(t, d.Issues, 4)
	for _, mv := range d.Movements[1:] {
		assert.Equal(t, entity.MovementIssue, mv.Kind)
		assert.Equal(t, entity.ReasonLotAllocation, mv.Reason)
		assert.Equal(t, "ana", mv.CreatedBy)
		assert.Equal(t, *date(2025, 1, 31), mv.HappenedAt)
		assert.Equal(t, "10.00", mv.UnitCost.StringFixed(2))
		assert.Equal(t, res.RunID, mv.RunID)
	}
}

func TestAllocate_RepartoNoExacto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "RES-B", false)
	f.stage(t, it.ID, "layering", false)
	lot := f.januaryLot(t, it.ID, "7.000", "10.00", "")
	f.done(1, "layering", "1", "", 2)
	f.done(2, "layering", "1", "", 3)
	f.done(3, "layering", "1", "", 4)

	res, err := f.alloc.Allocate(ctx, lot.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "2.333", res.PerUnitAvg.StringFixed(3))
	assert.Equal(t, []string{"2.333", "2.333", "2.334"}, rowQtys(res.Rows))
	assert.Equal(t, "23.34", res.Rows[2].Cost.StringFixed(2))

	costs, err := f.ledger.OrderMaterialCost(ctx, 3)
	require.NoError(t, err)
	require.Len(t, costs, 1)
	assert.Equal(t, "2.334", costs[0].Qty.StringFixed(3))
	assert.Equal(t, "23.34", costs[0].TotalCost.StringFixed(2))
}

func TestAllocate_DosVecesFalla(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "RES-C", false)
	f.stage(t, it.ID, "layering", false)
	lot := f.januaryLot(t, it.ID, "10", "5", "")
	f.done(1, "layering", "2", "", 5)
	f.done(2, "layering", "3", "", 6)
	f.done(3, "layering", "5", "", 7)

	_, err := f.alloc.Allocate(ctx, lot.ID, "")
	require.NoError(t, err)
	before := f.store.Dump()

	_, err = f.alloc.Allocate(ctx, lot.ID, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, before, f.store.Dump())
}

func TestAllocate_RollbackYReasignar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "RES-D", false)
	f.stage(t, it.ID, "layering", false)
	lot := f.januaryLot(t, it.ID, "7", "10", "")
	f.done(1, "layering", "1", "", 5)
	f.done(2, "layering", "1", "", 6)
	f.done(3, "layering", "1", "", 7)

	first, err := f.alloc.Allocate(ctx, lot.ID, "")
	require.NoError(t, err)

	rb, err := f.alloc.Rollback(ctx, lot.ID, "")
	require.NoError(t, err)
	assert.True(t, rb.RolledBack)
	assert.Equal(t, "7.000", rb.RolledBackQty.StringFixed(3))
	assert.Equal(t, 3, rb.VoidedEntries)
	assert.Equal(t, 3, rb.DeletedIssues)
	assert.Len(t, rb.CorrectiveIDs, 3)

	got, err := f.catalog.GetLot(ctx, lot.ID)
	require.NoError(t, err)
	assert.False(t, got.Allocated)
	assert.Nil(t, got.AllocatedAt)

	item, err := f.catalog.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "7.000", item.StockQty.StringFixed(3))
	assert.Equal(t, "10.00", item.AvgUnitCost.StringFixed(2))

	costs, err := f.ledger.OrderMaterialCost(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, costs)

	second, err := f.alloc.Allocate(ctx, lot.ID, "")
	require.NoError(t, err)
	assert.Equal(t, rowQtys(first.Rows), rowQtys(second.Rows))
	assert.NotEqual(t, first.RunID, second.RunID)

	rec, err := f.ledger.RecomputeItemSnapshot(ctx, it.ID)
	require.NoError(t, err)
	assert.False(t, rec.Drift)
	assert.True(t, rec.After.Qty.IsZero())
}

func TestRollback_SinAsignacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "RES-E", false)
	lot := f.januaryLot(t, it.ID, "3", "1", "")
	before := f.store.Dump()

	rb, err := f.alloc.Rollback(ctx, lot.ID, "")
	require.NoError(t, err)
	assert.False(t, rb.RolledBack)
	assert.NotEmpty(t, rb.Message)
	assert.Equal(t, before, f.store.Dump())
}

func TestAllocate_Precondiciones(t *testing.T) {
	ctx := context.Background()

	t.Run("sin ventana de uso", func(t *testing.T) {
		f := newFixture(t)
		it := f.item(t, "P-1", false)
		f.stage(t, it.ID, "layering", false)
		lot := f.januaryLot(t, it.ID, "3", "1", "")
		_, err := f.catalog.UpdateLotUsageWindow(ctx, lot.ID, date(2025, 1, 1), nil)
		require.NoError(t, err)
		_, err = f.alloc.Allocate(ctx, lot.ID, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("sin clave de etapa", func(t *testing.T) {
		f := newFixture(t)
		it := f.item(t, "P-2", false)
		lot := f.januaryLot(t, it.ID, "3", "1", "")
		_, err := f.alloc.Allocate(ctx, lot.ID, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("varias claves de etapa", func(t *testing.T) {
		f := newFixture(t)
		it := f.item(t, "P-3", false)
		f.stage(t, it.ID, "layering", false)
		f.stage(t, it.ID, "glaze", false)
		lot := f.januaryLot(t, it.ID, "3", "1", "")
		_, err := f.alloc.Allocate(ctx, lot.ID, "")
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, []string{"glaze", "layering"}, domain.FieldsOf(err)["stage_keys"])
	})

	t.Run("sensible al color sin shade", func(t *testing.T) {
		f := newFixture(t)
		it := f.item(t, "P-4", false)
		f.stage(t, it.ID, "layering", true)
		lot := f.januaryLot(t, it.ID, "3", "1", "")
		f.done(1, "layering", "1", "A2", 5)
		_, err := f.alloc.Allocate(ctx, lot.ID, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("sin órdenes en la ventana", func(t *testing.T) {
		f := newFixture(t)
		it := f.item(t, "P-5", false)
		f.stage(t, it.ID, "layering", false)
		lot := f.januaryLot(t, it.ID, "3", "1", "")
		f.store.AddCompletion(entity.StageCompletion{OrderID: 1, StageKey: "layering", UnitCount: dec("1"), DoneDate: *date(2025, 2, 1)})
		before := f.store.Dump()
		_, err := f.alloc.Allocate(ctx, lot.ID, "")
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, before, f.store.Dump())
	})

	t.Run("unidades en cero", func(t *testing.T) {
		f := newFixture(t)
		it := f.item(t, "P-6", false)
		f.stage(t, it.ID, "layering", false)
		lot := f.januaryLot(t, it.ID, "3", "1", "")
		f.done(1, "layering", "0", "", 5)
		_, err := f.alloc.Allocate(ctx, lot.ID, "")
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, lot.ID, domain.FieldsOf(err)["lot_id"])
	})

	t.Run("lote inexistente", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.alloc.Allocate(ctx, 77, "")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestAllocate_StockInsuficienteNoDejaRastro(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "RES-F", false)
	f.stage(t, it.ID, "layering", false)
	lot := f.januaryLot(t, it.ID, "10", "4", "")
	f.done(1, "layering", "1", "", 5)
	f.done(2, "layering", "3", "", 6)
	// el stock del ítem ya se consumió en parte fuera de la asignación
	_, err := f.ledger.ApplyMovement(ctx, inventoryIssue(it.ID, "6"))
	require.NoError(t, err)
	before := f.store.Dump()

	_, err = f.alloc.Allocate(ctx, lot.ID, "")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(2), domain.FieldsOf(err)["order_id"])
	assert.Equal(t, before, f.store.Dump())
}

func TestAllocate_FiltraPorColor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "RES-G", true)
	f.stage(t, it.ID, "layering", true)
	lot := f.januaryLot(t, it.ID, "6", "2", " a2 ")
	f.done(1, "layering", "1", "a2", 5)
	f.done(2, "layering", "5", "A3", 6)
	f.done(3, "layering", "2", "a2", 7)

	res, err := f.alloc.Allocate(ctx, lot.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "a2", res.Shade)
	assert.Equal(t, 2, res.OrdersCount)
	assert.Equal(t, []string{"2.000", "4.000"}, rowQtys(res.Rows))
	assert.Equal(t, int64(3), res.Rows[1].OrderID)
}

func TestSimulate_SinEfectos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "SIM-A", false)
	f.stage(t, it.ID, "layering", false)
	lot := f.januaryLot(t, it.ID, "7", "10", "")
	f.done(1, "layering", "1", "", 5)
	f.done(2, "layering", "1", "", 6)
	f.done(3, "layering", "1", "", 7)
	before := f.store.Dump()

	for i := 0; i < 3; i++ {
		sim, err := f.alloc.Simulate(ctx, lot.ID)
		require.NoError(t, err)
		assert.True(t, sim.Balanced)
		assert.False(t, sim.AlreadyAllocated)
		assert.Equal(t, []string{"2.333", "2.333", "2.334"}, rowQtys(sim.Rows))
		assert.Equal(t, "23.33", sim.Rows[0].Cost.StringFixed(2))
		assert.Equal(t, *date(2025, 1, 31), sim.Rows[0].HappenedAt)
		assert.Zero(t, sim.Rows[0].MovementID)
		assert.Empty(t, sim.Warnings)
	}
	assert.Equal(t, before, f.store.Dump())

	_, err := f.alloc.Allocate(ctx, lot.ID, "")
	require.NoError(t, err)
	allocated := f.store.Dump()
	sim, err := f.alloc.Simulate(ctx, lot.ID)
	require.NoError(t, err)
	assert.True(t, sim.AlreadyAllocated)
	assert.NotEmpty(t, sim.Warnings)
	assert.Equal(t, allocated, f.store.Dump())
}

func TestSimulate_VentanaVaciaAdvierte(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "SIM-B", false)
	f.stage(t, it.ID, "layering", false)
	lot := f.januaryLot(t, it.ID, "7", "10", "")

	sim, err := f.alloc.Simulate(ctx, lot.ID)
	require.NoError(t, err)
	assert.Zero(t, sim.OrdersCount)
	assert.Empty(t, sim.Rows)
	assert.Len(t, sim.Warnings, 1)

	f.done(1, "layering", "0", "", 5)
	_, err = f.alloc.Simulate(ctx, lot.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAllocate_LoteSinCostoSeRechaza(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "RES-Z", false)
	f.stage(t, it.ID, "layering", false)
	created, err := f.catalog.CreateLot(ctx, inventory.LotInput{
		ItemID:       it.ID,
		LotCode:      "L-0",
		StartUseDate: date(2025, 1, 1),
		EndUseDate:   date(2025, 1, 31),
		QtyIn:        dec("4"),
		UnitCost:     dec("0"),
	})
	require.NoError(t, err)
	_, err = f.ledger.ApplyMovement(ctx, inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementPurchase, Qty: dec("4"), UnitCost: decPtr("5")})
	require.NoError(t, err)
	f.done(1, "layering", "1", "", 5)

	sim, err := f.alloc.Simulate(ctx, created.Lot.ID)
	require.NoError(t, err)
	assert.Contains(t, sim.Warnings, "el lote no tiene costo unitario; asignar fallará")

	before := f.store.Dump()
	_, err = f.alloc.Allocate(ctx, created.Lot.ID, "")
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, created.Lot.ID, domain.FieldsOf(err)["lot_id"])
	assert.Equal(t, before, f.store.Dump())
}

func TestAllocate_CostoDeFilaIgualAlAsiento(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "RES-Y", false)
	f.stage(t, it.ID, "layering", false)
	lot := f.januaryLot(t, it.ID, "7.000", "3.33", "")
	f.done(1, "layering", "1", "", 2)
	f.done(2, "layering", "2", "", 3)

	res, err := f.alloc.Allocate(ctx, lot.ID, "")
	require.NoError(t, err)
	byID := map[int64]entity.StockMovement{}
	for _, mv := range f.store.Dump().Movements {
		byID[mv.ID] = mv
	}
	for _, row := range res.Rows {
		mv := byID[row.MovementID]
		assert.True(t, row.Cost.Equal(mv.TotalCost.Abs()), "orden %d", row.OrderID)
	}
}

func TestAllocate_ColorDeEtapaSinNormalizar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "RES-X", true)
	f.stage(t, it.ID, "layering", true)
	lot := f.januaryLot(t, it.ID, "4", "2", "A2")
	f.done(1, "layering", "1", "Ａ２ ", 5)
	f.done(2, "layering", "1", "A۲", 6)
	f.done(3, "layering", "1", "A3", 7)

	res, err := f.alloc.Allocate(ctx, lot.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, res.OrdersCount)
	assert.Equal(t, []string{"2.000", "2.000"}, rowQtys(res.Rows))
}
