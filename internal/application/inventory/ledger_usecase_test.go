package inventory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
)

func TestApplyMovement_PromedioPonderado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "ZR-01", false)

	_, err := f.ledger.ApplyMovement(ctx, inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementPurchase, Qty: dec("100"), UnitCost: decPtr("10.00")})
	require.NoError(t, err)
	res, err := f.ledger.ApplyMovement(ctx, inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementPurchase, Qty: dec("50"), UnitCost: decPtr("16.00")})
	require.NoError(t, err)
	assert.Equal(t, "150.000", res.After.Qty.StringFixed(3))
	assert.Equal(t, "12.00", res.After.AvgCost.StringFixed(2))

	res, err = f.ledger.ApplyMovement(ctx, inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementIssue, Qty: dec("-30")})
	require.NoError(t, err)
	assert.Equal(t, "120.000", res.After.Qty.StringFixed(3))
	assert.Equal(t, "12.00", res.After.AvgCost.StringFixed(2))
	assert.Equal(t, "12.00", res.Entry.UnitCost.StringFixed(2))
	assert.Equal(t, "system", res.Entry.CreatedBy)
	assert.Equal(t, fixedNow, res.Entry.HappenedAt)

	got, err := f.catalog.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "120.000", got.StockQty.StringFixed(3))
	assert.Equal(t, "12.00", got.AvgUnitCost.StringFixed(2))
}

func TestApplyMovement_SalidaPositivaSeNormaliza(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "ZR-02", false)
	_, err := f.ledger.ApplyMovement(ctx, inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementPurchase, Qty: dec("10"), UnitCost: decPtr("5")})
	require.NoError(t, err)

	res, err := f.ledger.ApplyMovement(ctx, inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementWaste, Qty: dec("4")})
	require.NoError(t, err)
	assert.True(t, res.Entry.Qty.IsNegative())
	assert.Equal(t, "6.000", res.After.Qty.StringFixed(3))
}

func TestApplyMovement_StockInsuficienteEsAtomico(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "ZR-03", false)
	_, err := f.ledger.ApplyMovement(ctx, inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementPurchase, Qty: dec("5"), UnitCost: decPtr("3")})
	require.NoError(t, err)
	before := f.store.Dump()

	_, err = f.ledger.ApplyMovement(ctx, inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementIssue, Qty: dec("-5.001")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, "5.000", domain.FieldsOf(err)["disponible"])
	assert.Equal(t, before, f.store.Dump())
}

func TestApplyMovement_CompraSinCosto(t *testing.T) {
	f := newFixture(t)
	it := f.item(t, "ZR-04", false)
	_, err := f.ledger.ApplyMovement(context.Background(), inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementPurchase, Qty: dec("5")})
	assert.ErrorIs(t, err, domain.ErrMissingCost)
}

func TestApplyMovement_ItemInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.ApplyMovement(context.Background(), inventory.MovementInput{ItemID: 99, Kind: entity.MovementAdjustPos, Qty: dec("1")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApplyMovement_Concurrente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "ZR-05", false)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.ApplyMovement(ctx, inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementPurchase, Qty: dec("1.5"), UnitCost: decPtr("2")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := f.catalog.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.000", got.StockQty.StringFixed(3))
	assert.Equal(t, "2.00", got.AvgUnitCost.StringFixed(2))
}

func TestRecomputeItemSnapshot_SinDeriva(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "ZR-06", false)
	inputs := []inventory.MovementInput{
		{ItemID: it.ID, Kind: entity.MovementPurchase, Qty: dec("3"), UnitCost: decPtr("7.33")},
		{ItemID: it.ID, Kind: entity.MovementIssue, Qty: dec("1.25")},
		{ItemID: it.ID, Kind: entity.MovementReturnIn, Qty: dec("0.5"), UnitCost: decPtr("9.99")},
		{ItemID: it.ID, Kind: entity.MovementStocktake, Qty: dec("-0.75")},
		{ItemID: it.ID, Kind: entity.MovementAdjustPos, Qty: dec("2")},
	}
	for _, in := range inputs {
		_, err := f.ledger.ApplyMovement(ctx, in)
		require.NoError(t, err)
	}

	res, err := f.ledger.RecomputeItemSnapshot(ctx, it.ID)
	require.NoError(t, err)
	assert.False(t, res.Drift)
	assert.Equal(t, 5, res.Entries)
	assert.True(t, res.Before.Equal(res.After))
}

func TestDeleteMovement_RecalculaSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "ZR-07", false)
	_, err := f.ledger.ApplyMovement(ctx, inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementPurchase, Qty: dec("10"), UnitCost: decPtr("10")})
	require.NoError(t, err)
	second, err := f.ledger.ApplyMovement(ctx, inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementPurchase, Qty: dec("10"), UnitCost: decPtr("20")})
	require.NoError(t, err)
	assert.Equal(t, "15.00", second.After.AvgCost.StringFixed(2))

	res, err := f.ledger.DeleteMovement(ctx, second.Entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.000", res.After.Qty.StringFixed(3))
	assert.Equal(t, "10.00", res.After.AvgCost.StringFixed(2))

	movs, err := f.ledger.ListItemMovements(ctx, it.ID, inventory.MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, movs, 1)
}

func TestDeleteMovement_ReproduccionNegativaNoBorra(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "ZR-08", false)
	purchase, err := f.ledger.ApplyMovement(ctx, inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementPurchase, Qty: dec("10"), UnitCost: decPtr("10")})
	require.NoError(t, err)
	_, err = f.ledger.ApplyMovement(ctx, inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementIssue, Qty: dec("5")})
	require.NoError(t, err)
	before := f.store.Dump()

	_, err = f.ledger.DeleteMovement(ctx, purchase.Entry.ID)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, before, f.store.Dump())
}

func TestDeleteMovement_NoExiste(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.DeleteMovement(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListItemMovements_RangoDeFechas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "ZR-09", false)
	for _, d := range []int{5, 15, 25} {
		_, err := f.ledger.ApplyMovement(ctx, inventory.MovementInput{
			ItemID: it.ID, Kind: entity.MovementAdjustPos, Qty: dec("1"), UnitCost: decPtr("1"), HappenedAt: *date(2025, 1, d),
		})
		require.NoError(t, err)
	}
	movs, err := f.ledger.ListItemMovements(ctx, it.ID, inventory.MovementFilter{From: date(2025, 1, 10), To: date(2025, 1, 20)})
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, *date(2025, 1, 15), movs[0].HappenedAt)

	_, err = f.ledger.ListItemMovements(ctx, 999, inventory.MovementFilter{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteMovement_AsientosDeAsignacionNoSeBorran(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "ZR-10", false)
	f.stage(t, it.ID, "milling", false)
	lot := f.januaryLot(t, it.ID, "4", "10.00", "")
	f.done(1, "milling", "1", "", 10)

	alloc, err := f.alloc.Allocate(ctx, lot.ID, "")
	require.NoError(t, err)
	liveIssue := alloc.Rows[0].MovementID

	_, err = f.ledger.DeleteMovement(ctx, liveIssue)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.alloc.Rollback(ctx, lot.ID, "")
	require.NoError(t, err)
	before := f.store.Dump()

	var voided, corrective int64
	for _, mv := range before.Movements {
		switch {
		case mv.Voided():
			voided = mv.ID
		case mv.Reason == entity.ReasonRollbackLotAllocation:
			corrective = mv.ID
		}
	}
	require.NotZero(t, voided)
	require.NotZero(t, corrective)

	for _, id := range []int64{voided, corrective} {
		_, err = f.ledger.DeleteMovement(ctx, id)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
	assert.Equal(t, before, f.store.Dump())

	item, err := f.catalog.GetItem(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "4.000", item.StockQty.StringFixed(3))
}

func TestApplyMovement_RechazaMotivosDelMotor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	it := f.item(t, "ZR-11", false)
	_, err := f.ledger.ApplyMovement(ctx, inventory.MovementInput{ItemID: it.ID, Kind: entity.MovementPurchase, Qty: dec("10"), UnitCost: decPtr("2")})
	require.NoError(t, err)

	for _, in := range []inventory.MovementInput{
		{ItemID: it.ID, Kind: entity.MovementIssue, Qty: dec("1"), Reason: entity.ReasonLotAllocation},
		{ItemID: it.ID, Kind: entity.MovementAdjustPos, Qty: dec("1"), Reason: entity.ReasonRollbackLotAllocation},
		{ItemID: it.ID, Kind: entity.MovementIssue, Qty: dec("1"), RunID: "3f0c2a4e-run"},
	} {
		_, err := f.ledger.ApplyMovement(ctx, in)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}

	movs, err := f.ledger.ListItemMovements(ctx, it.ID, inventory.MovementFilter{})
	require.NoError(t, err)
	assert.Len(t, movs, 1)
}
