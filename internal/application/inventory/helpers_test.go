package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/infrastructure/memory"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store   *memory.Store
	ledger  *inventory.LedgerUseCase
	catalog *inventory.CatalogUseCase
	alloc   *inventory.AllocationUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	opts := inventory.Options{Clock: func() time.Time { return fixedNow }}
	return &fixture{
		store:   store,
		ledger:  inventory.NewLedgerUseCase(store, opts),
		catalog: inventory.NewCatalogUseCase(store, opts),
		alloc:   inventory.NewAllocationUseCase(store, opts),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func (f *fixture) item(t *testing.T, code string, shadeEnabled bool) *entity.Item {
	t.Helper()
	it, err := f.catalog.CreateItem(context.Background(), inventory.ItemInput{
		Code:         code,
		Name:         "Material " + code,
		UnitMeasure:  "g",
		ShadeEnabled: shadeEnabled,
	})
	require.NoError(t, err)
	return it
}

func (f *fixture) stage(t *testing.T, itemID int64, key string, shadeSensitive bool) {
	t.Helper()
	_, _, err := f.catalog.CreateStageMapping(context.Background(), inventory.StageMappingInput{
		StageKey: key, ItemID: itemID, ShadeSensitive: shadeSensitive,
	})
	require.NoError(t, err)
}

// januaryLot lote comprado y registrado en el libro, con ventana de uso de enero 2025.
func (f *fixture) januaryLot(t *testing.T, itemID int64, qty, cost, shadeCode string) *entity.Lot {
	t.Helper()
	res, err := f.catalog.CreateLot(context.Background(), inventory.LotInput{
		ItemID:         itemID,
		LotCode:        "L-" + qty,
		ShadeCode:      shadeCode,
		PurchaseDate:   date(2024, 12, 20),
		StartUseDate:   date(2025, 1, 1),
		EndUseDate:     date(2025, 1, 31),
		QtyIn:          dec(qty),
		UnitCost:       dec(cost),
		RecordPurchase: true,
	})
	require.NoError(t, err)
	return res.Lot
}

func (f *fixture) done(orderID int64, key string, units string, shadeCode string, day int) {
	f.store.AddCompletion(entity.StageCompletion{
		OrderID:   orderID,
		StageKey:  key,
		UnitCount: dec(units),
		Shade:     shadeCode,
		DoneDate:  time.Date(2025, 1, day, 15, 0, 0, 0, time.UTC),
	})
}

func rowQtys(rows []inventory.AllocationLine) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Qty.StringFixed(3))
	}
	return out
}

func inventoryIssue(itemID int64, qty string) inventory.MovementInput {
	return inventory.MovementInput{ItemID: itemID, Kind: entity.MovementIssue, Qty: dec(qty)}
}
