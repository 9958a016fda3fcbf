package repository

import (
	"context"
	"time"

	"github.com/jhoicas/labstock/internal/domain/entity"
)

// StockMovementRepository define el puerto del libro de movimientos.
// Los listados se devuelven en orden ascendente de ID.
type StockMovementRepository interface {
	// Create persiste el asiento y asigna ID y CreatedAt.
	Create(ctx context.Context, mv *entity.StockMovement) error
	GetByID(ctx context.Context, id int64) (*entity.StockMovement, error)
	// Delete borra físicamente un asiento (solo limpieza administrativa; el llamador recalcula el snapshot).
	Delete(ctx context.Context, id int64) error
	// Void anula asientos sin borrarlos del libro.
	Void(ctx context.Context, ids []int64, at time.Time) error
	// ListByItem devuelve el libro completo del ítem, incluidos los anulados.
	ListByItem(ctx context.Context, itemID int64) ([]*entity.StockMovement, error)
	ListByItemPage(ctx context.Context, itemID int64, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
	ListByLot(ctx context.Context, lotID int64) ([]*entity.StockMovement, error)
	// FindLotAllocationIssues devuelve los consumos vigentes (no anulados) con motivo lot_allocation del lote.
	// forUpdate bloquea las filas encontradas.
	FindLotAllocationIssues(ctx context.Context, lotID int64, forUpdate bool) ([]*entity.StockMovement, error)
	ExistsLotAllocationIssues(ctx context.Context, lotID int64) (bool, error)
	// CostByOrder suma los consumos vigentes de una orden por ítem.
	CostByOrder(ctx context.Context, orderID int64) ([]entity.OrderMaterialCost, error)
}
