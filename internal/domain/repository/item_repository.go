package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/labstock/internal/domain/entity"
)

// ItemRepository define el puerto de persistencia para materiales (DIP).
// GetByID/GetForUpdate devuelven domain.ErrNotFound si no existe.
type ItemRepository interface {
	Create(ctx context.Context, item *entity.Item) error
	GetByID(ctx context.Context, id int64) (*entity.Item, error)
	GetByCode(ctx context.Context, code string) (*entity.Item, error)
	// GetForUpdate bloquea la fila del ítem (SELECT FOR UPDATE) hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id int64) (*entity.Item, error)
	UpdateSnapshot(ctx context.Context, id int64, stockQty, avgUnitCost decimal.Decimal) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*entity.Item, error)
	ListBelowMinStock(ctx context.Context) ([]*entity.Item, error)
}
