package repository

import (
	"context"
	"time"

	"github.com/jhoicas/labstock/internal/domain/entity"
)

// LotRepository define el puerto de persistencia para lotes de compra.
type LotRepository interface {
	Create(ctx context.Context, lot *entity.Lot) error
	// Update guarda los datos administrativos y la ventana de uso (no toca el candado de asignación).
	Update(ctx context.Context, lot *entity.Lot) error
	GetByID(ctx context.Context, id int64) (*entity.Lot, error)
	// GetForUpdate bloquea la fila del lote (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id int64) (*entity.Lot, error)
	ListByItemAndShade(ctx context.Context, itemID int64, shade string) ([]*entity.Lot, error)
	SetAllocated(ctx context.Context, id int64, allocated bool, at *time.Time) error
}
