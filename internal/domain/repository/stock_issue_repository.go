package repository

import (
	"context"

	"github.com/jhoicas/labstock/internal/domain/entity"
)

// StockIssueRepository define el puerto para los registros de entrega a órdenes (auditoría).
type StockIssueRepository interface {
	// Create persiste el registro junto con sus vínculos a movimientos (MovementIDs).
	Create(ctx context.Context, issue *entity.StockIssue) error
	ListByMovements(ctx context.Context, movementIDs []int64) ([]*entity.StockIssue, error)
	ListByOrder(ctx context.Context, orderID int64) ([]*entity.StockIssue, error)
	Delete(ctx context.Context, ids []int64) error
	// UnlinkMovement quita el vínculo de un movimiento con cualquier registro.
	UnlinkMovement(ctx context.Context, movementID int64) error
}
