package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, item_id, lot_id, movement_type, qty, unit_cost, total_cost, happened_at,
	order_id, reason, created_by, run_id, voided_at, created_at`

// StockMovementRepo libro de movimientos sobre PostgreSQL.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador del libro.
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var kind string
	err := row.Scan(
		&m.ID, &m.ItemID, &m.LotID, &kind, &m.Qty, &m.UnitCost, &m.TotalCost, &m.HappenedAt,
		&m.OrderID, &m.Reason, &m.CreatedBy, &m.RunID, &m.VoidedAt, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Kind = entity.MovementKind(kind)
	return &m, nil
}

func (r *StockMovementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	var out []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}

// Create guarda el asiento y asigna ID y CreatedAt.
func (r *StockMovementRepo) Create(ctx context.Context, mv *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (item_id, lot_id, movement_type, qty, unit_cost, total_cost, happened_at,
			order_id, reason, created_by, run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query,
		mv.ItemID, mv.LotID, string(mv.Kind), mv.Qty, mv.UnitCost, mv.TotalCost, mv.HappenedAt,
		mv.OrderID, mv.Reason, mv.CreatedBy, mv.RunID,
	).Scan(&mv.ID, &mv.CreatedAt)
	if err != nil {
		return classify("insert stock movement", err)
	}
	return nil
}

// GetByID obtiene un asiento.
func (r *StockMovementRepo) GetByID(ctx context.Context, id int64) (*entity.StockMovement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM stock_movements WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr("get stock movement", "movimiento", id, err)
	}
	return m, nil
}

// Delete borra físicamente el asiento.
func (r *StockMovementRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM stock_movements WHERE id = $1`, id)
	if err != nil {
		return classify("delete stock movement", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("movimiento", id)
	}
	return nil
}

// Void anula los asientos indicados.
func (r *StockMovementRepo) Void(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	tag, err := r.q.Exec(ctx,
		`UPDATE stock_movements SET voided_at = $2 WHERE id = ANY($1) AND voided_at IS NULL`, ids, at)
	if err != nil {
		return classify("void stock movements", err)
	}
	if int(tag.RowsAffected()) != len(ids) {
		return domain.NewError(domain.ErrConflict, "algunos movimientos ya estaban anulados o no existen").
			With("expected", len(ids)).With("voided", tag.RowsAffected())
	}
	return nil
}

// ListByItem libro completo del ítem en orden de ID (incluye anulados).
func (r *StockMovementRepo) ListByItem(ctx context.Context, itemID int64) ([]*entity.StockMovement, error) {
	return r.list(ctx, "list item ledger",
		`SELECT `+movementColumns+` FROM stock_movements WHERE item_id = $1 ORDER BY id`, itemID)
}

// ListByItemPage asientos vigentes del ítem con rango de fechas opcional.
func (r *StockMovementRepo) ListByItemPage(ctx context.Context, itemID int64, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return r.list(ctx, "list item movements", `
		SELECT `+movementColumns+` FROM stock_movements
		WHERE item_id = $1 AND voided_at IS NULL
			AND ($2::timestamptz IS NULL OR happened_at >= $2)
			AND ($3::timestamptz IS NULL OR happened_at <= $3)
		ORDER BY id LIMIT $4 OFFSET $5`, itemID, from, to, limit, offset)
}

// ListByLot asientos vigentes vinculados al lote.
func (r *StockMovementRepo) ListByLot(ctx context.Context, lotID int64) ([]*entity.StockMovement, error) {
	return r.list(ctx, "list lot movements",
		`SELECT `+movementColumns+` FROM stock_movements WHERE lot_id = $1 AND voided_at IS NULL ORDER BY id`, lotID)
}

const lotAllocationFilter = `lot_id = $1 AND movement_type = 'issue' AND reason = '` + entity.ReasonLotAllocation + `' AND voided_at IS NULL`

// FindLotAllocationIssues consumos vigentes de asignación del lote; forUpdate bloquea las filas.
func (r *StockMovementRepo) FindLotAllocationIssues(ctx context.Context, lotID int64, forUpdate bool) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE ` + lotAllocationFilter + ` ORDER BY id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return r.list(ctx, "find lot allocation issues", query, lotID)
}

// ExistsLotAllocationIssues indica si el lote tiene consumos de asignación vigentes.
func (r *StockMovementRepo) ExistsLotAllocationIssues(ctx context.Context, lotID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM stock_movements WHERE `+lotAllocationFilter+`)`, lotID).Scan(&exists)
	if err != nil {
		return false, classify("exists lot allocation issues", err)
	}
	return exists, nil
}

// CostByOrder suma por ítem los consumos vigentes de la orden.
func (r *StockMovementRepo) CostByOrder(ctx context.Context, orderID int64) ([]entity.OrderMaterialCost, error) {
	rows, err := r.q.Query(ctx, `
		SELECT item_id, SUM(ABS(qty)), SUM(ABS(total_cost))
		FROM stock_movements
		WHERE order_id = $1 AND movement_type = 'issue' AND voided_at IS NULL
		GROUP BY item_id ORDER BY item_id`, orderID)
	if err != nil {
		return nil, classify("order material cost", err)
	}
	defer rows.Close()
	out := make([]entity.OrderMaterialCost, 0)
	for rows.Next() {
		c := entity.OrderMaterialCost{OrderID: orderID}
		if err := rows.Scan(&c.ItemID, &c.Qty, &c.TotalCost); err != nil {
			return nil, classify("scan order material cost", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("order material cost", err)
	}
	return out, nil
}
