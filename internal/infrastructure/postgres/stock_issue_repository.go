package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
)

var _ repository.StockIssueRepository = (*StockIssueRepo)(nil)

const issueColumns = `si.id, si.order_id, si.item_id, si.lot_id, si.qty_issued, si.happened_at, si.comment, si.run_id, si.created_at`

// StockIssueRepo registros de entrega a órdenes y sus vínculos con movimientos (stock_issue_moves).
type StockIssueRepo struct {
	q Querier
}

// NewStockIssueRepository construye el adaptador.
func NewStockIssueRepository(q Querier) *StockIssueRepo {
	return &StockIssueRepo{q: q}
}

// Create persiste el registro y sus vínculos.
func (r *StockIssueRepo) Create(ctx context.Context, issue *entity.StockIssue) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO stock_issues (order_id, item_id, lot_id, qty_issued, happened_at, comment, run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		issue.OrderID, issue.ItemID, issue.LotID, issue.QtyIssued, issue.HappenedAt, issue.Comment, issue.RunID,
	).Scan(&issue.ID, &issue.CreatedAt)
	if err != nil {
		return classify("insert stock issue", err)
	}
	for _, mid := range issue.MovementIDs {
		if _, err := r.q.Exec(ctx,
			`INSERT INTO stock_issue_moves (issue_id, movement_id) VALUES ($1, $2)`, issue.ID, mid); err != nil {
			return classify("link stock issue", err)
		}
	}
	return nil
}

func (r *StockIssueRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockIssue, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	var out []*entity.StockIssue
	byID := make(map[int64]*entity.StockIssue)
	for rows.Next() {
		var si entity.StockIssue
		if err := rows.Scan(&si.ID, &si.OrderID, &si.ItemID, &si.LotID, &si.QtyIssued, &si.HappenedAt,
			&si.Comment, &si.RunID, &si.CreatedAt); err != nil {
			rows.Close()
			return nil, classify(op, err)
		}
		out = append(out, &si)
		byID[si.ID] = &si
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	if len(out) == 0 {
		return out, nil
	}
	return out, r.attachMoves(ctx, byID)
}

func (r *StockIssueRepo) attachMoves(ctx context.Context, byID map[int64]*entity.StockIssue) error {
	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	rows, err := r.q.Query(ctx,
		`SELECT issue_id, movement_id FROM stock_issue_moves WHERE issue_id = ANY($1) ORDER BY movement_id`, ids)
	if err != nil {
		return classify("list stock issue moves", err)
	}
	var issueID, movementID int64
	_, err = pgx.ForEachRow(rows, []any{&issueID, &movementID}, func() error {
		if si, ok := byID[issueID]; ok {
			si.MovementIDs = append(si.MovementIDs, movementID)
		}
		return nil
	})
	if err != nil {
		return classify("list stock issue moves", err)
	}
	return nil
}

// ListByMovements registros vinculados a cualquiera de los movimientos.
func (r *StockIssueRepo) ListByMovements(ctx context.Context, movementIDs []int64) ([]*entity.StockIssue, error) {
	if len(movementIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, "list stock issues by movements", `
		SELECT `+issueColumns+` FROM stock_issues si
		WHERE EXISTS (SELECT 1 FROM stock_issue_moves m WHERE m.issue_id = si.id AND m.movement_id = ANY($1))
		ORDER BY si.id`, movementIDs)
}

// ListByOrder registros de entrega de una orden.
func (r *StockIssueRepo) ListByOrder(ctx context.Context, orderID int64) ([]*entity.StockIssue, error) {
	return r.list(ctx, "list stock issues by order",
		`SELECT `+issueColumns+` FROM stock_issues si WHERE si.order_id = $1 ORDER BY si.id`, orderID)
}

// Delete borra registros; los vínculos caen por ON DELETE CASCADE.
func (r *StockIssueRepo) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM stock_issues WHERE id = ANY($1)`, ids); err != nil {
		return classify("delete stock issues", err)
	}
	return nil
}

// UnlinkMovement quita el vínculo del movimiento con cualquier registro.
func (r *StockIssueRepo) UnlinkMovement(ctx context.Context, movementID int64) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stock_issue_moves WHERE movement_id = $1`, movementID); err != nil {
		return classify("unlink stock issue", err)
	}
	return nil
}
