package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

const itemColumns = `id, code, name, item_type, category, unit_measure, pack_size, min_stock,
	shade_enabled, is_active, stock_qty, avg_unit_cost, created_at, updated_at`

// ItemRepo implementación de ItemRepository sobre PostgreSQL (usable con pool o tx).
type ItemRepo struct {
	q Querier
}

// NewItemRepository construye el adaptador de materiales. Pasar pool o tx (Querier).
func NewItemRepository(q Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

func scanItem(row pgx.Row) (*entity.Item, error) {
	var it entity.Item
	err := row.Scan(
		&it.ID, &it.Code, &it.Name, &it.ItemType, &it.Category, &it.UnitMeasure, &it.PackSize, &it.MinStock,
		&it.ShadeEnabled, &it.IsActive, &it.StockQty, &it.AvgUnitCost, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func collectItems(rows pgx.Rows) ([]*entity.Item, error) {
	defer rows.Close()
	var out []*entity.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Create persiste un material nuevo; el snapshot arranca en cero.
func (r *ItemRepo) Create(ctx context.Context, item *entity.Item) error {
	query := `
		INSERT INTO items (code, name, item_type, category, unit_measure, pack_size, min_stock,
			shade_enabled, is_active, stock_qty, avg_unit_cost, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0, $10, $11)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		item.Code, item.Name, item.ItemType, item.Category, item.UnitMeasure, item.PackSize, item.MinStock,
		item.ShadeEnabled, item.IsActive, item.CreatedAt, item.UpdatedAt,
	).Scan(&item.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.ErrDuplicate, "código de material duplicado").With("code", item.Code)
		}
		return classify("insert item", err)
	}
	return nil
}

// GetByID obtiene un material por ID.
func (r *ItemRepo) GetByID(ctx context.Context, id int64) (*entity.Item, error) {
	it, err := scanItem(r.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr("get item", "material", id, err)
	}
	return it, nil
}

// GetByCode obtiene un material por código.
func (r *ItemRepo) GetByCode(ctx context.Context, code string) (*entity.Item, error) {
	it, err := scanItem(r.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE code = $1`, code))
	if err != nil {
		return nil, notFoundOr("get item by code", "material", code, err)
	}
	return it, nil
}

// GetForUpdate obtiene el material y bloquea su fila (SELECT FOR UPDATE) hasta el fin de la tx.
func (r *ItemRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Item, error) {
	it, err := scanItem(r.q.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFoundOr("get item for update", "material", id, err)
	}
	return it, nil
}

// UpdateSnapshot guarda stock y costo promedio.
func (r *ItemRepo) UpdateSnapshot(ctx context.Context, id int64, stockQty, avgUnitCost decimal.Decimal) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE items SET stock_qty = $2, avg_unit_cost = $3, updated_at = now() WHERE id = $1`,
		id, stockQty, avgUnitCost)
	if err != nil {
		return classify("update item snapshot", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("material", id)
	}
	return nil
}

// List lista materiales por ID.
func (r *ItemRepo) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*entity.Item, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE (NOT $1::boolean OR is_active)
		ORDER BY id LIMIT $2 OFFSET $3`, activeOnly, limit, offset)
	if err != nil {
		return nil, classify("list items", err)
	}
	out, err := collectItems(rows)
	if err != nil {
		return nil, classify("scan items", err)
	}
	return out, nil
}

// ListBelowMinStock materiales activos bajo el mínimo, mayor déficit primero.
func (r *ItemRepo) ListBelowMinStock(ctx context.Context) ([]*entity.Item, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+itemColumns+` FROM items
		WHERE is_active AND min_stock > 0 AND stock_qty < min_stock
		ORDER BY (min_stock - stock_qty) DESC, id`)
	if err != nil {
		return nil, classify("list low stock", err)
	}
	out, err := collectItems(rows)
	if err != nil {
		return nil, classify("scan items", err)
	}
	return out, nil
}
