package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
)

var _ repository.LotRepository = (*LotRepo)(nil)

const lotColumns = `id, item_id, lot_code, vendor, invoice_no, notes, shade_code, purchase_date, expire_date,
	start_use_date, end_use_date, qty_in, unit_cost, currency, allocated, allocated_at, created_at`

// LotRepo implementación de LotRepository sobre PostgreSQL.
type LotRepo struct {
	q Querier
}

// NewLotRepository construye el adaptador de lotes.
func NewLotRepository(q Querier) *LotRepo {
	return &LotRepo{q: q}
}

func scanLot(row pgx.Row) (*entity.Lot, error) {
	var l entity.Lot
	err := row.Scan(
		&l.ID, &l.ItemID, &l.LotCode, &l.Vendor, &l.InvoiceNo, &l.Notes, &l.ShadeCode, &l.PurchaseDate, &l.ExpireDate,
		&l.StartUseDate, &l.EndUseDate, &l.QtyIn, &l.UnitCost, &l.Currency, &l.Allocated, &l.AllocatedAt, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create persiste el lote.
func (r *LotRepo) Create(ctx context.Context, lot *entity.Lot) error {
	query := `
		INSERT INTO material_lots (item_id, lot_code, vendor, invoice_no, notes, shade_code, purchase_date, expire_date,
			start_use_date, end_use_date, qty_in, unit_cost, currency, allocated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, false, $14)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		lot.ItemID, lot.LotCode, lot.Vendor, lot.InvoiceNo, lot.Notes, lot.ShadeCode, lot.PurchaseDate, lot.ExpireDate,
		lot.StartUseDate, lot.EndUseDate, lot.QtyIn, lot.UnitCost, lot.Currency, lot.CreatedAt,
	).Scan(&lot.ID)
	if err != nil {
		return classify("insert lot", err)
	}
	return nil
}

// Update guarda datos administrativos y ventana de uso.
func (r *LotRepo) Update(ctx context.Context, lot *entity.Lot) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE material_lots SET lot_code = $2, vendor = $3, invoice_no = $4, notes = $5, shade_code = $6,
			purchase_date = $7, expire_date = $8, start_use_date = $9, end_use_date = $10, currency = $11
		WHERE id = $1`,
		lot.ID, lot.LotCode, lot.Vendor, lot.InvoiceNo, lot.Notes, lot.ShadeCode,
		lot.PurchaseDate, lot.ExpireDate, lot.StartUseDate, lot.EndUseDate, lot.Currency)
	if err != nil {
		return classify("update lot", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("lote", lot.ID)
	}
	return nil
}

// GetByID obtiene un lote.
func (r *LotRepo) GetByID(ctx context.Context, id int64) (*entity.Lot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, `SELECT `+lotColumns+` FROM material_lots WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr("get lot", "lote", id, err)
	}
	return l, nil
}

// GetForUpdate obtiene el lote y bloquea su fila.
func (r *LotRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Lot, error) {
	l, err := scanLot(r.q.QueryRow(ctx, `SELECT `+lotColumns+` FROM material_lots WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFoundOr("get lot for update", "lote", id, err)
	}
	return l, nil
}

// ListByItemAndShade lotes del mismo material y color.
func (r *LotRepo) ListByItemAndShade(ctx context.Context, itemID int64, shadeCode string) ([]*entity.Lot, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+lotColumns+` FROM material_lots WHERE item_id = $1 AND shade_code = $2 ORDER BY id`,
		itemID, shadeCode)
	if err != nil {
		return nil, classify("list lots", err)
	}
	defer rows.Close()
	var out []*entity.Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, classify("scan lot", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list lots", err)
	}
	return out, nil
}

// SetAllocated cambia el candado de asignación.
func (r *LotRepo) SetAllocated(ctx context.Context, id int64, allocated bool, at *time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE material_lots SET allocated = $2, allocated_at = $3 WHERE id = $1`, id, allocated, at)
	if err != nil {
		return classify("set lot allocated", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("lote", id)
	}
	return nil
}
