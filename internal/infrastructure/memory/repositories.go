package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/internal/domain/repository"
	"github.com/jhoicas/labstock/pkg/shade"
)

var (
	_ repository.ItemRepository          = (*itemRepo)(nil)
	_ repository.LotRepository           = (*lotRepo)(nil)
	_ repository.StockMovementRepository = (*movementRepo)(nil)
	_ repository.StockIssueRepository    = (*issueRepo)(nil)
	_ repository.StageMappingRepository  = (*stageRepo)(nil)
	_ repository.StageCompletionSource   = (*completionSource)(nil)
)

type itemRepo struct {
	st  *state
	now func() time.Time
}

func (r *itemRepo) Create(_ context.Context, item *entity.Item) error {
	for _, it := range r.st.items {
		if it.Code == item.Code {
			return domain.NewError(domain.ErrDuplicate, "código de material duplicado").With("code", item.Code)
		}
	}
	r.st.nextItem++
	item.ID = r.st.nextItem
	cp := *item
	r.st.items[item.ID] = &cp
	return nil
}

func (r *itemRepo) GetByID(_ context.Context, id int64) (*entity.Item, error) {
	it, ok := r.st.items[id]
	if !ok {
		return nil, domain.NotFound("material", id)
	}
	cp := *it
	return &cp, nil
}

func (r *itemRepo) GetByCode(_ context.Context, code string) (*entity.Item, error) {
	for _, it := range r.st.items {
		if it.Code == code {
			cp := *it
			return &cp, nil
		}
	}
	return nil, domain.NotFound("material", code)
}

func (r *itemRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Item, error) {
	return r.GetByID(ctx, id)
}

func (r *itemRepo) UpdateSnapshot(_ context.Context, id int64, stockQty, avgUnitCost decimal.Decimal) error {
	it, ok := r.st.items[id]
	if !ok {
		return domain.NotFound("material", id)
	}
	it.StockQty = stockQty
	it.AvgUnitCost = avgUnitCost
	it.UpdatedAt = r.now()
	return nil
}

func (r *itemRepo) List(_ context.Context, activeOnly bool, limit, offset int) ([]*entity.Item, error) {
	var out []*entity.Item
	for _, id := range sortedKeys(r.st.items) {
		it := r.st.items[id]
		if activeOnly && !it.IsActive {
			continue
		}
		cp := *it
		out = append(out, &cp)
	}
	return page(out, limit, offset), nil
}

func (r *itemRepo) ListBelowMinStock(_ context.Context) ([]*entity.Item, error) {
	var out []*entity.Item
	for _, id := range sortedKeys(r.st.items) {
		it := r.st.items[id]
		if it.IsActive && it.BelowMinStock() {
			cp := *it
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di := out[i].MinStock.Sub(out[i].StockQty)
		dj := out[j].MinStock.Sub(out[j].StockQty)
		return di.GreaterThan(dj)
	})
	return out, nil
}

type lotRepo struct {
	st *state
}

func (r *lotRepo) Create(_ context.Context, lot *entity.Lot) error {
	r.st.nextLot++
	lot.ID = r.st.nextLot
	cp := *lot
	r.st.lots[lot.ID] = &cp
	return nil
}

func (r *lotRepo) Update(_ context.Context, lot *entity.Lot) error {
	cur, ok := r.st.lots[lot.ID]
	if !ok {
		return domain.NotFound("lote", lot.ID)
	}
	cp := *lot
	cp.Allocated = cur.Allocated
	cp.AllocatedAt = cur.AllocatedAt
	r.st.lots[lot.ID] = &cp
	return nil
}

func (r *lotRepo) GetByID(_ context.Context, id int64) (*entity.Lot, error) {
	l, ok := r.st.lots[id]
	if !ok {
		return nil, domain.NotFound("lote", id)
	}
	cp := *l
	return &cp, nil
}

func (r *lotRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Lot, error) {
	return r.GetByID(ctx, id)
}

func (r *lotRepo) ListByItemAndShade(_ context.Context, itemID int64, shadeCode string) ([]*entity.Lot, error) {
	var out []*entity.Lot
	for _, id := range sortedKeys(r.st.lots) {
		l := r.st.lots[id]
		if l.ItemID == itemID && l.ShadeCode == shadeCode {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *lotRepo) SetAllocated(_ context.Context, id int64, allocated bool, at *time.Time) error {
	l, ok := r.st.lots[id]
	if !ok {
		return domain.NotFound("lote", id)
	}
	l.Allocated = allocated
	l.AllocatedAt = at
	return nil
}

type movementRepo struct {
	st  *state
	now func() time.Time
}

func (r *movementRepo) Create(_ context.Context, mv *entity.StockMovement) error {
	r.st.nextMovement++
	mv.ID = r.st.nextMovement
	mv.CreatedAt = r.now()
	cp := *mv
	r.st.movements[mv.ID] = &cp
	return nil
}

func (r *movementRepo) GetByID(_ context.Context, id int64) (*entity.StockMovement, error) {
	mv, ok := r.st.movements[id]
	if !ok {
		return nil, domain.NotFound("movimiento", id)
	}
	cp := *mv
	return &cp, nil
}

func (r *movementRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.st.movements[id]; !ok {
		return domain.NotFound("movimiento", id)
	}
	delete(r.st.movements, id)
	return nil
}

func (r *movementRepo) Void(_ context.Context, ids []int64, at time.Time) error {
	for _, id := range ids {
		mv, ok := r.st.movements[id]
		if !ok {
			return domain.NotFound("movimiento", id)
		}
		voided := at
		mv.VoidedAt = &voided
	}
	return nil
}

func (r *movementRepo) filter(keep func(*entity.StockMovement) bool) []*entity.StockMovement {
	var out []*entity.StockMovement
	for _, id := range sortedKeys(r.st.movements) {
		mv := r.st.movements[id]
		if keep(mv) {
			cp := *mv
			out = append(out, &cp)
		}
	}
	return out
}

func (r *movementRepo) ListByItem(_ context.Context, itemID int64) ([]*entity.StockMovement, error) {
	return r.filter(func(mv *entity.StockMovement) bool { return mv.ItemID == itemID }), nil
}

func (r *movementRepo) ListByItemPage(_ context.Context, itemID int64, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	out := r.filter(func(mv *entity.StockMovement) bool {
		if mv.ItemID != itemID || mv.Voided() {
			return false
		}
		if from != nil && mv.HappenedAt.Before(*from) {
			return false
		}
		if to != nil && mv.HappenedAt.After(*to) {
			return false
		}
		return true
	})
	return page(out, limit, offset), nil
}

func (r *movementRepo) ListByLot(_ context.Context, lotID int64) ([]*entity.StockMovement, error) {
	return r.filter(func(mv *entity.StockMovement) bool {
		return mv.LotID != nil && *mv.LotID == lotID && !mv.Voided()
	}), nil
}

func isLotAllocationIssue(mv *entity.StockMovement, lotID int64) bool {
	return mv.LotID != nil && *mv.LotID == lotID &&
		mv.Kind == entity.MovementIssue &&
		mv.Reason == entity.ReasonLotAllocation &&
		!mv.Voided()
}

func (r *movementRepo) FindLotAllocationIssues(_ context.Context, lotID int64, _ bool) ([]*entity.StockMovement, error) {
	return r.filter(func(mv *entity.StockMovement) bool { return isLotAllocationIssue(mv, lotID) }), nil
}

func (r *movementRepo) ExistsLotAllocationIssues(_ context.Context, lotID int64) (bool, error) {
	for _, mv := range r.st.movements {
		if isLotAllocationIssue(mv, lotID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *movementRepo) CostByOrder(_ context.Context, orderID int64) ([]entity.OrderMaterialCost, error) {
	byItem := make(map[int64]*entity.OrderMaterialCost)
	for _, mv := range r.filter(func(mv *entity.StockMovement) bool {
		return mv.OrderID != nil && *mv.OrderID == orderID && mv.Kind == entity.MovementIssue && !mv.Voided()
	}) {
		acc, ok := byItem[mv.ItemID]
		if !ok {
			acc = &entity.OrderMaterialCost{OrderID: orderID, ItemID: mv.ItemID, Qty: decimal.Zero, TotalCost: decimal.Zero}
			byItem[mv.ItemID] = acc
		}
		acc.Qty = acc.Qty.Add(mv.Qty.Abs())
		acc.TotalCost = acc.TotalCost.Add(mv.TotalCost.Abs())
	}
	out := make([]entity.OrderMaterialCost, 0, len(byItem))
	for _, id := range sortedKeys(byItem) {
		out = append(out, *byItem[id])
	}
	return out, nil
}

type issueRepo struct {
	st  *state
	now func() time.Time
}

func (r *issueRepo) Create(_ context.Context, issue *entity.StockIssue) error {
	r.st.nextIssue++
	issue.ID = r.st.nextIssue
	issue.CreatedAt = r.now()
	r.st.issues[issue.ID] = copyIssue(issue)
	return nil
}

func (r *issueRepo) ListByMovements(_ context.Context, movementIDs []int64) ([]*entity.StockIssue, error) {
	wanted := make(map[int64]bool, len(movementIDs))
	for _, id := range movementIDs {
		wanted[id] = true
	}
	var out []*entity.StockIssue
	for _, id := range sortedKeys(r.st.issues) {
		si := r.st.issues[id]
		for _, mid := range si.MovementIDs {
			if wanted[mid] {
				out = append(out, copyIssue(si))
				break
			}
		}
	}
	return out, nil
}

func (r *issueRepo) ListByOrder(_ context.Context, orderID int64) ([]*entity.StockIssue, error) {
	var out []*entity.StockIssue
	for _, id := range sortedKeys(r.st.issues) {
		if si := r.st.issues[id]; si.OrderID == orderID {
			out = append(out, copyIssue(si))
		}
	}
	return out, nil
}

func (r *issueRepo) Delete(_ context.Context, ids []int64) error {
	for _, id := range ids {
		delete(r.st.issues, id)
	}
	return nil
}

func (r *issueRepo) UnlinkMovement(_ context.Context, movementID int64) error {
	for _, si := range r.st.issues {
		kept := si.MovementIDs[:0]
		for _, mid := range si.MovementIDs {
			if mid != movementID {
				kept = append(kept, mid)
			}
		}
		si.MovementIDs = kept
	}
	return nil
}

type stageRepo struct {
	st *state
}

func (r *stageRepo) Create(_ context.Context, m *entity.StageMapping) (bool, error) {
	for _, cur := range r.st.mappings {
		if cur.StageKey == m.StageKey && cur.ItemID == m.ItemID {
			*m = *cur
			return false, nil
		}
	}
	r.st.nextMapping++
	m.ID = r.st.nextMapping
	cp := *m
	r.st.mappings[m.ID] = &cp
	return true, nil
}

func (r *stageRepo) ListActiveByItem(_ context.Context, itemID int64) ([]*entity.StageMapping, error) {
	var out []*entity.StageMapping
	for _, id := range sortedKeys(r.st.mappings) {
		if m := r.st.mappings[id]; m.ItemID == itemID && m.IsActive {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

type completionSource struct {
	st *state
}

// FindCompleted filtra por día de terminación (límites inclusivos) en orden de registro.
func (s *completionSource) FindCompleted(_ context.Context, stageKey string, from, to time.Time, shadeFilter *string) ([]entity.StageCompletion, error) {
	lo, hi := day(from), day(to)
	var out []entity.StageCompletion
	for _, c := range s.st.completions {
		if c.StageKey != stageKey {
			continue
		}
		d := day(c.DoneDate)
		if d.Before(lo) || d.After(hi) {
			continue
		}
		if !shade.Matches(c.Shade, shadeFilter) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func page[T any](in []T, limit, offset int) []T {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
