package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/internal/domain/entity"
)

// DateLayout único formato de fecha aceptado en la API.
const DateLayout = "2006-01-02"

// CreateItemRequest body para POST /api/items.
type CreateItemRequest struct {
	Code         string           `json:"code" validate:"required,max=64"`
	Name         string           `json:"name" validate:"required,max=200"`
	ItemType     string           `json:"item_type" validate:"max=50"`
	Category     string           `json:"category" validate:"max=100"`
	UnitMeasure  string           `json:"unit_measure" validate:"max=20"`
	PackSize     *decimal.Decimal `json:"pack_size,omitempty"`
	MinStock     decimal.Decimal  `json:"min_stock"`
	ShadeEnabled bool             `json:"shade_enabled"`
}

// ItemResponse salida de un material con su snapshot.
type ItemResponse struct {
	ID           int64            `json:"id"`
	Code         string           `json:"code"`
	Name         string           `json:"name"`
	ItemType     string           `json:"item_type"`
	Category     string           `json:"category"`
	UnitMeasure  string           `json:"unit_measure"`
	PackSize     *decimal.Decimal `json:"pack_size,omitempty"`
	MinStock     decimal.Decimal  `json:"min_stock"`
	ShadeEnabled bool             `json:"shade_enabled"`
	IsActive     bool             `json:"is_active"`
	StockQty     decimal.Decimal  `json:"stock_qty"`
	AvgUnitCost  decimal.Decimal  `json:"avg_unit_cost"`
	BelowMin     bool             `json:"below_min_stock"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ItemFromEntity mapea un material.
func ItemFromEntity(it *entity.Item) ItemResponse {
	return ItemResponse{
		ID:           it.ID,
		Code:         it.Code,
		Name:         it.Name,
		ItemType:     it.ItemType,
		Category:     it.Category,
		UnitMeasure:  it.UnitMeasure,
		PackSize:     it.PackSize,
		MinStock:     it.MinStock,
		ShadeEnabled: it.ShadeEnabled,
		IsActive:     it.IsActive,
		StockQty:     it.StockQty,
		AvgUnitCost:  it.AvgUnitCost,
		BelowMin:     it.BelowMinStock(),
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
	}
}

// ItemsFromEntities mapea una lista de materiales.
func ItemsFromEntities(items []*entity.Item) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, ItemFromEntity(it))
	}
	return out
}

// RegisterMovementRequest body para POST /api/movements.
// El signo de qty se normaliza según el tipo; unit_cost es opcional salvo en compras sin lote.
type RegisterMovementRequest struct {
	ItemID     int64            `json:"item_id" validate:"required,gt=0"`
	LotID      *int64           `json:"lot_id,omitempty" validate:"omitempty,gt=0"`
	Kind       string           `json:"kind" validate:"required,oneof=purchase issue return_in waste adjust_pos adjust_neg stocktake"`
	Qty        decimal.Decimal  `json:"qty"`
	UnitCost   *decimal.Decimal `json:"unit_cost,omitempty"`
	HappenedAt *time.Time       `json:"happened_at,omitempty"`
	OrderID    *int64           `json:"order_id,omitempty" validate:"omitempty,gt=0"`
	Reason     string           `json:"reason" validate:"max=200"`
}

// MovementResponse salida de un asiento del libro.
type MovementResponse struct {
	ID         int64           `json:"id"`
	ItemID     int64           `json:"item_id"`
	LotID      *int64          `json:"lot_id,omitempty"`
	Kind       string          `json:"kind"`
	Qty        decimal.Decimal `json:"qty"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	HappenedAt time.Time       `json:"happened_at"`
	OrderID    *int64          `json:"order_id,omitempty"`
	Reason     string          `json:"reason"`
	CreatedBy  string          `json:"created_by"`
	RunID      string          `json:"run_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// MovementFromEntity mapea un asiento.
func MovementFromEntity(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:         m.ID,
		ItemID:     m.ItemID,
		LotID:      m.LotID,
		Kind:       string(m.Kind),
		Qty:        m.Qty,
		UnitCost:   m.UnitCost,
		TotalCost:  m.TotalCost,
		HappenedAt: m.HappenedAt,
		OrderID:    m.OrderID,
		Reason:     m.Reason,
		CreatedBy:  m.CreatedBy,
		RunID:      m.RunID,
		CreatedAt:  m.CreatedAt,
	}
}

// MovementsFromEntities mapea una lista de asientos.
func MovementsFromEntities(ms []*entity.StockMovement) []MovementResponse {
	out := make([]MovementResponse, 0, len(ms))
	for _, m := range ms {
		out = append(out, MovementFromEntity(m))
	}
	return out
}

// SnapshotDTO cantidad y costo promedio del ítem.
type SnapshotDTO struct {
	StockQty    decimal.Decimal `json:"stock_qty"`
	AvgUnitCost decimal.Decimal `json:"avg_unit_cost"`
}

// ApplyMovementResponse asiento aplicado y snapshot resultante.
type ApplyMovementResponse struct {
	Movement MovementResponse `json:"movement"`
	Before   SnapshotDTO      `json:"before"`
	After    SnapshotDTO      `json:"after"`
}

// ApplyMovementFromResult mapea el resultado del caso de uso.
func ApplyMovementFromResult(r *inventory.MovementResult) ApplyMovementResponse {
	return ApplyMovementResponse{
		Movement: MovementFromEntity(r.Entry),
		Before:   SnapshotDTO{StockQty: r.Before.Qty, AvgUnitCost: r.Before.AvgCost},
		After:    SnapshotDTO{StockQty: r.After.Qty, AvgUnitCost: r.After.AvgCost},
	}
}

// RecomputeResponse resultado de reconstruir el snapshot.
type RecomputeResponse struct {
	ItemID  int64       `json:"item_id"`
	Entries int         `json:"entries"`
	Before  SnapshotDTO `json:"before"`
	After   SnapshotDTO `json:"after"`
	Drift   bool        `json:"drift"`
}

// RecomputeFromResult mapea el resultado del caso de uso.
func RecomputeFromResult(r *inventory.RecomputeResult) RecomputeResponse {
	return RecomputeResponse{
		ItemID:  r.ItemID,
		Entries: r.Entries,
		Before:  SnapshotDTO{StockQty: r.Before.Qty, AvgUnitCost: r.Before.AvgCost},
		After:   SnapshotDTO{StockQty: r.After.Qty, AvgUnitCost: r.After.AvgCost},
		Drift:   r.Drift,
	}
}

// CreateLotRequest body para POST /api/lots. Fechas en formato 2006-01-02.
type CreateLotRequest struct {
	ItemID         int64           `json:"item_id" validate:"required,gt=0"`
	LotCode        string          `json:"lot_code" validate:"max=64"`
	Vendor         string          `json:"vendor" validate:"max=200"`
	InvoiceNo      string          `json:"invoice_no" validate:"max=64"`
	Notes          string          `json:"notes"`
	ShadeCode      string          `json:"shade_code" validate:"max=32"`
	PurchaseDate   string          `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	ExpireDate     string          `json:"expire_date" validate:"omitempty,datetime=2006-01-02"`
	StartUseDate   string          `json:"start_use_date" validate:"omitempty,datetime=2006-01-02"`
	EndUseDate     string          `json:"end_use_date" validate:"omitempty,datetime=2006-01-02"`
	QtyIn          decimal.Decimal `json:"qty_in"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	Currency       string          `json:"currency" validate:"omitempty,len=3,alpha"`
	RecordPurchase bool            `json:"record_purchase"`
}

// UsageWindowRequest body para PUT /api/lots/:id/usage-window.
type UsageWindowRequest struct {
	StartUseDate string `json:"start_use_date" validate:"omitempty,datetime=2006-01-02"`
	EndUseDate   string `json:"end_use_date" validate:"omitempty,datetime=2006-01-02"`
}

// LotResponse salida de un lote.
type LotResponse struct {
	ID           int64           `json:"id"`
	ItemID       int64           `json:"item_id"`
	LotCode      string          `json:"lot_code"`
	Vendor       string          `json:"vendor"`
	InvoiceNo    string          `json:"invoice_no"`
	Notes        string          `json:"notes"`
	ShadeCode    string          `json:"shade_code"`
	PurchaseDate string          `json:"purchase_date,omitempty"`
	ExpireDate   string          `json:"expire_date,omitempty"`
	StartUseDate string          `json:"start_use_date,omitempty"`
	EndUseDate   string          `json:"end_use_date,omitempty"`
	QtyIn        decimal.Decimal `json:"qty_in"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Currency     string          `json:"currency"`
	Allocated    bool            `json:"allocated"`
	AllocatedAt  *time.Time      `json:"allocated_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseDate interpreta una fecha de la API; vacío = nil.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// LotFromEntity mapea un lote.
func LotFromEntity(l *entity.Lot) LotResponse {
	return LotResponse{
		ID:           l.ID,
		ItemID:       l.ItemID,
		LotCode:      l.LotCode,
		Vendor:       l.Vendor,
		InvoiceNo:    l.InvoiceNo,
		Notes:        l.Notes,
		ShadeCode:    l.ShadeCode,
		PurchaseDate: formatDate(l.PurchaseDate),
		ExpireDate:   formatDate(l.ExpireDate),
		StartUseDate: formatDate(l.StartUseDate),
		EndUseDate:   formatDate(l.EndUseDate),
		QtyIn:        l.QtyIn,
		UnitCost:     l.UnitCost,
		Currency:     l.Currency,
		Allocated:    l.Allocated,
		AllocatedAt:  l.AllocatedAt,
		CreatedAt:    l.CreatedAt,
	}
}

// CreateLotResponse lote creado y, si se pidió, el asiento de compra.
type CreateLotResponse struct {
	Lot      LotResponse            `json:"lot"`
	Purchase *ApplyMovementResponse `json:"purchase,omitempty"`
}

// AllocationRowDTO fila asignada a una orden.
type AllocationRowDTO struct {
	OrderID    int64           `json:"order_id"`
	UnitCount  decimal.Decimal `json:"unit_count"`
	Shade      string          `json:"shade,omitempty"`
	Qty        decimal.Decimal `json:"qty"`
	Cost       decimal.Decimal `json:"cost"`
	HappenedAt string          `json:"happened_at"`
	MovementID int64           `json:"movement_id,omitempty"`
	IssueID    int64           `json:"issue_id,omitempty"`
}

// AllocationResponse detalle de una asignación.
type AllocationResponse struct {
	LotID        int64              `json:"lot_id"`
	ItemID       int64              `json:"item_id"`
	RunID        string             `json:"run_id,omitempty"`
	StageKey     string             `json:"stage_key"`
	ShadeCode    string             `json:"shade_code"`
	OrdersCount  int                `json:"orders_count"`
	TotalUnits   decimal.Decimal    `json:"total_units"`
	PerUnitAvg   decimal.Decimal    `json:"per_unit_avg"`
	AssignedRows int                `json:"assigned_rows"`
	AllocatedSum decimal.Decimal    `json:"allocated_qty_sum"`
	LotQtyIn     decimal.Decimal    `json:"lot_qty_in"`
	UnitCost     decimal.Decimal    `json:"unit_cost"`
	Rows         []AllocationRowDTO `json:"rows"`
	Issues       []int64            `json:"issues"`
	Warnings     []string           `json:"warnings"`
}

// AllocationFromResult mapea el resultado del caso de uso.
func AllocationFromResult(r *inventory.AllocationResult) AllocationResponse {
	rows := make([]AllocationRowDTO, 0, len(r.Rows))
	for _, row := range r.Rows {
		rows = append(rows, AllocationRowDTO{
			OrderID:    row.OrderID,
			UnitCount:  row.UnitCount,
			Shade:      row.Shade,
			Qty:        row.Qty,
			Cost:       row.Cost,
			HappenedAt: row.HappenedAt.Format(DateLayout),
			MovementID: row.MovementID,
			IssueID:    row.IssueID,
		})
	}
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return AllocationResponse{
		LotID:        r.LotID,
		ItemID:       r.ItemID,
		RunID:        r.RunID,
		StageKey:     r.StageKey,
		ShadeCode:    r.Shade,
		OrdersCount:  r.OrdersCount,
		TotalUnits:   r.TotalUnits,
		PerUnitAvg:   r.PerUnitAvg,
		AssignedRows: r.AssignedRows(),
		AllocatedSum: r.AllocatedSum,
		LotQtyIn:     r.LotQty,
		UnitCost:     r.UnitCost,
		Rows:         rows,
		Issues:       r.IssueIDs(),
		Warnings:     warnings,
	}
}

// SimulationResponse vista previa de una asignación.
type SimulationResponse struct {
	AllocationResponse
	AlreadyAllocated bool `json:"already_allocated"`
	Balanced         bool `json:"balanced"`
}

// SimulationFromResult mapea el resultado del caso de uso.
func SimulationFromResult(r *inventory.SimulationResult) SimulationResponse {
	return SimulationResponse{
		AllocationResponse: AllocationFromResult(&r.AllocationResult),
		AlreadyAllocated:   r.AlreadyAllocated,
		Balanced:           r.Balanced,
	}
}

// RollbackResponse detalle de una reversión.
type RollbackResponse struct {
	OK                 bool            `json:"ok"`
	LotID              int64           `json:"lot_id"`
	RunID              string          `json:"run_id,omitempty"`
	RolledBackQty      decimal.Decimal `json:"rolled_back_qty"`
	DeletedIssueMoves  int             `json:"deleted_issue_moves"`
	DeletedStockIssues int             `json:"deleted_stock_issues"`
	CorrectiveIDs      []int64         `json:"corrective_movements"`
	Message            string          `json:"msg"`
}

// RollbackFromResult mapea el resultado del caso de uso.
func RollbackFromResult(r *inventory.RollbackResult) RollbackResponse {
	ids := r.CorrectiveIDs
	if ids == nil {
		ids = []int64{}
	}
	return RollbackResponse{
		OK:                 r.RolledBack,
		LotID:              r.LotID,
		RunID:              r.RunID,
		RolledBackQty:      r.RolledBackQty,
		DeletedIssueMoves:  r.VoidedEntries,
		DeletedStockIssues: r.DeletedIssues,
		CorrectiveIDs:      ids,
		Message:            r.Message,
	}
}

// CreateStageMappingRequest body para POST /api/stage-mappings.
type CreateStageMappingRequest struct {
	StageKey       string `json:"stage_key" validate:"required,max=100"`
	ItemID         int64  `json:"item_id" validate:"required,gt=0"`
	ShadeSensitive bool   `json:"shade_sensitive"`
	Note           string `json:"note" validate:"max=500"`
}

// StageMappingResponse salida de un mapeo; Created=false si ya existía.
type StageMappingResponse struct {
	ID             int64     `json:"id"`
	StageKey       string    `json:"stage_key"`
	ItemID         int64     `json:"item_id"`
	ShadeSensitive bool      `json:"shade_sensitive"`
	IsActive       bool      `json:"is_active"`
	Note           string    `json:"note"`
	Created        bool      `json:"created"`
	CreatedAt      time.Time `json:"created_at"`
}

// StageMappingFromEntity mapea un mapeo.
func StageMappingFromEntity(m *entity.StageMapping, created bool) StageMappingResponse {
	return StageMappingResponse{
		ID:             m.ID,
		StageKey:       m.StageKey,
		ItemID:         m.ItemID,
		ShadeSensitive: m.ShadeSensitive,
		IsActive:       m.IsActive,
		Note:           m.Note,
		Created:        created,
		CreatedAt:      m.CreatedAt,
	}
}

// OrderMaterialLine costo de un material en la orden.
type OrderMaterialLine struct {
	ItemID    int64           `json:"item_id"`
	Qty       decimal.Decimal `json:"qty"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

// OrderMaterialCostResponse costo de material de una orden.
type OrderMaterialCostResponse struct {
	OrderID   int64               `json:"order_id"`
	Items     []OrderMaterialLine `json:"items"`
	TotalCost decimal.Decimal     `json:"total_cost"`
}

// OrderMaterialCostFromEntities agrega las líneas por orden.
func OrderMaterialCostFromEntities(orderID int64, costs []entity.OrderMaterialCost) OrderMaterialCostResponse {
	out := OrderMaterialCostResponse{OrderID: orderID, Items: make([]OrderMaterialLine, 0, len(costs)), TotalCost: decimal.Zero}
	for _, c := range costs {
		out.Items = append(out.Items, OrderMaterialLine{ItemID: c.ItemID, Qty: c.Qty, TotalCost: c.TotalCost})
		out.TotalCost = out.TotalCost.Add(c.TotalCost)
	}
	return out
}

// StockIssueResponse registro de entrega de material a una orden.
type StockIssueResponse struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ItemID      int64           `json:"item_id"`
	LotID       *int64          `json:"lot_id,omitempty"`
	QtyIssued   decimal.Decimal `json:"qty_issued"`
	HappenedAt  time.Time       `json:"happened_at"`
	Comment     string          `json:"comment,omitempty"`
	RunID       string          `json:"run_id,omitempty"`
	MovementIDs []int64         `json:"movement_ids"`
	CreatedAt   time.Time       `json:"created_at"`
}

// StockIssuesFromEntities mapea los registros de entrega; nunca devuelve nil.
func StockIssuesFromEntities(issues []*entity.StockIssue) []StockIssueResponse {
	out := make([]StockIssueResponse, 0, len(issues))
	for _, si := range issues {
		ids := si.MovementIDs
		if ids == nil {
			ids = []int64{}
		}
		out = append(out, StockIssueResponse{
			ID:          si.ID,
			OrderID:     si.OrderID,
			ItemID:      si.ItemID,
			LotID:       si.LotID,
			QtyIssued:   si.QtyIssued,
			HappenedAt:  si.HappenedAt,
			Comment:     si.Comment,
			RunID:       si.RunID,
			MovementIDs: ids,
			CreatedAt:   si.CreatedAt,
		})
	}
	return out
}
