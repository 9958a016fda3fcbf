package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	invdomain "github.com/jhoicas/labstock/internal/domain/inventory"
	"github.com/jhoicas/labstock/pkg/logger"
)

// Resultados de una operación de lote (etiqueta de métricas).
const (
	OutcomeOK         = "ok"
	OutcomeEmpty      = "empty"
	OutcomeValidation = "validation"
	OutcomeError      = "error"
)

// AllocationUseCase cierra lotes repartiendo su cantidad entre las órdenes que los consumieron,
// revierte esas asignaciones y permite previsualizarlas sin efectos.
type AllocationUseCase struct {
	txRunner TxRunner
	opts     Options
	log      *logger.Logger
}

// NewAllocationUseCase construye el caso de uso.
func NewAllocationUseCase(txRunner TxRunner, opts Options) *AllocationUseCase {
	opts = opts.withDefaults()
	return &AllocationUseCase{txRunner: txRunner, opts: opts, log: opts.Logger.Component("allocation")}
}

// AllocationLine fila asignada (o previsualizada) a una orden.
type AllocationLine struct {
	OrderID    int64
	UnitCount  decimal.Decimal
	Shade      string
	Qty        decimal.Decimal
	Cost       decimal.Decimal
	HappenedAt time.Time
	MovementID int64 // 0 en simulación
	IssueID    int64 // 0 en simulación
}

// AllocationResult detalle de una asignación o de su simulación.
type AllocationResult struct {
	LotID        int64
	ItemID       int64
	RunID        string
	StageKey     string
	Shade        string
	OrdersCount  int
	TotalUnits   decimal.Decimal
	PerUnitAvg   decimal.Decimal
	LotQty       decimal.Decimal
	UnitCost     decimal.Decimal
	AllocatedSum decimal.Decimal
	Rows         []AllocationLine
	Warnings     []string
}

// AssignedRows cantidad de filas con consumo.
func (r *AllocationResult) AssignedRows() int { return len(r.Rows) }

// IssueIDs IDs de los registros de entrega creados.
func (r *AllocationResult) IssueIDs() []int64 {
	ids := make([]int64, 0, len(r.Rows))
	for _, row := range r.Rows {
		if row.IssueID != 0 {
			ids = append(ids, row.IssueID)
		}
	}
	return ids
}

// RollbackResult detalle de una reversión.
type RollbackResult struct {
	LotID         int64
	ItemID        int64
	RunID         string
	RolledBack    bool
	RolledBackQty decimal.Decimal
	VoidedEntries int
	DeletedIssues int
	CorrectiveIDs []int64
	Message       string
}

// SimulationResult vista previa de una asignación.
type SimulationResult struct {
	AllocationResult
	AlreadyAllocated bool
	Balanced         bool
}

// Allocate reparte la cantidad del lote entre las órdenes que terminaron la etapa del material
// dentro de la ventana de uso. Todo ocurre en una transacción con el lote bloqueado:
// consumos, registros de entrega y candado del lote, o nada.
func (uc *AllocationUseCase) Allocate(ctx context.Context, lotID int64, actor string) (*AllocationResult, error) {
	started := time.Now()
	if actor == "" {
		actor = uc.opts.SystemActor
	}
	var res *AllocationResult
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		lot, err := repos.Lots.GetForUpdate(ctx, lotID)
		if err != nil {
			return err
		}
		if lot.Allocated {
			return domain.Validation("el lote ya fue asignado").With("lot_id", lotID)
		}
		if !lot.HasUsageWindow() {
			return domain.Validation("para asignar el lote se requieren fecha de inicio y de fin de uso").With("lot_id", lotID)
		}
		if !lot.UnitCost.IsPositive() {
			return domain.Validation("el lote no tiene costo unitario; registre el costo antes de asignar").
				With("lot_id", lotID).With("unit_cost", lot.UnitCost.StringFixed(invdomain.MoneyPlaces))
		}
		// el guard se evalúa dentro de la misma transacción que escribe
		prior, err := repos.Movements.FindLotAllocationIssues(ctx, lotID, true)
		if err != nil {
			return fmt.Errorf("buscar consumos previos del lote: %w", err)
		}
		if len(prior) > 0 {
			return domain.Validation("el lote ya tiene consumos de asignación registrados").
				With("lot_id", lotID).With("entries", len(prior))
		}

		res, err = uc.plan(ctx, repos, lot)
		if err != nil {
			return err
		}
		if res.OrdersCount == 0 {
			return domain.Validation("no hay órdenes relacionadas en la ventana de uso del lote").
				With("lot_id", lotID).With("stage_key", res.StageKey)
		}
		if !res.AllocatedSum.Equal(res.LotQty) {
			return domain.Validation("la suma asignada no coincide con la cantidad del lote").
				With("lot_id", lotID).
				With("allocated_sum", res.AllocatedSum.StringFixed(invdomain.QtyPlaces)).
				With("lot_qty", res.LotQty.StringFixed(invdomain.QtyPlaces))
		}

		res.RunID = uuid.NewString()
		for i := range res.Rows {
			row := &res.Rows[i]
			orderID := row.OrderID
			mvRes, err := applyInTx(ctx, repos, MovementInput{
				ItemID:     lot.ItemID,
				LotID:      &lot.ID,
				Kind:       entity.MovementIssue,
				Qty:        row.Qty.Neg(),
				UnitCost:   &lot.UnitCost,
				HappenedAt: row.HappenedAt,
				OrderID:    &orderID,
				Reason:     entity.ReasonLotAllocation,
				CreatedBy:  actor,
				RunID:      res.RunID,
			}, uc.opts)
			if err != nil {
				var de *domain.Error
				if errors.As(err, &de) {
					de.With("lot_id", lotID).With("order_id", orderID)
				}
				return err
			}
			row.MovementID = mvRes.Entry.ID
			row.Cost = mvRes.Entry.TotalCost.Abs()

			issue := &entity.StockIssue{
				OrderID:     orderID,
				ItemID:      lot.ItemID,
				LotID:       &lot.ID,
				QtyIssued:   row.Qty,
				HappenedAt:  row.HappenedAt,
				Comment:     fmt.Sprintf("asignación del lote %d (%s)", lot.ID, res.StageKey),
				RunID:       res.RunID,
				MovementIDs: []int64{mvRes.Entry.ID},
			}
			if err := repos.Issues.Create(ctx, issue); err != nil {
				return fmt.Errorf("guardar registro de entrega: %w", err)
			}
			row.IssueID = issue.ID
		}

		now := uc.opts.Clock()
		if err := repos.Lots.SetAllocated(ctx, lotID, true, &now); err != nil {
			return fmt.Errorf("marcar lote asignado: %w", err)
		}
		return nil
	})
	if err != nil {
		uc.fail("allocate", lotID, started, err)
		return nil, err
	}

	for range res.Rows {
		uc.opts.Recorder.MovementApplied(entity.MovementIssue)
	}
	uc.opts.Recorder.LotOperation("allocate", OutcomeOK, time.Since(started))
	uc.log.Info().
		Int64("lot_id", lotID).
		Int64("item_id", res.ItemID).
		Str("run_id", res.RunID).
		Str("stage_key", res.StageKey).
		Int("rows", len(res.Rows)).
		Str("qty", res.AllocatedSum.String()).
		Msg("lote asignado")
	return res, nil
}

// Rollback revierte la asignación del lote: por cada consumo vigente registra un ajuste positivo
// con el mismo costo efectivo, borra los registros de entrega, anula los consumos y libera el lote.
// Sin consumos que revertir devuelve un resultado vacío sin error.
func (uc *AllocationUseCase) Rollback(ctx context.Context, lotID int64, actor string) (*RollbackResult, error) {
	started := time.Now()
	if actor == "" {
		actor = uc.opts.SystemActor
	}
	res := &RollbackResult{LotID: lotID, RolledBackQty: decimal.Zero}
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		lot, err := repos.Lots.GetForUpdate(ctx, lotID)
		if err != nil {
			return err
		}
		res.ItemID = lot.ItemID
		issues, err := repos.Movements.FindLotAllocationIssues(ctx, lotID, true)
		if err != nil {
			return fmt.Errorf("buscar consumos del lote: %w", err)
		}
		if len(issues) == 0 {
			res.Message = "no hay asignación vigente para este lote"
			return nil
		}

		res.RunID = uuid.NewString()
		now := uc.opts.Clock()
		ids := make([]int64, 0, len(issues))
		for _, mv := range issues {
			qty := mv.Qty.Abs()
			cost := mv.UnitCost
			adj, err := applyInTx(ctx, repos, MovementInput{
				ItemID:     mv.ItemID,
				LotID:      &lot.ID,
				Kind:       entity.MovementAdjustPos,
				Qty:        qty,
				UnitCost:   &cost,
				HappenedAt: now,
				Reason:     entity.ReasonRollbackLotAllocation,
				CreatedBy:  actor,
				RunID:      res.RunID,
			}, uc.opts)
			if err != nil {
				return err
			}
			res.CorrectiveIDs = append(res.CorrectiveIDs, adj.Entry.ID)
			res.RolledBackQty = invdomain.RoundQty(res.RolledBackQty.Add(qty))
			ids = append(ids, mv.ID)
		}

		linked, err := repos.Issues.ListByMovements(ctx, ids)
		if err != nil {
			return fmt.Errorf("buscar registros de entrega: %w", err)
		}
		issueIDs := make([]int64, 0, len(linked))
		for _, si := range linked {
			issueIDs = append(issueIDs, si.ID)
		}
		if err := repos.Issues.Delete(ctx, issueIDs); err != nil {
			return fmt.Errorf("borrar registros de entrega: %w", err)
		}
		if err := repos.Movements.Void(ctx, ids, now); err != nil {
			return fmt.Errorf("anular consumos: %w", err)
		}
		if err := repos.Lots.SetAllocated(ctx, lotID, false, nil); err != nil {
			return fmt.Errorf("liberar lote: %w", err)
		}
		res.RolledBack = true
		res.VoidedEntries = len(ids)
		res.DeletedIssues = len(issueIDs)
		res.Message = "asignación del lote revertida"
		return nil
	})
	if err != nil {
		uc.fail("rollback", lotID, started, err)
		return nil, err
	}

	if !res.RolledBack {
		uc.opts.Recorder.LotOperation("rollback", OutcomeEmpty, time.Since(started))
		uc.log.Info().Int64("lot_id", lotID).Msg(res.Message)
		return res, nil
	}
	for range res.CorrectiveIDs {
		uc.opts.Recorder.MovementApplied(entity.MovementAdjustPos)
	}
	uc.opts.Recorder.LotOperation("rollback", OutcomeOK, time.Since(started))
	uc.log.Info().
		Int64("lot_id", lotID).
		Int64("item_id", res.ItemID).
		Str("run_id", res.RunID).
		Int("rows", res.VoidedEntries).
		Str("qty", res.RolledBackQty.String()).
		Msg("asignación revertida")
	return res, nil
}

// Simulate calcula la asignación sin escribir nada. Un lote ya asignado se previsualiza con advertencia
// y una ventana sin órdenes devuelve un resultado vacío con advertencia.
func (uc *AllocationUseCase) Simulate(ctx context.Context, lotID int64) (*SimulationResult, error) {
	started := time.Now()
	var res *SimulationResult
	err := uc.txRunner.RunReadOnly(ctx, func(repos TxRepos) error {
		lot, err := repos.Lots.GetByID(ctx, lotID)
		if err != nil {
			return err
		}
		if !lot.HasUsageWindow() {
			return domain.Validation("para simular se requieren fecha de inicio y de fin de uso").With("lot_id", lotID)
		}
		var warnings []string
		if !lot.UnitCost.IsPositive() {
			warnings = append(warnings, "el lote no tiene costo unitario; asignar fallará")
		}
		if lot.Allocated {
			warnings = append(warnings, "el lote ya está asignado; solo vista previa")
		} else {
			exists, err := repos.Movements.ExistsLotAllocationIssues(ctx, lotID)
			if err != nil {
				return fmt.Errorf("buscar consumos previos del lote: %w", err)
			}
			if exists {
				warnings = append(warnings, "el lote tiene consumos de asignación registrados; asignar fallará")
			}
		}

		plan, err := uc.plan(ctx, repos, lot)
		if err != nil {
			return err
		}
		plan.Warnings = append(warnings, plan.Warnings...)
		res = &SimulationResult{
			AllocationResult: *plan,
			AlreadyAllocated: lot.Allocated,
			Balanced:         plan.AllocatedSum.Equal(plan.LotQty),
		}
		if plan.OrdersCount == 0 {
			res.Warnings = append(res.Warnings, "no hay órdenes relacionadas en la ventana de uso del lote")
		} else if !res.Balanced {
			res.Warnings = append(res.Warnings, "la suma asignada no coincide con la cantidad del lote")
		}
		return nil
	})
	if err != nil {
		uc.fail("simulate", lotID, started, err)
		return nil, err
	}
	outcome := OutcomeOK
	if res.OrdersCount == 0 {
		outcome = OutcomeEmpty
	}
	uc.opts.Recorder.LotOperation("simulate", outcome, time.Since(started))
	return res, nil
}

// plan resuelve la clave de etapa, consulta las etapas terminadas y calcula las filas.
// Devuelve OrdersCount = 0 cuando la ventana no tiene órdenes.
func (uc *AllocationUseCase) plan(ctx context.Context, repos TxRepos, lot *entity.Lot) (*AllocationResult, error) {
	mappings, err := repos.Stages.ListActiveByItem(ctx, lot.ItemID)
	if err != nil {
		return nil, fmt.Errorf("listar mapeos de etapa: %w", err)
	}
	binding, err := invdomain.ResolveStageKey(lot.ItemID, mappings)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			de.With("lot_id", lot.ID)
		}
		return nil, err
	}

	var shadeFilter *string
	if binding.ShadeSensitive {
		if lot.ShadeCode == "" {
			return nil, domain.Validation("el material es sensible al color pero el lote no tiene shade").
				With("lot_id", lot.ID).With("stage_key", binding.StageKey)
		}
		s := lot.ShadeCode
		shadeFilter = &s
	}

	completions, err := repos.Completions.FindCompleted(ctx, binding.StageKey, *lot.StartUseDate, *lot.EndUseDate, shadeFilter)
	if err != nil {
		return nil, fmt.Errorf("consultar etapas terminadas: %w", err)
	}

	res := &AllocationResult{
		LotID:        lot.ID,
		ItemID:       lot.ItemID,
		StageKey:     binding.StageKey,
		Shade:        lot.ShadeCode,
		OrdersCount:  len(completions),
		TotalUnits:   decimal.Zero,
		PerUnitAvg:   decimal.Zero,
		LotQty:       invdomain.RoundQty(lot.QtyIn),
		UnitCost:     invdomain.RoundMoney(lot.UnitCost),
		AllocatedSum: decimal.Zero,
	}
	if len(completions) == 0 {
		return res, nil
	}

	plan, err := invdomain.PlanAllocation(lot.QtyIn, lot.UnitCost, completions)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			de.With("lot_id", lot.ID).With("stage_key", binding.StageKey)
		}
		return nil, err
	}
	res.TotalUnits = plan.TotalUnits
	res.PerUnitAvg = plan.PerUnitAvg
	res.AllocatedSum = plan.AllocatedSum
	if plan.Skipped > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d órdenes quedaron sin cantidad y se omitieron", plan.Skipped))
	}
	for _, row := range plan.Rows {
		res.Rows = append(res.Rows, AllocationLine{
			OrderID:    row.OrderID,
			UnitCount:  row.UnitCount,
			Shade:      row.Shade,
			Qty:        row.Qty,
			Cost:       row.Cost,
			HappenedAt: *lot.EndUseDate,
		})
	}
	return res, nil
}

func (uc *AllocationUseCase) fail(op string, lotID int64, started time.Time, err error) {
	outcome := OutcomeError
	ev := uc.log.Error()
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound) {
		outcome = OutcomeValidation
		ev = uc.log.Warn()
	}
	uc.opts.Recorder.LotOperation(op, outcome, time.Since(started))
	ev.Err(err).Int64("lot_id", lotID).Str("op", op).Msg("operación de lote fallida")
}
