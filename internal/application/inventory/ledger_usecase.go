package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	invdomain "github.com/jhoicas/labstock/internal/domain/inventory"
	"github.com/jhoicas/labstock/pkg/logger"
)

// Options dependencias opcionales compartidas por los casos de uso del motor.
type Options struct {
	Logger      *logger.Logger
	Recorder    Recorder
	Clock       Clock
	SystemActor string // created_by de los asientos generados por el motor
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	if o.Recorder == nil {
		o.Recorder = NopRecorder{}
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.SystemActor == "" {
		o.SystemActor = "system"
	}
	return o
}

// LedgerUseCase aplica asientos al libro de movimientos y mantiene el snapshot del ítem.
// Solo ApplyMovement y RecomputeItemSnapshot (vía DeleteMovement o explícito) modifican el snapshot.
type LedgerUseCase struct {
	txRunner TxRunner
	opts     Options
	log      *logger.Logger
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(txRunner TxRunner, opts Options) *LedgerUseCase {
	opts = opts.withDefaults()
	return &LedgerUseCase{txRunner: txRunner, opts: opts, log: opts.Logger.Component("ledger")}
}

// MovementInput entrada para registrar un asiento.
// UnitCost nil = sin costo explícito. HappenedAt cero = ahora.
type MovementInput struct {
	ItemID     int64
	LotID      *int64
	Kind       entity.MovementKind
	Qty        decimal.Decimal
	UnitCost   *decimal.Decimal
	HappenedAt time.Time
	OrderID    *int64
	Reason     string
	CreatedBy  string
	RunID      string
}

// MovementResult asiento persistido y snapshot del ítem antes/después.
type MovementResult struct {
	Entry  *entity.StockMovement
	Before invdomain.Snapshot
	After  invdomain.Snapshot
}

// RecomputeResult resultado de reconstruir el snapshot desde el libro.
type RecomputeResult struct {
	ItemID  int64
	Entries int
	Before  invdomain.Snapshot
	After   invdomain.Snapshot
	Drift   bool // el snapshot persistido no coincidía con el libro
}

// ApplyMovement registra un asiento en una transacción: bloquea el ítem (SELECT FOR UPDATE),
// normaliza signo y costo, actualiza el snapshot y guarda ambos, o nada.
// Los motivos del motor de asignación y el run_id no se aceptan desde aquí.
func (uc *LedgerUseCase) ApplyMovement(ctx context.Context, in MovementInput) (*MovementResult, error) {
	if entity.IsEngineReason(in.Reason) {
		return nil, domain.Validation("el motivo %q está reservado para la asignación de lotes", in.Reason).
			With("reason", in.Reason)
	}
	if in.RunID != "" {
		return nil, domain.Validation("run_id solo lo asigna el motor de asignación").With("run_id", in.RunID)
	}
	var res *MovementResult
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		var err error
		res, err = applyInTx(ctx, repos, in, uc.opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.opts.Recorder.MovementApplied(res.Entry.Kind)
	uc.log.Debug().
		Int64("item_id", res.Entry.ItemID).
		Int64("movement_id", res.Entry.ID).
		Str("kind", string(res.Entry.Kind)).
		Str("qty", res.Entry.Qty.String()).
		Str("avg_cost", res.After.AvgCost.String()).
		Msg("movimiento aplicado")
	return res, nil
}

// applyInTx aplica un asiento con repositorios ya atados a la transacción del llamador.
// Orden de bloqueo: lote (si el llamador lo bloqueó) → movimientos → ítem.
func applyInTx(ctx context.Context, repos TxRepos, in MovementInput, opts Options) (*MovementResult, error) {
	if in.ItemID <= 0 {
		return nil, domain.Validation("item_id es obligatorio")
	}
	var lot *entity.Lot
	if in.LotID != nil {
		l, err := repos.Lots.GetByID(ctx, *in.LotID)
		if err != nil {
			return nil, err
		}
		lot = l
	}
	item, err := repos.Items.GetForUpdate(ctx, in.ItemID)
	if err != nil {
		return nil, err
	}

	happened := in.HappenedAt
	if happened.IsZero() {
		happened = opts.Clock()
	}
	createdBy := in.CreatedBy
	if createdBy == "" {
		createdBy = opts.SystemActor
	}
	mv := entity.StockMovement{
		ItemID:     item.ID,
		LotID:      in.LotID,
		Kind:       in.Kind,
		Qty:        in.Qty,
		HappenedAt: happened,
		OrderID:    in.OrderID,
		Reason:     in.Reason,
		CreatedBy:  createdBy,
		RunID:      in.RunID,
	}
	posting, err := invdomain.Post(invdomain.SnapshotOf(item), mv, in.UnitCost, lot)
	if err != nil {
		return nil, err
	}

	entry := posting.Entry
	if err := repos.Movements.Create(ctx, &entry); err != nil {
		return nil, fmt.Errorf("guardar movimiento: %w", err)
	}
	if err := repos.Items.UpdateSnapshot(ctx, item.ID, posting.After.Qty, posting.After.AvgCost); err != nil {
		return nil, fmt.Errorf("actualizar snapshot: %w", err)
	}
	return &MovementResult{Entry: &entry, Before: posting.Before, After: posting.After}, nil
}

// RecomputeItemSnapshot reconstruye el snapshot del ítem reproduciendo su libro completo.
func (uc *LedgerUseCase) RecomputeItemSnapshot(ctx context.Context, itemID int64) (*RecomputeResult, error) {
	var res *RecomputeResult
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		var err error
		res, err = recomputeInTx(ctx, repos, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.opts.Recorder.SnapshotRecomputed(res.Drift)
	ev := uc.log.Info()
	if res.Drift {
		ev = uc.log.Warn()
	}
	ev.Int64("item_id", itemID).
		Int("entries", res.Entries).
		Bool("drift", res.Drift).
		Str("qty", res.After.Qty.String()).
		Str("avg_cost", res.After.AvgCost.String()).
		Msg("snapshot recalculado")
	return res, nil
}

func recomputeInTx(ctx context.Context, repos TxRepos, itemID int64) (*RecomputeResult, error) {
	item, err := repos.Items.GetForUpdate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	entries, err := repos.Movements.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("listar libro del ítem: %w", err)
	}
	after, err := invdomain.Replay(entries)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			de.With("item_id", itemID)
		}
		return nil, err
	}
	before := invdomain.SnapshotOf(item)
	res := &RecomputeResult{ItemID: itemID, Entries: len(entries), Before: before, After: after}
	if !before.Equal(after) {
		res.Drift = true
	}
	if err := repos.Items.UpdateSnapshot(ctx, itemID, after.Qty, after.AvgCost); err != nil {
		return nil, fmt.Errorf("actualizar snapshot: %w", err)
	}
	return res, nil
}

// DeleteMovement borra un asiento (limpieza administrativa), desvincula sus registros de entrega
// y recalcula el snapshot del ítem en la misma transacción. Si la reproducción dejaría stock
// negativo falla con ErrInsufficientStock y no borra nada. Los asientos de una asignación o de
// su rollback (incluidos los anulados) no se borran: se revierten con el rollback de la asignación.
func (uc *LedgerUseCase) DeleteMovement(ctx context.Context, movementID int64) (*RecomputeResult, error) {
	var res *RecomputeResult
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		mv, err := repos.Movements.GetByID(ctx, movementID)
		if err != nil {
			return err
		}
		if mv.EngineOwned() {
			return domain.Validation("el asiento pertenece a una asignación de lote; use el rollback del lote").
				With("movement_id", movementID).
				With("reason", mv.Reason).
				With("voided", mv.Voided())
		}
		if _, err := repos.Items.GetForUpdate(ctx, mv.ItemID); err != nil {
			return err
		}
		if err := repos.Issues.UnlinkMovement(ctx, movementID); err != nil {
			return fmt.Errorf("desvincular registros de entrega: %w", err)
		}
		if err := repos.Movements.Delete(ctx, movementID); err != nil {
			return fmt.Errorf("borrar movimiento: %w", err)
		}
		res, err = recomputeInTx(ctx, repos, mv.ItemID)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.opts.Recorder.SnapshotRecomputed(res.Drift)
	uc.log.Info().
		Int64("movement_id", movementID).
		Int64("item_id", res.ItemID).
		Str("qty", res.After.Qty.String()).
		Str("avg_cost", res.After.AvgCost.String()).
		Msg("movimiento borrado y snapshot recalculado")
	return res, nil
}

// MovementFilter filtro del listado por ítem.
type MovementFilter struct {
	From, To *time.Time
	Limit    int
	Offset   int
}

// ListItemMovements devuelve el libro del ítem (paginado, con rango de fechas opcional).
func (uc *LedgerUseCase) ListItemMovements(ctx context.Context, itemID int64, f MovementFilter) ([]*entity.StockMovement, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	var out []*entity.StockMovement
	err := uc.txRunner.RunReadOnly(ctx, func(repos TxRepos) error {
		if _, err := repos.Items.GetByID(ctx, itemID); err != nil {
			return err
		}
		var err error
		out, err = repos.Movements.ListByItemPage(ctx, itemID, f.From, f.To, f.Limit, f.Offset)
		return err
	})
	return out, err
}

// ListLotMovements devuelve los asientos vinculados al lote.
func (uc *LedgerUseCase) ListLotMovements(ctx context.Context, lotID int64) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	err := uc.txRunner.RunReadOnly(ctx, func(repos TxRepos) error {
		if _, err := repos.Lots.GetByID(ctx, lotID); err != nil {
			return err
		}
		var err error
		out, err = repos.Movements.ListByLot(ctx, lotID)
		return err
	})
	return out, err
}

// OrderMaterialCost costo de material atribuido a la orden (consumos vigentes), por ítem.
func (uc *LedgerUseCase) OrderMaterialCost(ctx context.Context, orderID int64) ([]entity.OrderMaterialCost, error) {
	if orderID <= 0 {
		return nil, domain.Validation("order_id inválido")
	}
	var out []entity.OrderMaterialCost
	err := uc.txRunner.RunReadOnly(ctx, func(repos TxRepos) error {
		var err error
		out, err = repos.Movements.CostByOrder(ctx, orderID)
		return err
	})
	return out, err
}

// OrderIssues registros de entrega de la orden (material entregado por asignación de lotes), en orden de alta.
func (uc *LedgerUseCase) OrderIssues(ctx context.Context, orderID int64) ([]*entity.StockIssue, error) {
	if orderID <= 0 {
		return nil, domain.Validation("order_id inválido")
	}
	var out []*entity.StockIssue
	err := uc.txRunner.RunReadOnly(ctx, func(repos TxRepos) error {
		var err error
		out, err = repos.Issues.ListByOrder(ctx, orderID)
		return err
	})
	return out, err
}
