package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/internal/domain/entity"
	invdomain "github.com/jhoicas/labstock/internal/domain/inventory"
	"github.com/jhoicas/labstock/pkg/logger"
	"github.com/jhoicas/labstock/pkg/shade"
)

// CatalogUseCase administración de materiales, lotes y mapeos de etapa.
type CatalogUseCase struct {
	txRunner TxRunner
	opts     Options
	log      *logger.Logger
}

// NewCatalogUseCase construye el caso de uso.
func NewCatalogUseCase(txRunner TxRunner, opts Options) *CatalogUseCase {
	opts = opts.withDefaults()
	return &CatalogUseCase{txRunner: txRunner, opts: opts, log: opts.Logger.Component("catalog")}
}

// ItemInput datos para crear un material. El snapshot arranca en cero.
type ItemInput struct {
	Code         string
	Name         string
	ItemType     string
	Category     string
	UnitMeasure  string
	PackSize     *decimal.Decimal
	MinStock     decimal.Decimal
	ShadeEnabled bool
}

// CreateItem crea un material. El código es único.
func (uc *CatalogUseCase) CreateItem(ctx context.Context, in ItemInput) (*entity.Item, error) {
	code := strings.TrimSpace(in.Code)
	name := strings.TrimSpace(in.Name)
	if code == "" || name == "" {
		return nil, domain.Validation("código y nombre son obligatorios")
	}
	if in.MinStock.IsNegative() {
		return nil, domain.Validation("el stock mínimo no puede ser negativo")
	}
	if in.PackSize != nil && !in.PackSize.IsPositive() {
		return nil, domain.Validation("el tamaño de empaque debe ser positivo")
	}
	now := uc.opts.Clock()
	item := &entity.Item{
		Code:         code,
		Name:         name,
		ItemType:     in.ItemType,
		Category:     in.Category,
		UnitMeasure:  in.UnitMeasure,
		PackSize:     in.PackSize,
		MinStock:     invdomain.RoundQty(in.MinStock),
		ShadeEnabled: in.ShadeEnabled,
		IsActive:     true,
		StockQty:     decimal.Zero,
		AvgUnitCost:  decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		_, err := repos.Items.GetByCode(ctx, code)
		switch {
		case err == nil:
			return domain.NewError(domain.ErrDuplicate, "ya existe un material con ese código").With("code", code)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		return repos.Items.Create(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Int64("item_id", item.ID).Str("code", item.Code).Msg("material creado")
	return item, nil
}

// GetItem obtiene un material por ID.
func (uc *CatalogUseCase) GetItem(ctx context.Context, id int64) (*entity.Item, error) {
	var item *entity.Item
	err := uc.txRunner.RunReadOnly(ctx, func(repos TxRepos) error {
		var err error
		item, err = repos.Items.GetByID(ctx, id)
		return err
	})
	return item, err
}

// ListItems lista materiales paginados.
func (uc *CatalogUseCase) ListItems(ctx context.Context, activeOnly bool, limit, offset int) ([]*entity.Item, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	var out []*entity.Item
	err := uc.txRunner.RunReadOnly(ctx, func(repos TxRepos) error {
		var err error
		out, err = repos.Items.List(ctx, activeOnly, limit, offset)
		return err
	})
	return out, err
}

// LowStock materiales activos por debajo del mínimo, mayor déficit primero.
func (uc *CatalogUseCase) LowStock(ctx context.Context) ([]*entity.Item, error) {
	var out []*entity.Item
	err := uc.txRunner.RunReadOnly(ctx, func(repos TxRepos) error {
		var err error
		out, err = repos.Items.ListBelowMinStock(ctx)
		return err
	})
	return out, err
}

// LotInput datos para registrar un lote de compra.
type LotInput struct {
	ItemID         int64
	LotCode        string
	Vendor         string
	InvoiceNo      string
	Notes          string
	ShadeCode      string
	PurchaseDate   *time.Time
	ExpireDate     *time.Time
	StartUseDate   *time.Time
	EndUseDate     *time.Time
	QtyIn          decimal.Decimal
	UnitCost       decimal.Decimal
	Currency       string
	RecordPurchase bool // registrar la compra en el libro en la misma transacción
	CreatedBy      string
}

// LotResult lote creado y, si se pidió, el asiento de compra.
type LotResult struct {
	Lot      *entity.Lot
	Purchase *MovementResult
}

// CreateLot registra un lote. Valida color obligatorio para ítems con shade,
// ventana de uso coherente y sin solapes con otros lotes del mismo (ítem, color).
func (uc *CatalogUseCase) CreateLot(ctx context.Context, in LotInput) (*LotResult, error) {
	qty := invdomain.RoundQty(in.QtyIn)
	if !qty.IsPositive() {
		return nil, domain.Validation("la cantidad del lote debe ser positiva")
	}
	if in.UnitCost.IsNegative() {
		return nil, domain.Validation("el costo unitario no puede ser negativo")
	}
	if err := checkWindow(in.StartUseDate, in.EndUseDate); err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = entity.DefaultCurrency
	}
	lot := &entity.Lot{
		ItemID:       in.ItemID,
		LotCode:      strings.TrimSpace(in.LotCode),
		Vendor:       in.Vendor,
		InvoiceNo:    in.InvoiceNo,
		Notes:        in.Notes,
		ShadeCode:    shade.Normalize(in.ShadeCode),
		PurchaseDate: in.PurchaseDate,
		ExpireDate:   in.ExpireDate,
		StartUseDate: in.StartUseDate,
		EndUseDate:   in.EndUseDate,
		QtyIn:        qty,
		UnitCost:     invdomain.RoundMoney(in.UnitCost),
		Currency:     currency,
		CreatedAt:    uc.opts.Clock(),
	}

	res := &LotResult{Lot: lot}
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		// la fila del ítem serializa la verificación de solape entre lotes hermanos
		item, err := repos.Items.GetForUpdate(ctx, in.ItemID)
		if err != nil {
			return err
		}
		if item.ShadeEnabled && lot.ShadeCode == "" {
			return domain.Validation("el material requiere color (shade) en sus lotes").With("item_id", item.ID)
		}
		if err := checkOverlap(ctx, repos, lot); err != nil {
			return err
		}
		if err := repos.Lots.Create(ctx, lot); err != nil {
			return fmt.Errorf("guardar lote: %w", err)
		}
		if !in.RecordPurchase {
			return nil
		}
		var happened time.Time
		if lot.PurchaseDate != nil {
			happened = *lot.PurchaseDate
		}
		lotID := lot.ID
		res.Purchase, err = applyInTx(ctx, repos, MovementInput{
			ItemID:     lot.ItemID,
			LotID:      &lotID,
			Kind:       entity.MovementPurchase,
			Qty:        lot.QtyIn,
			UnitCost:   &lot.UnitCost,
			HappenedAt: happened,
			Reason:     "purchase",
			CreatedBy:  in.CreatedBy,
		}, uc.opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Purchase != nil {
		uc.opts.Recorder.MovementApplied(entity.MovementPurchase)
	}
	uc.log.Info().
		Int64("lot_id", lot.ID).
		Int64("item_id", lot.ItemID).
		Str("shade", lot.ShadeCode).
		Str("qty", lot.QtyIn.String()).
		Bool("purchase_recorded", res.Purchase != nil).
		Msg("lote creado")
	return res, nil
}

// GetLot obtiene un lote por ID.
func (uc *CatalogUseCase) GetLot(ctx context.Context, id int64) (*entity.Lot, error) {
	var lot *entity.Lot
	err := uc.txRunner.RunReadOnly(ctx, func(repos TxRepos) error {
		var err error
		lot, err = repos.Lots.GetByID(ctx, id)
		return err
	})
	return lot, err
}

// UpdateLotUsageWindow cambia la ventana de uso de un lote no asignado.
// Bloquea el lote y luego su ítem, el mismo orden que la asignación.
func (uc *CatalogUseCase) UpdateLotUsageWindow(ctx context.Context, lotID int64, start, end *time.Time) (*entity.Lot, error) {
	if err := checkWindow(start, end); err != nil {
		return nil, err
	}
	var lot *entity.Lot
	err := uc.txRunner.Run(ctx, func(repos TxRepos) error {
		var err error
		lot, err = repos.Lots.GetForUpdate(ctx, lotID)
		if err != nil {
			return err
		}
		if lot.Allocated {
			return domain.Validation("el lote ya está asignado; revierta la asignación antes de cambiar su ventana de uso").
				With("lot_id", lotID)
		}
		if _, err := repos.Items.GetForUpdate(ctx, lot.ItemID); err != nil {
			return err
		}
		lot.StartUseDate = start
		lot.EndUseDate = end
		if err := checkOverlap(ctx, repos, lot); err != nil {
			return err
		}
		return repos.Lots.Update(ctx, lot)
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

func checkWindow(start, end *time.Time) error {
	if start != nil && end != nil && start.After(*end) {
		return domain.Validation("la fecha de inicio de uso no puede ser posterior a la de fin")
	}
	return nil
}

func checkOverlap(ctx context.Context, repos TxRepos, lot *entity.Lot) error {
	siblings, err := repos.Lots.ListByItemAndShade(ctx, lot.ItemID, lot.ShadeCode)
	if err != nil {
		return fmt.Errorf("listar lotes del ítem: %w", err)
	}
	for _, other := range siblings {
		if other.ID == lot.ID {
			continue
		}
		if lot.Overlaps(other) {
			return domain.Validation("la ventana de uso se solapa con otro lote del mismo material y color").
				With("lot_id", other.ID).With("item_id", lot.ItemID)
		}
	}
	return nil
}

// StageMappingInput datos del mapeo material → clave de etapa.
type StageMappingInput struct {
	StageKey       string
	ItemID         int64
	ShadeSensitive bool
	Note           string
}

// CreateStageMapping registra el mapeo; si (clave, material) ya existe no hace nada y created = false.
func (uc *CatalogUseCase) CreateStageMapping(ctx context.Context, in StageMappingInput) (m *entity.StageMapping, created bool, err error) {
	key := strings.TrimSpace(in.StageKey)
	if key == "" {
		return nil, false, domain.Validation("la clave de etapa es obligatoria")
	}
	m = &entity.StageMapping{
		StageKey:       key,
		ItemID:         in.ItemID,
		ShadeSensitive: in.ShadeSensitive,
		IsActive:       true,
		Note:           in.Note,
		CreatedAt:      uc.opts.Clock(),
	}
	err = uc.txRunner.Run(ctx, func(repos TxRepos) error {
		if _, err := repos.Items.GetByID(ctx, in.ItemID); err != nil {
			return err
		}
		var err error
		created, err = repos.Stages.Create(ctx, m)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return m, created, nil
}
