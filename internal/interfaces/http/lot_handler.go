package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/labstock/internal/application/dto"
	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/pkg/logger"
)

// LotHandler maneja las peticiones HTTP de lotes y su asignación a órdenes (protegido).
type LotHandler struct {
	catalog  *inventory.CatalogUseCase
	ledger   *inventory.LedgerUseCase
	alloc    *inventory.AllocationUseCase
	validate *validator.Validate
	log      *logger.Logger
}

// NewLotHandler construye el handler.
func NewLotHandler(catalog *inventory.CatalogUseCase, ledger *inventory.LedgerUseCase, alloc *inventory.AllocationUseCase, validate *validator.Validate, log *logger.Logger) *LotHandler {
	return &LotHandler{catalog: catalog, ledger: ledger, alloc: alloc, validate: validate, log: log}
}

// Create godoc
// @Summary      Registrar lote de compra
// @Tags         lots
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateLotRequest  true  "Datos del lote; record_purchase registra la compra en el libro"
// @Success      201   {object}  dto.CreateLotResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/lots [post]
func (h *LotHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateLotRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := h.validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}
	// El validator ya verificó el formato de las fechas.
	purchase, _ := dto.ParseDate(in.PurchaseDate)
	expire, _ := dto.ParseDate(in.ExpireDate)
	start, _ := dto.ParseDate(in.StartUseDate)
	end, _ := dto.ParseDate(in.EndUseDate)

	res, err := h.catalog.CreateLot(c.UserContext(), inventory.LotInput{
		ItemID:         in.ItemID,
		LotCode:        in.LotCode,
		Vendor:         in.Vendor,
		InvoiceNo:      in.InvoiceNo,
		Notes:          in.Notes,
		ShadeCode:      in.ShadeCode,
		PurchaseDate:   purchase,
		ExpireDate:     expire,
		StartUseDate:   start,
		EndUseDate:     end,
		QtyIn:          in.QtyIn,
		UnitCost:       in.UnitCost,
		Currency:       in.Currency,
		RecordPurchase: in.RecordPurchase,
		CreatedBy:      GetUserID(c),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := dto.CreateLotResponse{Lot: dto.LotFromEntity(res.Lot)}
	if res.Purchase != nil {
		p := dto.ApplyMovementFromResult(res.Purchase)
		out.Purchase = &p
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener lote por ID
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del lote"
// @Success      200  {object}  dto.LotResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/lots/{id} [get]
func (h *LotHandler) GetByID(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}
	lot, err := h.catalog.GetLot(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.LotFromEntity(lot))
}

// UpdateUsageWindow godoc
// @Summary      Cambiar ventana de uso del lote
// @Tags         lots
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                     true  "ID del lote"
// @Param        body  body  dto.UsageWindowRequest  true  "start_use_date, end_use_date"
// @Success      200   {object}  dto.LotResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/usage-window [put]
func (h *LotHandler) UpdateUsageWindow(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}
	var in dto.UsageWindowRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := h.validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}
	start, _ := dto.ParseDate(in.StartUseDate)
	end, _ := dto.ParseDate(in.EndUseDate)
	lot, err := h.catalog.UpdateLotUsageWindow(c.UserContext(), id, start, end)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.LotFromEntity(lot))
}

// Allocate godoc
// @Summary      Asignar lote a órdenes
// @Description  Reparte la cantidad del lote entre las órdenes que completaron la etapa dentro de la ventana de uso.
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del lote"
// @Success      200  {object}  dto.AllocationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/allocate [post]
func (h *LotHandler) Allocate(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}
	res, err := h.alloc.Allocate(c.UserContext(), id, GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.AllocationFromResult(res))
}

// Rollback godoc
// @Summary      Revertir asignación del lote
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del lote"
// @Success      200  {object}  dto.RollbackResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/rollback [post]
func (h *LotHandler) Rollback(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}
	res, err := h.alloc.Rollback(c.UserContext(), id, GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.RollbackFromResult(res))
}

// Simulate godoc
// @Summary      Vista previa de la asignación
// @Description  Calcula el reparto sin escribir nada.
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del lote"
// @Success      200  {object}  dto.SimulationResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/simulation [get]
func (h *LotHandler) Simulate(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}
	res, err := h.alloc.Simulate(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SimulationFromResult(res))
}

// Movements godoc
// @Summary      Movimientos vinculados al lote
// @Tags         lots
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del lote"
// @Success      200  {array}   dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/lots/{id}/movements [get]
func (h *LotHandler) Movements(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}
	list, err := h.ledger.ListLotMovements(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.MovementsFromEntities(list))
}
