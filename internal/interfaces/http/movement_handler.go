package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/labstock/internal/application/dto"
	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/internal/domain/entity"
	"github.com/jhoicas/labstock/pkg/logger"
)

// MovementHandler maneja las peticiones HTTP del libro de movimientos (protegido).
type MovementHandler struct {
	ledger   *inventory.LedgerUseCase
	validate *validator.Validate
	log      *logger.Logger
}

// NewMovementHandler construye el handler.
func NewMovementHandler(ledger *inventory.LedgerUseCase, validate *validator.Validate, log *logger.Logger) *MovementHandler {
	return &MovementHandler{ledger: ledger, validate: validate, log: log}
}

// Register godoc
// @Summary      Registrar movimiento de stock
// @Description  El signo de qty se normaliza según kind. Las salidas toman el costo promedio salvo override positivo.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "item_id, kind, qty, unit_cost opcional"
// @Success      201   {object}  dto.ApplyMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/movements [post]
func (h *MovementHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := h.validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}
	mv := inventory.MovementInput{
		ItemID:    in.ItemID,
		LotID:     in.LotID,
		Kind:      entity.MovementKind(in.Kind),
		Qty:       in.Qty,
		UnitCost:  in.UnitCost,
		OrderID:   in.OrderID,
		Reason:    in.Reason,
		CreatedBy: GetUserID(c),
	}
	if in.HappenedAt != nil {
		mv.HappenedAt = *in.HappenedAt
	}
	res, err := h.ledger.ApplyMovement(c.UserContext(), mv)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ApplyMovementFromResult(res))
}

// Delete godoc
// @Summary      Borrar movimiento
// @Description  Borra el asiento y reconstruye el snapshot del material desde el libro.
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del movimiento"
// @Success      200  {object}  dto.RecomputeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/movements/{id} [delete]
func (h *MovementHandler) Delete(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}
	res, err := h.ledger.DeleteMovement(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.RecomputeFromResult(res))
}

// OrderMaterialCost godoc
// @Summary      Costo de material de una orden
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID de la orden"
// @Success      200  {object}  dto.OrderMaterialCostResponse
// @Router       /api/orders/{id}/material-cost [get]
func (h *MovementHandler) OrderMaterialCost(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}
	costs, err := h.ledger.OrderMaterialCost(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.OrderMaterialCostFromEntities(id, costs))
}

// OrderIssues godoc
// @Summary      Entregas de material a una orden
// @Description  Registros de entrega creados por la asignación de lotes.
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID de la orden"
// @Success      200  {array}  dto.StockIssueResponse
// @Router       /api/orders/{id}/issues [get]
func (h *MovementHandler) OrderIssues(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}
	issues, err := h.ledger.OrderIssues(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.StockIssuesFromEntities(issues))
}
