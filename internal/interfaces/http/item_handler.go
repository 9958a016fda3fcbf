package http

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/labstock/internal/application/dto"
	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/pkg/logger"
)

// ItemHandler maneja las peticiones HTTP de materiales (protegido).
type ItemHandler struct {
	catalog  *inventory.CatalogUseCase
	ledger   *inventory.LedgerUseCase
	validate *validator.Validate
	log      *logger.Logger
}

// NewItemHandler construye el handler.
func NewItemHandler(catalog *inventory.CatalogUseCase, ledger *inventory.LedgerUseCase, validate *validator.Validate, log *logger.Logger) *ItemHandler {
	return &ItemHandler{catalog: catalog, ledger: ledger, validate: validate, log: log}
}

// Create godoc
// @Summary      Crear material
// @Tags         items
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateItemRequest  true  "Datos del material"
// @Success      201   {object}  dto.ItemResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/items [post]
func (h *ItemHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateItemRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := h.validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}
	item, err := h.catalog.CreateItem(c.UserContext(), inventory.ItemInput{
		Code:         in.Code,
		Name:         in.Name,
		ItemType:     in.ItemType,
		Category:     in.Category,
		UnitMeasure:  in.UnitMeasure,
		PackSize:     in.PackSize,
		MinStock:     in.MinStock,
		ShadeEnabled: in.ShadeEnabled,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ItemFromEntity(item))
}

// GetByID godoc
// @Summary      Obtener material por ID
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del material"
// @Success      200  {object}  dto.ItemResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id} [get]
func (h *ItemHandler) GetByID(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}
	item, err := h.catalog.GetItem(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ItemFromEntity(item))
}

// List godoc
// @Summary      Listar materiales
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        active  query  bool  false  "Solo activos (default true)"
// @Param        limit   query  int   false  "Límite (default 50)"
// @Param        offset  query  int   false  "Desplazamiento"
// @Success      200  {object}  dto.PageResponse
// @Router       /api/items [get]
func (h *ItemHandler) List(c *fiber.Ctx) error {
	page, err := parsePage(c, h.validate)
	if err != nil {
		return validationFailed(c, err)
	}
	items, err := h.catalog.ListItems(c.UserContext(), c.QueryBool("active", true), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PageResponse{Items: dto.ItemsFromEntities(items), Limit: page.Limit, Offset: page.Offset})
}

// LowStock godoc
// @Summary      Materiales bajo el stock mínimo
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.ItemResponse
// @Router       /api/items/low-stock [get]
func (h *ItemHandler) LowStock(c *fiber.Ctx) error {
	items, err := h.catalog.LowStock(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ItemsFromEntities(items))
}

// Recompute godoc
// @Summary      Reconstruir snapshot desde el libro
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID del material"
// @Success      200  {object}  dto.RecomputeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/recompute [post]
func (h *ItemHandler) Recompute(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}
	res, err := h.ledger.RecomputeItemSnapshot(c.UserContext(), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.RecomputeFromResult(res))
}

// Movements godoc
// @Summary      Libro de movimientos del material
// @Tags         items
// @Security     Bearer
// @Produce      json
// @Param        id      path   int     true   "ID del material"
// @Param        from    query  string  false  "Desde (2006-01-02)"
// @Param        to      query  string  false  "Hasta inclusive (2006-01-02)"
// @Param        limit   query  int     false  "Límite (default 50)"
// @Param        offset  query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.PageResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/items/{id}/movements [get]
func (h *ItemHandler) Movements(c *fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return invalidParam(c, "id")
	}
	from, err := dto.ParseDate(c.Query("from"))
	if err != nil {
		return invalidParam(c, "from")
	}
	to, err := dto.ParseDate(c.Query("to"))
	if err != nil {
		return invalidParam(c, "to")
	}
	if to != nil {
		// "to" es un día completo.
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	page, err := parsePage(c, h.validate)
	if err != nil {
		return validationFailed(c, err)
	}
	f := inventory.MovementFilter{From: from, To: to, Limit: page.Limit, Offset: page.Offset}
	list, err := h.ledger.ListItemMovements(c.UserContext(), id, f)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.PageResponse{Items: dto.MovementsFromEntities(list), Limit: f.Limit, Offset: f.Offset})
}

// parsePage lee y valida limit/offset del query string.
func parsePage(c *fiber.Ctx, validate *validator.Validate) (dto.PageRequest, error) {
	var p dto.PageRequest
	if err := c.QueryParser(&p); err != nil {
		return p, err
	}
	if err := validate.Struct(p); err != nil {
		return p, err
	}
	p.DefaultPage()
	return p, nil
}
