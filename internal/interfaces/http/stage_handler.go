package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/labstock/internal/application/dto"
	"github.com/jhoicas/labstock/internal/application/inventory"
	"github.com/jhoicas/labstock/pkg/logger"
)

// StageHandler maneja los mapeos material → clave de etapa (protegido).
type StageHandler struct {
	catalog  *inventory.CatalogUseCase
	validate *validator.Validate
	log      *logger.Logger
}

// NewStageHandler construye el handler.
func NewStageHandler(catalog *inventory.CatalogUseCase, validate *validator.Validate, log *logger.Logger) *StageHandler {
	return &StageHandler{catalog: catalog, validate: validate, log: log}
}

// Create godoc
// @Summary      Mapear material a clave de etapa
// @Description  Si el par (stage_key, item_id) ya existe devuelve 200 con el mapeo existente.
// @Tags         stage-mappings
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateStageMappingRequest  true  "stage_key, item_id, shade_sensitive"
// @Success      201   {object}  dto.StageMappingResponse
// @Success      200   {object}  dto.StageMappingResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/stage-mappings [post]
func (h *StageHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateStageMappingRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := h.validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}
	m, created, err := h.catalog.CreateStageMapping(c.UserContext(), inventory.StageMappingInput{
		StageKey:       in.StageKey,
		ItemID:         in.ItemID,
		ShadeSensitive: in.ShadeSensitive,
		Note:           in.Note,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(dto.StageMappingFromEntity(m, created))
}
