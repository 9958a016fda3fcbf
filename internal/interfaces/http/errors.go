package http

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/labstock/internal/application/dto"
	"github.com/jhoicas/labstock/internal/domain"
	"github.com/jhoicas/labstock/pkg/logger"
)

// retryAfterSeconds sugerido al cliente cuando falla la infraestructura.
const retryAfterSeconds = 2

type errorMapping struct {
	kind   error
	status int
	code   string
}

// El orden importa: un error puede envolver varios tipos y gana el primero.
var errorMappings = []errorMapping{
	{domain.ErrInfrastructure, fiber.StatusServiceUnavailable, "UNAVAILABLE"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrMissingCost, fiber.StatusUnprocessableEntity, "MISSING_COST"},
	{domain.ErrValidation, fiber.StatusUnprocessableEntity, "VALIDATION"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "INVALID_INPUT"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
}

// writeError traduce un error de dominio a la respuesta HTTP con sus campos estructurados.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	for _, m := range errorMappings {
		if !errors.Is(err, m.kind) {
			continue
		}
		if m.status == fiber.StatusServiceUnavailable {
			log.Error().Err(err).Str("path", c.Path()).Msg("falla de infraestructura")
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds))
		}
		return c.Status(m.status).JSON(dto.ErrorResponse{
			Code:    m.code,
			Message: domain.MessageOf(err),
			Details: domain.FieldsOf(err),
		})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("error no clasificado")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func invalidParam(c *fiber.Ctx, name string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_PARAM", Message: name + " inválido"})
}

// validationFailed responde 400 con el detalle de cada campo que no pasó el validator.
func validationFailed(c *fiber.Ctx, err error) error {
	details := map[string]any{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			details[fe.Field()] = fe.Tag()
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos", Details: details})
}

// paramID lee un parámetro de ruta entero positivo.
func paramID(c *fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
