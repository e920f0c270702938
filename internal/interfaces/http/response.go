package http

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/application/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/domain"
	"github.com/jhoicas/clinica-farmacia/pkg/logger"
)

// retryAfterSeconds valor de Retry-After en respuestas 503.
const retryAfterSeconds = 2

// statusClientClosedRequest el cliente cerró la conexión antes de la respuesta (convención de nginx).
const statusClientClosedRequest = 499

func ok(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(dto.OK(message, data))
}

func badRequest(c *fiber.Ctx, field, reason string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(field+": "+reason, "VALIDATION_ERROR",
		fiber.Map{"field": field, "reason": reason}))
}

// writeError traduce errores de dominio a status HTTP con el envelope común.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	var (
		verr  *domain.ValidationError
		stock *domain.InsufficientStockError
	)
	switch {
	case errors.As(err, &verr):
		return badRequest(c, verr.Field, verr.Reason)
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.Fail(err.Error(), "VALIDATION_ERROR", nil))
	case errors.As(err, &stock):
		return c.Status(fiber.StatusConflict).JSON(dto.Fail(stock.Error(), "INSUFFICIENT_STOCK",
			dto.InsufficientStockDetails{
				DrugCode:  stock.DrugCode,
				LotNo:     stock.LotNo,
				Available: stock.Available.String(),
				Requested: stock.Requested.String(),
			}))
	case errors.Is(err, domain.ErrBalanceNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.Fail(err.Error(), "BALANCE_NOT_FOUND", nil))
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.Fail(err.Error(), "NOT_FOUND", nil))
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.Fail(err.Error(), "DUPLICATE_REFERENCE", nil))
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrIntegrity):
		return c.Status(fiber.StatusConflict).JSON(dto.Fail(err.Error(), "CONFLICT", nil))
	case errors.Is(err, domain.ErrTransient), errors.Is(err, context.DeadlineExceeded):
		log.Warn().Err(err).Str("path", c.Path()).Msg("operación no disponible temporalmente")
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfterSeconds))
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.Fail("servicio no disponible, reintente", "UNAVAILABLE", nil))
	case errors.Is(err, context.Canceled):
		log.Warn().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("petición cancelada por el cliente")
		return c.Status(statusClientClosedRequest).JSON(dto.Fail("petición cancelada", "CANCELED", nil))
	case errors.Is(err, inventory.ErrNoRenderer):
		return c.Status(fiber.StatusNotImplemented).JSON(dto.Fail(err.Error(), "NOT_IMPLEMENTED", nil))
	default:
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Fail("error interno", "INTERNAL", nil))
	}
}
