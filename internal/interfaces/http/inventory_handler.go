package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/application/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/domain"
	"github.com/jhoicas/clinica-farmacia/pkg/logger"
)

// DocumentHandler maneja los documentos de inventario de un tipo (recepción, devolución,
// préstamo o conteo físico). Se registra una instancia por tipo.
type DocumentHandler struct {
	proc *inventory.DocumentProcessor
	log  *logger.Logger
}

// NewDocumentHandler construye el handler para el processor dado.
func NewDocumentHandler(proc *inventory.DocumentProcessor, log *logger.Logger) *DocumentHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &DocumentHandler{proc: proc, log: log}
}

// Create godoc
// @Summary      Registrar documento de inventario
// @Tags         pharmacy
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.DocumentRequest  true  "refno (vacío = autogenerado), date, lines"
// @Success      201   {object}  dto.Envelope
// @Failure      400   {object}  dto.Envelope
// @Failure      404   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope
// @Failure      503   {object}  dto.Envelope
// @Router       /api/pharmacy/{type} [post]
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	var in dto.DocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "cuerpo inválido")
	}
	out, err := h.proc.Create(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.StatusCreated, "documento registrado", out)
}

// Get godoc
// @Summary      Consultar documento por referencia
// @Tags         pharmacy
// @Security     Bearer
// @Produce      json
// @Param        refno  path  string  true  "Referencia"
// @Success      200    {object}  dto.Envelope
// @Failure      404    {object}  dto.Envelope
// @Router       /api/pharmacy/{type}/{refno} [get]
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	out, err := h.proc.Get(c.UserContext(), param(c, "refno"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.StatusOK, "documento", out)
}

// Update godoc
// @Summary      Editar documento (revierte el efecto anterior y aplica el nuevo)
// @Tags         pharmacy
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        refno  path  string               true  "Referencia"
// @Param        body   body  dto.DocumentRequest  true  "Documento completo"
// @Success      200    {object}  dto.Envelope
// @Failure      400    {object}  dto.Envelope
// @Failure      404    {object}  dto.Envelope
// @Failure      409    {object}  dto.Envelope
// @Router       /api/pharmacy/{type}/{refno} [put]
func (h *DocumentHandler) Update(c *fiber.Ctx) error {
	var in dto.DocumentRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "cuerpo inválido")
	}
	out, err := h.proc.Update(c.UserContext(), GetUserID(c), param(c, "refno"), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.StatusOK, "documento actualizado", out)
}

// Delete godoc
// @Summary      Eliminar documento (revierte su efecto en el saldo)
// @Tags         pharmacy
// @Security     Bearer
// @Produce      json
// @Param        refno  path  string  true  "Referencia"
// @Success      200    {object}  dto.Envelope
// @Failure      404    {object}  dto.Envelope
// @Failure      409    {object}  dto.Envelope
// @Router       /api/pharmacy/{type}/{refno} [delete]
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	ref := param(c, "refno")
	if err := h.proc.Delete(c.UserContext(), GetUserID(c), ref); err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.StatusOK, "documento eliminado", dto.RefNoResponse{RefNo: ref})
}

// GenerateRefNo godoc
// @Summary      Siguiente referencia sugerida del mes
// @Tags         pharmacy
// @Security     Bearer
// @Produce      json
// @Param        year   query  int  true  "Año"
// @Param        month  query  int  true  "Mes (1-12)"
// @Success      200    {object}  dto.Envelope
// @Failure      400    {object}  dto.Envelope
// @Router       /api/pharmacy/{type}/generate/refno [get]
func (h *DocumentHandler) GenerateRefNo(c *fiber.Ctx) error {
	year, month, err := yearMonthQuery(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	ref, err := h.proc.GenerateReference(c.UserContext(), year, month)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.StatusOK, "referencia sugerida", dto.RefNoResponse{RefNo: ref})
}

// intParam entero obligatorio (path o query).
func intParam(field, raw string) (int, error) {
	if raw == "" {
		return 0, domain.Invalid(field, "requerido")
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Invalid(field, "debe ser numérico")
	}
	return n, nil
}

func yearMonthQuery(c *fiber.Ctx) (int, int, error) {
	year, err := intParam("year", c.Query("year"))
	if err != nil {
		return 0, 0, err
	}
	month, err := intParam("month", c.Query("month"))
	if err != nil {
		return 0, 0, err
	}
	return year, month, nil
}

// optionalQuery devuelve nil si el parámetro no vino en la URL.
func optionalQuery(c *fiber.Ctx, key string) *string {
	if !c.Context().QueryArgs().Has(key) {
		return nil
	}
	v := query(c, key)
	return &v
}

// param copia el valor del path: fasthttp reutiliza el buffer de la petición y
// los repositorios guardan la referencia más allá del handler.
func param(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Params(key))
}

func query(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Query(key))
}
