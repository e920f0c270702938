package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/application/inventory"
	"github.com/jhoicas/clinica-farmacia/pkg/logger"
)

// LedgerHandler saldos iniciales, cierres, saldos actuales y reportes.
type LedgerHandler struct {
	beginning *inventory.BeginningBalanceUseCase
	closing   *inventory.ClosingUseCase
	balances  *inventory.BalanceQuery
	reporter  *inventory.Reporter
	audit     *inventory.AuditQuery
	log       *logger.Logger
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(beginning *inventory.BeginningBalanceUseCase, closing *inventory.ClosingUseCase,
	balances *inventory.BalanceQuery, reporter *inventory.Reporter, audit *inventory.AuditQuery, log *logger.Logger) *LedgerHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &LedgerHandler{beginning: beginning, closing: closing, balances: balances, reporter: reporter, audit: audit, log: log}
}

// ListBeginning godoc
// @Summary      Saldos iniciales del mes
// @Tags         pharmacy
// @Security     Bearer
// @Produce      json
// @Param        year   query  int  true  "Año"
// @Param        month  query  int  true  "Mes (1-12)"
// @Success      200    {object}  dto.Envelope
// @Router       /api/pharmacy/beginning-balances [get]
func (h *LedgerHandler) ListBeginning(c *fiber.Ctx) error {
	year, month, err := yearMonthQuery(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	list, err := h.beginning.List(c.UserContext(), year, month)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.StatusOK, "saldos iniciales", list)
}

// SaveBeginning godoc
// @Summary      Capturar o corregir un saldo inicial
// @Tags         pharmacy
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BeginningBalanceRequest  true  "year, month, drug_code, lot_no, qty"
// @Success      200   {object}  dto.Envelope
// @Failure      400   {object}  dto.Envelope
// @Failure      409   {object}  dto.Envelope
// @Router       /api/pharmacy/beginning-balances [put]
func (h *LedgerHandler) SaveBeginning(c *fiber.Ctx) error {
	var in dto.BeginningBalanceRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "cuerpo inválido")
	}
	out, err := h.beginning.Save(c.UserContext(), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.StatusOK, "saldo inicial guardado", out)
}

// DeleteBeginning godoc
// @Summary      Eliminar un saldo inicial
// @Tags         pharmacy
// @Security     Bearer
// @Produce      json
// @Param        year    path   int     true   "Año"
// @Param        month   path   int     true   "Mes"
// @Param        drug    path   string  true   "Código del medicamento"
// @Param        lot_no  query  string  false  "Lote"
// @Success      200     {object}  dto.Envelope
// @Failure      404     {object}  dto.Envelope
// @Failure      409     {object}  dto.Envelope
// @Router       /api/pharmacy/beginning-balances/{year}/{month}/{drug} [delete]
func (h *LedgerHandler) DeleteBeginning(c *fiber.Ctx) error {
	year, err := intParam("year", c.Params("year"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	month, err := intParam("month", c.Params("month"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	err = h.beginning.Delete(c.UserContext(), GetUserID(c), year, month, param(c, "drug"), optionalQuery(c, "lot_no"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.StatusOK, "saldo inicial eliminado", nil)
}

// Close godoc
// @Summary      Cerrar periodo (arrastra saldos al mes siguiente)
// @Tags         pharmacy
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ClosingRequest  true  "year, month"
// @Success      200   {object}  dto.Envelope
// @Failure      400   {object}  dto.Envelope
// @Failure      503   {object}  dto.Envelope
// @Router       /api/pharmacy/closings [post]
func (h *LedgerHandler) Close(c *fiber.Ctx) error {
	var in dto.ClosingRequest
	if err := c.BodyParser(&in); err != nil {
		return badRequest(c, "body", "cuerpo inválido")
	}
	out, err := h.closing.Close(c.UserContext(), GetUserID(c), in.Year, in.Month)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.StatusOK, "periodo cerrado", out)
}

// ClosingStatus godoc
// @Summary      Estado de cierre del periodo
// @Tags         pharmacy
// @Security     Bearer
// @Produce      json
// @Param        year   path  int  true  "Año"
// @Param        month  path  int  true  "Mes"
// @Success      200    {object}  dto.Envelope
// @Router       /api/pharmacy/closings/{year}/{month} [get]
func (h *LedgerHandler) ClosingStatus(c *fiber.Ctx) error {
	year, err := intParam("year", c.Params("year"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	month, err := intParam("month", c.Params("month"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out, err := h.closing.Status(c.UserContext(), year, month)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.StatusOK, "estado del periodo", out)
}

// ListBalances godoc
// @Summary      Saldos actuales
// @Tags         pharmacy
// @Security     Bearer
// @Produce      json
// @Param        drug_code  query  string  false  "Código del medicamento"
// @Param        lot_no     query  string  false  "Lote (vacío o '-' = sin lote)"
// @Success      200        {object}  dto.Envelope
// @Router       /api/pharmacy/balances [get]
func (h *LedgerHandler) ListBalances(c *fiber.Ctx) error {
	list, err := h.balances.ListBalances(c.UserContext(), query(c, "drug_code"), optionalQuery(c, "lot_no"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.StatusOK, "saldos", list)
}

// GetBalance godoc
// @Summary      Saldo de un medicamento y lote
// @Tags         pharmacy
// @Security     Bearer
// @Produce      json
// @Param        drug    path   string  true   "Código del medicamento"
// @Param        lot_no  query  string  false  "Lote (ausente, vacío o '-' = sin lote)"
// @Success      200     {object}  dto.Envelope
// @Failure      404     {object}  dto.Envelope
// @Router       /api/pharmacy/balances/{drug} [get]
func (h *LedgerHandler) GetBalance(c *fiber.Ctx) error {
	out, err := h.balances.GetBalance(c.UserContext(), param(c, "drug"), optionalQuery(c, "lot_no"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.StatusOK, "saldo", out)
}

// AuditHistory godoc
// @Summary      Historial de auditoría de una referencia
// @Tags         pharmacy
// @Security     Bearer
// @Produce      json
// @Param        refno  path  string  true  "Referencia (documento, BEGyyyymm o CLSyyyymm)"
// @Success      200    {object}  dto.Envelope
// @Router       /api/pharmacy/audit/{refno} [get]
func (h *LedgerHandler) AuditHistory(c *fiber.Ctx) error {
	out, err := h.audit.History(c.UserContext(), param(c, "refno"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.StatusOK, "historial", out)
}

// StockCard godoc
// @Summary      Tarjeta de existencias reconstruida
// @Tags         pharmacy
// @Security     Bearer
// @Produce      json
// @Param        year       query  int     true   "Año"
// @Param        month      query  int     true   "Mes"
// @Param        drug_code  query  string  false  "Código del medicamento"
// @Param        lot_no     query  string  false  "Lote"
// @Success      200        {object}  dto.Envelope
// @Router       /api/pharmacy/reports/stock-card [get]
func (h *LedgerHandler) StockCard(c *fiber.Ctx) error {
	q, err := reportQuery(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	report, err := h.reporter.ReconstructPeriod(c.UserContext(), q)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return ok(c, fiber.StatusOK, "tarjeta de existencias", report)
}

// StockCardPDF godoc
// @Summary      Tarjeta de existencias en PDF
// @Tags         pharmacy
// @Security     Bearer
// @Produce      application/pdf
// @Param        year       query  int     true   "Año"
// @Param        month      query  int     true   "Mes"
// @Param        drug_code  query  string  false  "Código del medicamento"
// @Param        lot_no     query  string  false  "Lote"
// @Success      200        {file}  binary
// @Router       /api/pharmacy/reports/stock-card.pdf [get]
func (h *LedgerHandler) StockCardPDF(c *fiber.Ctx) error {
	q, err := reportQuery(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	pdf, err := h.reporter.StockCardPDF(c.UserContext(), q)
	if err != nil {
		return writeError(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=\"stock-card-%04d%02d.pdf\"", q.Year, q.Month))
	return c.Status(fiber.StatusOK).Send(pdf)
}

func reportQuery(c *fiber.Ctx) (inventory.ReconstructionQuery, error) {
	year, month, err := yearMonthQuery(c)
	if err != nil {
		return inventory.ReconstructionQuery{}, err
	}
	return inventory.ReconstructionQuery{
		Year:     year,
		Month:    month,
		DrugCode: query(c, "drug_code"),
		LotNo:    optionalQuery(c, "lot_no"),
	}, nil
}

// Health responde sin autenticación.
func Health(c *fiber.Ctx) error {
	return c.JSON(dto.OK("ok", fiber.Map{"status": "up"}))
}
