package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/domain"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	invdomain "github.com/jhoicas/clinica-farmacia/internal/domain/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/domain/repository"
	"github.com/jhoicas/clinica-farmacia/pkg/logger"
)

// Options ajustes del ledger que vienen de configuración.
type Options struct {
	// AllowNegativeOverride habilita la bandera allow_negative de préstamos y conteos.
	AllowNegativeOverride bool
	// Now reloj inyectable (tests); por defecto time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now().UTC()
	}
	return o.Now().UTC()
}

// DocumentProcessor crea, edita y borra documentos de un tipo (recepción, devolución, préstamo
// o conteo físico). Toda operación corre en una sola transacción: se revierte el efecto previo
// del documento, se aplican las líneas nuevas y se reescriben sus filas de la tarjeta.
type DocumentProcessor struct {
	docType  entity.DocumentType
	txRunner TxRunner
	cache    ReportCache
	log      *logger.Logger
	opts     Options
}

// NewReceiptProcessor procesador de recepciones (entrada de mercancía).
func NewReceiptProcessor(tx TxRunner, cache ReportCache, log *logger.Logger, opts Options) *DocumentProcessor {
	return newDocumentProcessor(entity.DocumentReceipt, tx, cache, log, opts)
}

// NewReturnProcessor procesador de devoluciones a proveedor.
func NewReturnProcessor(tx TxRunner, cache ReportCache, log *logger.Logger, opts Options) *DocumentProcessor {
	return newDocumentProcessor(entity.DocumentReturn, tx, cache, log, opts)
}

// NewBorrowProcessor procesador de préstamos / salidas a servicios.
func NewBorrowProcessor(tx TxRunner, cache ReportCache, log *logger.Logger, opts Options) *DocumentProcessor {
	return newDocumentProcessor(entity.DocumentBorrow, tx, cache, log, opts)
}

// NewCheckStockProcessor procesador de ajustes por conteo físico.
func NewCheckStockProcessor(tx TxRunner, cache ReportCache, log *logger.Logger, opts Options) *DocumentProcessor {
	return newDocumentProcessor(entity.DocumentCheckStock, tx, cache, log, opts)
}

func newDocumentProcessor(t entity.DocumentType, tx TxRunner, cache ReportCache, log *logger.Logger, opts Options) *DocumentProcessor {
	if log == nil {
		log = logger.Nop()
	}
	return &DocumentProcessor{docType: t, txRunner: tx, cache: cache, log: log, opts: opts}
}

// Type tipo de documento que maneja el procesador.
func (p *DocumentProcessor) Type() entity.DocumentType { return p.docType }

// Create registra un documento nuevo. Si no trae referencia se asigna la siguiente del mes.
func (p *DocumentProcessor) Create(ctx context.Context, actor string, in dto.DocumentRequest) (*dto.DocumentResponse, error) {
	doc, lines, err := p.parse(in)
	if err != nil {
		return nil, err
	}
	now := p.opts.now()
	doc.CreatedBy = actor
	doc.CreatedAt = now
	doc.UpdatedAt = now

	var closed bool
	err = p.txRunner.Run(ctx, func(r Repos) error {
		if doc.Reference == "" {
			ref, err := nextReference(ctx, r.Documents, p.docType, invdomain.Period{Year: doc.Year, Month: doc.Month})
			if err != nil {
				return err
			}
			doc.Reference = ref
		} else {
			existing, err := r.Documents.GetByReference(ctx, doc.Reference)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("%w: %s", domain.ErrDuplicate, doc.Reference)
			}
		}

		led := newLedgerTx(ctx, r)
		if err := led.lock(linesKeys(lines)); err != nil {
			return err
		}
		if err := p.post(led, doc, lines); err != nil {
			return err
		}
		if err := r.Documents.Create(ctx, doc); err != nil {
			return err
		}
		if err := r.Documents.ReplaceLines(ctx, doc.Reference, lines); err != nil {
			return err
		}
		c, err := periodClosed(ctx, r, doc.Year, doc.Month)
		closed = c
		return err
	})
	if err != nil {
		return nil, err
	}
	p.afterCommit(ctx, "create", doc, closed)
	return toDocumentResponse(doc, lines), nil
}

// Update reemplaza cabecera y líneas de un documento existente (revertir y volver a aplicar).
func (p *DocumentProcessor) Update(ctx context.Context, actor, reference string, in dto.DocumentRequest) (*dto.DocumentResponse, error) {
	reference = strings.TrimSpace(reference)
	doc, lines, err := p.parse(in)
	if err != nil {
		return nil, err
	}
	doc.Reference = reference
	now := p.opts.now()

	var closed bool
	err = p.txRunner.Run(ctx, func(r Repos) error {
		old, err := p.lockDocument(ctx, r, reference)
		if err != nil {
			return err
		}
		oldLines, err := p.captureBeforeImage(ctx, r, old, entity.AuditUpdate, actor, now)
		if err != nil {
			return err
		}

		led := newLedgerTx(ctx, r)
		if err := led.lock(linesKeys(oldLines, lines)); err != nil {
			return err
		}
		if err := led.reverse(oldLines); err != nil {
			return err
		}
		if err := r.Movements.DeleteByReference(ctx, reference); err != nil {
			return err
		}

		doc.CreatedBy = old.CreatedBy
		doc.CreatedAt = old.CreatedAt
		doc.UpdatedAt = now
		if err := p.post(led, doc, lines); err != nil {
			return err
		}
		if err := r.Documents.Update(ctx, doc); err != nil {
			return err
		}
		if err := r.Documents.ReplaceLines(ctx, reference, lines); err != nil {
			return err
		}
		closed, err = periodClosed(ctx, r, doc.Year, doc.Month)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.afterCommit(ctx, "update", doc, closed)
	return toDocumentResponse(doc, lines), nil
}

// Delete revierte el efecto del documento y lo borra junto con sus filas de la tarjeta.
func (p *DocumentProcessor) Delete(ctx context.Context, actor, reference string) error {
	reference = strings.TrimSpace(reference)
	now := p.opts.now()

	var (
		old    *entity.Document
		closed bool
	)
	err := p.txRunner.Run(ctx, func(r Repos) error {
		var err error
		old, err = p.lockDocument(ctx, r, reference)
		if err != nil {
			return err
		}
		oldLines, err := p.captureBeforeImage(ctx, r, old, entity.AuditDelete, actor, now)
		if err != nil {
			return err
		}

		led := newLedgerTx(ctx, r)
		if err := led.lock(linesKeys(oldLines)); err != nil {
			return err
		}
		if err := led.reverse(oldLines); err != nil {
			return err
		}
		if err := r.Movements.DeleteByReference(ctx, reference); err != nil {
			return err
		}
		if err := led.checkNonNegative(p.allowNegative(old)); err != nil {
			return err
		}
		if err := r.Documents.Delete(ctx, reference); err != nil {
			return err
		}
		closed, err = periodClosed(ctx, r, old.Year, old.Month)
		return err
	})
	if err != nil {
		return err
	}
	p.afterCommit(ctx, "delete", old, closed)
	return nil
}

// Get devuelve cabecera y líneas de un documento.
func (p *DocumentProcessor) Get(ctx context.Context, reference string) (*dto.DocumentResponse, error) {
	reference = strings.TrimSpace(reference)
	var out *dto.DocumentResponse
	err := p.txRunner.RunReadOnly(ctx, func(r Repos) error {
		doc, err := r.Documents.GetByReference(ctx, reference)
		if err != nil {
			return err
		}
		if doc == nil || doc.Type != p.docType {
			return domain.NotFound("documento", reference)
		}
		lines, err := r.Documents.ListLines(ctx, reference)
		if err != nil {
			return err
		}
		out = toDocumentResponse(doc, lines)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateReference siguiente referencia sugerida para el mes (prefijo + AAAAMM + secuencia de 4 dígitos).
// Es orientativa: Create vuelve a validar que no exista.
func (p *DocumentProcessor) GenerateReference(ctx context.Context, year, month int) (string, error) {
	period, err := invdomain.NewPeriod(year, month)
	if err != nil {
		return "", err
	}
	var ref string
	err = p.txRunner.RunReadOnly(ctx, func(r Repos) error {
		ref, err = nextReference(ctx, r.Documents, p.docType, period)
		return err
	})
	if err != nil {
		return "", err
	}
	return ref, nil
}

func nextReference(ctx context.Context, docs repository.DocumentRepository, t entity.DocumentType, period invdomain.Period) (string, error) {
	prefix := t.Prefix() + period.Key()
	refs, err := docs.ListReferences(ctx, prefix)
	if err != nil {
		return "", err
	}
	seq := 0
	for _, ref := range refs {
		n, err := strconv.Atoi(strings.TrimPrefix(ref, prefix))
		if err == nil && n > seq {
			seq = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

// parse valida la petición fuera de la transacción y normaliza lotes y fechas.
func (p *DocumentProcessor) parse(in dto.DocumentRequest) (*entity.Document, []*entity.DocumentLine, error) {
	date, err := parseDate("date", in.Date)
	if err != nil {
		return nil, nil, err
	}
	period := invdomain.PeriodOf(date)
	if in.Year != 0 || in.Month != 0 {
		declared, err := invdomain.NewPeriod(in.Year, in.Month)
		if err != nil {
			return nil, nil, err
		}
		if declared != period {
			return nil, nil, domain.Invalid("month", "no coincide con la fecha del documento")
		}
	}
	if len(in.Lines) == 0 {
		return nil, nil, domain.Invalid("lines", "el documento debe tener al menos una línea")
	}

	lines := make([]*entity.DocumentLine, 0, len(in.Lines))
	for i, l := range in.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		drug := strings.TrimSpace(l.DrugCode)
		if drug == "" {
			return nil, nil, domain.Invalid(field+".drug_code", "requerido")
		}
		if p.docType == entity.DocumentCheckStock {
			if l.Quantity.IsNegative() {
				return nil, nil, domain.Invalid(field+".qty", "la cantidad contada no puede ser negativa")
			}
		} else if !l.Quantity.IsPositive() {
			return nil, nil, domain.Invalid(field+".qty", "debe ser mayor que cero")
		}
		if l.UnitCost.IsNegative() {
			return nil, nil, domain.Invalid(field+".unit_cost", "no puede ser negativo")
		}
		expiry, err := parseOptionalDate(field+".expiry_date", l.ExpiryDate)
		if err != nil {
			return nil, nil, err
		}
		lines = append(lines, &entity.DocumentLine{
			LineNo:     i + 1,
			DrugCode:   drug,
			LotNo:      invdomain.NormalizeLot(l.LotNo),
			UnitCode:   strings.TrimSpace(l.UnitCode),
			Quantity:   l.Quantity,
			UnitCost:   l.UnitCost,
			ExpiryDate: expiry,
		})
	}

	doc := &entity.Document{
		Reference:      strings.TrimSpace(in.Reference),
		Type:           p.docType,
		Date:           date,
		Year:           period.Year,
		Month:          period.Month,
		Status:         entity.DocumentStatusPosted,
		Remark:         strings.TrimSpace(in.Remark),
		SupplierCode:   strings.TrimSpace(in.SupplierCode),
		DepartmentCode: strings.TrimSpace(in.DepartmentCode),
		AllowNegative:  in.AllowNegative,
	}
	return doc, lines, nil
}

// post aplica las líneas en orden, escribe sus filas de la tarjeta y recalcula el total.
func (p *DocumentProcessor) post(led *ledgerTx, doc *entity.Document, lines []*entity.DocumentLine) error {
	allowNeg := p.allowNegative(doc)
	total := decimal.Zero
	for _, line := range lines {
		line.Reference = doc.Reference
		key := invdomain.Key{DrugCode: line.DrugCode, LotNo: line.LotNo}
		bal, err := led.balance(key)
		if err != nil {
			return err
		}
		mov := &entity.StockMovement{
			Reference:  doc.Reference,
			DocType:    doc.Type,
			Date:       doc.Date,
			Year:       doc.Year,
			Month:      doc.Month,
			DrugCode:   line.DrugCode,
			LotNo:      line.LotNo,
			UnitCode:   line.UnitCode,
			ExpiryDate: line.ExpiryDate,
		}
		delta := entity.BalanceDelta{DrugCode: line.DrugCode, LotNo: line.LotNo}
		if err := p.effect(line, bal, allowNeg, mov, &delta); err != nil {
			return err
		}
		if err := led.apply(delta); err != nil {
			return err
		}
		if err := led.r.Movements.Append(led.ctx, mov); err != nil {
			return err
		}
		total = total.Add(line.Amount)
	}
	doc.Total = total
	return led.checkNonNegative(allowNeg)
}

// effect calcula el efecto firmado de una línea sobre el saldo vigente y completa la fila de la tarjeta.
func (p *DocumentProcessor) effect(line *entity.DocumentLine, bal *entity.Balance, allowNeg bool,
	mov *entity.StockMovement, delta *entity.BalanceDelta) error {
	balQty, balAmt := decimal.Zero, decimal.Zero
	if bal != nil {
		balQty, balAmt = bal.Quantity, bal.Amount
	}

	switch p.docType {
	case entity.DocumentReceipt:
		amt := invdomain.LineAmount(line.Quantity, line.UnitCost)
		line.Amount = amt
		line.AppliedQty, line.AppliedAmount = line.Quantity, amt
		mov.InQty, mov.InAmount = line.Quantity, amt
		mov.UnitCost = line.UnitCost
		if line.UnitCost.IsPositive() {
			cost := line.UnitCost
			delta.UnitPrice = &cost
		}
		if line.UnitCode != "" {
			unit := line.UnitCode
			delta.UnitCode = &unit
		}
		delta.ExpiryDate = line.ExpiryDate

	case entity.DocumentReturn, entity.DocumentBorrow:
		if p.docType == entity.DocumentReturn && bal == nil {
			return domain.BalanceNotFound(line.DrugCode, line.LotNo)
		}
		if line.Quantity.GreaterThan(balQty) && !allowNeg {
			return &domain.InsufficientStockError{
				DrugCode:  line.DrugCode,
				LotNo:     line.LotNo,
				Available: balQty,
				Requested: line.Quantity,
			}
		}
		var amt decimal.Decimal
		if bal == nil {
			amt = invdomain.LineAmount(line.Quantity, line.UnitCost)
		} else {
			amt = invdomain.OutflowAmount(line.Quantity, line.UnitCost, balQty, balAmt)
		}
		line.Amount = amt
		line.AppliedQty, line.AppliedAmount = line.Quantity.Neg(), amt.Neg()
		mov.OutQty, mov.OutAmount = line.Quantity, amt
		mov.UnitCost = invdomain.UnitPriceOf(amt, line.Quantity)

	case entity.DocumentCheckStock:
		line.SystemQuantity = balQty
		diff := line.Quantity.Sub(balQty)
		cost := line.UnitCost
		if !cost.IsPositive() {
			cost = invdomain.UnitPriceOf(balAmt, balQty)
		}
		var amt decimal.Decimal
		if line.Quantity.IsZero() {
			amt = balAmt.Neg()
		} else {
			amt = invdomain.LineAmount(diff, cost)
		}
		line.Amount = amt
		line.AppliedQty, line.AppliedAmount = diff, amt
		mov.AdjQty, mov.AdjAmount = diff, amt
		mov.UnitCost = cost

	default:
		return domain.Invalid("type", "tipo de documento no soportado")
	}

	mov.AppliedQty, mov.AppliedAmount = line.AppliedQty, line.AppliedAmount
	delta.Quantity, delta.Amount = line.AppliedQty, line.AppliedAmount
	return nil
}

// allowNegative la bandera del documento solo vale para préstamos y conteos, y si la configuración lo permite.
func (p *DocumentProcessor) allowNegative(doc *entity.Document) bool {
	if !doc.AllowNegative || !p.opts.AllowNegativeOverride {
		return false
	}
	return p.docType == entity.DocumentBorrow || p.docType == entity.DocumentCheckStock
}

func (p *DocumentProcessor) lockDocument(ctx context.Context, r Repos, reference string) (*entity.Document, error) {
	if reference == "" {
		return nil, domain.Invalid("refno", "requerido")
	}
	doc, err := r.Documents.GetForUpdate(ctx, reference)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.Type != p.docType {
		return nil, domain.NotFound("documento", reference)
	}
	return doc, nil
}

// captureBeforeImage guarda cabecera, líneas y filas de la tarjeta antes de reescribirlas.
func (p *DocumentProcessor) captureBeforeImage(ctx context.Context, r Repos, old *entity.Document,
	action, actor string, now time.Time) ([]*entity.DocumentLine, error) {
	lines, err := r.Documents.ListLines(ctx, old.Reference)
	if err != nil {
		return nil, err
	}
	movs, err := r.Movements.ListByReference(ctx, old.Reference)
	if err != nil {
		return nil, err
	}
	img := auditImage{Document: old, Lines: lines, Movements: movs}
	if err := writeAudit(ctx, r, old.Reference, old.Type, action, actor, img, now); err != nil {
		return nil, err
	}
	return lines, nil
}

func (p *DocumentProcessor) afterCommit(ctx context.Context, action string, doc *entity.Document, closed bool) {
	invalidateReports(ctx, p.cache, p.log)
	log := p.log.ForDocument(doc.Reference, string(doc.Type))
	if closed {
		log.Warn().
			Str("period", invdomain.Period{Year: doc.Year, Month: doc.Month}.String()).
			Msg("movimiento registrado en un periodo ya cerrado")
	}
	log.Info().
		Str("action", action).
		Str("total", doc.Total.String()).
		Msg("documento de inventario aplicado")
}

func periodClosed(ctx context.Context, r Repos, year, month int) (bool, error) {
	c, err := r.Closings.Get(ctx, year, month)
	if err != nil {
		return false, err
	}
	return c != nil && c.Status == entity.PeriodClosed, nil
}

func invalidateReports(ctx context.Context, cache ReportCache, log *logger.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("no se pudo invalidar la cache de reportes")
	}
}
