package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	invdomain "github.com/jhoicas/clinica-farmacia/internal/domain/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/domain/repository"
	"github.com/jhoicas/clinica-farmacia/pkg/logger"
)

// ClosingUseCase cierre de mes: copia los saldos positivos como saldos iniciales del mes siguiente.
// El periodo cerrado no se congela; se puede volver a cerrar y el resultado se reemplaza.
type ClosingUseCase struct {
	txRunner TxRunner
	cache    ReportCache
	log      *logger.Logger
	opts     Options
}

// NewClosingUseCase construye el caso de uso.
func NewClosingUseCase(tx TxRunner, cache ReportCache, log *logger.Logger, opts Options) *ClosingUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ClosingUseCase{txRunner: tx, cache: cache, log: log, opts: opts}
}

type appliedEffect struct {
	qty    decimal.Decimal
	amount decimal.Decimal
}

// Close cierra (year, month). Las filas "beg" que existían en el mes destino se reemplazan, pero el
// efecto que las correcciones manuales ya aplicaron al saldo se conserva en las filas nuevas.
func (uc *ClosingUseCase) Close(ctx context.Context, actor string, year, month int) (*dto.ClosingResponse, error) {
	source, err := invdomain.NewPeriod(year, month)
	if err != nil {
		return nil, err
	}
	target := source.Next()
	ref := beginningReference(target)
	now := uc.opts.now()

	var record *entity.PeriodClosing
	err = uc.txRunner.Run(ctx, func(r Repos) error {
		prevOpenings, err := r.Openings.ListByPeriod(ctx, target.Year, target.Month)
		if err != nil {
			return err
		}
		prevMovs, err := r.Movements.ListByReference(ctx, ref)
		if err != nil {
			return err
		}
		if len(prevOpenings) > 0 || len(prevMovs) > 0 {
			img := auditImage{Openings: prevOpenings, Movements: prevMovs}
			if err := writeAudit(ctx, r, ref, entity.DocumentBeginning, entity.AuditClose, actor, img, now); err != nil {
				return err
			}
		}
		carry := make(map[invdomain.Key]appliedEffect)
		for _, m := range prevMovs {
			if m.AppliedQty.IsZero() && m.AppliedAmount.IsZero() {
				continue
			}
			k := invdomain.Key{DrugCode: m.DrugCode, LotNo: m.LotNo}
			e := carry[k]
			carry[k] = appliedEffect{qty: e.qty.Add(m.AppliedQty), amount: e.amount.Add(m.AppliedAmount)}
		}

		if err := r.Openings.DeleteByPeriod(ctx, target.Year, target.Month); err != nil {
			return err
		}
		if err := r.Movements.DeleteByReference(ctx, ref); err != nil {
			return err
		}

		balances, err := r.Balances.List(ctx, repository.BalanceFilter{OnlyPositive: true})
		if err != nil {
			return err
		}
		for _, b := range balances {
			k := invdomain.Key{DrugCode: b.DrugCode, LotNo: b.LotNo}
			applied := carry[k]
			delete(carry, k)
			if err := r.Openings.Upsert(ctx, &entity.OpeningBalance{
				Year:          target.Year,
				Month:         target.Month,
				DrugCode:      b.DrugCode,
				LotNo:         b.LotNo,
				Quantity:      b.Quantity,
				Amount:        b.Amount,
				UnitPrice:     b.UnitPrice,
				UnitCode:      b.UnitCode,
				ExpiryDate:    b.ExpiryDate,
				Source:        entity.OpeningSourceClosing,
				AppliedQty:    applied.qty,
				AppliedAmount: applied.amount,
				UpdatedAt:     now,
			}); err != nil {
				return err
			}
			if err := r.Movements.Append(ctx, &entity.StockMovement{
				Reference:     ref,
				DocType:       entity.DocumentBeginning,
				Date:          target.FirstDay(),
				Year:          target.Year,
				Month:         target.Month,
				DrugCode:      b.DrugCode,
				LotNo:         b.LotNo,
				UnitCode:      b.UnitCode,
				UnitCost:      b.UnitPrice,
				BegQty:        b.Quantity,
				BegAmount:     b.Amount,
				AppliedQty:    applied.qty,
				AppliedAmount: applied.amount,
				ExpiryDate:    b.ExpiryDate,
			}); err != nil {
				return err
			}
		}

		// Claves sin saldo positivo que tenían correcciones aplicadas: fila "beg" en cero con el efecto.
		rest := make([]invdomain.Key, 0, len(carry))
		for k := range carry {
			rest = append(rest, k)
		}
		sort.Slice(rest, func(i, j int) bool { return rest[i].Less(rest[j]) })
		for _, k := range rest {
			if err := r.Movements.Append(ctx, &entity.StockMovement{
				Reference:     ref,
				DocType:       entity.DocumentBeginning,
				Date:          target.FirstDay(),
				Year:          target.Year,
				Month:         target.Month,
				DrugCode:      k.DrugCode,
				LotNo:         k.LotNo,
				AppliedQty:    carry[k].qty,
				AppliedAmount: carry[k].amount,
			}); err != nil {
				return err
			}
		}

		record = &entity.PeriodClosing{
			Year:        source.Year,
			Month:       source.Month,
			Status:      entity.PeriodClosed,
			RowsCarried: len(balances),
			ClosedBy:    actor,
			ClosedAt:    now,
		}
		return r.Closings.Upsert(ctx, record)
	})
	if err != nil {
		return nil, err
	}
	invalidateReports(ctx, uc.cache, uc.log)
	uc.log.ForPeriod(source.String()).Info().
		Str("target", target.String()).
		Int("rows", record.RowsCarried).
		Str("actor", actor).
		Msg("cierre de mes aplicado")
	return toClosingResponse(source, record), nil
}

// Status estado del periodo (OPEN si nunca se cerró).
func (uc *ClosingUseCase) Status(ctx context.Context, year, month int) (*dto.ClosingResponse, error) {
	period, err := invdomain.NewPeriod(year, month)
	if err != nil {
		return nil, err
	}
	var record *entity.PeriodClosing
	err = uc.txRunner.RunReadOnly(ctx, func(r Repos) error {
		record, err = r.Closings.Get(ctx, period.Year, period.Month)
		return err
	})
	if err != nil {
		return nil, err
	}
	return toClosingResponse(period, record), nil
}

func toClosingResponse(source invdomain.Period, c *entity.PeriodClosing) *dto.ClosingResponse {
	target := source.Next()
	out := &dto.ClosingResponse{
		Year:        source.Year,
		Month:       source.Month,
		Status:      entity.PeriodOpen,
		TargetYear:  target.Year,
		TargetMonth: target.Month,
	}
	if c == nil {
		return out
	}
	closedAt := c.ClosedAt
	out.Status = c.Status
	out.RowsCarried = c.RowsCarried
	out.ClosedBy = c.ClosedBy
	out.ClosedAt = &closedAt
	return out
}
