package inventory

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/domain"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	invdomain "github.com/jhoicas/clinica-farmacia/internal/domain/inventory"
	"github.com/jhoicas/clinica-farmacia/pkg/logger"
)

// BeginningBalanceUseCase captura y corrige saldos iniciales mensuales (beg_month_drug).
// El saldo actual recibe solo la diferencia contra lo capturado antes.
type BeginningBalanceUseCase struct {
	txRunner TxRunner
	cache    ReportCache
	log      *logger.Logger
	opts     Options
}

// NewBeginningBalanceUseCase construye el caso de uso.
func NewBeginningBalanceUseCase(tx TxRunner, cache ReportCache, log *logger.Logger, opts Options) *BeginningBalanceUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &BeginningBalanceUseCase{txRunner: tx, cache: cache, log: log, opts: opts}
}

// beginningReference referencia de las filas "beg" de un periodo (BEG + AAAAMM).
func beginningReference(p invdomain.Period) string {
	return entity.DocumentBeginning.Prefix() + p.Key()
}

// Save crea o reemplaza el saldo inicial de un medicamento/lote en el periodo.
func (uc *BeginningBalanceUseCase) Save(ctx context.Context, actor string, in dto.BeginningBalanceRequest) (*dto.OpeningBalanceResponse, error) {
	period, err := invdomain.NewPeriod(in.Year, in.Month)
	if err != nil {
		return nil, err
	}
	key := invdomain.NewKey(in.DrugCode, in.LotNo)
	drug, lot := key.DrugCode, key.LotNo
	if drug == "" {
		return nil, domain.Invalid("drug_code", "requerido")
	}
	if in.Quantity.IsNegative() {
		return nil, domain.Invalid("qty", "no puede ser negativa")
	}
	if in.Amount.IsNegative() {
		return nil, domain.Invalid("amount", "no puede ser negativo")
	}
	if in.UnitPrice.IsNegative() {
		return nil, domain.Invalid("unit_price", "no puede ser negativo")
	}
	expiry, err := parseOptionalDate("expiry_date", in.ExpiryDate)
	if err != nil {
		return nil, err
	}
	unitCode := strings.TrimSpace(in.UnitCode)
	amount, unitPrice := in.Amount, in.UnitPrice
	if amount.IsZero() && unitPrice.IsPositive() {
		amount = invdomain.LineAmount(in.Quantity, unitPrice)
	}
	if unitPrice.IsZero() {
		unitPrice = invdomain.UnitPriceOf(amount, in.Quantity)
	}
	now := uc.opts.now()
	ref := beginningReference(period)

	var saved *entity.OpeningBalance
	err = uc.txRunner.Run(ctx, func(r Repos) error {
		led := newLedgerTx(ctx, r)
		if err := led.lock([]invdomain.Key{key}); err != nil {
			return err
		}
		old, err := r.Openings.Get(ctx, period.Year, period.Month, drug, lot)
		if err != nil {
			return err
		}
		oldMovs, err := beginningRows(ctx, r, ref, key)
		if err != nil {
			return err
		}
		oldQty, oldAmt := decimal.Zero, decimal.Zero
		if old != nil {
			oldQty, oldAmt = old.Quantity, old.Amount
			img := auditImage{Openings: []*entity.OpeningBalance{old}, Movements: oldMovs}
			if err := writeAudit(ctx, r, ref, entity.DocumentBeginning, entity.AuditUpdate, actor, img, now); err != nil {
				return err
			}
		}
		appliedQty, appliedAmt := sumApplied(oldMovs)

		diffQty, diffAmt := in.Quantity.Sub(oldQty), amount.Sub(oldAmt)
		delta := entity.BalanceDelta{DrugCode: drug, LotNo: lot, Quantity: diffQty, Amount: diffAmt, ExpiryDate: expiry}
		if unitPrice.IsPositive() {
			delta.UnitPrice = &unitPrice
		}
		if unitCode != "" {
			delta.UnitCode = &unitCode
		}
		if err := led.apply(delta); err != nil {
			return err
		}
		if err := led.checkNonNegative(false); err != nil {
			return err
		}

		saved = &entity.OpeningBalance{
			Year:          period.Year,
			Month:         period.Month,
			DrugCode:      drug,
			LotNo:         lot,
			Quantity:      in.Quantity,
			Amount:        amount,
			UnitPrice:     unitPrice,
			UnitCode:      unitCode,
			ExpiryDate:    expiry,
			Source:        entity.OpeningSourceManual,
			AppliedQty:    appliedQty.Add(diffQty),
			AppliedAmount: appliedAmt.Add(diffAmt),
			UpdatedAt:     now,
		}
		if err := r.Openings.Upsert(ctx, saved); err != nil {
			return err
		}
		if err := r.Movements.DeleteByReferenceAndKey(ctx, ref, period.Year, period.Month, drug, lot); err != nil {
			return err
		}
		return r.Movements.Append(ctx, &entity.StockMovement{
			Reference:     ref,
			DocType:       entity.DocumentBeginning,
			Date:          period.FirstDay(),
			Year:          period.Year,
			Month:         period.Month,
			DrugCode:      drug,
			LotNo:         lot,
			UnitCode:      unitCode,
			UnitCost:      unitPrice,
			BegQty:        in.Quantity,
			BegAmount:     amount,
			AppliedQty:    saved.AppliedQty,
			AppliedAmount: saved.AppliedAmount,
			ExpiryDate:    expiry,
		})
	})
	if err != nil {
		return nil, err
	}
	invalidateReports(ctx, uc.cache, uc.log)
	uc.log.ForPeriod(period.String()).Info().
		Str("drug_code", drug).
		Str("lot_no", lot).
		Str("qty", in.Quantity.String()).
		Msg("saldo inicial guardado")
	return toOpeningResponse(saved), nil
}

// Delete borra el saldo inicial y revierte lo que había aplicado al saldo actual.
func (uc *BeginningBalanceUseCase) Delete(ctx context.Context, actor string, year, month int, drugCode string, lotNo *string) error {
	period, err := invdomain.NewPeriod(year, month)
	if err != nil {
		return err
	}
	key := invdomain.NewKey(drugCode, lotNo)
	if key.DrugCode == "" {
		return domain.Invalid("drug_code", "requerido")
	}
	drug, lot := key.DrugCode, key.LotNo
	ref := beginningReference(period)
	now := uc.opts.now()

	err = uc.txRunner.Run(ctx, func(r Repos) error {
		led := newLedgerTx(ctx, r)
		if err := led.lock([]invdomain.Key{key}); err != nil {
			return err
		}
		old, err := r.Openings.Get(ctx, period.Year, period.Month, drug, lot)
		if err != nil {
			return err
		}
		if old == nil {
			return domain.NotFound("saldo inicial", period.Key()+"/"+drug+"/"+lot)
		}
		oldMovs, err := beginningRows(ctx, r, ref, key)
		if err != nil {
			return err
		}
		img := auditImage{Openings: []*entity.OpeningBalance{old}, Movements: oldMovs}
		if err := writeAudit(ctx, r, ref, entity.DocumentBeginning, entity.AuditDelete, actor, img, now); err != nil {
			return err
		}
		appliedQty, appliedAmt := sumApplied(oldMovs)
		if !appliedQty.IsZero() || !appliedAmt.IsZero() {
			if err := led.apply(entity.BalanceDelta{
				DrugCode: drug,
				LotNo:    lot,
				Quantity: appliedQty.Neg(),
				Amount:   appliedAmt.Neg(),
			}); err != nil {
				return err
			}
		}
		if err := led.checkNonNegative(false); err != nil {
			return err
		}
		if err := r.Openings.Delete(ctx, period.Year, period.Month, drug, lot); err != nil {
			return err
		}
		return r.Movements.DeleteByReferenceAndKey(ctx, ref, period.Year, period.Month, drug, lot)
	})
	if err != nil {
		return err
	}
	invalidateReports(ctx, uc.cache, uc.log)
	uc.log.ForPeriod(period.String()).Info().Str("drug_code", drug).Str("lot_no", lot).Msg("saldo inicial eliminado")
	return nil
}

// List saldos iniciales del periodo.
func (uc *BeginningBalanceUseCase) List(ctx context.Context, year, month int) ([]*dto.OpeningBalanceResponse, error) {
	period, err := invdomain.NewPeriod(year, month)
	if err != nil {
		return nil, err
	}
	out := []*dto.OpeningBalanceResponse{}
	err = uc.txRunner.RunReadOnly(ctx, func(r Repos) error {
		list, err := r.Openings.ListByPeriod(ctx, period.Year, period.Month)
		if err != nil {
			return err
		}
		for _, ob := range list {
			out = append(out, toOpeningResponse(ob))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// beginningRows filas "beg" de la clave dentro de la referencia del periodo.
func beginningRows(ctx context.Context, r Repos, ref string, key invdomain.Key) ([]*entity.StockMovement, error) {
	movs, err := r.Movements.ListByReference(ctx, ref)
	if err != nil {
		return nil, err
	}
	out := movs[:0]
	for _, m := range movs {
		if m.DrugCode == key.DrugCode && m.LotNo == key.LotNo {
			out = append(out, m)
		}
	}
	return out, nil
}

func sumApplied(movs []*entity.StockMovement) (decimal.Decimal, decimal.Decimal) {
	qty, amt := decimal.Zero, decimal.Zero
	for _, m := range movs {
		qty = qty.Add(m.AppliedQty)
		amt = amt.Add(m.AppliedAmount)
	}
	return qty, amt
}
