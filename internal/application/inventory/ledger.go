package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/clinica-farmacia/internal/domain"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	invdomain "github.com/jhoicas/clinica-farmacia/internal/domain/inventory"
)

// ledgerTx lleva el estado de los saldos tocados por una operación dentro de su transacción:
// filas bloqueadas, cantidad al momento del bloqueo y salidas solicitadas por clave.
type ledgerTx struct {
	ctx     context.Context
	r       Repos
	current map[invdomain.Key]*entity.Balance
	before  map[invdomain.Key]decimal.Decimal
	outflow map[invdomain.Key]decimal.Decimal
}

func newLedgerTx(ctx context.Context, r Repos) *ledgerTx {
	return &ledgerTx{
		ctx:     ctx,
		r:       r,
		current: make(map[invdomain.Key]*entity.Balance),
		before:  make(map[invdomain.Key]decimal.Decimal),
		outflow: make(map[invdomain.Key]decimal.Decimal),
	}
}

// lock bloquea (SELECT ... FOR UPDATE) las filas de saldo en orden determinista.
func (l *ledgerTx) lock(keys []invdomain.Key) error {
	sorted := make([]invdomain.Key, 0, len(keys))
	seen := make(map[invdomain.Key]bool, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		sorted = append(sorted, k)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	for _, k := range sorted {
		if _, ok := l.before[k]; ok {
			continue
		}
		b, err := l.r.Balances.GetForUpdate(l.ctx, k.DrugCode, k.LotNo)
		if err != nil {
			return err
		}
		l.current[k] = b
		if b != nil {
			l.before[k] = b.Quantity
		} else {
			l.before[k] = decimal.Zero
		}
	}
	return nil
}

// balance saldo vigente dentro de la transacción (nil si no hay fila).
func (l *ledgerTx) balance(k invdomain.Key) (*entity.Balance, error) {
	if _, ok := l.before[k]; !ok {
		if err := l.lock([]invdomain.Key{k}); err != nil {
			return nil, err
		}
	}
	return l.current[k], nil
}

// available cantidad disponible vigente (cero si no hay fila).
func (l *ledgerTx) available(k invdomain.Key) (decimal.Decimal, error) {
	b, err := l.balance(k)
	if err != nil {
		return decimal.Zero, err
	}
	if b == nil {
		return decimal.Zero, nil
	}
	return b.Quantity, nil
}

// apply aplica un delta al saldo (upsert aditivo) y registra las salidas.
func (l *ledgerTx) apply(delta entity.BalanceDelta) error {
	k := invdomain.Key{DrugCode: delta.DrugCode, LotNo: delta.LotNo}
	if _, err := l.balance(k); err != nil {
		return err
	}
	if delta.Quantity.IsNegative() {
		l.outflow[k] = l.outflow[k].Add(delta.Quantity.Neg())
	}
	b, err := l.r.Balances.Adjust(l.ctx, delta)
	if err != nil {
		return err
	}
	l.current[k] = b
	return nil
}

// reverse aplica el negativo exacto de lo que las líneas aplicaron en su momento.
// No toca los campos descriptivos del saldo.
func (l *ledgerTx) reverse(lines []*entity.DocumentLine) error {
	for _, line := range lines {
		if line.AppliedQty.IsZero() && line.AppliedAmount.IsZero() {
			continue
		}
		if err := l.apply(entity.BalanceDelta{
			DrugCode: line.DrugCode,
			LotNo:    line.LotNo,
			Quantity: line.AppliedQty.Neg(),
			Amount:   line.AppliedAmount.Neg(),
		}); err != nil {
			return err
		}
	}
	return nil
}

// checkNonNegative verifica que ningún saldo tocado quedó negativo.
func (l *ledgerTx) checkNonNegative(allowNegative bool) error {
	if allowNegative {
		return nil
	}
	keys := make([]invdomain.Key, 0, len(l.current))
	for k := range l.current {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	for _, k := range keys {
		b := l.current[k]
		if b == nil || !b.Quantity.IsNegative() {
			continue
		}
		return &domain.InsufficientStockError{
			DrugCode:  k.DrugCode,
			LotNo:     k.LotNo,
			Available: l.before[k],
			Requested: l.outflow[k],
		}
	}
	return nil
}

func linesKeys(groups ...[]*entity.DocumentLine) []invdomain.Key {
	var keys []invdomain.Key
	for _, lines := range groups {
		for _, line := range lines {
			keys = append(keys, invdomain.Key{DrugCode: line.DrugCode, LotNo: line.LotNo})
		}
	}
	return keys
}
