package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/application/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	"github.com/jhoicas/clinica-farmacia/internal/domain/repository"
	"github.com/jhoicas/clinica-farmacia/internal/infrastructure/cache"
	"github.com/jhoicas/clinica-farmacia/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const actor = "farmaceutico-1"

var fixedNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

type ledgerEnv struct {
	tx        *memory.TxRunner
	receipts  *inventory.DocumentProcessor
	returns   *inventory.DocumentProcessor
	borrows   *inventory.DocumentProcessor
	checks    *inventory.DocumentProcessor
	beginning *inventory.BeginningBalanceUseCase
	closing   *inventory.ClosingUseCase
	balances  *inventory.BalanceQuery
	reporter  *inventory.Reporter
}

func newEnv(t *testing.T) *ledgerEnv {
	return newEnvWith(t, inventory.Options{}, cache.NoopReportCache{})
}

func newEnvWith(t *testing.T, opts inventory.Options, rc inventory.ReportCache) *ledgerEnv {
	t.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	tx := memory.NewTxRunner(memory.NewStore())
	return &ledgerEnv{
		tx:        tx,
		receipts:  inventory.NewReceiptProcessor(tx, rc, nil, opts),
		returns:   inventory.NewReturnProcessor(tx, rc, nil, opts),
		borrows:   inventory.NewBorrowProcessor(tx, rc, nil, opts),
		checks:    inventory.NewCheckStockProcessor(tx, rc, nil, opts),
		beginning: inventory.NewBeginningBalanceUseCase(tx, rc, nil, opts),
		closing:   inventory.NewClosingUseCase(tx, rc, nil, opts),
		balances:  inventory.NewBalanceQuery(tx),
		reporter:  inventory.NewReporter(tx, rc, nil, nil, time.Minute),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

func line(drug string, lot *string, qty, cost string) dto.DocumentLineRequest {
	return dto.DocumentLineRequest{DrugCode: drug, LotNo: lot, Quantity: dec(qty), UnitCost: dec(cost)}
}

func doc(ref, date string, lines ...dto.DocumentLineRequest) dto.DocumentRequest {
	return dto.DocumentRequest{Reference: ref, Date: date, Lines: lines}
}

func (e *ledgerEnv) mustCreate(t *testing.T, p *inventory.DocumentProcessor, req dto.DocumentRequest) *dto.DocumentResponse {
	t.Helper()
	out, err := p.Create(context.Background(), actor, req)
	require.NoError(t, err)
	return out
}

// balance devuelve (qty, amount); cero si no existe la fila.
func (e *ledgerEnv) balance(t *testing.T, drug, lot string) (decimal.Decimal, decimal.Decimal) {
	t.Helper()
	list, err := e.balances.ListBalances(context.Background(), drug, &lot)
	require.NoError(t, err)
	if len(list) == 0 {
		return decimal.Zero, decimal.Zero
	}
	require.Len(t, list, 1)
	return list[0].Quantity, list[0].Amount
}

// appliedTotal suma el efecto aplicado de todas las filas de la tarjeta para la clave.
func (e *ledgerEnv) appliedTotal(t *testing.T, drug, lot string) repository.MovementTotals {
	t.Helper()
	var totals repository.MovementTotals
	err := e.tx.RunReadOnly(context.Background(), func(r inventory.Repos) error {
		var err error
		totals, err = r.Movements.Sum(context.Background(), repository.MovementFilter{DrugCode: drug, LotNo: &lot})
		return err
	})
	require.NoError(t, err)
	return totals
}

// assertConserved saldo actual == suma de efectos aplicados en la tarjeta.
func (e *ledgerEnv) assertConserved(t *testing.T, drug, lot string) {
	t.Helper()
	qty, amt := e.balance(t, drug, lot)
	totals := e.appliedTotal(t, drug, lot)
	require.True(t, qty.Equal(totals.AppliedQty), "qty %s != aplicado %s", qty, totals.AppliedQty)
	require.True(t, amt.Equal(totals.AppliedAmount), "importe %s != aplicado %s", amt, totals.AppliedAmount)
}

func (e *ledgerEnv) auditEntries(t *testing.T, ref string) []*entity.AuditEntry {
	t.Helper()
	var out []*entity.AuditEntry
	err := e.tx.RunReadOnly(context.Background(), func(r inventory.Repos) error {
		var err error
		out, err = r.Audit.ListByReference(context.Background(), ref)
		return err
	})
	require.NoError(t, err)
	return out
}

func (e *ledgerEnv) movements(t *testing.T, ref string) []*entity.StockMovement {
	t.Helper()
	var out []*entity.StockMovement
	err := e.tx.RunReadOnly(context.Background(), func(r inventory.Repos) error {
		var err error
		out, err = r.Movements.ListByReference(context.Background(), ref)
		return err
	})
	require.NoError(t, err)
	return out
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msg ...string) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "esperado %s, obtenido %s %v", want, got.String(), msg)
}
