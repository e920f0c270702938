package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/clinica-farmacia/internal/application/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/domain"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	"github.com/jhoicas/clinica-farmacia/internal/domain/repository"
	"github.com/jhoicas/clinica-farmacia/internal/infrastructure/memory"
)

var _ inventory.TxRunner = (*memory.TxRunner)(nil)

func adjust(ctx context.Context, r inventory.Repos, drug string, qty int64) error {
	_, err := r.Balances.Adjust(ctx, entity.BalanceDelta{
		DrugCode: drug,
		Quantity: decimal.NewFromInt(qty),
		Amount:   decimal.NewFromInt(qty * 2),
	})
	return err
}

func quantity(t *testing.T, tx *memory.TxRunner, drug string) decimal.Decimal {
	t.Helper()
	var q decimal.Decimal
	require.NoError(t, tx.RunReadOnly(context.Background(), func(r inventory.Repos) error {
		b, err := r.Balances.Get(context.Background(), drug, "")
		if b != nil {
			q = b.Quantity
		}
		return err
	}))
	return q
}

func TestRun_ErrorDescartaCambios(t *testing.T) {
	tx := memory.NewTxRunner(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, tx.Run(ctx, func(r inventory.Repos) error { return adjust(ctx, r, "A", 10) }))

	boom := errors.New("boom")
	err := tx.Run(ctx, func(r inventory.Repos) error {
		if err := adjust(ctx, r, "A", 5); err != nil {
			return err
		}
		_ = r.Audit.Create(ctx, &entity.AuditEntry{Reference: "X", Action: entity.AuditUpdate})
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.True(t, quantity(t, tx, "A").Equal(decimal.NewFromInt(10)))

	require.NoError(t, tx.RunReadOnly(ctx, func(r inventory.Repos) error {
		entries, err := r.Audit.ListByReference(ctx, "X")
		assert.Empty(t, entries)
		return err
	}))
}

func TestRunReadOnly_NoPublicaEscrituras(t *testing.T) {
	tx := memory.NewTxRunner(memory.NewStore())
	ctx := context.Background()
	require.NoError(t, tx.RunReadOnly(ctx, func(r inventory.Repos) error { return adjust(ctx, r, "A", 3) }))
	assert.True(t, quantity(t, tx, "A").IsZero())
}

func TestRun_ContextoVencido(t *testing.T) {
	tx := memory.NewTxRunner(memory.NewStore())
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	err := tx.Run(ctx, func(r inventory.Repos) error {
		<-ctx.Done()
		return adjust(ctx, r, "A", 1)
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, quantity(t, tx, "A").IsZero())
}

func TestMovements_AcumulaPorClaveYOrdena(t *testing.T) {
	tx := memory.NewTxRunner(memory.NewStore())
	ctx := context.Background()
	d1 := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, tx.Run(ctx, func(r inventory.Repos) error {
		for _, m := range []*entity.StockMovement{
			{Reference: "R2", Date: d1, Year: 2026, Month: 3, DrugCode: "A", InQty: decimal.NewFromInt(1), AppliedQty: decimal.NewFromInt(1)},
			{Reference: "R2", Date: d1, Year: 2026, Month: 3, DrugCode: "A", InQty: decimal.NewFromInt(4), AppliedQty: decimal.NewFromInt(4)},
			{Reference: "R1", Date: d2, Year: 2026, Month: 3, DrugCode: "A", OutQty: decimal.NewFromInt(2), AppliedQty: decimal.NewFromInt(-2)},
			{Reference: "R3", Date: d1, Year: 2026, Month: 4, DrugCode: "A", InQty: decimal.NewFromInt(7), AppliedQty: decimal.NewFromInt(7)},
		} {
			if err := r.Movements.Append(ctx, m); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, tx.RunReadOnly(ctx, func(r inventory.Repos) error {
		movs, err := r.Movements.ListByPeriod(ctx, 2026, 3, repository.MovementFilter{DrugCode: "A"})
		require.NoError(t, err)
		require.Len(t, movs, 2)
		assert.Equal(t, "R1", movs[0].Reference)
		assert.Equal(t, "5", movs[1].InQty.String())

		from := repository.PeriodPoint{Year: 2026, Month: 4}
		totals, err := r.Movements.Sum(ctx, repository.MovementFilter{Range: repository.PeriodRange{From: &from}})
		require.NoError(t, err)
		assert.Equal(t, "7", totals.AppliedQty.String())
		return nil
	}))
}

func TestDocuments_DuplicadoYLineasSinCabecera(t *testing.T) {
	tx := memory.NewTxRunner(memory.NewStore())
	ctx := context.Background()

	err := tx.Run(ctx, func(r inventory.Repos) error {
		doc := &entity.Document{Reference: "REC1", Type: entity.DocumentReceipt}
		require.NoError(t, r.Documents.Create(ctx, doc))
		return r.Documents.Create(ctx, doc)
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	err = tx.Run(ctx, func(r inventory.Repos) error {
		return r.Documents.ReplaceLines(ctx, "NOPE", []*entity.DocumentLine{{LineNo: 1, DrugCode: "A"}})
	})
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}
