package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/clinica-farmacia/internal/application/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/domain"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
}

// NewTxRunner construye el runner. acquireTimeout limita la espera por una conexión del pool;
// al vencer se devuelve domain.ErrTransient.
func NewTxRunner(pool *pgxpool.Pool, acquireTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, acquireTimeout: acquireTimeout}
}

// NewRepos repositorios del ledger sobre un Querier (pool o tx).
func NewRepos(q Querier) inventory.Repos {
	return inventory.Repos{
		Balances:  NewBalanceRepository(q),
		Movements: NewStockMovementRepository(q),
		Openings:  NewOpeningBalanceRepository(q),
		Documents: NewDocumentRepository(q),
		Closings:  NewPeriodClosingRepository(q),
		Audit:     NewAuditRepository(q),
	}
}

// Run read committed; los saldos se bloquean con SELECT ... FOR UPDATE dentro de fn.
func (r *TxRunner) Run(ctx context.Context, fn func(repos inventory.Repos) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// RunReadOnly repeatable read de solo lectura: una sola foto para todo el reporte.
func (r *TxRunner) RunReadOnly(ctx context.Context, fn func(repos inventory.Repos) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (r *TxRunner) run(ctx context.Context, opts pgx.TxOptions, fn func(repos inventory.Repos) error) error {
	conn, err := r.acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		return classify("begin transaction", err)
	}
	// Rollback aunque el contexto de la petición ya haya vencido.
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

func (r *TxRunner) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	actx := ctx
	if r.acquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, r.acquireTimeout)
		defer cancel()
	}
	conn, err := r.pool.Acquire(actx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: adquirir conexión: %v", domain.ErrTransient, err)
	}
	return conn, nil
}
