// Package memory implementa los puertos del ledger en memoria para pruebas y ejecución local
// (STORE_DRIVER=memory). Cada transacción trabaja sobre una copia del estado que solo se
// publica si la función termina sin error.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jhoicas/clinica-farmacia/internal/application/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	invdomain "github.com/jhoicas/clinica-farmacia/internal/domain/inventory"
)

type movementKey struct {
	Reference string
	Year      int
	Month     int
	DrugCode  string
	LotNo     string
}

type openingKey struct {
	Year     int
	Month    int
	DrugCode string
	LotNo    string
}

type periodKey struct {
	Year  int
	Month int
}

type state struct {
	balances  map[invdomain.Key]entity.Balance
	movements map[movementKey]entity.StockMovement
	movSeq    map[movementKey]int64
	openings  map[openingKey]entity.OpeningBalance
	documents map[string]entity.Document
	lines     map[string][]entity.DocumentLine
	closings  map[periodKey]entity.PeriodClosing
	audit     []entity.AuditEntry
	seq       int64
}

func newState() *state {
	return &state{
		balances:  make(map[invdomain.Key]entity.Balance),
		movements: make(map[movementKey]entity.StockMovement),
		movSeq:    make(map[movementKey]int64),
		openings:  make(map[openingKey]entity.OpeningBalance),
		documents: make(map[string]entity.Document),
		lines:     make(map[string][]entity.DocumentLine),
		closings:  make(map[periodKey]entity.PeriodClosing),
	}
}

// clone copia superficial de los mapas; los slices de líneas se reemplazan completos, nunca se mutan.
func (s *state) clone() *state {
	return &state{
		balances:  maps.Clone(s.balances),
		movements: maps.Clone(s.movements),
		movSeq:    maps.Clone(s.movSeq),
		openings:  maps.Clone(s.openings),
		documents: maps.Clone(s.documents),
		lines:     maps.Clone(s.lines),
		closings:  maps.Clone(s.closings),
		audit:     slices.Clip(s.audit),
		seq:       s.seq,
	}
}

func (s *state) nextSeq() int64 {
	s.seq++
	return s.seq
}

// Store estado en memoria. Las transacciones se serializan con un mutex.
type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

// TxRunner implementa inventory.TxRunner sobre el Store.
type TxRunner struct {
	store *Store
}

// NewTxRunner construye el runner.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// Run ejecuta fn sobre una copia del estado y la publica solo si no hubo error.
func (t *TxRunner) Run(ctx context.Context, fn func(r inventory.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	work := t.store.st.clone()
	if err := fn(t.store.repos(work)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.st = work
	return nil
}

// RunReadOnly ejecuta fn sobre una copia que siempre se descarta.
func (t *TxRunner) RunReadOnly(ctx context.Context, fn func(r inventory.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.store.mu.RLock()
	work := t.store.st.clone()
	t.store.mu.RUnlock()
	return fn(t.store.repos(work))
}

func (s *Store) repos(st *state) inventory.Repos {
	return inventory.Repos{
		Balances:  &balanceRepo{st: st, now: s.now},
		Movements: &movementRepo{st: st, now: s.now},
		Openings:  &openingRepo{st: st, now: s.now},
		Documents: &documentRepo{st: st},
		Closings:  &closingRepo{st: st},
		Audit:     &auditRepo{st: st},
	}
}
