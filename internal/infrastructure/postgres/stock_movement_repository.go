package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	"github.com/jhoicas/clinica-farmacia/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, reference, doc_type, movement_date, year, month, drug_code, lot_no, unit_code, unit_cost,
	beg_qty, in_qty, out_qty, adj_qty, beg_amount, in_amount, out_amount, adj_amount,
	applied_qty, applied_amount, expiry_date, created_at`

// StockMovementRepo implementación de la tarjeta de existencias sobre stock_movements.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var docType string
	err := row.Scan(&m.ID, &m.Reference, &docType, &m.Date, &m.Year, &m.Month, &m.DrugCode, &m.LotNo,
		&m.UnitCode, &m.UnitCost, &m.BegQty, &m.InQty, &m.OutQty, &m.AdjQty,
		&m.BegAmount, &m.InAmount, &m.OutAmount, &m.AdjAmount,
		&m.AppliedQty, &m.AppliedAmount, &m.ExpiryDate, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.DocType = entity.DocumentType(docType)
	return &m, nil
}

// Append inserta la fila o acumula sobre la existente de la misma referencia/periodo/medicamento/lote.
func (r *StockMovementRepo) Append(ctx context.Context, m *entity.StockMovement) error {
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (id, reference, doc_type, movement_date, year, month, drug_code, lot_no,
			unit_code, unit_cost, beg_qty, in_qty, out_qty, adj_qty, beg_amount, in_amount, out_amount, adj_amount,
			applied_qty, applied_amount, expiry_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, now())
		ON CONFLICT (reference, year, month, drug_code, lot_no) DO UPDATE SET
			beg_qty        = stock_movements.beg_qty + EXCLUDED.beg_qty,
			in_qty         = stock_movements.in_qty + EXCLUDED.in_qty,
			out_qty        = stock_movements.out_qty + EXCLUDED.out_qty,
			adj_qty        = stock_movements.adj_qty + EXCLUDED.adj_qty,
			beg_amount     = stock_movements.beg_amount + EXCLUDED.beg_amount,
			in_amount      = stock_movements.in_amount + EXCLUDED.in_amount,
			out_amount     = stock_movements.out_amount + EXCLUDED.out_amount,
			adj_amount     = stock_movements.adj_amount + EXCLUDED.adj_amount,
			applied_qty    = stock_movements.applied_qty + EXCLUDED.applied_qty,
			applied_amount = stock_movements.applied_amount + EXCLUDED.applied_amount`
	_, err := r.q.Exec(ctx, query,
		id, m.Reference, string(m.DocType), m.Date, m.Year, m.Month, m.DrugCode, m.LotNo,
		m.UnitCode, m.UnitCost, m.BegQty, m.InQty, m.OutQty, m.AdjQty,
		m.BegAmount, m.InAmount, m.OutAmount, m.AdjAmount,
		m.AppliedQty, m.AppliedAmount, m.ExpiryDate)
	if err != nil {
		return classify("append movement", err)
	}
	return nil
}

// DeleteByReference borra todas las filas de una referencia.
func (r *StockMovementRepo) DeleteByReference(ctx context.Context, reference string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM stock_movements WHERE reference = $1`, reference)
	if err != nil {
		return classify("delete movements", err)
	}
	return nil
}

// DeleteByReferenceAndKey borra la fila de una referencia para un medicamento/lote del periodo.
func (r *StockMovementRepo) DeleteByReferenceAndKey(ctx context.Context, reference string, year, month int, drugCode, lotNo string) error {
	_, err := r.q.Exec(ctx, `
		DELETE FROM stock_movements
		WHERE reference = $1 AND year = $2 AND month = $3 AND drug_code = $4 AND lot_no = $5`,
		reference, year, month, drugCode, lotNo)
	if err != nil {
		return classify("delete movement", err)
	}
	return nil
}

// ListByReference filas de una referencia.
func (r *StockMovementRepo) ListByReference(ctx context.Context, reference string) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE reference = $1
		ORDER BY movement_date, drug_code, lot_no`
	return r.list(ctx, "list movements by reference", query, reference)
}

// ListByPeriod filas del periodo ordenadas por fecha y referencia.
func (r *StockMovementRepo) ListByPeriod(ctx context.Context, year, month int, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	var w where
	w.add("year = $%d", year)
	w.add("month = $%d", month)
	addKeyFilter(&w, f)
	query := `SELECT ` + movementColumns + ` FROM stock_movements` + w.String() +
		` ORDER BY movement_date, reference, created_at, id`
	return r.list(ctx, "list movements by period", query, w.args...)
}

func (r *StockMovementRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, classify(op, err)
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, err)
	}
	return list, nil
}

const totalsColumns = `COALESCE(SUM(in_qty), 0), COALESCE(SUM(out_qty), 0), COALESCE(SUM(adj_qty), 0), COALESCE(SUM(applied_qty), 0),
	COALESCE(SUM(in_amount), 0), COALESCE(SUM(out_amount), 0), COALESCE(SUM(adj_amount), 0), COALESCE(SUM(applied_amount), 0)`

// Sum totales de entradas/salidas/ajustes y efecto aplicado para el filtro.
func (r *StockMovementRepo) Sum(ctx context.Context, f repository.MovementFilter) (repository.MovementTotals, error) {
	var w where
	addKeyFilter(&w, f)
	addRangeFilter(&w, f.Range)
	var t repository.MovementTotals
	err := r.q.QueryRow(ctx, `SELECT `+totalsColumns+` FROM stock_movements`+w.String(), w.args...).Scan(
		&t.InQty, &t.OutQty, &t.AdjQty, &t.AppliedQty, &t.InAmount, &t.OutAmount, &t.AdjAmount, &t.AppliedAmount)
	if err != nil {
		return repository.MovementTotals{}, classify("sum movements", err)
	}
	return t, nil
}

// SumByKey como Sum pero agrupado por medicamento/lote.
func (r *StockMovementRepo) SumByKey(ctx context.Context, f repository.MovementFilter) ([]repository.GroupedTotals, error) {
	var w where
	addKeyFilter(&w, f)
	addRangeFilter(&w, f.Range)
	query := `SELECT drug_code, lot_no, ` + totalsColumns + ` FROM stock_movements` + w.String() +
		` GROUP BY drug_code, lot_no ORDER BY drug_code, lot_no`
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, classify("sum movements by key", err)
	}
	defer rows.Close()
	var out []repository.GroupedTotals
	for rows.Next() {
		var g repository.GroupedTotals
		if err := rows.Scan(&g.DrugCode, &g.LotNo, &g.InQty, &g.OutQty, &g.AdjQty, &g.AppliedQty,
			&g.InAmount, &g.OutAmount, &g.AdjAmount, &g.AppliedAmount); err != nil {
			return nil, classify("scan totals", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("sum movements by key", err)
	}
	return out, nil
}

func addKeyFilter(w *where, f repository.MovementFilter) {
	if f.DrugCode != "" {
		w.add("drug_code = $%d", f.DrugCode)
	}
	if f.LotNo != nil {
		w.add("lot_no = $%d", *f.LotNo)
	}
}

// addRangeFilter compara year*12+month para no depender de fechas.
func addRangeFilter(w *where, rg repository.PeriodRange) {
	if rg.From != nil {
		w.add("year * 12 + month >= $%d", rg.From.Year*12+rg.From.Month)
	}
	if rg.To != nil {
		w.add("year * 12 + month <= $%d", rg.To.Year*12+rg.To.Month)
	}
}
