package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	"github.com/jhoicas/clinica-farmacia/internal/domain/repository"
)

var _ repository.OpeningBalanceRepository = (*OpeningBalanceRepo)(nil)

const openingColumns = `year, month, drug_code, lot_no, qty, amount, unit_price, unit_code, expiry_date,
	source, applied_qty, applied_amount, updated_at`

// OpeningBalanceRepo saldos iniciales mensuales (beg_month_drug).
type OpeningBalanceRepo struct {
	q Querier
}

// NewOpeningBalanceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOpeningBalanceRepository(q Querier) *OpeningBalanceRepo {
	return &OpeningBalanceRepo{q: q}
}

func scanOpening(row pgx.Row) (*entity.OpeningBalance, error) {
	var ob entity.OpeningBalance
	err := row.Scan(&ob.Year, &ob.Month, &ob.DrugCode, &ob.LotNo, &ob.Quantity, &ob.Amount, &ob.UnitPrice,
		&ob.UnitCode, &ob.ExpiryDate, &ob.Source, &ob.AppliedQty, &ob.AppliedAmount, &ob.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ob, nil
}

func (r *OpeningBalanceRepo) Get(ctx context.Context, year, month int, drugCode, lotNo string) (*entity.OpeningBalance, error) {
	query := `SELECT ` + openingColumns + ` FROM beg_month_drug
		WHERE year = $1 AND month = $2 AND drug_code = $3 AND lot_no = $4`
	ob, err := scanOpening(r.q.QueryRow(ctx, query, year, month, drugCode, lotNo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get opening balance", err)
	}
	return ob, nil
}

func (r *OpeningBalanceRepo) Upsert(ctx context.Context, ob *entity.OpeningBalance) error {
	query := `
		INSERT INTO beg_month_drug (year, month, drug_code, lot_no, qty, amount, unit_price, unit_code, expiry_date,
			source, applied_qty, applied_amount, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		ON CONFLICT (year, month, drug_code, lot_no) DO UPDATE SET
			qty            = EXCLUDED.qty,
			amount         = EXCLUDED.amount,
			unit_price     = EXCLUDED.unit_price,
			unit_code      = EXCLUDED.unit_code,
			expiry_date    = EXCLUDED.expiry_date,
			source         = EXCLUDED.source,
			applied_qty    = EXCLUDED.applied_qty,
			applied_amount = EXCLUDED.applied_amount,
			updated_at     = now()`
	_, err := r.q.Exec(ctx, query, ob.Year, ob.Month, ob.DrugCode, ob.LotNo, ob.Quantity, ob.Amount, ob.UnitPrice,
		ob.UnitCode, ob.ExpiryDate, ob.Source, ob.AppliedQty, ob.AppliedAmount)
	if err != nil {
		return classify("upsert opening balance", err)
	}
	return nil
}

func (r *OpeningBalanceRepo) Delete(ctx context.Context, year, month int, drugCode, lotNo string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM beg_month_drug WHERE year = $1 AND month = $2 AND drug_code = $3 AND lot_no = $4`,
		year, month, drugCode, lotNo)
	if err != nil {
		return classify("delete opening balance", err)
	}
	return nil
}

func (r *OpeningBalanceRepo) DeleteByPeriod(ctx context.Context, year, month int) error {
	_, err := r.q.Exec(ctx, `DELETE FROM beg_month_drug WHERE year = $1 AND month = $2`, year, month)
	if err != nil {
		return classify("delete opening balances", err)
	}
	return nil
}

func (r *OpeningBalanceRepo) ListByPeriod(ctx context.Context, year, month int) ([]*entity.OpeningBalance, error) {
	query := `SELECT ` + openingColumns + ` FROM beg_month_drug WHERE year = $1 AND month = $2 ORDER BY drug_code, lot_no`
	rows, err := r.q.Query(ctx, query, year, month)
	if err != nil {
		return nil, classify("list opening balances", err)
	}
	defer rows.Close()
	var list []*entity.OpeningBalance
	for rows.Next() {
		ob, err := scanOpening(rows)
		if err != nil {
			return nil, classify("scan opening balance", err)
		}
		list = append(list, ob)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list opening balances", err)
	}
	return list, nil
}
