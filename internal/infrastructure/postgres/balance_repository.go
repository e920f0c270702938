package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	invdomain "github.com/jhoicas/clinica-farmacia/internal/domain/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/domain/repository"
)

var _ repository.BalanceRepository = (*BalanceRepo)(nil)

const balanceColumns = `drug_code, lot_no, qty, amount, unit_price, unit_code, expiry_date, expiry_text, updated_at`

// BalanceRepo implementación de BalanceRepository sobre bal_drug (usable con pool o tx).
type BalanceRepo struct {
	q Querier
}

// NewBalanceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBalanceRepository(q Querier) *BalanceRepo {
	return &BalanceRepo{q: q}
}

func scanBalance(row pgx.Row) (*entity.Balance, error) {
	var b entity.Balance
	err := row.Scan(&b.DrugCode, &b.LotNo, &b.Quantity, &b.Amount, &b.UnitPrice,
		&b.UnitCode, &b.ExpiryDate, &b.ExpiryText, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Get obtiene el saldo de un medicamento/lote; nil si no existe.
func (r *BalanceRepo) Get(ctx context.Context, drugCode, lotNo string) (*entity.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM bal_drug WHERE drug_code = $1 AND lot_no = $2`
	b, err := scanBalance(r.q.QueryRow(ctx, query, drugCode, lotNo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get balance", err)
	}
	return b, nil
}

// GetForUpdate obtiene el saldo y bloquea la fila (SELECT FOR UPDATE).
func (r *BalanceRepo) GetForUpdate(ctx context.Context, drugCode, lotNo string) (*entity.Balance, error) {
	query := `SELECT ` + balanceColumns + ` FROM bal_drug WHERE drug_code = $1 AND lot_no = $2 FOR UPDATE`
	b, err := scanBalance(r.q.QueryRow(ctx, query, drugCode, lotNo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get balance for update", err)
	}
	return b, nil
}

// Adjust upsert aditivo: suma cantidad e importe; los campos descriptivos NULL no se tocan.
func (r *BalanceRepo) Adjust(ctx context.Context, d entity.BalanceDelta) (*entity.Balance, error) {
	var expiryText *string
	if d.ExpiryDate != nil {
		s := invdomain.ExpiryText(d.ExpiryDate)
		expiryText = &s
	}
	var unitPrice *decimal.Decimal
	if d.UnitPrice != nil {
		p := *d.UnitPrice
		unitPrice = &p
	}
	query := `
		INSERT INTO bal_drug (drug_code, lot_no, qty, amount, unit_price, unit_code, expiry_date, expiry_text, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5::numeric, 0), COALESCE($6::text, ''), $7::date, COALESCE($8::text, ''), now())
		ON CONFLICT (drug_code, lot_no) DO UPDATE SET
			qty         = bal_drug.qty + EXCLUDED.qty,
			amount      = bal_drug.amount + EXCLUDED.amount,
			unit_price  = COALESCE($5::numeric, bal_drug.unit_price),
			unit_code   = COALESCE($6::text, bal_drug.unit_code),
			expiry_date = COALESCE($7::date, bal_drug.expiry_date),
			expiry_text = COALESCE($8::text, bal_drug.expiry_text),
			updated_at  = now()
		RETURNING ` + balanceColumns
	b, err := scanBalance(r.q.QueryRow(ctx, query,
		d.DrugCode, d.LotNo, d.Quantity, d.Amount, unitPrice, d.UnitCode, d.ExpiryDate, expiryText))
	if err != nil {
		return nil, classify("adjust balance", err)
	}
	return b, nil
}

// List saldos filtrados, ordenados por medicamento y lote.
func (r *BalanceRepo) List(ctx context.Context, f repository.BalanceFilter) ([]*entity.Balance, error) {
	var w where
	if f.DrugCode != "" {
		w.add("drug_code = $%d", f.DrugCode)
	}
	if f.LotNo != nil {
		w.add("lot_no = $%d", *f.LotNo)
	}
	if f.OnlyPositive {
		w.raw("qty > 0")
	}
	query := `SELECT ` + balanceColumns + ` FROM bal_drug` + w.String() + ` ORDER BY drug_code, lot_no`
	rows, err := r.q.Query(ctx, query, w.args...)
	if err != nil {
		return nil, classify("list balances", err)
	}
	defer rows.Close()

	var list []*entity.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, classify("scan balance", err)
		}
		list = append(list, b)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list balances", err)
	}
	return list, nil
}
