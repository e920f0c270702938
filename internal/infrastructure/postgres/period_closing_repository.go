package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	"github.com/jhoicas/clinica-farmacia/internal/domain/repository"
)

var _ repository.PeriodClosingRepository = (*PeriodClosingRepo)(nil)

// PeriodClosingRepo estado de cierre por periodo (period_closings).
type PeriodClosingRepo struct {
	q Querier
}

// NewPeriodClosingRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPeriodClosingRepository(q Querier) *PeriodClosingRepo {
	return &PeriodClosingRepo{q: q}
}

func (r *PeriodClosingRepo) Get(ctx context.Context, year, month int) (*entity.PeriodClosing, error) {
	var c entity.PeriodClosing
	err := r.q.QueryRow(ctx, `
		SELECT year, month, status, rows_carried, closed_by, closed_at
		FROM period_closings WHERE year = $1 AND month = $2`, year, month).Scan(
		&c.Year, &c.Month, &c.Status, &c.RowsCarried, &c.ClosedBy, &c.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get period closing", err)
	}
	return &c, nil
}

func (r *PeriodClosingRepo) Upsert(ctx context.Context, c *entity.PeriodClosing) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO period_closings (year, month, status, rows_carried, closed_by, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (year, month) DO UPDATE SET
			status = EXCLUDED.status, rows_carried = EXCLUDED.rows_carried,
			closed_by = EXCLUDED.closed_by, closed_at = EXCLUDED.closed_at`,
		c.Year, c.Month, c.Status, c.RowsCarried, c.ClosedBy, c.ClosedAt)
	if err != nil {
		return classify("upsert period closing", err)
	}
	return nil
}
