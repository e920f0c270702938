package repository

import (
	"context"

	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
)

// PeriodClosingRepository puerto del estado de cierre mensual.
type PeriodClosingRepository interface {
	// Get devuelve nil, nil si el periodo nunca se cerró.
	Get(ctx context.Context, year, month int) (*entity.PeriodClosing, error)
	Upsert(ctx context.Context, c *entity.PeriodClosing) error
}
