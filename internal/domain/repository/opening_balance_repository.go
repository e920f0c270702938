package repository

import (
	"context"

	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
)

// OpeningBalanceRepository puerto de saldos iniciales mensuales (beg_month_drug).
type OpeningBalanceRepository interface {
	// Get devuelve nil, nil si no existe.
	Get(ctx context.Context, year, month int, drugCode, lotNo string) (*entity.OpeningBalance, error)
	Upsert(ctx context.Context, ob *entity.OpeningBalance) error
	Delete(ctx context.Context, year, month int, drugCode, lotNo string) error
	DeleteByPeriod(ctx context.Context, year, month int) error
	ListByPeriod(ctx context.Context, year, month int) ([]*entity.OpeningBalance, error)
}
