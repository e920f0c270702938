package repository

import (
	"context"

	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
)

// BalanceFilter filtros opcionales para listar saldos. LotNo nil = todos los lotes.
type BalanceFilter struct {
	DrugCode     string
	LotNo        *string
	OnlyPositive bool
}

// BalanceRepository puerto del saldo actual por medicamento/lote (bal_drug).
// Todas las operaciones corren en la transacción del llamador.
type BalanceRepository interface {
	// Get devuelve nil, nil si no existe la fila.
	Get(ctx context.Context, drugCode, lotNo string) (*entity.Balance, error)
	// GetForUpdate igual que Get pero bloquea la fila (SELECT ... FOR UPDATE).
	GetForUpdate(ctx context.Context, drugCode, lotNo string) (*entity.Balance, error)
	// Adjust suma los deltas de cantidad/importe (insertando la fila si no existe)
	// y devuelve el saldo resultante.
	Adjust(ctx context.Context, delta entity.BalanceDelta) (*entity.Balance, error)
	List(ctx context.Context, filter BalanceFilter) ([]*entity.Balance, error)
}
