package inventory

import (
	"context"
	"strings"

	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/domain"
	invdomain "github.com/jhoicas/clinica-farmacia/internal/domain/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/domain/repository"
)

// BalanceQuery lectura del saldo actual (bal_drug).
type BalanceQuery struct {
	txRunner TxRunner
}

// NewBalanceQuery construye la consulta.
func NewBalanceQuery(tx TxRunner) *BalanceQuery {
	return &BalanceQuery{txRunner: tx}
}

// ListBalances saldos filtrados por medicamento y, opcionalmente, lote (null, "" y "-" son el mismo lote).
func (q *BalanceQuery) ListBalances(ctx context.Context, drugCode string, lotNo *string) ([]dto.BalanceResponse, error) {
	filter := repository.BalanceFilter{DrugCode: strings.TrimSpace(drugCode)}
	if lotNo != nil {
		lot := invdomain.NormalizeLot(lotNo)
		filter.LotNo = &lot
	}
	out := []dto.BalanceResponse{}
	err := q.txRunner.RunReadOnly(ctx, func(r Repos) error {
		list, err := r.Balances.List(ctx, filter)
		if err != nil {
			return err
		}
		for _, b := range list {
			out = append(out, toBalanceResponse(b))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetBalance saldo de un medicamento/lote; ErrBalanceNotFound si no existe.
func (q *BalanceQuery) GetBalance(ctx context.Context, drugCode string, lotNo *string) (*dto.BalanceResponse, error) {
	key := invdomain.NewKey(drugCode, lotNo)
	if key.DrugCode == "" {
		return nil, domain.Invalid("drug_code", "requerido")
	}
	var out *dto.BalanceResponse
	err := q.txRunner.RunReadOnly(ctx, func(r Repos) error {
		b, err := r.Balances.Get(ctx, key.DrugCode, key.LotNo)
		if err != nil {
			return err
		}
		if b == nil {
			return domain.BalanceNotFound(key.DrugCode, key.LotNo)
		}
		resp := toBalanceResponse(b)
		out = &resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
