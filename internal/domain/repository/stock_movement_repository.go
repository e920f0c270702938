package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
)

// PeriodRange rango inclusivo de periodos. Un extremo nil significa abierto.
type PeriodRange struct {
	From *PeriodPoint
	To   *PeriodPoint
}

// PeriodPoint año/mes de un extremo del rango.
type PeriodPoint struct {
	Year  int
	Month int
}

// MovementFilter filtros opcionales para consultar la tarjeta de existencias.
type MovementFilter struct {
	DrugCode string
	LotNo    *string
	Range    PeriodRange
}

// MovementTotals sumas de movimientos. Applied es el efecto neto sobre bal_drug.
type MovementTotals struct {
	InQty         decimal.Decimal
	OutQty        decimal.Decimal
	AdjQty        decimal.Decimal
	AppliedQty    decimal.Decimal
	InAmount      decimal.Decimal
	OutAmount     decimal.Decimal
	AdjAmount     decimal.Decimal
	AppliedAmount decimal.Decimal
}

// GroupedTotals sumas por medicamento/lote.
type GroupedTotals struct {
	DrugCode string
	LotNo    string
	MovementTotals
}

// StockMovementRepository puerto de la tarjeta de existencias (stock card).
type StockMovementRepository interface {
	// Append inserta la fila o, si ya existe para la misma referencia/periodo/medicamento/lote,
	// acumula cantidades e importes. Nunca mezcla referencias distintas.
	Append(ctx context.Context, m *entity.StockMovement) error
	DeleteByReference(ctx context.Context, reference string) error
	DeleteByReferenceAndKey(ctx context.Context, reference string, year, month int, drugCode, lotNo string) error
	ListByReference(ctx context.Context, reference string) ([]*entity.StockMovement, error)
	// ListByPeriod ordena por fecha y referencia.
	ListByPeriod(ctx context.Context, year, month int, filter MovementFilter) ([]*entity.StockMovement, error)
	Sum(ctx context.Context, filter MovementFilter) (MovementTotals, error)
	SumByKey(ctx context.Context, filter MovementFilter) ([]GroupedTotals, error)
}
