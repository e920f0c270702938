package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockMovement fila de la tarjeta de existencias (stock card): una por
// (referencia, periodo, medicamento, lote).
type StockMovement struct {
	ID         string
	Reference  string
	DocType    DocumentType
	Date       time.Time
	Year       int
	Month      int
	DrugCode   string
	LotNo      string
	UnitCode   string
	UnitCost   decimal.Decimal
	BegQty     decimal.Decimal
	InQty      decimal.Decimal
	OutQty     decimal.Decimal
	AdjQty     decimal.Decimal
	BegAmount  decimal.Decimal
	InAmount   decimal.Decimal
	OutAmount  decimal.Decimal
	AdjAmount  decimal.Decimal
	// AppliedQty/AppliedAmount: efecto firmado que la fila tuvo sobre bal_drug.
	// Las filas "beg" del cierre mensual son una foto y tienen efecto cero.
	AppliedQty    decimal.Decimal
	AppliedAmount decimal.Decimal
	ExpiryDate    *time.Time
	CreatedAt     time.Time
}
