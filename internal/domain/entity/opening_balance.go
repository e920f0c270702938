package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Origen de un saldo inicial mensual.
const (
	OpeningSourceClosing = "CLOSING" // generado por el cierre de mes
	OpeningSourceManual  = "MANUAL"  // capturado o corregido por el usuario
)

// OpeningBalance saldo inicial del mes (tabla beg_month_drug).
type OpeningBalance struct {
	Year       int
	Month      int
	DrugCode   string
	LotNo      string
	Quantity   decimal.Decimal
	Amount     decimal.Decimal
	UnitPrice  decimal.Decimal
	UnitCode   string
	ExpiryDate *time.Time
	Source     string
	// AppliedQty/AppliedAmount: parte del saldo inicial que ya se aplicó a bal_drug
	// (cero para una foto del cierre; cantidad - foto tras una corrección manual).
	AppliedQty    decimal.Decimal
	AppliedAmount decimal.Decimal
	UpdatedAt     time.Time
}
