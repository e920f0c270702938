package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance saldo actual por medicamento y lote (tabla bal_drug).
// LotNo siempre está normalizado (inventory.NoLot para "sin lote").
type Balance struct {
	DrugCode   string
	LotNo      string
	Quantity   decimal.Decimal
	Amount     decimal.Decimal
	UnitPrice  decimal.Decimal
	UnitCode   string
	ExpiryDate *time.Time
	ExpiryText string // copia para mostrar
	UpdatedAt  time.Time
}

// BalanceDelta cambio a aplicar sobre un saldo. Cantidad e importe son aditivos;
// los campos descriptivos (nil = no tocar) se sobrescriben con el último valor recibido.
type BalanceDelta struct {
	DrugCode   string
	LotNo      string
	Quantity   decimal.Decimal
	Amount     decimal.Decimal
	UnitPrice  *decimal.Decimal
	UnitCode   *string
	ExpiryDate *time.Time
}
