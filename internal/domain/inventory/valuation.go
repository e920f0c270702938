package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineAmount importe de una línea: cantidad * costo unitario, redondeado a 2 decimales.
func LineAmount(qty, unitCost decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitCost).Round(2)
}

// UnitPriceOf precio unitario implícito de un saldo (importe / cantidad). Cero si no hay cantidad.
func UnitPriceOf(amount, qty decimal.Decimal) decimal.Decimal {
	if qty.IsZero() {
		return decimal.Zero
	}
	return amount.Div(qty).Round(4)
}

// OutflowAmount importe de una salida: usa el costo de la línea y, si viene en cero,
// el precio unitario vigente del saldo. Si la salida vacía el saldo se toma el importe restante
// completo para no dejar residuos de redondeo. El resultado nunca supera el importe del saldo,
// así el importe de bal_drug no queda negativo con cantidad positiva.
func OutflowAmount(qty, lineCost, balanceQty, balanceAmount decimal.Decimal) decimal.Decimal {
	if qty.Equal(balanceQty) {
		return balanceAmount
	}
	var amount decimal.Decimal
	if lineCost.GreaterThan(decimal.Zero) {
		amount = LineAmount(qty, lineCost)
	} else {
		amount = LineAmount(qty, UnitPriceOf(balanceAmount, balanceQty))
	}
	return decimal.Min(amount, decimal.Max(balanceAmount, decimal.Zero))
}

// ExpiryText copia de la fecha de vencimiento para mostrar (dd/mm/aaaa).
func ExpiryText(expiry *time.Time) string {
	if expiry == nil || expiry.IsZero() {
		return ""
	}
	return expiry.Format("02/01/2006")
}
