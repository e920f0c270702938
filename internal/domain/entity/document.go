package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType tipo de documento de inventario.
type DocumentType string

const (
	DocumentReceipt    DocumentType = "RECEIPT"     // recepción de mercancía
	DocumentReturn     DocumentType = "RETURN"      // devolución a proveedor
	DocumentBorrow     DocumentType = "BORROW"      // préstamo / salida interna
	DocumentCheckStock DocumentType = "CHECK_STOCK" // ajuste por conteo físico
	DocumentBeginning  DocumentType = "BEGINNING"   // saldo inicial (captura o cierre)
)

// Prefix prefijo del número de referencia por tipo.
func (t DocumentType) Prefix() string {
	switch t {
	case DocumentReceipt:
		return "REC"
	case DocumentReturn:
		return "RET"
	case DocumentBorrow:
		return "BOR"
	case DocumentCheckStock:
		return "CHK"
	case DocumentBeginning:
		return "BEG"
	}
	return ""
}

// Valid indica si el tipo es uno de los documentos con cabecera/detalle.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentReceipt, DocumentReturn, DocumentBorrow, DocumentCheckStock:
		return true
	}
	return false
}

// Estados de documento.
const (
	DocumentStatusPosted = "POSTED"
)

// Document cabecera de un documento (recepción, devolución, préstamo o conteo).
type Document struct {
	Reference      string
	Type           DocumentType
	Date           time.Time
	Year           int
	Month          int
	Status         string
	Remark         string
	SupplierCode   string // recepción / devolución
	DepartmentCode string // préstamo
	Total          decimal.Decimal
	AllowNegative  bool
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DocumentLine línea de detalle. AppliedQty/AppliedAmount guardan el efecto firmado
// que la línea aplicó sobre el saldo; la reversión aplica exactamente su negativo.
type DocumentLine struct {
	ID             string
	Reference      string
	LineNo         int
	DrugCode       string
	LotNo          string
	UnitCode       string
	Quantity       decimal.Decimal // cantidad del movimiento (contada, en conteo físico)
	SystemQuantity decimal.Decimal // solo conteo físico: saldo del sistema al aplicar
	UnitCost       decimal.Decimal
	Amount         decimal.Decimal
	AppliedQty     decimal.Decimal
	AppliedAmount  decimal.Decimal
	ExpiryDate     *time.Time
}
