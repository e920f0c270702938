package dto

import "github.com/shopspring/decimal"

// DocumentRequest body para crear/editar recepciones, devoluciones, préstamos y conteos.
// Date en formato 2006-01-02; Year/Month opcionales (se derivan de Date).
type DocumentRequest struct {
	Reference      string                `json:"refno"`
	Date           string                `json:"date"`
	Year           int                   `json:"year,omitempty"`
	Month          int                   `json:"month,omitempty"`
	Remark         string                `json:"remark,omitempty"`
	SupplierCode   string                `json:"supplier_code,omitempty"`
	DepartmentCode string                `json:"department_code,omitempty"`
	AllowNegative  bool                  `json:"allow_negative,omitempty"`
	Lines          []DocumentLineRequest `json:"lines"`
}

// DocumentLineRequest línea del documento. LotNo admite null, "" o "-" para "sin lote".
// En conteo físico Quantity es la cantidad contada.
type DocumentLineRequest struct {
	DrugCode   string          `json:"drug_code"`
	LotNo      *string         `json:"lot_no"`
	UnitCode   string          `json:"unit_code,omitempty"`
	Quantity   decimal.Decimal `json:"qty"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	ExpiryDate string          `json:"expiry_date,omitempty"`
}

// DocumentResponse documento con sus líneas y total recalculado.
type DocumentResponse struct {
	Reference      string                 `json:"refno"`
	Type           string                 `json:"type"`
	Date           string                 `json:"date"`
	Year           int                    `json:"year"`
	Month          int                    `json:"month"`
	Status         string                 `json:"status"`
	Remark         string                 `json:"remark,omitempty"`
	SupplierCode   string                 `json:"supplier_code,omitempty"`
	DepartmentCode string                 `json:"department_code,omitempty"`
	Total          decimal.Decimal        `json:"total"`
	CreatedBy      string                 `json:"created_by,omitempty"`
	Lines          []DocumentLineResponse `json:"lines"`
}

// DocumentLineResponse línea en la respuesta.
type DocumentLineResponse struct {
	LineNo         int             `json:"line_no"`
	DrugCode       string          `json:"drug_code"`
	LotNo          string          `json:"lot_no"`
	UnitCode       string          `json:"unit_code,omitempty"`
	Quantity       decimal.Decimal `json:"qty"`
	SystemQuantity decimal.Decimal `json:"system_qty"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	Amount         decimal.Decimal `json:"amount"`
	AppliedQty     decimal.Decimal `json:"applied_qty"`
	ExpiryDate     string          `json:"expiry_date,omitempty"`
}

// RefNoResponse número de referencia sugerido (solo orientativo).
type RefNoResponse struct {
	RefNo string `json:"refno"`
}

// BalanceResponse saldo actual de un medicamento/lote.
type BalanceResponse struct {
	DrugCode   string          `json:"drug_code"`
	LotNo      string          `json:"lot_no"`
	Quantity   decimal.Decimal `json:"qty"`
	Amount     decimal.Decimal `json:"amount"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	UnitCode   string          `json:"unit_code,omitempty"`
	ExpiryDate string          `json:"expiry_date,omitempty"`
	ExpiryText string          `json:"expiry_text,omitempty"`
}
