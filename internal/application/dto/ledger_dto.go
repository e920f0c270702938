package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// BeginningBalanceRequest captura o corrección de un saldo inicial mensual.
type BeginningBalanceRequest struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	DrugCode   string          `json:"drug_code"`
	LotNo      *string         `json:"lot_no"`
	UnitCode   string          `json:"unit_code,omitempty"`
	Quantity   decimal.Decimal `json:"qty"`
	Amount     decimal.Decimal `json:"amount"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	ExpiryDate string          `json:"expiry_date,omitempty"`
}

// OpeningBalanceResponse saldo inicial mensual.
type OpeningBalanceResponse struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	DrugCode   string          `json:"drug_code"`
	LotNo      string          `json:"lot_no"`
	Quantity   decimal.Decimal `json:"qty"`
	Amount     decimal.Decimal `json:"amount"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	UnitCode   string          `json:"unit_code,omitempty"`
	ExpiryDate string          `json:"expiry_date,omitempty"`
	Source     string          `json:"source"`
}

// ClosingRequest body para POST /closings.
type ClosingRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// ClosingResponse resultado/estado del cierre de un periodo.
type ClosingResponse struct {
	Year        int        `json:"year"`
	Month       int        `json:"month"`
	Status      string     `json:"status"`
	TargetYear  int        `json:"target_year"`
	TargetMonth int        `json:"target_month"`
	RowsCarried int        `json:"rows_carried"`
	ClosedBy    string     `json:"closed_by,omitempty"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// ReconstructionReport tarjeta de existencias reconstruida para un periodo pasado.
type ReconstructionReport struct {
	Year   int              `json:"year"`
	Month  int              `json:"month"`
	Groups []StockCardGroup `json:"groups"`
}

// StockCardGroup movimientos de un medicamento/lote dentro del periodo.
type StockCardGroup struct {
	DrugCode     string          `json:"drug_code"`
	LotNo        string          `json:"lot_no"`
	CurrentQty   decimal.Decimal `json:"current_qty"`
	FutureNetQty decimal.Decimal `json:"future_net_qty"`
	BeginningQty decimal.Decimal `json:"calculated_beginning"`
	EndingQty    decimal.Decimal `json:"calculated_ending"`
	TotalIn      decimal.Decimal `json:"total_in"`
	TotalOut     decimal.Decimal `json:"total_out"`
	Rows         []StockCardRow  `json:"rows"`
}

// StockCardRow fila de la tarjeta con saldos calculados.
type StockCardRow struct {
	Reference           string          `json:"refno"`
	DocType             string          `json:"doc_type"`
	Date                string          `json:"date"`
	DrugCode            string          `json:"drug_code"`
	LotNo               string          `json:"lot_no"`
	CalculatedBeginning decimal.Decimal `json:"calculated_beginning"`
	BegQty              decimal.Decimal `json:"beg_qty"`
	InQty               decimal.Decimal `json:"in_qty"`
	OutQty              decimal.Decimal `json:"out_qty"`
	AdjQty              decimal.Decimal `json:"adj_qty"`
	CalculatedEnding    decimal.Decimal `json:"calculated_ending"`
}

// AuditEntryResponse entrada del historial de auditoría de una referencia.
type AuditEntryResponse struct {
	ID          string          `json:"id"`
	Reference   string          `json:"refno"`
	DocType     string          `json:"doc_type"`
	Action      string          `json:"action"`
	Actor       string          `json:"actor"`
	BeforeImage json.RawMessage `json:"before_image,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
