package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
)

func TestRenderStockCard_WithGroups(t *testing.T) {
	report := &dto.ReconstructionReport{
		Year:  2024,
		Month: 1,
		Groups: []dto.StockCardGroup{{
			DrugCode:     "AMOX500",
			LotNo:        "L-01",
			BeginningQty: decimal.Zero,
			EndingQty:    decimal.NewFromInt(70),
			TotalIn:      decimal.NewFromInt(100),
			TotalOut:     decimal.NewFromInt(30),
			Rows: []dto.StockCardRow{
				{Reference: "REC2024010001", Date: "2024-01-05", CalculatedBeginning: decimal.Zero,
					InQty: decimal.NewFromInt(100), CalculatedEnding: decimal.NewFromInt(100)},
				{Reference: "BOR2024010001", Date: "2024-01-10", CalculatedBeginning: decimal.NewFromInt(100),
					OutQty: decimal.NewFromInt(30), CalculatedEnding: decimal.NewFromInt(70)},
			},
		}},
	}

	out, err := NewMarotoStockCardRenderer("Clínica Central").RenderStockCard(context.Background(), report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")), "debe ser un PDF")
}

func TestRenderStockCard_Empty(t *testing.T) {
	out, err := NewMarotoStockCardRenderer("").RenderStockCard(context.Background(),
		&dto.ReconstructionReport{Year: 2024, Month: 2})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRenderStockCard_NilReport(t *testing.T) {
	_, err := NewMarotoStockCardRenderer("").RenderStockCard(context.Background(), nil)
	assert.Error(t, err)
}
