// Package pdf genera la tarjeta de existencias (stock card) reconstruida de un mes.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Tarjeta de existencias  │  Periodo AAAA-MM         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  GRUPO: Medicamento + Lote                                   │
//	│  TABLA: Fecha | Referencia | Inicial | Ent. | Sal. | Aj. | Final │
//	│  TOTALES: Saldo inicial / Entradas / Salidas / Saldo final   │
//	│  (se repite por cada medicamento/lote)                      │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/application/inventory"
)

var _ inventory.StockCardRenderer = (*MarotoStockCardRenderer)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Renderer ──────────────────────────────────────────────────────────────────

// MarotoStockCardRenderer implementa inventory.StockCardRenderer usando Maroto v2.
type MarotoStockCardRenderer struct {
	title string
}

// NewMarotoStockCardRenderer construye el generador. title aparece en el encabezado (nombre de la clínica).
func NewMarotoStockCardRenderer(title string) *MarotoStockCardRenderer {
	return &MarotoStockCardRenderer{title: title}
}

// RenderStockCard genera el PDF y devuelve sus bytes.
func (g *MarotoStockCardRenderer) RenderStockCard(_ context.Context, report *dto.ReconstructionReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("pdf: reporte vacío")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle("Tarjeta de existencias", true).
		WithAuthor(g.title, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(g.title, report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	if len(report.Groups) == 0 {
		m.AddRows(row.New(10).Add(col.New(12).Add(
			text.New("Sin movimientos en el periodo.", props.Text{Size: 9, Top: 3, Color: colorGray}),
		)))
	}
	for _, grp := range report.Groups {
		m.AddRows(groupRow(grp))
		m.AddRows(tableHeaderRow())
		for _, r := range tableDetailRows(grp.Rows) {
			m.AddRows(r)
		}
		m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
		m.AddRows(totalsRow(grp))
		m.AddRows(line.NewRow(4))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(title string, report *dto.ReconstructionReport) core.Row {
	return row.New(16).Add(
		col.New(8).Add(
			text.New(nonEmpty(title, "Farmacia"), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("TARJETA DE EXISTENCIAS", props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(4).Add(
			text.New("Periodo", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("%04d-%02d", report.Year, report.Month), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
		),
	)
}

// groupRow: medicamento y lote del bloque.
func groupRow(grp dto.StockCardGroup) core.Row {
	return row.New(9).Add(
		col.New(12).Add(
			text.New(fmt.Sprintf("Medicamento: %s   |   Lote: %s", grp.DrugCode, nonEmpty(grp.LotNo, "(sin lote)")),
				props.Text{Style: fontstyle.Bold, Size: 9, Top: 3}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 7, Align: a, Color: colorPrimary, Top: 1, Left: 1, Right: 1,
		}))
	}
	return row.New(6).Add(
		h("Fecha", 2, align.Left),
		h("Referencia", 3, align.Left),
		h("Inicial", 2, align.Right),
		h("Ent.", 1, align.Right),
		h("Sal.", 1, align.Right),
		h("Aj.", 1, align.Right),
		h("Final", 2, align.Right),
	)
}

// tableDetailRows: una fila por movimiento; la columna de entradas incluye la cantidad "beg".
func tableDetailRows(rows []dto.StockCardRow) []core.Row {
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 7, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	out := make([]core.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, row.New(5).Add(
			cell(r.Date, 2, align.Left),
			cell(r.Reference, 3, align.Left),
			cell(qty(r.CalculatedBeginning), 2, align.Right),
			cell(qty(r.InQty.Add(r.BegQty)), 1, align.Right),
			cell(qty(r.OutQty), 1, align.Right),
			cell(qty(r.AdjQty), 1, align.Right),
			cell(qty(r.CalculatedEnding), 2, align.Right),
		))
	}
	return out
}

func totalsRow(grp dto.StockCardGroup) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 7, Align: align.Right, Top: 1})
	}
	return row.New(6).Add(
		col.New(3).Add(label("Inicial: "+qty(grp.BeginningQty))),
		col.New(3).Add(label("Entradas: "+qty(grp.TotalIn))),
		col.New(3).Add(label("Salidas: "+qty(grp.TotalOut))),
		col.New(3).Add(label("Final: "+qty(grp.EndingQty))),
	)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func qty(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
