package inventory

import (
	"fmt"
	"time"

	"github.com/jhoicas/clinica-farmacia/internal/domain"
)

// Period es un periodo contable (año, mes 1..12).
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewPeriod valida y construye un periodo.
func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, domain.Invalid("month", "debe estar entre 1 y 12")
	}
	if year < 1900 || year > 9999 {
		return Period{}, domain.Invalid("year", "fuera de rango")
	}
	return Period{Year: year, Month: month}, nil
}

// PeriodOf devuelve el periodo de una fecha.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Next devuelve el mes siguiente (diciembre → enero del año siguiente).
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// FirstDay fecha del primer día del periodo (solo para mostrar/estampar reportes).
func (p Period) FirstDay() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Key devuelve YYYYMM, usado en números de referencia.
func (p Period) Key() string {
	return fmt.Sprintf("%04d%02d", p.Year, p.Month)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
