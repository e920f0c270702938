package entity

import "time"

// Estados del periodo contable.
const (
	PeriodOpen   = "OPEN"
	PeriodClosed = "CLOSED"
)

// PeriodClosing registro del cierre de un mes (periodo origen).
type PeriodClosing struct {
	Year        int
	Month       int
	Status      string
	RowsCarried int
	ClosedBy    string
	ClosedAt    time.Time
}
