// Package cache guarda reportes reconstruidos de la tarjeta de existencias.
package cache

import (
	"context"
	"time"

	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/application/inventory"
)

var _ inventory.ReportCache = NoopReportCache{}

// NoopReportCache no guarda nada (sin Redis configurado).
type NoopReportCache struct{}

func (NoopReportCache) Generation(_ context.Context) (int64, error) { return 0, nil }

func (NoopReportCache) Get(_ context.Context, _ string) (*dto.ReconstructionReport, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ string, _ *dto.ReconstructionReport, _ time.Duration) error {
	return nil
}

func (NoopReportCache) Invalidate(_ context.Context) error { return nil }
