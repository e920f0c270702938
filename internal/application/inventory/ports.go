package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/domain/repository"
)

// Repos repositorios del ledger atados a una misma transacción.
type Repos struct {
	Balances  repository.BalanceRepository
	Movements repository.StockMovementRepository
	Openings  repository.OpeningBalanceRepository
	Documents repository.DocumentRepository
	Closings  repository.PeriodClosingRepository
	Audit     repository.AuditRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error (o el contexto vence) se hace Rollback completo; nunca hay commits parciales.
type TxRunner interface {
	Run(ctx context.Context, fn func(r Repos) error) error
	// RunReadOnly abre una transacción de solo lectura con una foto consistente (reportes).
	RunReadOnly(ctx context.Context, fn func(r Repos) error) error
}

// ReportCache cache de reportes reconstruidos. Invalidate se llama después de cada commit
// que modifica el ledger y avanza la generación; las claves se arman con la generación leída
// antes de consultar la BD, así un reporte calculado antes de un commit nunca se sirve después.
type ReportCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, key string) (*dto.ReconstructionReport, bool, error)
	Set(ctx context.Context, key string, report *dto.ReconstructionReport, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// StockCardRenderer genera la representación PDF de una tarjeta de existencias.
type StockCardRenderer interface {
	RenderStockCard(ctx context.Context, report *dto.ReconstructionReport) ([]byte, error)
}
