package repository

import (
	"context"

	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
)

// AuditRepository guarda imágenes previas antes de reescribir movimientos.
type AuditRepository interface {
	Create(ctx context.Context, entry *entity.AuditEntry) error
	ListByReference(ctx context.Context, reference string) ([]*entity.AuditEntry, error)
}
