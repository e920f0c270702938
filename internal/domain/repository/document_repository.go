package repository

import (
	"context"

	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
)

// DocumentRepository puerto de cabeceras y detalles de documentos de inventario.
type DocumentRepository interface {
	// Create devuelve domain.ErrDuplicate si la referencia ya existe.
	Create(ctx context.Context, doc *entity.Document) error
	// GetByReference devuelve nil, nil si no existe.
	GetByReference(ctx context.Context, reference string) (*entity.Document, error)
	// GetForUpdate bloquea la cabecera para editar/borrar.
	GetForUpdate(ctx context.Context, reference string) (*entity.Document, error)
	Update(ctx context.Context, doc *entity.Document) error
	// Delete borra cabecera y líneas.
	Delete(ctx context.Context, reference string) error
	ListLines(ctx context.Context, reference string) ([]*entity.DocumentLine, error)
	ReplaceLines(ctx context.Context, reference string, lines []*entity.DocumentLine) error
	// ListReferences referencias que empiezan con el prefijo dado.
	ListReferences(ctx context.Context, prefix string) ([]string, error)
}
