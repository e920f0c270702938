package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	"github.com/jhoicas/clinica-farmacia/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo imágenes previas en ledger_audit (JSONB).
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

func (r *AuditRepo) Create(ctx context.Context, e *entity.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO ledger_audit (id, reference, doc_type, action, actor, before_image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Reference, string(e.DocType), e.Action, e.Actor, []byte(e.BeforeImage), e.CreatedAt)
	if err != nil {
		return classify("create audit entry", err)
	}
	return nil
}

func (r *AuditRepo) ListByReference(ctx context.Context, reference string) ([]*entity.AuditEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, reference, doc_type, action, actor, before_image, created_at
		FROM ledger_audit WHERE reference = $1 ORDER BY created_at, id`, reference)
	if err != nil {
		return nil, classify("list audit entries", err)
	}
	defer rows.Close()
	var list []*entity.AuditEntry
	for rows.Next() {
		var e entity.AuditEntry
		var docType string
		var image []byte
		if err := rows.Scan(&e.ID, &e.Reference, &docType, &e.Action, &e.Actor, &image, &e.CreatedAt); err != nil {
			return nil, classify("scan audit entry", err)
		}
		e.DocType = entity.DocumentType(docType)
		e.BeforeImage = image
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list audit entries", err)
	}
	return list, nil
}
