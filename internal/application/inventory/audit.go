package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/domain"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
)

// auditImage imagen previa guardada en ledger_audit antes de borrar y reinsertar.
type auditImage struct {
	Document  *entity.Document         `json:"document,omitempty"`
	Lines     []*entity.DocumentLine   `json:"lines,omitempty"`
	Movements []*entity.StockMovement  `json:"movements,omitempty"`
	Openings  []*entity.OpeningBalance `json:"openings,omitempty"`
}

func writeAudit(ctx context.Context, r Repos, reference string, docType entity.DocumentType,
	action, actor string, img auditImage, now time.Time) error {
	raw, err := json.Marshal(img)
	if err != nil {
		return fmt.Errorf("serializar imagen previa: %w", err)
	}
	return r.Audit.Create(ctx, &entity.AuditEntry{
		ID:          uuid.New().String(),
		Reference:   reference,
		DocType:     docType,
		Action:      action,
		Actor:       actor,
		BeforeImage: raw,
		CreatedAt:   now,
	})
}

// AuditQuery historial de ediciones, borrados y cierres de una referencia.
type AuditQuery struct {
	txRunner TxRunner
}

// NewAuditQuery construye la consulta.
func NewAuditQuery(tx TxRunner) *AuditQuery {
	return &AuditQuery{txRunner: tx}
}

// History entradas de ledger_audit de la referencia, de la más antigua a la más reciente.
// Una referencia sin historial devuelve lista vacía.
func (q *AuditQuery) History(ctx context.Context, reference string) ([]dto.AuditEntryResponse, error) {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return nil, domain.Invalid("refno", "requerido")
	}
	out := []dto.AuditEntryResponse{}
	err := q.txRunner.RunReadOnly(ctx, func(r Repos) error {
		entries, err := r.Audit.ListByReference(ctx, ref)
		if err != nil {
			return err
		}
		for _, e := range entries {
			out = append(out, dto.AuditEntryResponse{
				ID:          e.ID,
				Reference:   e.Reference,
				DocType:     string(e.DocType),
				Action:      e.Action,
				Actor:       e.Actor,
				BeforeImage: e.BeforeImage,
				CreatedAt:   e.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
