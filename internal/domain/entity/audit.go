package entity

import (
	"encoding/json"
	"time"
)

// Acciones auditadas.
const (
	AuditUpdate = "UPDATE"
	AuditDelete = "DELETE"
	AuditClose  = "CLOSE"
)

// AuditEntry imagen previa (líneas y movimientos) capturada antes de borrar y reinsertar.
type AuditEntry struct {
	ID          string
	Reference   string
	DocType     DocumentType
	Action      string
	Actor       string
	BeforeImage json.RawMessage
	CreatedAt   time.Time
}
