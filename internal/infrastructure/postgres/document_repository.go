package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/clinica-farmacia/internal/domain"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	"github.com/jhoicas/clinica-farmacia/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

const documentColumns = `reference, doc_type, doc_date, year, month, status, remark, supplier_code, department_code,
	total, allow_negative, created_by, created_at, updated_at`

const lineColumns = `id, reference, line_no, drug_code, lot_no, unit_code, qty, system_qty, unit_cost, amount,
	applied_qty, applied_amount, expiry_date`

// DocumentRepo cabeceras (inventory_documents) y líneas (inventory_document_lines).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var d entity.Document
	var docType string
	err := row.Scan(&d.Reference, &docType, &d.Date, &d.Year, &d.Month, &d.Status, &d.Remark,
		&d.SupplierCode, &d.DepartmentCode, &d.Total, &d.AllowNegative, &d.CreatedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Type = entity.DocumentType(docType)
	return &d, nil
}

// Create inserta la cabecera; referencia repetida -> domain.ErrDuplicate.
func (r *DocumentRepo) Create(ctx context.Context, d *entity.Document) error {
	query := `
		INSERT INTO inventory_documents (reference, doc_type, doc_date, year, month, status, remark,
			supplier_code, department_code, total, allow_negative, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(ctx, query, d.Reference, string(d.Type), d.Date, d.Year, d.Month, d.Status, d.Remark,
		d.SupplierCode, d.DepartmentCode, d.Total, d.AllowNegative, d.CreatedBy, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicate, d.Reference)
		}
		return classify("create document", err)
	}
	return nil
}

func (r *DocumentRepo) get(ctx context.Context, reference, suffix string) (*entity.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM inventory_documents WHERE reference = $1` + suffix
	d, err := scanDocument(r.q.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("get document", err)
	}
	return d, nil
}

func (r *DocumentRepo) GetByReference(ctx context.Context, reference string) (*entity.Document, error) {
	return r.get(ctx, reference, "")
}

// GetForUpdate bloquea la cabecera para que dos ediciones del mismo documento se serialicen.
func (r *DocumentRepo) GetForUpdate(ctx context.Context, reference string) (*entity.Document, error) {
	return r.get(ctx, reference, " FOR UPDATE")
}

func (r *DocumentRepo) Update(ctx context.Context, d *entity.Document) error {
	query := `
		UPDATE inventory_documents SET doc_date = $2, year = $3, month = $4, status = $5, remark = $6,
			supplier_code = $7, department_code = $8, total = $9, allow_negative = $10, updated_at = $11
		WHERE reference = $1`
	tag, err := r.q.Exec(ctx, query, d.Reference, d.Date, d.Year, d.Month, d.Status, d.Remark,
		d.SupplierCode, d.DepartmentCode, d.Total, d.AllowNegative, d.UpdatedAt)
	if err != nil {
		return classify("update document", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("documento", d.Reference)
	}
	return nil
}

// Delete borra la cabecera; las líneas caen por ON DELETE CASCADE.
func (r *DocumentRepo) Delete(ctx context.Context, reference string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM inventory_documents WHERE reference = $1`, reference)
	if err != nil {
		return classify("delete document", err)
	}
	return nil
}

func (r *DocumentRepo) ListLines(ctx context.Context, reference string) ([]*entity.DocumentLine, error) {
	query := `SELECT ` + lineColumns + ` FROM inventory_document_lines WHERE reference = $1 ORDER BY line_no`
	rows, err := r.q.Query(ctx, query, reference)
	if err != nil {
		return nil, classify("list document lines", err)
	}
	defer rows.Close()
	var list []*entity.DocumentLine
	for rows.Next() {
		var l entity.DocumentLine
		if err := rows.Scan(&l.ID, &l.Reference, &l.LineNo, &l.DrugCode, &l.LotNo, &l.UnitCode, &l.Quantity,
			&l.SystemQuantity, &l.UnitCost, &l.Amount, &l.AppliedQty, &l.AppliedAmount, &l.ExpiryDate); err != nil {
			return nil, classify("scan document line", err)
		}
		list = append(list, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list document lines", err)
	}
	return list, nil
}

// ReplaceLines borra y reinserta las líneas del documento.
func (r *DocumentRepo) ReplaceLines(ctx context.Context, reference string, lines []*entity.DocumentLine) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM inventory_document_lines WHERE reference = $1`, reference); err != nil {
		return classify("delete document lines", err)
	}
	query := `
		INSERT INTO inventory_document_lines (` + lineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	for _, l := range lines {
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.Reference = reference
		_, err := r.q.Exec(ctx, query, l.ID, reference, l.LineNo, l.DrugCode, l.LotNo, l.UnitCode, l.Quantity,
			l.SystemQuantity, l.UnitCost, l.Amount, l.AppliedQty, l.AppliedAmount, l.ExpiryDate)
		if err != nil {
			return classify("insert document line", err)
		}
	}
	return nil
}

// ListReferences referencias con el prefijo dado (para sugerir la siguiente).
func (r *DocumentRepo) ListReferences(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.q.Query(ctx,
		`SELECT reference FROM inventory_documents WHERE starts_with(reference, $1) ORDER BY reference`, prefix)
	if err != nil {
		return nil, classify("list references", err)
	}
	defer rows.Close()
	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, classify("scan reference", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list references", err)
	}
	return refs, nil
}
