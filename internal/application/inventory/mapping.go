package inventory

import (
	"strings"
	"time"

	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/domain"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	invdomain "github.com/jhoicas/clinica-farmacia/internal/domain/inventory"
)

const dateLayout = "2006-01-02"

// parseDate acepta 2006-01-02 o RFC3339; siempre devuelve la fecha en UTC sin hora.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, domain.Invalid(field, "requerido")
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, domain.Invalid(field, "formato de fecha inválido (use AAAA-MM-DD)")
		}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// parseOptionalDate como parseDate pero "" = nil.
func parseOptionalDate(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseDate(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func toDocumentResponse(doc *entity.Document, lines []*entity.DocumentLine) *dto.DocumentResponse {
	out := &dto.DocumentResponse{
		Reference:      doc.Reference,
		Type:           string(doc.Type),
		Date:           formatDate(&doc.Date),
		Year:           doc.Year,
		Month:          doc.Month,
		Status:         doc.Status,
		Remark:         doc.Remark,
		SupplierCode:   doc.SupplierCode,
		DepartmentCode: doc.DepartmentCode,
		Total:          doc.Total,
		CreatedBy:      doc.CreatedBy,
		Lines:          make([]dto.DocumentLineResponse, 0, len(lines)),
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, dto.DocumentLineResponse{
			LineNo:         l.LineNo,
			DrugCode:       l.DrugCode,
			LotNo:          l.LotNo,
			UnitCode:       l.UnitCode,
			Quantity:       l.Quantity,
			SystemQuantity: l.SystemQuantity,
			UnitCost:       l.UnitCost,
			Amount:         l.Amount,
			AppliedQty:     l.AppliedQty,
			ExpiryDate:     formatDate(l.ExpiryDate),
		})
	}
	return out
}

func toBalanceResponse(b *entity.Balance) dto.BalanceResponse {
	return dto.BalanceResponse{
		DrugCode:   b.DrugCode,
		LotNo:      b.LotNo,
		Quantity:   b.Quantity,
		Amount:     b.Amount,
		UnitPrice:  b.UnitPrice,
		UnitCode:   b.UnitCode,
		ExpiryDate: formatDate(b.ExpiryDate),
		ExpiryText: invdomain.ExpiryText(b.ExpiryDate),
	}
}

func toOpeningResponse(ob *entity.OpeningBalance) *dto.OpeningBalanceResponse {
	return &dto.OpeningBalanceResponse{
		Year:       ob.Year,
		Month:      ob.Month,
		DrugCode:   ob.DrugCode,
		LotNo:      ob.LotNo,
		Quantity:   ob.Quantity,
		Amount:     ob.Amount,
		UnitPrice:  ob.UnitPrice,
		UnitCode:   ob.UnitCode,
		ExpiryDate: formatDate(ob.ExpiryDate),
		Source:     ob.Source,
	}
}
