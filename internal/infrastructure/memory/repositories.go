package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/clinica-farmacia/internal/domain"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	invdomain "github.com/jhoicas/clinica-farmacia/internal/domain/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/domain/repository"
)

// ---------- bal_drug ----------

type balanceRepo struct {
	st  *state
	now func() time.Time
}

func (r *balanceRepo) Get(_ context.Context, drugCode, lotNo string) (*entity.Balance, error) {
	b, ok := r.st.balances[invdomain.Key{DrugCode: drugCode, LotNo: lotNo}]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *balanceRepo) GetForUpdate(ctx context.Context, drugCode, lotNo string) (*entity.Balance, error) {
	return r.Get(ctx, drugCode, lotNo)
}

func (r *balanceRepo) Adjust(_ context.Context, d entity.BalanceDelta) (*entity.Balance, error) {
	k := invdomain.Key{DrugCode: d.DrugCode, LotNo: d.LotNo}
	b, ok := r.st.balances[k]
	if !ok {
		b = entity.Balance{DrugCode: d.DrugCode, LotNo: d.LotNo}
	}
	b.Quantity = b.Quantity.Add(d.Quantity)
	b.Amount = b.Amount.Add(d.Amount)
	if d.UnitPrice != nil {
		b.UnitPrice = *d.UnitPrice
	}
	if d.UnitCode != nil {
		b.UnitCode = *d.UnitCode
	}
	if d.ExpiryDate != nil {
		exp := *d.ExpiryDate
		b.ExpiryDate = &exp
		b.ExpiryText = invdomain.ExpiryText(&exp)
	}
	b.UpdatedAt = r.now().UTC()
	r.st.balances[k] = b
	return &b, nil
}

func (r *balanceRepo) List(_ context.Context, f repository.BalanceFilter) ([]*entity.Balance, error) {
	var out []*entity.Balance
	for _, b := range r.st.balances {
		if f.DrugCode != "" && b.DrugCode != f.DrugCode {
			continue
		}
		if f.LotNo != nil && b.LotNo != *f.LotNo {
			continue
		}
		if f.OnlyPositive && !b.Quantity.IsPositive() {
			continue
		}
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool {
		return invdomain.Key{DrugCode: out[i].DrugCode, LotNo: out[i].LotNo}.
			Less(invdomain.Key{DrugCode: out[j].DrugCode, LotNo: out[j].LotNo})
	})
	return out, nil
}

// ---------- stock_movements ----------

type movementRepo struct {
	st  *state
	now func() time.Time
}

func movementKeyOf(m *entity.StockMovement) movementKey {
	return movementKey{Reference: m.Reference, Year: m.Year, Month: m.Month, DrugCode: m.DrugCode, LotNo: m.LotNo}
}

func (r *movementRepo) Append(_ context.Context, m *entity.StockMovement) error {
	k := movementKeyOf(m)
	cur, ok := r.st.movements[k]
	if !ok {
		row := *m
		if row.ID == "" {
			row.ID = uuid.New().String()
		}
		row.CreatedAt = r.now().UTC()
		r.st.movements[k] = row
		r.st.movSeq[k] = r.st.nextSeq()
		return nil
	}
	cur.BegQty = cur.BegQty.Add(m.BegQty)
	cur.InQty = cur.InQty.Add(m.InQty)
	cur.OutQty = cur.OutQty.Add(m.OutQty)
	cur.AdjQty = cur.AdjQty.Add(m.AdjQty)
	cur.BegAmount = cur.BegAmount.Add(m.BegAmount)
	cur.InAmount = cur.InAmount.Add(m.InAmount)
	cur.OutAmount = cur.OutAmount.Add(m.OutAmount)
	cur.AdjAmount = cur.AdjAmount.Add(m.AdjAmount)
	cur.AppliedQty = cur.AppliedQty.Add(m.AppliedQty)
	cur.AppliedAmount = cur.AppliedAmount.Add(m.AppliedAmount)
	r.st.movements[k] = cur
	return nil
}

func (r *movementRepo) DeleteByReference(_ context.Context, reference string) error {
	for k := range r.st.movements {
		if k.Reference == reference {
			delete(r.st.movements, k)
			delete(r.st.movSeq, k)
		}
	}
	return nil
}

func (r *movementRepo) DeleteByReferenceAndKey(_ context.Context, reference string, year, month int, drugCode, lotNo string) error {
	k := movementKey{Reference: reference, Year: year, Month: month, DrugCode: drugCode, LotNo: lotNo}
	delete(r.st.movements, k)
	delete(r.st.movSeq, k)
	return nil
}

func (r *movementRepo) ListByReference(_ context.Context, reference string) ([]*entity.StockMovement, error) {
	return r.collect(func(m entity.StockMovement) bool { return m.Reference == reference }), nil
}

func (r *movementRepo) ListByPeriod(_ context.Context, year, month int, f repository.MovementFilter) ([]*entity.StockMovement, error) {
	return r.collect(func(m entity.StockMovement) bool {
		return m.Year == year && m.Month == month && matchKey(f, m.DrugCode, m.LotNo)
	}), nil
}

func (r *movementRepo) Sum(_ context.Context, f repository.MovementFilter) (repository.MovementTotals, error) {
	var t repository.MovementTotals
	for _, m := range r.st.movements {
		if matchMovement(f, m) {
			addTotals(&t, m)
		}
	}
	return t, nil
}

func (r *movementRepo) SumByKey(_ context.Context, f repository.MovementFilter) ([]repository.GroupedTotals, error) {
	groups := make(map[invdomain.Key]*repository.GroupedTotals)
	for _, m := range r.st.movements {
		if !matchMovement(f, m) {
			continue
		}
		k := invdomain.Key{DrugCode: m.DrugCode, LotNo: m.LotNo}
		g, ok := groups[k]
		if !ok {
			g = &repository.GroupedTotals{DrugCode: m.DrugCode, LotNo: m.LotNo}
			groups[k] = g
		}
		addTotals(&g.MovementTotals, m)
	}
	out := make([]repository.GroupedTotals, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		return invdomain.Key{DrugCode: out[i].DrugCode, LotNo: out[i].LotNo}.
			Less(invdomain.Key{DrugCode: out[j].DrugCode, LotNo: out[j].LotNo})
	})
	return out, nil
}

// collect filas que cumplen keep, ordenadas por fecha, referencia y orden de inserción.
func (r *movementRepo) collect(keep func(entity.StockMovement) bool) []*entity.StockMovement {
	type item struct {
		m   entity.StockMovement
		seq int64
	}
	var items []item
	for k, m := range r.st.movements {
		if keep(m) {
			items = append(items, item{m: m, seq: r.st.movSeq[k]})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.m.Date.Equal(b.m.Date) {
			return a.m.Date.Before(b.m.Date)
		}
		if a.m.Reference != b.m.Reference {
			return a.m.Reference < b.m.Reference
		}
		return a.seq < b.seq
	})
	out := make([]*entity.StockMovement, 0, len(items))
	for i := range items {
		out = append(out, &items[i].m)
	}
	return out
}

func matchKey(f repository.MovementFilter, drugCode, lotNo string) bool {
	if f.DrugCode != "" && drugCode != f.DrugCode {
		return false
	}
	return f.LotNo == nil || lotNo == *f.LotNo
}

func matchMovement(f repository.MovementFilter, m entity.StockMovement) bool {
	if !matchKey(f, m.DrugCode, m.LotNo) {
		return false
	}
	idx := m.Year*12 + m.Month
	if f.Range.From != nil && idx < f.Range.From.Year*12+f.Range.From.Month {
		return false
	}
	if f.Range.To != nil && idx > f.Range.To.Year*12+f.Range.To.Month {
		return false
	}
	return true
}

func addTotals(t *repository.MovementTotals, m entity.StockMovement) {
	t.InQty = t.InQty.Add(m.InQty)
	t.OutQty = t.OutQty.Add(m.OutQty)
	t.AdjQty = t.AdjQty.Add(m.AdjQty)
	t.AppliedQty = t.AppliedQty.Add(m.AppliedQty)
	t.InAmount = t.InAmount.Add(m.InAmount)
	t.OutAmount = t.OutAmount.Add(m.OutAmount)
	t.AdjAmount = t.AdjAmount.Add(m.AdjAmount)
	t.AppliedAmount = t.AppliedAmount.Add(m.AppliedAmount)
}

// ---------- beg_month_drug ----------

type openingRepo struct {
	st  *state
	now func() time.Time
}

func (r *openingRepo) Get(_ context.Context, year, month int, drugCode, lotNo string) (*entity.OpeningBalance, error) {
	ob, ok := r.st.openings[openingKey{Year: year, Month: month, DrugCode: drugCode, LotNo: lotNo}]
	if !ok {
		return nil, nil
	}
	return &ob, nil
}

func (r *openingRepo) Upsert(_ context.Context, ob *entity.OpeningBalance) error {
	row := *ob
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = r.now().UTC()
	}
	r.st.openings[openingKey{Year: ob.Year, Month: ob.Month, DrugCode: ob.DrugCode, LotNo: ob.LotNo}] = row
	return nil
}

func (r *openingRepo) Delete(_ context.Context, year, month int, drugCode, lotNo string) error {
	delete(r.st.openings, openingKey{Year: year, Month: month, DrugCode: drugCode, LotNo: lotNo})
	return nil
}

func (r *openingRepo) DeleteByPeriod(_ context.Context, year, month int) error {
	for k := range r.st.openings {
		if k.Year == year && k.Month == month {
			delete(r.st.openings, k)
		}
	}
	return nil
}

func (r *openingRepo) ListByPeriod(_ context.Context, year, month int) ([]*entity.OpeningBalance, error) {
	var out []*entity.OpeningBalance
	for k, ob := range r.st.openings {
		if k.Year == year && k.Month == month {
			ob := ob
			out = append(out, &ob)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return invdomain.Key{DrugCode: out[i].DrugCode, LotNo: out[i].LotNo}.
			Less(invdomain.Key{DrugCode: out[j].DrugCode, LotNo: out[j].LotNo})
	})
	return out, nil
}

// ---------- inventory_documents ----------

type documentRepo struct {
	st *state
}

func (r *documentRepo) Create(_ context.Context, doc *entity.Document) error {
	if _, ok := r.st.documents[doc.Reference]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, doc.Reference)
	}
	r.st.documents[doc.Reference] = *doc
	return nil
}

func (r *documentRepo) GetByReference(_ context.Context, reference string) (*entity.Document, error) {
	doc, ok := r.st.documents[reference]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (r *documentRepo) GetForUpdate(ctx context.Context, reference string) (*entity.Document, error) {
	return r.GetByReference(ctx, reference)
}

func (r *documentRepo) Update(_ context.Context, doc *entity.Document) error {
	if _, ok := r.st.documents[doc.Reference]; !ok {
		return domain.NotFound("documento", doc.Reference)
	}
	r.st.documents[doc.Reference] = *doc
	return nil
}

func (r *documentRepo) Delete(_ context.Context, reference string) error {
	delete(r.st.documents, reference)
	delete(r.st.lines, reference)
	return nil
}

func (r *documentRepo) ListLines(_ context.Context, reference string) ([]*entity.DocumentLine, error) {
	lines := r.st.lines[reference]
	out := make([]*entity.DocumentLine, 0, len(lines))
	for i := range lines {
		l := lines[i]
		out = append(out, &l)
	}
	return out, nil
}

func (r *documentRepo) ReplaceLines(_ context.Context, reference string, lines []*entity.DocumentLine) error {
	if _, ok := r.st.documents[reference]; !ok {
		return fmt.Errorf("%w: líneas sin cabecera %s", domain.ErrIntegrity, reference)
	}
	rows := make([]entity.DocumentLine, 0, len(lines))
	for _, l := range lines {
		row := *l
		row.Reference = reference
		if row.ID == "" {
			row.ID = uuid.New().String()
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].LineNo < rows[j].LineNo })
	r.st.lines[reference] = rows
	return nil
}

func (r *documentRepo) ListReferences(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for ref := range r.st.documents {
		if strings.HasPrefix(ref, prefix) {
			out = append(out, ref)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ---------- period_closings ----------

type closingRepo struct {
	st *state
}

func (r *closingRepo) Get(_ context.Context, year, month int) (*entity.PeriodClosing, error) {
	c, ok := r.st.closings[periodKey{Year: year, Month: month}]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *closingRepo) Upsert(_ context.Context, c *entity.PeriodClosing) error {
	r.st.closings[periodKey{Year: c.Year, Month: c.Month}] = *c
	return nil
}

// ---------- ledger_audit ----------

type auditRepo struct {
	st *state
}

func (r *auditRepo) Create(_ context.Context, e *entity.AuditEntry) error {
	row := *e
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	r.st.audit = append(r.st.audit, row)
	return nil
}

func (r *auditRepo) ListByReference(_ context.Context, reference string) ([]*entity.AuditEntry, error) {
	var out []*entity.AuditEntry
	for i := range r.st.audit {
		if r.st.audit[i].Reference == reference {
			e := r.st.audit[i]
			out = append(out, &e)
		}
	}
	return out, nil
}
