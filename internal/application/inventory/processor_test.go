package inventory_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/application/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/domain"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	"github.com/jhoicas/clinica-farmacia/internal/infrastructure/memory"
	"github.com/jhoicas/clinica-farmacia/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Recepción y préstamo
// ──────────────────────────────────────────────────────────────────────────────

func TestRecepcionYPrestamo_SaldoValorizado(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec := e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("PARA500", strPtr("L1"), "100", "5")))
	assertDec(t, "500", rec.Total)

	qty, amt := e.balance(t, "PARA500", "L1")
	assertDec(t, "100", qty)
	assertDec(t, "500", amt)

	bor := e.mustCreate(t, e.borrows, doc("BOR-1", "2026-03-06", line("PARA500", strPtr("L1"), "30", "0")))
	assertDec(t, "150", bor.Total)
	assertDec(t, "-30", bor.Lines[0].AppliedQty)

	qty, amt = e.balance(t, "PARA500", "L1")
	assertDec(t, "70", qty)
	assertDec(t, "350", amt)
	e.assertConserved(t, "PARA500", "L1")

	got, err := e.borrows.Get(ctx, "BOR-1")
	require.NoError(t, err)
	assert.Equal(t, "BORROW", got.Type)
	assert.Equal(t, 2026, got.Year)
	assert.Equal(t, 3, got.Month)
	assert.Equal(t, actor, got.CreatedBy)
}

func TestRecepcion_ActualizaCamposDescriptivos(t *testing.T) {
	e := newEnv(t)
	req := doc("REC-1", "2026-03-05", line("PARA500", strPtr("L1"), "10", "2.5"))
	req.Lines[0].UnitCode = "TAB"
	req.Lines[0].ExpiryDate = "2027-01-31"
	e.mustCreate(t, e.receipts, req)

	b, err := e.balances.GetBalance(context.Background(), "PARA500", strPtr("L1"))
	require.NoError(t, err)
	assert.Equal(t, "TAB", b.UnitCode)
	assert.Equal(t, "2027-01-31", b.ExpiryDate)
	assert.Equal(t, "31/01/2027", b.ExpiryText)
	assertDec(t, "2.5", b.UnitPrice)

	// Un préstamo no toca los campos descriptivos.
	e.mustCreate(t, e.borrows, doc("BOR-1", "2026-03-06", line("PARA500", strPtr("L1"), "4", "9")))
	b, err = e.balances.GetBalance(context.Background(), "PARA500", strPtr("L1"))
	require.NoError(t, err)
	assertDec(t, "2.5", b.UnitPrice)
	assert.Equal(t, "TAB", b.UnitCode)
}

func TestGetBalance_Inexistente(t *testing.T) {
	e := newEnv(t)
	_, err := e.balances.GetBalance(context.Background(), "NADA", nil)
	assert.ErrorIs(t, err, domain.ErrBalanceNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Referencias
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_ReferenciaAutogenerada(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first := e.mustCreate(t, e.receipts, doc("", "2026-03-05", line("A", nil, "1", "1")))
	second := e.mustCreate(t, e.receipts, doc("", "2026-03-20", line("A", nil, "1", "1")))
	assert.Equal(t, "REC2026030001", first.Reference)
	assert.Equal(t, "REC2026030002", second.Reference)

	next, err := e.receipts.GenerateReference(ctx, 2026, 3)
	require.NoError(t, err)
	assert.Equal(t, "REC2026030003", next)

	other, err := e.borrows.GenerateReference(ctx, 2026, 3)
	require.NoError(t, err)
	assert.Equal(t, "BOR2026030001", other, "cada tipo lleva su propia secuencia")

	april, err := e.receipts.GenerateReference(ctx, 2026, 4)
	require.NoError(t, err)
	assert.Equal(t, "REC2026040001", april)

	_, err = e.receipts.GenerateReference(ctx, 2026, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreate_ReferenciaDuplicada_NoModificaSaldo(t *testing.T) {
	e := newEnv(t)
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("A", nil, "10", "1")))

	_, err := e.receipts.Create(context.Background(), actor, doc("REC-1", "2026-03-06", line("A", nil, "99", "1")))
	require.ErrorIs(t, err, domain.ErrDuplicate)

	qty, _ := e.balance(t, "A", "")
	assertDec(t, "10", qty)
	e.assertConserved(t, "A", "")
}

func TestCreate_ReferenciaDeOtroTipo_EsDuplicada(t *testing.T) {
	e := newEnv(t)
	e.mustCreate(t, e.receipts, doc("DOC-1", "2026-03-05", line("A", nil, "10", "1")))
	_, err := e.borrows.Create(context.Background(), actor, doc("DOC-1", "2026-03-06", line("A", nil, "1", "0")))
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

// ──────────────────────────────────────────────────────────────────────────────
// Salidas sin saldo suficiente
// ──────────────────────────────────────────────────────────────────────────────

func TestDevolucion_NoPuedeSobrevender(t *testing.T) {
	e := newEnv(t)
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("PARA500", strPtr("L1"), "70", "5")))

	_, err := e.returns.Create(context.Background(), actor, doc("RET-1", "2026-03-07", line("PARA500", strPtr("L1"), "500", "5")))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var stock *domain.InsufficientStockError
	require.True(t, errors.As(err, &stock))
	assert.Equal(t, "PARA500", stock.DrugCode)
	assert.Equal(t, "L1", stock.LotNo)
	assertDec(t, "70", stock.Available)
	assertDec(t, "500", stock.Requested)

	qty, _ := e.balance(t, "PARA500", "L1")
	assertDec(t, "70", qty)
	assert.Empty(t, e.movements(t, "RET-1"), "la transacción rechazada no deja filas")
}

func TestDevolucion_SinSaldo_BalanceNotFound(t *testing.T) {
	e := newEnv(t)
	_, err := e.returns.Create(context.Background(), actor, doc("RET-1", "2026-03-07", line("X", nil, "1", "1")))
	assert.ErrorIs(t, err, domain.ErrBalanceNotFound)
}

func TestPrestamo_SinSaldo_Insuficiente(t *testing.T) {
	e := newEnv(t)
	_, err := e.borrows.Create(context.Background(), actor, doc("BOR-1", "2026-03-07", line("X", nil, "1", "1")))
	var stock *domain.InsufficientStockError
	require.True(t, errors.As(err, &stock))
	assertDec(t, "0", stock.Available)
}

func TestPrestamo_VariasLineasMismaClave_SumaLaSalida(t *testing.T) {
	e := newEnv(t)
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("A", nil, "10", "1")))

	_, err := e.borrows.Create(context.Background(), actor, doc("BOR-1", "2026-03-06",
		line("A", nil, "6", "0"), line("A", strPtr("-"), "6", "0")))
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	qty, _ := e.balance(t, "A", "")
	assertDec(t, "10", qty)
}

// ──────────────────────────────────────────────────────────────────────────────
// Equivalencia de lotes
// ──────────────────────────────────────────────────────────────────────────────

func TestLotes_NuloVacioGuionYAnchoCompleto(t *testing.T) {
	e := newEnv(t)
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("AMOX", nil, "10", "2")))
	e.mustCreate(t, e.borrows, doc("BOR-1", "2026-03-06", line("AMOX", strPtr("-"), "3", "0")))
	e.mustCreate(t, e.returns, doc("RET-1", "2026-03-07", line("AMOX", strPtr("－"), "2", "0")))
	e.mustCreate(t, e.borrows, doc("BOR-2", "2026-03-08", line("AMOX", strPtr(""), "1", "0")))

	list, err := e.balances.ListBalances(context.Background(), "AMOX", nil)
	require.NoError(t, err)
	require.Len(t, list, 1, "todas las variantes son el mismo saldo")
	assert.Equal(t, "", list[0].LotNo)
	assertDec(t, "4", list[0].Quantity)
	e.assertConserved(t, "AMOX", "")

	got, err := e.returns.Get(context.Background(), "RET-1")
	require.NoError(t, err)
	assert.Equal(t, "", got.Lines[0].LotNo)
}

func TestRecepcion_LineasRepetidas_UnaFilaPorClave(t *testing.T) {
	e := newEnv(t)
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05",
		line("A", strPtr("L1"), "10", "1"), line("A", strPtr("L1"), "5", "1"), line("A", strPtr("L2"), "2", "1")))

	movs := e.movements(t, "REC-1")
	require.Len(t, movs, 2, "una fila de tarjeta por medicamento/lote")
	for _, m := range movs {
		if m.LotNo == "L1" {
			assertDec(t, "15", m.InQty)
			assertDec(t, "15", m.AppliedQty)
		}
	}
	e.assertConserved(t, "A", "L1")
	e.assertConserved(t, "A", "L2")
}

// ──────────────────────────────────────────────────────────────────────────────
// Edición y borrado (revertir y volver a aplicar)
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdate_ReducirYAumentar(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("A", nil, "100", "5")))
	e.mustCreate(t, e.borrows, doc("BOR-1", "2026-03-06", line("A", nil, "30", "0")))

	_, err := e.borrows.Update(ctx, actor, "BOR-1", doc("", "2026-03-06", line("A", nil, "10", "0")))
	require.NoError(t, err)
	qty, amt := e.balance(t, "A", "")
	assertDec(t, "90", qty)
	assertDec(t, "450", amt)

	_, err = e.borrows.Update(ctx, actor, "BOR-1", doc("", "2026-03-06", line("A", nil, "90", "0")))
	require.NoError(t, err)
	qty, amt = e.balance(t, "A", "")
	assertDec(t, "10", qty)
	assertDec(t, "50", amt)

	_, err = e.borrows.Update(ctx, actor, "BOR-1", doc("", "2026-03-06", line("A", nil, "120", "0")))
	var stock *domain.InsufficientStockError
	require.True(t, errors.As(err, &stock))
	assertDec(t, "100", stock.Available, "disponible tras revertir el préstamo anterior")
	assertDec(t, "120", stock.Requested)

	qty, _ = e.balance(t, "A", "")
	assertDec(t, "10", qty)
	e.assertConserved(t, "A", "")

	entries := e.auditEntries(t, "BOR-1")
	require.Len(t, entries, 2, "la edición rechazada no deja auditoría")
	assert.Equal(t, entity.AuditUpdate, entries[0].Action)
	assert.Contains(t, string(entries[0].BeforeImage), "BOR-1")
}

func TestPrestamo_CostoMayorAlSaldo_ImporteNoQuedaNegativo(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("A", nil, "100", "5")))

	out := e.mustCreate(t, e.borrows, doc("BOR-1", "2026-03-06", line("A", nil, "30", "50")))
	assertDec(t, "500", out.Lines[0].Amount)
	qty, amt := e.balance(t, "A", "")
	assertDec(t, "70", qty)
	assertDec(t, "0", amt)

	e.mustCreate(t, e.returns, doc("RET-1", "2026-03-07", line("A", nil, "10", "80")))
	qty, amt = e.balance(t, "A", "")
	assertDec(t, "60", qty)
	assertDec(t, "0", amt)
	e.assertConserved(t, "A", "")

	require.NoError(t, e.borrows.Delete(ctx, actor, "BOR-1"))
	require.NoError(t, e.returns.Delete(ctx, actor, "RET-1"))
	qty, amt = e.balance(t, "A", "")
	assertDec(t, "100", qty)
	assertDec(t, "500", amt, "la reversión devuelve exactamente lo aplicado")
}

func TestUpdate_MismoContenido_EsIdempotente(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("A", nil, "100", "5")))
	req := doc("", "2026-03-06", line("A", nil, "30", "0"))
	e.mustCreate(t, e.borrows, dto.DocumentRequest{Reference: "BOR-1", Date: req.Date, Lines: req.Lines})

	for i := 0; i < 3; i++ {
		_, err := e.borrows.Update(ctx, actor, "BOR-1", req)
		require.NoError(t, err)
	}
	qty, amt := e.balance(t, "A", "")
	assertDec(t, "70", qty)
	assertDec(t, "350", amt)
	e.assertConserved(t, "A", "")
}

func TestUpdate_CambiaDeLote(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("A", strPtr("L1"), "10", "1")))

	_, err := e.receipts.Update(ctx, actor, "REC-1", doc("", "2026-03-05", line("A", strPtr("L2"), "10", "1")))
	require.NoError(t, err)

	q1, _ := e.balance(t, "A", "L1")
	q2, _ := e.balance(t, "A", "L2")
	assertDec(t, "0", q1)
	assertDec(t, "10", q2)
	e.assertConserved(t, "A", "L1")
	e.assertConserved(t, "A", "L2")
}

func TestUpdate_DocumentoInexistente(t *testing.T) {
	e := newEnv(t)
	_, err := e.receipts.Update(context.Background(), actor, "NOPE", doc("", "2026-03-05", line("A", nil, "1", "1")))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_InversoDeCreate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("A", strPtr("L1"), "10", "3")))
	e.mustCreate(t, e.receipts, doc("REC-2", "2026-03-06", line("A", strPtr("L1"), "4", "3")))

	require.NoError(t, e.receipts.Delete(ctx, actor, "REC-2"))

	qty, amt := e.balance(t, "A", "L1")
	assertDec(t, "10", qty)
	assertDec(t, "30", amt)
	assert.Empty(t, e.movements(t, "REC-2"))
	e.assertConserved(t, "A", "L1")

	_, err := e.receipts.Get(ctx, "REC-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	entries := e.auditEntries(t, "REC-2")
	require.Len(t, entries, 1)
	assert.Equal(t, entity.AuditDelete, entries[0].Action)
	assert.Equal(t, actor, entries[0].Actor)
}

func TestDelete_RecepcionYaConsumida_Rechaza(t *testing.T) {
	e := newEnv(t)
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("A", nil, "100", "1")))
	e.mustCreate(t, e.borrows, doc("BOR-1", "2026-03-06", line("A", nil, "80", "0")))

	err := e.receipts.Delete(context.Background(), actor, "REC-1")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	qty, _ := e.balance(t, "A", "")
	assertDec(t, "20", qty)
	assert.NotEmpty(t, e.movements(t, "REC-1"))
}

func TestDelete_TipoIncorrecto_NotFound(t *testing.T) {
	e := newEnv(t)
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("A", nil, "1", "1")))
	assert.ErrorIs(t, e.borrows.Delete(context.Background(), actor, "REC-1"), domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Conteo físico
// ──────────────────────────────────────────────────────────────────────────────

func TestConteo_AjustaAlaCantidadContada(t *testing.T) {
	e := newEnv(t)
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("A", nil, "100", "5")))

	out := e.mustCreate(t, e.checks, doc("CHK-1", "2026-03-31", line("A", nil, "90", "0")))
	require.Len(t, out.Lines, 1)
	assertDec(t, "100", out.Lines[0].SystemQuantity)
	assertDec(t, "-10", out.Lines[0].AppliedQty)
	assertDec(t, "-50", out.Lines[0].Amount)

	qty, amt := e.balance(t, "A", "")
	assertDec(t, "90", qty)
	assertDec(t, "450", amt)
	e.assertConserved(t, "A", "")
}

func TestConteo_EnCero_VaciaImporte(t *testing.T) {
	e := newEnv(t)
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("A", nil, "3", "3.33")))

	e.mustCreate(t, e.checks, doc("CHK-1", "2026-03-31", line("A", nil, "0", "0")))
	qty, amt := e.balance(t, "A", "")
	assertDec(t, "0", qty)
	assertDec(t, "0", amt)
}

func TestConteo_ClaveNueva_CreaSaldo(t *testing.T) {
	e := newEnv(t)
	e.mustCreate(t, e.checks, doc("CHK-1", "2026-03-31", line("NUEVO", strPtr("L9"), "5", "2")))
	qty, amt := e.balance(t, "NUEVO", "L9")
	assertDec(t, "5", qty)
	assertDec(t, "10", amt)
}

// ──────────────────────────────────────────────────────────────────────────────
// allow_negative
// ──────────────────────────────────────────────────────────────────────────────

func TestAllowNegative_RequiereOverrideDeConfiguracion(t *testing.T) {
	req := doc("BOR-1", "2026-03-06", line("A", nil, "5", "1"))
	req.AllowNegative = true

	e := newEnv(t)
	_, err := e.borrows.Create(context.Background(), actor, req)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "sin override la bandera se ignora")

	e = newEnvWith(t, inventory.Options{AllowNegativeOverride: true}, nil)
	e.mustCreate(t, e.borrows, req)
	qty, _ := e.balance(t, "A", "")
	assertDec(t, "-5", qty)
	e.assertConserved(t, "A", "")
}

func TestAllowNegative_NoAplicaADevoluciones(t *testing.T) {
	e := newEnvWith(t, inventory.Options{AllowNegativeOverride: true}, nil)
	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("A", nil, "1", "1")))

	req := doc("RET-1", "2026-03-06", line("A", nil, "5", "1"))
	req.AllowNegative = true
	_, err := e.returns.Create(context.Background(), actor, req)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

// ──────────────────────────────────────────────────────────────────────────────
// Validación y atomicidad
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_Validacion(t *testing.T) {
	e := newEnv(t)
	cases := map[string]dto.DocumentRequest{
		"sin líneas":         doc("R", "2026-03-05"),
		"sin fecha":          doc("R", "", line("A", nil, "1", "1")),
		"fecha inválida":     doc("R", "05/03/2026", line("A", nil, "1", "1")),
		"cantidad cero":      doc("R", "2026-03-05", line("A", nil, "0", "1")),
		"costo negativo":     doc("R", "2026-03-05", line("A", nil, "1", "-1")),
		"sin medicamento":    doc("R", "2026-03-05", line(" ", nil, "1", "1")),
		"mes no coincide":    {Reference: "R", Date: "2026-03-05", Year: 2026, Month: 4, Lines: []dto.DocumentLineRequest{line("A", nil, "1", "1")}},
		"vencimiento malo":   {Reference: "R", Date: "2026-03-05", Lines: []dto.DocumentLineRequest{{DrugCode: "A", Quantity: dec("1"), ExpiryDate: "mañana"}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.receipts.Create(context.Background(), actor, req)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			var verr *domain.ValidationError
			assert.True(t, errors.As(err, &verr))
		})
	}
	list, err := e.balances.ListBalances(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConteo_CantidadNegativa_Invalida(t *testing.T) {
	e := newEnv(t)
	_, err := e.checks.Create(context.Background(), actor, doc("CHK-1", "2026-03-05", line("A", nil, "-1", "0")))
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "la cantidad contada no puede ser negativa")
}

func TestCreate_ContextoCancelado_NoEscribe(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.receipts.Create(ctx, actor, doc("REC-1", "2026-03-05", line("A", nil, "1", "1")))
	require.ErrorIs(t, err, context.Canceled)
	qty, _ := e.balance(t, "A", "")
	assertDec(t, "0", qty)
}

// ──────────────────────────────────────────────────────────────────────────────
// Periodo cerrado y cache
// ──────────────────────────────────────────────────────────────────────────────

func TestPeriodoCerrado_NoBloqueaMovimientos(t *testing.T) {
	e := newEnv(t)
	_, err := e.closing.Close(context.Background(), actor, 2026, 3)
	require.NoError(t, err)

	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-15", line("A", nil, "5", "1")))
	qty, _ := e.balance(t, "A", "")
	assertDec(t, "5", qty)
}

type countingCache struct {
	mu          sync.Mutex
	invalidated int
}

func (c *countingCache) Generation(context.Context) (int64, error) { return 0, nil }

func (c *countingCache) Get(context.Context, string) (*dto.ReconstructionReport, bool, error) {
	return nil, false, nil
}

func (c *countingCache) Set(context.Context, string, *dto.ReconstructionReport, time.Duration) error {
	return nil
}

func (c *countingCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	return nil
}

func TestCache_SeInvalidaSoloTrasCommit(t *testing.T) {
	rc := &countingCache{}
	e := newEnvWith(t, inventory.Options{}, rc)

	e.mustCreate(t, e.receipts, doc("REC-1", "2026-03-05", line("A", nil, "1", "1")))
	assert.Equal(t, 1, rc.invalidated)

	_, err := e.borrows.Create(context.Background(), actor, doc("BOR-1", "2026-03-05", line("A", nil, "9", "1")))
	require.Error(t, err)
	assert.Equal(t, 1, rc.invalidated, "una operación fallida no invalida")

	require.NoError(t, e.receipts.Delete(context.Background(), actor, "REC-1"))
	assert.Equal(t, 2, rc.invalidated)
}

// ──────────────────────────────────────────────────────────────────────────────
// Log
// ──────────────────────────────────────────────────────────────────────────────

func TestLog_DocumentoAplicadoLlevaReferenciaYTipo(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "info", Out: &buf})
	tx := memory.NewTxRunner(memory.NewStore())
	borrows := inventory.NewBorrowProcessor(tx, nil, log, inventory.Options{})
	receipts := inventory.NewReceiptProcessor(tx, nil, log, inventory.Options{})

	_, err := receipts.Create(context.Background(), actor, doc("REC-1", "2026-03-05", line("A", nil, "5", "1")))
	require.NoError(t, err)
	buf.Reset()
	_, err = borrows.Create(context.Background(), actor, doc("BOR-1", "2026-03-06", line("A", nil, "2", "0")))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "BOR-1", entry["refno"])
	assert.Equal(t, "BORROW", entry["doc_type"])
	assert.Equal(t, "create", entry["action"])
}
