package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/clinica-farmacia/internal/application/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/infrastructure/cache"
	"github.com/jhoicas/clinica-farmacia/internal/infrastructure/memory"
	"github.com/jhoicas/clinica-farmacia/internal/infrastructure/pdf"
	apphttp "github.com/jhoicas/clinica-farmacia/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/clinica-farmacia/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func newPharmacyApp(t *testing.T) *fiber.App {
	t.Helper()
	tx := memory.NewTxRunner(memory.NewStore())
	rc := cache.NoopReportCache{}
	opts := inventory.Options{}

	// Config por defecto (Immutable: false): los handlers deben copiar los parámetros de la ruta.
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Receipts:       inventory.NewReceiptProcessor(tx, rc, nil, opts),
		Returns:        inventory.NewReturnProcessor(tx, rc, nil, opts),
		Borrows:        inventory.NewBorrowProcessor(tx, rc, nil, opts),
		CheckStocks:    inventory.NewCheckStockProcessor(tx, rc, nil, opts),
		Beginning:      inventory.NewBeginningBalanceUseCase(tx, rc, nil, opts),
		Closing:        inventory.NewClosingUseCase(tx, rc, nil, opts),
		Balances:       inventory.NewBalanceQuery(tx),
		Reporter:       inventory.NewReporter(tx, rc, pdf.NewMarotoStockCardRenderer("Farmacia"), nil, time.Minute),
		Audit:          inventory.NewAuditQuery(tx),
		JWTSecret:      testJWTSecret,
		JWTIssuer:      testIssuer,
		RequestTimeout: 5 * time.Second,
	})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, role string, body any) (*http.Response, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp, env
}

func document(refno, date string, qty, cost float64) map[string]any {
	return map[string]any{
		"refno": refno,
		"date":  date,
		"lines": []map[string]any{
			{"drug_code": "PARA500", "lot_no": "L1", "qty": qty, "unit_cost": cost},
		},
	}
}

const pharmacist = pkgjwt.RolePharmacist

// ──────────────────────────────────────────────────────────────────────────────
// Flujo completo
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_RecepcionPrestamoYSaldo(t *testing.T) {
	app := newPharmacyApp(t)

	resp, env := call(t, app, http.MethodPost, "/api/pharmacy/receipts", pharmacist, document("", "2026-03-05", 100, 5))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)
	var created struct {
		RefNo string `json:"refno"`
		Total string `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "REC2026030001", created.RefNo, "la referencia se autogenera con prefijo y mes")
	assert.Equal(t, "500", created.Total)

	resp, _ = call(t, app, http.MethodPost, "/api/pharmacy/borrows", pharmacist, document("BOR-1", "2026-03-06", 30, 0))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env = call(t, app, http.MethodGet, "/api/pharmacy/balances?drug_code=PARA500", pkgjwt.RoleAuditor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var balances []struct {
		LotNo  string `json:"lot_no"`
		Qty    string `json:"qty"`
		Amount string `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &balances))
	require.Len(t, balances, 1)
	assert.Equal(t, "L1", balances[0].LotNo)
	assert.Equal(t, "70", balances[0].Qty)
	assert.Equal(t, "350", balances[0].Amount)

	resp, env = call(t, app, http.MethodGet, "/api/pharmacy/receipts/generate/refno?year=2026&month=3", pharmacist, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), "REC2026030002")

	resp, env = call(t, app, http.MethodGet, "/api/pharmacy/receipts/REC2026030001", pkgjwt.RoleAuditor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), "PARA500")

	resp, _ = call(t, app, http.MethodDelete, "/api/pharmacy/borrows/BOR-1", pharmacist, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, env = call(t, app, http.MethodGet, "/api/pharmacy/balances?drug_code=PARA500&lot_no=L1", pharmacist, nil)
	require.NoError(t, json.Unmarshal(env.Data, &balances))
	require.Len(t, balances, 1)
	assert.Equal(t, "100", balances[0].Qty, "eliminar el préstamo devuelve el saldo")
}

// ──────────────────────────────────────────────────────────────────────────────
// Mapeo de errores
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_DevolucionSinSaldoSuficiente_Retorna409(t *testing.T) {
	app := newPharmacyApp(t)
	resp, _ := call(t, app, http.MethodPost, "/api/pharmacy/receipts", pharmacist, document("REC-1", "2026-03-05", 70, 5))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := call(t, app, http.MethodPost, "/api/pharmacy/returns", pharmacist, document("RET-1", "2026-03-07", 500, 5))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Error.Code)

	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	assert.Equal(t, "PARA500", details["drug_code"])
	assert.Equal(t, "L1", details["lot_no"])
	assert.Equal(t, "70", details["available"])
	assert.Equal(t, "500", details["requested"])
}

func TestRouter_DevolucionSinSaldo_Retorna404(t *testing.T) {
	app := newPharmacyApp(t)
	resp, env := call(t, app, http.MethodPost, "/api/pharmacy/returns", pharmacist, document("RET-1", "2026-03-07", 1, 5))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "BALANCE_NOT_FOUND", env.Error.Code)
}

func TestRouter_ReferenciaDuplicada_Retorna409(t *testing.T) {
	app := newPharmacyApp(t)
	resp, _ := call(t, app, http.MethodPost, "/api/pharmacy/receipts", pharmacist, document("REC-1", "2026-03-05", 10, 1))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := call(t, app, http.MethodPost, "/api/pharmacy/receipts", pharmacist, document("REC-1", "2026-03-05", 10, 1))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DUPLICATE_REFERENCE", env.Error.Code)
}

func TestRouter_Validacion_Retorna400(t *testing.T) {
	app := newPharmacyApp(t)
	body := document("", "", 10, 1)
	resp, env := call(t, app, http.MethodPost, "/api/pharmacy/receipts", pharmacist, body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, string(env.Error.Details), "date")

	resp, _ = call(t, app, http.MethodGet, "/api/pharmacy/receipts/generate/refno?year=abc&month=3", pharmacist, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_DocumentoInexistente_Retorna404(t *testing.T) {
	app := newPharmacyApp(t)
	resp, env := call(t, app, http.MethodGet, "/api/pharmacy/receipts/NOPE", pharmacist, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)
}

func TestRouter_DocumentoDeOtroTipo_Retorna404(t *testing.T) {
	app := newPharmacyApp(t)
	resp, _ := call(t, app, http.MethodPost, "/api/pharmacy/receipts", pharmacist, document("REC-1", "2026-03-05", 10, 1))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = call(t, app, http.MethodGet, "/api/pharmacy/borrows/REC-1", pharmacist, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Permisos
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_AuditorNoPuedeEscribir(t *testing.T) {
	app := newPharmacyApp(t)
	resp, _ := call(t, app, http.MethodPost, "/api/pharmacy/receipts", pkgjwt.RoleAuditor, document("", "2026-03-05", 10, 1))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRouter_SoloAdminCierraPeriodo(t *testing.T) {
	app := newPharmacyApp(t)
	resp, _ := call(t, app, http.MethodPost, "/api/pharmacy/closings", pharmacist, map[string]int{"year": 2026, "month": 3})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = call(t, app, http.MethodPost, "/api/pharmacy/closings", pkgjwt.RoleAdmin, map[string]int{"year": 2026, "month": 3})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := call(t, app, http.MethodGet, "/api/pharmacy/closings/2026/3", pkgjwt.RoleAuditor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"status":"CLOSED"`)
}

func TestRouter_SinToken_Retorna401(t *testing.T) {
	app := newPharmacyApp(t)
	resp, _ := call(t, app, http.MethodGet, "/api/pharmacy/balances", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_Health(t *testing.T) {
	app := newPharmacyApp(t)
	resp, env := call(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
}

// ──────────────────────────────────────────────────────────────────────────────
// Saldos iniciales y reportes
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_SaldoInicialYTarjeta(t *testing.T) {
	app := newPharmacyApp(t)

	resp, _ := call(t, app, http.MethodPut, "/api/pharmacy/beginning-balances", pharmacist, map[string]any{
		"year": 2026, "month": 3, "drug_code": "AMOX", "lot_no": nil, "qty": 40, "amount": 80,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := call(t, app, http.MethodGet, "/api/pharmacy/beginning-balances?year=2026&month=3", pharmacist, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), "AMOX")

	resp, env = call(t, app, http.MethodGet, "/api/pharmacy/reports/stock-card?year=2026&month=3&drug_code=AMOX", pkgjwt.RoleAuditor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report struct {
		Groups []struct {
			DrugCode string `json:"drug_code"`
			Ending   string `json:"calculated_ending"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	require.Len(t, report.Groups, 1)
	assert.Equal(t, "40", report.Groups[0].Ending)

	req := httptest.NewRequest(http.MethodGet, "/api/pharmacy/reports/stock-card.pdf?year=2026&month=3&drug_code=AMOX", nil)
	req.Header.Set("Authorization", tokenForRole(t, pharmacist))
	pdfResp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer pdfResp.Body.Close()
	assert.Equal(t, http.StatusOK, pdfResp.StatusCode)
	assert.Equal(t, "application/pdf", pdfResp.Header.Get("Content-Type"))
	raw, _ := io.ReadAll(pdfResp.Body)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")), "el cuerpo debe ser un PDF")

	resp, _ = call(t, app, http.MethodDelete, "/api/pharmacy/beginning-balances/2026/3/AMOX?lot_no=-", pharmacist, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, env = call(t, app, http.MethodGet, "/api/pharmacy/balances?drug_code=AMOX", pharmacist, nil)
	assert.Contains(t, string(env.Data), `"qty":"0"`, "eliminar el saldo inicial revierte su efecto")
}

// ──────────────────────────────────────────────────────────────────────────────
// Referencias tomadas de la ruta
// ──────────────────────────────────────────────────────────────────────────────

type stockCard struct {
	Groups []struct {
		Rows []struct {
			RefNo string `json:"refno"`
		} `json:"rows"`
	} `json:"groups"`
}

func TestRouter_ReferenciaDeLaRutaSobreviveAOtrasPeticiones(t *testing.T) {
	app := newPharmacyApp(t)

	resp, _ := call(t, app, http.MethodPost, "/api/pharmacy/receipts", pharmacist, document("REC-AAAA", "2026-03-05", 10, 1))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = call(t, app, http.MethodPut, "/api/pharmacy/receipts/REC-AAAA", pharmacist, document("", "2026-03-05", 12, 1))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for i := 0; i < 50; i++ {
		resp, _ = call(t, app, http.MethodGet, "/api/pharmacy/receipts/ZZZ-ZZZZ", pharmacist, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	resp, env := call(t, app, http.MethodGet, "/api/pharmacy/reports/stock-card?year=2026&month=3&drug_code=PARA500", pharmacist, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var card stockCard
	require.NoError(t, json.Unmarshal(env.Data, &card))
	require.Len(t, card.Groups, 1)
	require.Len(t, card.Groups[0].Rows, 1)
	assert.Equal(t, "REC-AAAA", card.Groups[0].Rows[0].RefNo)

	resp, env = call(t, app, http.MethodGet, "/api/pharmacy/receipts/REC-AAAA", pharmacist, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"refno":"REC-AAAA"`)

	resp, _ = call(t, app, http.MethodDelete, "/api/pharmacy/receipts/REC-AAAA", pharmacist, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, env = call(t, app, http.MethodGet, "/api/pharmacy/reports/stock-card?year=2026&month=3&drug_code=PARA500", pharmacist, nil)
	card = stockCard{}
	require.NoError(t, json.Unmarshal(env.Data, &card))
	assert.Empty(t, card.Groups, "el borrado encuentra las filas por su referencia")
}

// ──────────────────────────────────────────────────────────────────────────────
// Saldo puntual y auditoría
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_SaldoDeUnMedicamento(t *testing.T) {
	app := newPharmacyApp(t)
	resp, _ := call(t, app, http.MethodPost, "/api/pharmacy/receipts", pharmacist, document("REC-1", "2026-03-05", 10, 2))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := call(t, app, http.MethodGet, "/api/pharmacy/balances/PARA500?lot_no=L1", pkgjwt.RoleAuditor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var b struct {
		DrugCode string `json:"drug_code"`
		LotNo    string `json:"lot_no"`
		Qty      string `json:"qty"`
		Amount   string `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &b))
	assert.Equal(t, "PARA500", b.DrugCode)
	assert.Equal(t, "L1", b.LotNo)
	assert.Equal(t, "10", b.Qty)
	assert.Equal(t, "20", b.Amount)

	resp, env = call(t, app, http.MethodGet, "/api/pharmacy/balances/PARA500", pharmacist, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "sin lote es otra clave")
	require.NotNil(t, env.Error)
	assert.Equal(t, "BALANCE_NOT_FOUND", env.Error.Code)
}

func TestRouter_HistorialDeAuditoria(t *testing.T) {
	app := newPharmacyApp(t)
	resp, _ := call(t, app, http.MethodPost, "/api/pharmacy/receipts", pharmacist, document("REC-1", "2026-03-05", 10, 2))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = call(t, app, http.MethodPut, "/api/pharmacy/receipts/REC-1", pharmacist, document("", "2026-03-05", 8, 2))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := call(t, app, http.MethodGet, "/api/pharmacy/audit/REC-1", pkgjwt.RoleAuditor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []struct {
		RefNo  string `json:"refno"`
		Action string `json:"action"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "REC-1", entries[0].RefNo)
	assert.Equal(t, "UPDATE", entries[0].Action)

	_, env = call(t, app, http.MethodGet, "/api/pharmacy/audit/NOPE", pkgjwt.RoleAuditor, nil)
	assert.JSONEq(t, `[]`, string(env.Data))
}
