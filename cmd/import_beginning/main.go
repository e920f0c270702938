// import_beginning carga saldos iniciales mensuales desde un CSV exportado del sistema anterior.
//
// Columnas: year,month,drug_code,lot_no,unit_code,qty,amount,unit_price,expiry
// (la primera fila se ignora si es cabecera). Cada fila pasa por el mismo caso de uso que
// PUT /api/pharmacy/beginning-balances, así que corrige el saldo actual igual que la API.
//
// Uso: go run ./cmd/import_beginning -file saldos.csv [-encoding windows-874] [-actor importador]
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/application/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/infrastructure/cache"
	"github.com/jhoicas/clinica-farmacia/internal/infrastructure/memory"
	"github.com/jhoicas/clinica-farmacia/internal/infrastructure/postgres"
	"github.com/jhoicas/clinica-farmacia/pkg/config"
	"github.com/jhoicas/clinica-farmacia/pkg/logger"
)

const csvColumns = 9

func main() {
	path := flag.String("file", "", "ruta del CSV de saldos iniciales")
	encoding := flag.String("encoding", "utf-8", "codificación del archivo: utf-8 | windows-874")
	actor := flag.String("actor", "import_beginning", "usuario registrado en la auditoría")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "falta -file")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	f, err := os.Open(*path)
	if err != nil {
		log.Fatal().Err(err).Str("file", *path).Msg("abrir CSV")
	}
	defer f.Close()

	in, err := decodeReader(f, *encoding)
	if err != nil {
		log.Fatal().Err(err).Msg("codificación")
	}
	rows, err := readRows(in)
	if err != nil {
		log.Fatal().Err(err).Msg("leer CSV")
	}

	ctx := context.Background()
	var txRunner inventory.TxRunner
	if cfg.Store.Driver == "memory" {
		txRunner = memory.NewTxRunner(memory.NewStore())
	} else {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
		}
		txRunner = postgres.NewTxRunner(pool, cfg.DB.AcquireTimeout)
	}

	var reportCache inventory.ReportCache = cache.NoopReportCache{}
	if cfg.Redis.Enabled() {
		rc := cache.NewRedisReportCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rc.Close()
		reportCache = rc
	}

	uc := inventory.NewBeginningBalanceUseCase(txRunner, reportCache, log,
		inventory.Options{AllowNegativeOverride: cfg.Ledger.AllowNegativeOverride})

	imported, failed := 0, 0
	for _, row := range rows {
		if _, err := uc.Save(ctx, *actor, row.req); err != nil {
			failed++
			log.Error().Err(err).Int("line", row.line).Str("drug_code", row.req.DrugCode).Msg("fila rechazada")
			continue
		}
		imported++
	}
	log.Info().Int("imported", imported).Int("failed", failed).Msg("importación terminada")
	if failed > 0 {
		os.Exit(1)
	}
}

// decodeReader envuelve r con el decodificador de la codificación pedida.
func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "windows-874", "cp874", "tis-620":
		return transform.NewReader(r, charmap.Windows874.NewDecoder()), nil
	}
	return nil, fmt.Errorf("codificación no soportada: %q", encoding)
}

type csvRow struct {
	line int
	req  dto.BeginningBalanceRequest
}

// readRows lee todas las filas; un error de formato indica la línea del archivo.
func readRows(r io.Reader) ([]csvRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []csvRow
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimPrefix(strings.TrimSpace(rec[0]), "\ufeff"), "year") {
			continue
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		req, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		out = append(out, csvRow{line: line, req: req})
	}
	return out, nil
}

func parseRow(rec []string) (dto.BeginningBalanceRequest, error) {
	var req dto.BeginningBalanceRequest
	if len(rec) < csvColumns {
		return req, fmt.Errorf("se esperaban %d columnas, hay %d", csvColumns, len(rec))
	}
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	year, err := strconv.Atoi(rec[0])
	if err != nil {
		return req, fmt.Errorf("year: %w", err)
	}
	month, err := strconv.Atoi(rec[1])
	if err != nil {
		return req, fmt.Errorf("month: %w", err)
	}
	qty, err := parseDecimal("qty", rec[5])
	if err != nil {
		return req, err
	}
	amount, err := parseDecimal("amount", rec[6])
	if err != nil {
		return req, err
	}
	price, err := parseDecimal("unit_price", rec[7])
	if err != nil {
		return req, err
	}
	lot := rec[3]
	req = dto.BeginningBalanceRequest{
		Year:       year,
		Month:      month,
		DrugCode:   rec[2],
		LotNo:      &lot,
		UnitCode:   rec[4],
		Quantity:   qty,
		Amount:     amount,
		UnitPrice:  price,
		ExpiryDate: rec[8],
	}
	return req, nil
}

// parseDecimal vacío = 0; admite separador de miles con coma.
func parseDecimal(field, s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}
