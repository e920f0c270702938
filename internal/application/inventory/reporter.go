package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/clinica-farmacia/internal/application/dto"
	"github.com/jhoicas/clinica-farmacia/internal/domain/entity"
	invdomain "github.com/jhoicas/clinica-farmacia/internal/domain/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/domain/repository"
	"github.com/jhoicas/clinica-farmacia/pkg/logger"
)

// ErrNoRenderer el reporter se construyó sin generador de PDF.
var ErrNoRenderer = errors.New("generador de PDF no configurado")

// ReconstructionQuery filtros del reporte. LotNo nil = todos los lotes del medicamento.
type ReconstructionQuery struct {
	Year     int
	Month    int
	DrugCode string
	LotNo    *string
}

// Reporter reconstruye la tarjeta de existencias de un mes pasado partiendo del saldo actual
// y descontando hacia atrás el efecto de los movimientos posteriores.
type Reporter struct {
	txRunner TxRunner
	cache    ReportCache
	renderer StockCardRenderer
	log      *logger.Logger
	ttl      time.Duration
}

// NewReporter construye el reporter. cache y renderer pueden ser nil.
func NewReporter(tx TxRunner, cache ReportCache, renderer StockCardRenderer, log *logger.Logger, ttl time.Duration) *Reporter {
	if log == nil {
		log = logger.Nop()
	}
	return &Reporter{txRunner: tx, cache: cache, renderer: renderer, log: log, ttl: ttl}
}

// ReconstructPeriod reporte del periodo en una transacción de solo lectura.
func (rp *Reporter) ReconstructPeriod(ctx context.Context, q ReconstructionQuery) (*dto.ReconstructionReport, error) {
	period, err := invdomain.NewPeriod(q.Year, q.Month)
	if err != nil {
		return nil, err
	}
	drug := strings.TrimSpace(q.DrugCode)
	var lot *string
	lotKey := "*"
	if q.LotNo != nil {
		l := invdomain.NormalizeLot(q.LotNo)
		lot = &l
		lotKey = "=" + l
	}
	cacheKey := ""
	if rp.cache != nil {
		gen, err := rp.cache.Generation(ctx)
		if err != nil {
			rp.log.Warn().Err(err).Msg("cache de reportes no disponible")
		} else {
			cacheKey = fmt.Sprintf("%d:stock-card:%s:%s:%s", gen, period.Key(), drug, lotKey)
			cached, ok, err := rp.cache.Get(ctx, cacheKey)
			if err != nil {
				rp.log.Warn().Err(err).Str("key", cacheKey).Msg("cache de reportes no disponible")
			} else if ok {
				rp.log.Debug().Str("key", cacheKey).Msg("tarjeta servida desde cache")
				return cached, nil
			}
		}
	}

	var report *dto.ReconstructionReport
	err = rp.txRunner.RunReadOnly(ctx, func(r Repos) error {
		balances, err := r.Balances.List(ctx, repository.BalanceFilter{DrugCode: drug, LotNo: lot})
		if err != nil {
			return err
		}
		movs, err := r.Movements.ListByPeriod(ctx, period.Year, period.Month, repository.MovementFilter{DrugCode: drug, LotNo: lot})
		if err != nil {
			return err
		}
		next := period.Next()
		future, err := r.Movements.SumByKey(ctx, repository.MovementFilter{
			DrugCode: drug,
			LotNo:    lot,
			Range:    repository.PeriodRange{From: &repository.PeriodPoint{Year: next.Year, Month: next.Month}},
		})
		if err != nil {
			return err
		}
		report = buildReport(period, balances, movs, future)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		if err := rp.cache.Set(ctx, cacheKey, report, rp.ttl); err != nil {
			rp.log.Warn().Err(err).Str("key", cacheKey).Msg("no se pudo guardar el reporte en cache")
		}
	}
	return report, nil
}

// StockCardPDF mismo reporte en PDF.
func (rp *Reporter) StockCardPDF(ctx context.Context, q ReconstructionQuery) ([]byte, error) {
	if rp.renderer == nil {
		return nil, ErrNoRenderer
	}
	report, err := rp.ReconstructPeriod(ctx, q)
	if err != nil {
		return nil, err
	}
	return rp.renderer.RenderStockCard(ctx, report)
}

// buildReport saldo final = saldo actual - efecto neto posterior; saldo inicial = final - efecto del mes.
// Las filas se recorren en orden (fecha, referencia) acumulando el efecto aplicado de cada una.
func buildReport(period invdomain.Period, balances []*entity.Balance, movs []*entity.StockMovement,
	future []repository.GroupedTotals) *dto.ReconstructionReport {
	current := make(map[invdomain.Key]decimal.Decimal, len(balances))
	for _, b := range balances {
		current[invdomain.Key{DrugCode: b.DrugCode, LotNo: b.LotNo}] = b.Quantity
	}
	futureNet := make(map[invdomain.Key]decimal.Decimal, len(future))
	for _, f := range future {
		futureNet[invdomain.Key{DrugCode: f.DrugCode, LotNo: f.LotNo}] = f.AppliedQty
	}
	rows := make(map[invdomain.Key][]*entity.StockMovement)
	for _, m := range movs {
		k := invdomain.Key{DrugCode: m.DrugCode, LotNo: m.LotNo}
		rows[k] = append(rows[k], m)
	}

	keys := make([]invdomain.Key, 0, len(current)+len(rows))
	for k := range current {
		keys = append(keys, k)
	}
	for k := range rows {
		if _, ok := current[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	report := &dto.ReconstructionReport{Year: period.Year, Month: period.Month, Groups: []dto.StockCardGroup{}}
	for _, k := range keys {
		ending := current[k].Sub(futureNet[k])
		periodNet := decimal.Zero
		for _, m := range rows[k] {
			periodNet = periodNet.Add(m.AppliedQty)
		}
		start := ending.Sub(periodNet)
		if len(rows[k]) == 0 && start.IsZero() {
			continue
		}

		g := dto.StockCardGroup{
			DrugCode:     k.DrugCode,
			LotNo:        k.LotNo,
			CurrentQty:   current[k],
			FutureNetQty: futureNet[k],
			BeginningQty: start,
			EndingQty:    ending,
			TotalIn:      decimal.Zero,
			TotalOut:     decimal.Zero,
			Rows:         make([]dto.StockCardRow, 0, len(rows[k])),
		}
		running := start
		for _, m := range rows[k] {
			row := dto.StockCardRow{
				Reference:           m.Reference,
				DocType:             string(m.DocType),
				Date:                m.Date.Format(dateLayout),
				DrugCode:            m.DrugCode,
				LotNo:               m.LotNo,
				CalculatedBeginning: running,
				BegQty:              m.BegQty,
				InQty:               m.InQty,
				OutQty:              m.OutQty,
				AdjQty:              m.AdjQty,
			}
			running = running.Add(m.AppliedQty)
			row.CalculatedEnding = running
			g.TotalIn = g.TotalIn.Add(m.InQty)
			g.TotalOut = g.TotalOut.Add(m.OutQty)
			g.Rows = append(g.Rows, row)
		}
		report.Groups = append(report.Groups, g)
	}
	return report
}
