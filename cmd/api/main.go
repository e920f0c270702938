package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/clinica-farmacia/internal/application/inventory"
	"github.com/jhoicas/clinica-farmacia/internal/infrastructure/cache"
	"github.com/jhoicas/clinica-farmacia/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/clinica-farmacia/internal/infrastructure/pdf"
	"github.com/jhoicas/clinica-farmacia/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/clinica-farmacia/internal/interfaces/http"
	"github.com/jhoicas/clinica-farmacia/pkg/config"
	"github.com/jhoicas/clinica-farmacia/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx := context.Background()

	var txRunner inventory.TxRunner
	switch cfg.Store.Driver {
	case "memory":
		log.Warn().Msg("STORE_DRIVER=memory: los datos se pierden al reiniciar")
		txRunner = memory.NewTxRunner(memory.NewStore())
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
			log.Info().Msg("esquema del ledger actualizado")
		}
		txRunner = postgres.NewTxRunner(pool, cfg.DB.AcquireTimeout)
	}

	var reportCache inventory.ReportCache = cache.NoopReportCache{}
	if cfg.Redis.Enabled() {
		rc := cache.NewRedisReportCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			// Sin cache los reportes se calculan siempre; no impide arrancar.
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis no disponible, reportes sin cache")
			_ = rc.Close()
		} else {
			defer rc.Close()
			reportCache = rc
		}
	}

	opts := inventory.Options{AllowNegativeOverride: cfg.Ledger.AllowNegativeOverride}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  time.Second * 60,
		Immutable:    true,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		Receipts:       inventory.NewReceiptProcessor(txRunner, reportCache, log, opts),
		Returns:        inventory.NewReturnProcessor(txRunner, reportCache, log, opts),
		Borrows:        inventory.NewBorrowProcessor(txRunner, reportCache, log, opts),
		CheckStocks:    inventory.NewCheckStockProcessor(txRunner, reportCache, log, opts),
		Beginning:      inventory.NewBeginningBalanceUseCase(txRunner, reportCache, log, opts),
		Closing:        inventory.NewClosingUseCase(txRunner, reportCache, log, opts),
		Balances:       inventory.NewBalanceQuery(txRunner),
		Reporter:       inventory.NewReporter(txRunner, reportCache, infrapdf.NewMarotoStockCardRenderer(cfg.App.Name), log, cfg.Redis.ReportTTL),
		Audit:          inventory.NewAuditQuery(txRunner),
		JWTSecret:      cfg.JWT.Secret,
		JWTIssuer:      cfg.JWT.Issuer,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Log:            log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
