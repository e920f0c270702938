package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/clinica-farmacia/internal/application/inventory"
	"github.com/jhoicas/clinica-farmacia/pkg/jwt"
	"github.com/jhoicas/clinica-farmacia/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Receipts    *inventory.DocumentProcessor
	Returns     *inventory.DocumentProcessor
	Borrows     *inventory.DocumentProcessor
	CheckStocks *inventory.DocumentProcessor
	Beginning   *inventory.BeginningBalanceUseCase
	Closing     *inventory.ClosingUseCase
	Balances    *inventory.BalanceQuery
	Reporter    *inventory.Reporter
	Audit       *inventory.AuditQuery

	JWTSecret      string
	JWTIssuer      string
	RequestTimeout time.Duration
	Log            *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	app.Use(AccessLog(log))
	app.Get("/health", Health)

	// Rutas protegidas (Bearer Token emitido por el servicio de autenticación)
	pharmacy := app.Group("/api/pharmacy",
		AuthMiddleware(deps.JWTSecret, deps.JWTIssuer),
		RequestTimeout(deps.RequestTimeout),
	)
	readers := RequireRole(jwt.RoleAdmin, jwt.RolePharmacist, jwt.RoleAuditor)
	writers := RequireRole(jwt.RoleAdmin, jwt.RolePharmacist)
	admins := RequireRole(jwt.RoleAdmin)

	documents := []struct {
		path string
		proc *inventory.DocumentProcessor
	}{
		{"/receipts", deps.Receipts},
		{"/returns", deps.Returns},
		{"/borrows", deps.Borrows},
		{"/check-stocks", deps.CheckStocks},
	}
	for _, d := range documents {
		if d.proc == nil {
			continue
		}
		h := NewDocumentHandler(d.proc, log)
		g := pharmacy.Group(d.path)
		// generate/refno antes de /:refno para que no lo capture el parámetro
		g.Get("/generate/refno", readers, h.GenerateRefNo)
		g.Post("/", writers, h.Create)
		g.Get("/:refno", readers, h.Get)
		g.Put("/:refno", writers, h.Update)
		g.Delete("/:refno", writers, h.Delete)
	}

	ledger := NewLedgerHandler(deps.Beginning, deps.Closing, deps.Balances, deps.Reporter, deps.Audit, log)

	beginning := pharmacy.Group("/beginning-balances")
	beginning.Get("/", readers, ledger.ListBeginning)
	beginning.Put("/", writers, ledger.SaveBeginning)
	beginning.Delete("/:year/:month/:drug", writers, ledger.DeleteBeginning)

	closings := pharmacy.Group("/closings")
	closings.Post("/", admins, ledger.Close)
	closings.Get("/:year/:month", readers, ledger.ClosingStatus)

	pharmacy.Get("/balances", readers, ledger.ListBalances)
	pharmacy.Get("/balances/:drug", readers, ledger.GetBalance)
	pharmacy.Get("/audit/:refno", readers, ledger.AuditHistory)

	reports := pharmacy.Group("/reports")
	reports.Get("/stock-card", readers, ledger.StockCard)
	reports.Get("/stock-card.pdf", readers, ledger.StockCardPDF)
}
