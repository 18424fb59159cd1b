package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glowdesk/glowdesk/internal/banking"
	"github.com/glowdesk/glowdesk/internal/catalog/locations"
	"github.com/glowdesk/glowdesk/internal/catalog/products"
	"github.com/glowdesk/glowdesk/internal/inventory"
	"github.com/glowdesk/glowdesk/internal/ledger/accounts"
	"github.com/glowdesk/glowdesk/internal/ledger/journals"
	"github.com/glowdesk/glowdesk/internal/ledger/reports"
	"github.com/glowdesk/glowdesk/internal/posting"
	"github.com/glowdesk/glowdesk/internal/platform/httpx"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	AccountsHandler  *accounts.Handler
	JournalsHandler  *journals.Handler
	ReportsHandler   *reports.Handler
	PostingHandler   *posting.Handler
	BankingHandler   *banking.Handler
	InventoryHandler *inventory.Handler
	ProductsHandler  *products.Handler
	LocationsHandler *locations.Handler
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: params.Logger, Config: params.Config}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(IdentityMiddleware)

		api.Route("/accounts", params.AccountsHandler.MountRoutes)
		api.Route("/journal", func(jr chi.Router) {
			params.JournalsHandler.MountRoutes(jr)
			// Legacy alias for the trial balance report.
			jr.Get("/trial-balance", params.ReportsHandler.TrialBalanceEndpoint())
		})
		api.Route("/transactions", params.PostingHandler.MountTransactionRoutes)
		api.Route("/bank", params.BankingHandler.MountRoutes)
		api.Route("/reports", params.ReportsHandler.MountRoutes)
		api.Route("/inventory", func(ir chi.Router) {
			params.InventoryHandler.MountRoutes(ir)
			params.PostingHandler.MountMovementRoute(ir)
		})
		api.Route("/catalog", func(cr chi.Router) {
			cr.Route("/products", params.ProductsHandler.MountRoutes)
			cr.Route("/locations", params.LocationsHandler.MountRoutes)
		})
	})

	return r
}
