package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/ledger"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/observability"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/partners"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/products"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/reports"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/sales"
	"github.com/fikrimamdouh/ElectronAccount-sub000/internal/vouchers"
	"github.com/fikrimamdouh/ElectronAccount-sub000/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	LedgerHandler   *ledger.Handler
	PartnersHandler *partners.Handler
	ProductsHandler *products.Handler
	SalesHandler    *sales.Handler
	VouchersHandler *vouchers.Handler
	ReportsHandler  *reports.Handler
	JobsHandler     *jobs.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.PartnersHandler != nil {
			params.PartnersHandler.MountRoutes(r)
		}
		if params.ProductsHandler != nil {
			params.ProductsHandler.MountRoutes(r)
		}
		if params.SalesHandler != nil {
			params.SalesHandler.MountRoutes(r)
		}
		if params.VouchersHandler != nil {
			params.VouchersHandler.MountRoutes(r)
		}
		if params.ReportsHandler != nil {
			params.ReportsHandler.MountRoutes(r)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
