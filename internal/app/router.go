package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tradewell-erp/tradewell/internal/documents"
	"github.com/tradewell-erp/tradewell/internal/ledger"
	"github.com/tradewell-erp/tradewell/internal/stock"
	"github.com/tradewell-erp/tradewell/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	LedgerHandler    *ledger.Handler
	StockHandler     *stock.Handler
	DocumentsHandler *documents.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
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
		params.LedgerHandler.MountRoutes(r)
		params.DocumentsHandler.MountRoutes(r)
		r.Route("/stock", params.StockHandler.MountRoutes)
	})
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
