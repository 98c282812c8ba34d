package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"heron/src/config"
	"heron/src/handlers"
	"heron/src/middleware"
)

func NewRouter(cfg config.Config, imp handlers.LedgerImporter, directory handlers.ProviderDirectory, feedSvc handlers.FeedService, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		// Ledger
		r.Post("/import", handlers.ImportTransactions(imp, log))
		r.Get("/accounts", handlers.GetLedgerAccounts(imp, cfg.LedgerBudgetID, log))
		r.Get("/config", handlers.GetConfig(cfg))

		// Aggregator-driven import
		r.Get("/import/transactions/{institution}/{account}", handlers.ImportFromAggregator(feedSvc, log))
		r.Post("/import/all", handlers.ImportAllAccounts(feedSvc, log))
		r.Get("/aggregator/{institution}/accounts", handlers.GetAggregatorAccounts(directory, log))
		r.Get("/aggregator/{institution}/cards", handlers.GetAggregatorCards(directory, log))
	})

	return r
}
