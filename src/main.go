package main

import (
	"context"
	"net/http"

	"heron/src/aggregator"
	"heron/src/api"
	"heron/src/config"
	"heron/src/db"
	sql "heron/src/db/sql"
	"heron/src/feed"
	"heron/src/importer"
	"heron/src/ledger"
	"heron/src/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New()

	// Connect to database
	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("DB connection failed")
	}
	defer pool.Close()

	if err := db.EnsureSchema(context.Background(), pool); err != nil {
		log.Fatal().Err(err).Msg("schema bootstrap failed")
	}
	db.InitCache()

	// Ledger side
	ledgerClient := ledger.NewHTTPClient(ledger.Config{
		ServerURL: cfg.LedgerServerURL,
		Password:  cfg.LedgerPassword,
	})
	imp := importer.New(ledgerClient, importer.Options{
		BudgetID:              cfg.LedgerBudgetID,
		MaxConcurrentSessions: cfg.MaxConcurrentSessions,
		SessionTimeout:        cfg.SessionTimeout,
	}, log)

	// Aggregator side
	agg, err := aggregator.NewClient(aggregator.Config{
		ClientID:     cfg.TrueLayerClientID,
		ClientSecret: cfg.TrueLayerClientSecret,
		Code:         cfg.TrueLayerCode,
	}, sql.NewTokenStore(pool), log)
	if err != nil {
		log.Fatal().Err(err).Msg("aggregator client setup failed")
	}

	feedSvc := feed.NewService(agg, imp, sql.NewMappingStore(pool), log)
	go feedSvc.Run(context.Background(), cfg.ImportInterval)

	// Router
	router := api.NewRouter(cfg, imp, agg, feedSvc, log)

	log.Info().Str("port", cfg.Port).Msg("API server running")
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
