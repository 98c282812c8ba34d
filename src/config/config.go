package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string

	// Ledger (target) connection
	LedgerServerURL string
	LedgerBudgetID  string
	LedgerPassword  string

	// Aggregator (source) credentials
	TrueLayerClientID     string
	TrueLayerClientSecret string
	TrueLayerCode         string

	// Session behavior
	MaxConcurrentSessions int64
	SessionTimeout        time.Duration

	// Background import; zero disables the scheduler.
	ImportInterval time.Duration
}

// Redacted is the non-secret view served by the config introspection
// endpoint. Credential values never leave the process, only whether they
// are configured.
type Redacted struct {
	LedgerServerURL       string `json:"ledgerServerUrl"`
	LedgerBudgetID        string `json:"ledgerBudgetId"`
	PasswordConfigured    bool   `json:"passwordConfigured"`
	AggregatorConfigured  bool   `json:"aggregatorConfigured"`
	MaxConcurrentSessions int64  `json:"maxConcurrentSessions"`
	SessionTimeoutSeconds int64  `json:"sessionTimeoutSeconds"`
	ImportIntervalSeconds int64  `json:"importIntervalSeconds"`
}

func Load() Config {
	// Load .env file if present
	_ = godotenv.Load()

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		LedgerServerURL:       getEnv("LEDGER_SERVER_URL", ""),
		LedgerBudgetID:        getEnv("LEDGER_BUDGET_ID", ""),
		LedgerPassword:        getEnv("LEDGER_PASSWORD", ""),
		TrueLayerClientID:     getEnv("TRUELAYER_CLIENT_ID", ""),
		TrueLayerClientSecret: getEnv("TRUELAYER_CLIENT_SECRET", ""),
		TrueLayerCode:         getEnv("TRUELAYER_CODE", ""),
		MaxConcurrentSessions: getEnvInt("MAX_CONCURRENT_SESSIONS", 1),
		SessionTimeout:        time.Duration(getEnvInt("SESSION_TIMEOUT_SECONDS", 30)) * time.Second,
		ImportInterval:        time.Duration(getEnvInt("IMPORT_INTERVAL_SECONDS", 3600)) * time.Second,
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if cfg.LedgerServerURL == "" {
		log.Fatal("LEDGER_SERVER_URL is required")
	}
	if cfg.LedgerBudgetID == "" {
		log.Fatal("LEDGER_BUDGET_ID is required")
	}

	return cfg
}

func (c Config) Redact() Redacted {
	return Redacted{
		LedgerServerURL:       c.LedgerServerURL,
		LedgerBudgetID:        c.LedgerBudgetID,
		PasswordConfigured:    c.LedgerPassword != "",
		AggregatorConfigured:  c.TrueLayerClientID != "" && c.TrueLayerClientSecret != "",
		MaxConcurrentSessions: c.MaxConcurrentSessions,
		SessionTimeoutSeconds: int64(c.SessionTimeout / time.Second),
		ImportIntervalSeconds: int64(c.ImportInterval / time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int64) int64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Fatalf("%s must be an integer, got %q", key, value)
	}
	return n
}
