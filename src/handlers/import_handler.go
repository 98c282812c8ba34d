package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"heron/src/config"
	"heron/src/db"
	"heron/src/models"
)

// ImportTransactions accepts a batch of source transactions and commits
// them to one ledger account through a scoped session.
func ImportTransactions(imp LedgerImporter, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AccountID    string                     `json:"accountId"`
			Transactions []models.SourceTransaction `json:"transactions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Error().Err(err).Msg("failed to decode import request body")
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		summary, err := imp.ImportBatch(r.Context(), req.AccountID, req.Transactions)
		if err != nil {
			log.Error().Err(err).Str("account_id", req.AccountID).Msg("import failed")
			writeError(w, statusForError(err), err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "ok",
			"imported": summary.Imported,
			"result":   summary.Result,
		})
	}
}

// GetLedgerAccounts returns the ledger's account set, cached briefly since
// each uncached read costs a full session open/sync/close.
func GetLedgerAccounts(imp LedgerImporter, budgetID string, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if accounts, ok := db.GetCachedAccounts(budgetID); ok {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "accounts": accounts})
			return
		}

		accounts, err := imp.ListAccounts(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("failed to list ledger accounts")
			writeError(w, statusForError(err), err.Error())
			return
		}
		db.SetCachedAccounts(budgetID, accounts)

		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "accounts": accounts})
	}
}

// GetConfig exposes non-secret operational parameters. Credential values
// are never included, only whether they are configured.
func GetConfig(cfg config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cfg.Redact())
	}
}
