package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ImportFromAggregator fetches one mapped account's recent transactions
// from the aggregator and imports them into its ledger account.
func ImportFromAggregator(svc FeedService, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		institution := chi.URLParam(r, "institution")
		account := chi.URLParam(r, "account")

		summary, err := svc.ImportAccount(r.Context(), institution, account)
		if err != nil {
			log.Error().Err(err).
				Str("institution", institution).
				Str("account", account).
				Msg("aggregator import failed")
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

// ImportAllAccounts runs the import flow for every mapped account.
func ImportAllAccounts(svc FeedService, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := svc.ImportAll(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("import-all failed")
			writeError(w, statusForError(err), err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "results": results})
	}
}

// GetAggregatorAccounts lists the institution's bank accounts as the
// aggregator reports them.
func GetAggregatorAccounts(directory ProviderDirectory, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		institution := chi.URLParam(r, "institution")

		accounts, err := directory.ListAccounts(r.Context(), institution)
		if err != nil {
			log.Error().Err(err).Str("institution", institution).Msg("failed to list aggregator accounts")
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "accounts": accounts})
	}
}

// GetAggregatorCards lists the institution's credit cards.
func GetAggregatorCards(directory ProviderDirectory, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		institution := chi.URLParam(r, "institution")

		cards, err := directory.ListCards(r.Context(), institution)
		if err != nil {
			log.Error().Err(err).Str("institution", institution).Msg("failed to list aggregator cards")
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "cards": cards})
	}
}
