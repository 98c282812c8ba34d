package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"heron/src/aggregator"
	"heron/src/feed"
	"heron/src/importer"
	"heron/src/models"
)

// LedgerImporter is the slice of the session-scoped importer the handlers
// consume.
type LedgerImporter interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
	ImportBatch(ctx context.Context, accountID string, txns []models.SourceTransaction) (*importer.ImportSummary, error)
}

// ProviderDirectory lists raw aggregator account/card metadata.
type ProviderDirectory interface {
	ListAccounts(ctx context.Context, institution string) ([]aggregator.ProviderAccount, error)
	ListCards(ctx context.Context, institution string) ([]aggregator.ProviderAccount, error)
}

// FeedService runs the fetch-from-aggregator-then-import flow.
type FeedService interface {
	ImportAccount(ctx context.Context, institution, name string) (*importer.ImportSummary, error)
	ImportAll(ctx context.Context) ([]feed.AccountResult, error)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusForError maps the importer's error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	var verr *importer.ValidationError
	var uerr *importer.UpstreamError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, importer.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &uerr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
