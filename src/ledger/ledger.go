package ledger

import (
	"context"

	"heron/src/models"
)

// Client opens scoped sessions against a remote ledger server. A session
// represents a synchronized local working copy of one budget file on the
// server side; it must be closed after each unit of work.
type Client interface {
	OpenSession(ctx context.Context) (Session, error)
}

// Session is the capability surface the importer works through. Callers
// must Synchronize before reads or writes and Close exactly once when done.
type Session interface {
	Synchronize(ctx context.Context, budgetID string) error
	ListAccounts(ctx context.Context) ([]models.Account, error)
	SubmitTransactions(ctx context.Context, accountID string, txns []models.NormalizedTransaction) (*ImportResult, error)
	Close(ctx context.Context) error
}

// ImportResult is the per-batch outcome the ledger reports back. The ledger
// is the sole authority on duplicate suppression: ids it recognized by
// importedId land in DuplicateImportIDs instead of Added.
type ImportResult struct {
	Added              []string `json:"added"`
	Updated            []string `json:"updated"`
	DuplicateImportIDs []string `json:"duplicateImportIds"`
}
