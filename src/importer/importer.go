package importer

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"heron/src/convert"
	"heron/src/ledger"
	"heron/src/models"
)

const (
	defaultSessionTimeout = 30 * time.Second

	// closeTimeout bounds the cleanup call. Close runs on a fresh context
	// so the deadline that killed the work cannot also leak the session.
	closeTimeout = 10 * time.Second
)

// Options configures an Importer at construction time.
type Options struct {
	// BudgetID identifies the budget file to synchronize in every session.
	BudgetID string
	// MaxConcurrentSessions bounds how many ledger sessions may be open at
	// once. The ledger's working copy is not assumed safe for concurrent
	// mutation, so the default is 1.
	MaxConcurrentSessions int64
	// SessionTimeout bounds each session from open through the last
	// operation. Defaults to 30s.
	SessionTimeout time.Duration
}

// Importer runs every ledger interaction inside a scoped session: acquire a
// concurrency slot, open, synchronize, operate, close. The close step runs
// on every exit path exactly once per opened session.
type Importer struct {
	client   ledger.Client
	budgetID string
	sem      *semaphore.Weighted
	timeout  time.Duration
	log      zerolog.Logger
}

// ImportSummary reports what the ledger actually acknowledged. Imported
// counts only newly added transactions; duplicates and updates are visible
// in Result.
type ImportSummary struct {
	Imported int                  `json:"imported"`
	Result   *ledger.ImportResult `json:"result,omitempty"`
}

// New creates an Importer over the given ledger client.
func New(client ledger.Client, opts Options, log zerolog.Logger) *Importer {
	if opts.MaxConcurrentSessions <= 0 {
		opts.MaxConcurrentSessions = 1
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = defaultSessionTimeout
	}
	return &Importer{
		client:   client,
		budgetID: opts.BudgetID,
		sem:      semaphore.NewWeighted(opts.MaxConcurrentSessions),
		timeout:  opts.SessionTimeout,
		log:      log,
	}
}

// ListAccounts opens a session, synchronizes the budget, and returns the
// ledger's account set.
func (imp *Importer) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := imp.withSession(ctx, func(ctx context.Context, sess ledger.Session) error {
		list, err := sess.ListAccounts(ctx)
		if err != nil {
			return upstream("list accounts", err)
		}
		accounts = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// ImportBatch validates and normalizes the transactions in input order,
// then submits the whole batch to the ledger in a single write.
//
// An empty batch short-circuits before any session is opened; the ledger is
// never contacted and the summary reports zero imported. A malformed record
// rejects the whole batch with a ValidationError before anything is sent.
// Duplicate importedIds within the batch are forwarded as-is; the ledger is
// the sole authority on duplicate suppression.
func (imp *Importer) ImportBatch(ctx context.Context, accountID string, txns []models.SourceTransaction) (*ImportSummary, error) {
	if accountID == "" {
		return nil, &ValidationError{Err: errAccountIDRequired}
	}
	if err := convert.ValidateBatch(txns); err != nil {
		return nil, &ValidationError{Err: err}
	}
	if len(txns) == 0 {
		return &ImportSummary{}, nil
	}

	normalized := convert.NormalizeBatch(txns, accountID)

	var summary *ImportSummary
	err := imp.withSession(ctx, func(ctx context.Context, sess ledger.Session) error {
		result, err := sess.SubmitTransactions(ctx, accountID, normalized)
		if err != nil {
			return upstream("submit transactions", err)
		}
		summary = &ImportSummary{Imported: len(result.Added), Result: result}
		return nil
	})
	if err != nil {
		return nil, err
	}

	imp.log.Info().
		Str("account_id", accountID).
		Int("batch_size", len(txns)).
		Int("imported", summary.Imported).
		Int("duplicates", len(summary.Result.DuplicateImportIDs)).
		Msg("batch imported")
	return summary, nil
}

// withSession wraps fn in the session protocol. Each call gets its own
// session; sessions are never shared or reused. Close is invoked exactly
// once per opened session, on every exit path, and a secondary close
// failure is logged rather than allowed to mask the original error.
func (imp *Importer) withSession(ctx context.Context, fn func(context.Context, ledger.Session) error) error {
	if err := imp.sem.Acquire(ctx, 1); err != nil {
		return lifecycle("acquire", err)
	}
	defer imp.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, imp.timeout)
	defer cancel()

	sess, err := imp.client.OpenSession(ctx)
	if err != nil {
		return lifecycle("open", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), closeTimeout)
		defer closeCancel()
		if cerr := sess.Close(closeCtx); cerr != nil {
			imp.log.Warn().Err(cerr).Msg("ledger session close failed")
		}
	}()

	if err := sess.Synchronize(ctx, imp.budgetID); err != nil {
		return upstream("synchronize", err)
	}
	return fn(ctx, sess)
}
