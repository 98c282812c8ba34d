package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"heron/src/importer"
	"heron/src/models"
)

// lookbackDays bounds how far back each import cycle asks the aggregator
// for transactions. Re-imported events are deduplicated by the ledger on
// importedId, so overlap between cycles is harmless.
const lookbackDays = 90

// TransactionFeed is the slice of the aggregator client the feed needs.
type TransactionFeed interface {
	ListTransactions(ctx context.Context, institution, providerAccountID string, isCard bool, from, to string) ([]models.SourceTransaction, error)
}

// BatchImporter is the slice of the importer the feed needs.
type BatchImporter interface {
	ImportBatch(ctx context.Context, accountID string, txns []models.SourceTransaction) (*importer.ImportSummary, error)
}

// MappingStore resolves logical account names to provider and ledger ids.
type MappingStore interface {
	GetAccountMapping(ctx context.Context, name, institution string) (*models.AccountMapping, error)
	ListMappedAccounts(ctx context.Context) ([]models.AccountMapping, error)
}

// Service pulls transactions from the aggregator and pushes them into the
// ledger through the session-scoped importer.
type Service struct {
	feed     TransactionFeed
	importer BatchImporter
	mappings MappingStore
	log      zerolog.Logger
	now      func() time.Time
}

// AccountResult is one account's outcome within an import-all run.
type AccountResult struct {
	Name        string `json:"name"`
	Institution string `json:"institution"`
	Imported    int    `json:"imported"`
	Error       string `json:"error,omitempty"`
}

func NewService(feed TransactionFeed, imp BatchImporter, mappings MappingStore, log zerolog.Logger) *Service {
	return &Service{
		feed:     feed,
		importer: imp,
		mappings: mappings,
		log:      log,
		now:      time.Now,
	}
}

// ImportAccount fetches one mapped account's recent transactions from the
// aggregator and imports them into its ledger account.
func (s *Service) ImportAccount(ctx context.Context, institution, name string) (*importer.ImportSummary, error) {
	mapping, err := s.mappings.GetAccountMapping(ctx, name, institution)
	if err != nil {
		return nil, fmt.Errorf("resolving account: %w", err)
	}
	if mapping.LedgerAccountID == "" {
		return nil, fmt.Errorf("account %q at %q has no ledger account mapped", name, institution)
	}
	if mapping.ProviderAccountID == "" {
		return nil, fmt.Errorf("account %q at %q has no provider account mapped", name, institution)
	}

	to := s.now().UTC()
	from := to.AddDate(0, 0, -lookbackDays)
	txns, err := s.feed.ListTransactions(ctx, institution, mapping.ProviderAccountID, mapping.IsCreditCard(),
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("fetching transactions: %w", err)
	}
	s.log.Info().
		Str("institution", institution).
		Str("account", name).
		Int("fetched", len(txns)).
		Msg("fetched transactions from aggregator")

	return s.importer.ImportBatch(ctx, mapping.LedgerAccountID, txns)
}

// ImportAll walks every mapped account. A failing account is reported and
// skipped; the walk continues.
func (s *Service) ImportAll(ctx context.Context) ([]AccountResult, error) {
	mappings, err := s.mappings.ListMappedAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing mapped accounts: %w", err)
	}

	results := make([]AccountResult, 0, len(mappings))
	for _, m := range mappings {
		result := AccountResult{Name: m.Name, Institution: m.Institution}
		summary, err := s.ImportAccount(ctx, m.Institution, m.Name)
		if err != nil {
			result.Error = err.Error()
			s.log.Error().Err(err).
				Str("institution", m.Institution).
				Str("account", m.Name).
				Msg("account import failed")
		} else {
			result.Imported = summary.Imported
		}
		results = append(results, result)
	}
	return results, nil
}

// Run imports all accounts every interval until the context is canceled.
// An interval of zero disables the loop.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		s.log.Info().Msg("periodic import disabled")
		return
	}
	s.log.Info().Dur("interval", interval).Msg("starting periodic import")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("periodic import stopped")
			return
		case <-ticker.C:
			start := s.now()
			if _, err := s.ImportAll(ctx); err != nil {
				s.log.Error().Err(err).Msg("periodic import cycle failed")
				continue
			}
			s.log.Info().Dur("took", s.now().Sub(start)).Msg("periodic import cycle completed")
		}
	}
}
