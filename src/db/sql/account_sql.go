package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"heron/src/models"
)

// MappingStore persists the routing table from logical account names to
// aggregator and ledger account ids.
type MappingStore struct {
	pool *pgxpool.Pool
}

func NewMappingStore(pool *pgxpool.Pool) *MappingStore {
	return &MappingStore{pool: pool}
}

// GetAccountMapping resolves a logical account name at one institution.
func (s *MappingStore) GetAccountMapping(ctx context.Context, name, institution string) (*models.AccountMapping, error) {
	query := `
		SELECT name, institution, type, COALESCE(provider_account_id, ''), COALESCE(ledger_account_id, '')
		FROM accounts
		WHERE name = $1 AND institution = $2
	`

	var m models.AccountMapping
	err := s.pool.QueryRow(ctx, query, name, institution).Scan(
		&m.Name, &m.Institution, &m.Type, &m.ProviderAccountID, &m.LedgerAccountID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("no account named %q for institution %q", name, institution)
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMappedAccounts returns every account that is wired to a ledger
// account, the set the periodic import walks.
func (s *MappingStore) ListMappedAccounts(ctx context.Context) ([]models.AccountMapping, error) {
	query := `
		SELECT name, institution, type, COALESCE(provider_account_id, ''), COALESCE(ledger_account_id, '')
		FROM accounts
		WHERE ledger_account_id IS NOT NULL AND ledger_account_id <> ''
		ORDER BY institution, name
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []models.AccountMapping
	for rows.Next() {
		var m models.AccountMapping
		err := rows.Scan(&m.Name, &m.Institution, &m.Type, &m.ProviderAccountID, &m.LedgerAccountID)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}

	return mappings, rows.Err()
}

// SaveAccountMapping inserts or updates one mapping row.
func (s *MappingStore) SaveAccountMapping(ctx context.Context, m models.AccountMapping) error {
	query := `
		INSERT INTO accounts (name, institution, type, provider_account_id, ledger_account_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name, institution) DO UPDATE SET
			type = EXCLUDED.type,
			provider_account_id = EXCLUDED.provider_account_id,
			ledger_account_id = EXCLUDED.ledger_account_id,
			updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, query, m.Name, m.Institution, m.Type, m.ProviderAccountID, m.LedgerAccountID)
	return err
}
