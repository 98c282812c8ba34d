package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"heron/src/aggregator"
)

const provider = "truelayer"

// TokenStore persists aggregator OAuth tokens in Postgres, one row per
// (provider, institution).
type TokenStore struct {
	pool *pgxpool.Pool
}

func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

var _ aggregator.TokenStore = (*TokenStore)(nil)

func (s *TokenStore) GetToken(ctx context.Context, institution string) (*aggregator.Token, error) {
	query := `SELECT access_token, refresh_token, token_type, scope, expires_at FROM tokens WHERE provider = $1 AND institution = $2`

	var token aggregator.Token
	err := s.pool.QueryRow(ctx, query, provider, institution).Scan(
		&token.AccessToken, &token.RefreshToken, &token.TokenType, &token.Scope, &token.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *TokenStore) SaveToken(ctx context.Context, institution string, token aggregator.Token) error {
	query := `
		INSERT INTO tokens (provider, institution, access_token, refresh_token, token_type, scope, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, institution) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type = EXCLUDED.token_type,
			scope = EXCLUDED.scope,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.pool.Exec(ctx, query,
		provider, institution,
		token.AccessToken, token.RefreshToken, token.TokenType, token.Scope, token.ExpiresAt,
		time.Now().Unix(),
	)
	return err
}
