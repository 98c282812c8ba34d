package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"heron/src/models"
)

const (
	defaultAuthURL     = "https://auth.truelayer.com"
	defaultAPIURL      = "https://api.truelayer.com"
	defaultRedirectURI = "https://console.truelayer.com/redirect-page"
	defaultTimeout     = 60 * time.Second

	// tokenSkew refreshes tokens this long before their actual expiry so an
	// in-flight request cannot race the expiration.
	tokenSkew = 60 * time.Second
)

// Token is one institution's OAuth credential set.
type Token struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	// ExpiresAt is unix epoch seconds when AccessToken expires.
	ExpiresAt int64
}

// TokenStore persists tokens per institution. Get returns (nil, nil) when no
// token has been stored yet.
type TokenStore interface {
	GetToken(ctx context.Context, institution string) (*Token, error)
	SaveToken(ctx context.Context, institution string, token Token) error
}

// Config carries the aggregator application credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	// Code is a one-time authorization code used to bootstrap tokens on the
	// first run for an institution. Subsequent runs refresh instead.
	Code        string
	AuthURL     string
	APIURL      string
	RedirectURI string
}

// Client fetches accounts, cards, and transactions from the open-banking
// aggregator, transparently exchanging or refreshing OAuth tokens.
type Client struct {
	httpClient *http.Client
	cfg        Config
	store      TokenStore
	log        zerolog.Logger
}

// ProviderAccount is the aggregator's own account/card metadata, passed
// through to callers unmodified.
type ProviderAccount struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	Type        string `json:"account_type,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

// NewClient creates an aggregator client backed by the given token store.
func NewClient(cfg Config, store TokenStore, log zerolog.Logger) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("aggregator client id and secret must be set")
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.RedirectURI == "" {
		cfg.RedirectURI = defaultRedirectURI
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		cfg:        cfg,
		store:      store,
		log:        log,
	}, nil
}

// ListAccounts returns the institution's bank accounts.
func (c *Client) ListAccounts(ctx context.Context, institution string) ([]ProviderAccount, error) {
	return c.listAccountLike(ctx, institution, "/data/v1/accounts")
}

// ListCards returns the institution's credit cards.
func (c *Client) ListCards(ctx context.Context, institution string) ([]ProviderAccount, error) {
	return c.listAccountLike(ctx, institution, "/data/v1/cards")
}

func (c *Client) listAccountLike(ctx context.Context, institution, path string) ([]ProviderAccount, error) {
	var resp struct {
		Results []ProviderAccount `json:"results"`
	}
	if err := c.get(ctx, institution, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// wireTransaction is the aggregator's transaction schema.
type wireTransaction struct {
	TransactionID   string          `json:"transaction_id"`
	Timestamp       string          `json:"timestamp"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	MerchantName    string          `json:"merchant_name,omitempty"`
	Meta            struct {
		Address string `json:"address"`
	} `json:"meta"`
}

// ListTransactions fetches one account's transactions in [from, to] (ISO
// dates, inclusive) and maps them into the source schema. Card accounts are
// served from the cards endpoints.
func (c *Client) ListTransactions(ctx context.Context, institution, providerAccountID string, isCard bool, from, to string) ([]models.SourceTransaction, error) {
	base := "/data/v1/accounts/"
	if isCard {
		base = "/data/v1/cards/"
	}
	path := base + url.PathEscape(providerAccountID) + "/transactions"

	var resp struct {
		Results []wireTransaction `json:"results"`
	}
	query := url.Values{"from": {from}, "to": {to}}
	if err := c.get(ctx, institution, path, query, &resp); err != nil {
		return nil, err
	}

	txns := make([]models.SourceTransaction, len(resp.Results))
	for i, w := range resp.Results {
		txns[i] = models.SourceTransaction{
			Timestamp:       w.Timestamp,
			Description:     w.Description,
			TransactionType: models.TransactionType(w.TransactionType),
			Amount:          w.Amount,
			TransactionID:   w.TransactionID,
			MerchantName:    w.MerchantName,
			Address:         w.Meta.Address,
		}
	}
	return txns, nil
}

func (c *Client) get(ctx context.Context, institution, path string, query url.Values, out any) error {
	token, err := c.ensureToken(ctx, institution)
	if err != nil {
		return err
	}

	u := c.cfg.APIURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GET %s: aggregator returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decoding response: %w", path, err)
	}
	return nil
}

// ensureToken returns a usable access token for the institution, exchanging
// the one-time code on first use and refreshing when within tokenSkew of
// expiry.
func (c *Client) ensureToken(ctx context.Context, institution string) (*Token, error) {
	token, err := c.store.GetToken(ctx, institution)
	if err != nil {
		return nil, fmt.Errorf("loading token for %s: %w", institution, err)
	}

	if token == nil {
		if c.cfg.Code == "" {
			return nil, fmt.Errorf("no stored token for %s and no authorization code configured", institution)
		}
		exchanged, err := c.exchangeCode(ctx, c.cfg.Code)
		if err != nil {
			return nil, err
		}
		if err := c.store.SaveToken(ctx, institution, *exchanged); err != nil {
			return nil, fmt.Errorf("saving token for %s: %w", institution, err)
		}
		c.log.Info().Str("institution", institution).Msg("exchanged authorization code for tokens")
		return exchanged, nil
	}

	if time.Now().Unix() < token.ExpiresAt-int64(tokenSkew.Seconds()) {
		return token, nil
	}

	refreshed, err := c.refresh(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveToken(ctx, institution, *refreshed); err != nil {
		return nil, fmt.Errorf("saving refreshed token for %s: %w", institution, err)
	}
	c.log.Info().Str("institution", institution).Msg("refreshed access token")
	return refreshed, nil
}

func (c *Client) exchangeCode(ctx context.Context, code string) (*Token, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"code":          {code},
		"redirect_uri":  {c.cfg.RedirectURI},
	}
	token, err := c.postToken(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return token, nil
}

func (c *Client) refresh(ctx context.Context, old *Token) (*Token, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"refresh_token": {old.RefreshToken},
	}
	token, err := c.postToken(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}
	if token.Scope == "" {
		token.Scope = old.Scope
	}
	return token, nil
}

func (c *Client) postToken(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL+"/connect/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		Scope        string `json:"scope"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}
	return &Token{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		TokenType:    body.TokenType,
		Scope:        body.Scope,
		ExpiresAt:    time.Now().Unix() + body.ExpiresIn,
	}, nil
}
