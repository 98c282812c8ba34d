package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"heron/src/models"
)

const defaultTimeout = 60 * time.Second

// Config carries the connection parameters for one ledger server.
type Config struct {
	ServerURL string
	// Password is the optional end-to-end encryption passphrase for the
	// budget's working copy. It is forwarded to the server at sync time and
	// never used locally.
	Password string
}

// HTTPClient talks to the ledger server's session API over HTTP.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	password   string
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a ledger client for the given server.
func NewHTTPClient(cfg Config) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(cfg.ServerURL, "/"),
		password:   cfg.Password,
	}
}

// OpenSession acquires a new server-side session handle.
func (c *HTTPClient) OpenSession(ctx context.Context) (Session, error) {
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/sessions", nil, &resp); err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	if resp.SessionID == "" {
		return nil, fmt.Errorf("opening session: server returned empty session id")
	}
	return &httpSession{client: c, id: resp.SessionID}, nil
}

// httpSession is one open session on the remote ledger.
type httpSession struct {
	client *HTTPClient
	id     string
}

func (s *httpSession) Synchronize(ctx context.Context, budgetID string) error {
	body := struct {
		BudgetID string `json:"budgetId"`
		Password string `json:"password,omitempty"`
	}{BudgetID: budgetID, Password: s.client.password}

	if err := s.client.do(ctx, http.MethodPost, s.path("sync"), body, nil); err != nil {
		return fmt.Errorf("synchronizing budget %s: %w", budgetID, err)
	}
	return nil
}

func (s *httpSession) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var resp struct {
		Accounts []models.Account `json:"accounts"`
	}
	if err := s.client.do(ctx, http.MethodGet, s.path("accounts"), nil, &resp); err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return resp.Accounts, nil
}

func (s *httpSession) SubmitTransactions(ctx context.Context, accountID string, txns []models.NormalizedTransaction) (*ImportResult, error) {
	body := struct {
		Transactions []models.NormalizedTransaction `json:"transactions"`
	}{Transactions: txns}

	var result ImportResult
	p := s.path("accounts/" + url.PathEscape(accountID) + "/transactions")
	if err := s.client.do(ctx, http.MethodPost, p, body, &result); err != nil {
		return nil, fmt.Errorf("submitting %d transactions to account %s: %w", len(txns), accountID, err)
	}
	return &result, nil
}

func (s *httpSession) Close(ctx context.Context) error {
	if err := s.client.do(ctx, http.MethodDelete, "/v1/sessions/"+url.PathEscape(s.id), nil, nil); err != nil {
		return fmt.Errorf("closing session %s: %w", s.id, err)
	}
	return nil
}

func (s *httpSession) path(suffix string) string {
	return "/v1/sessions/" + url.PathEscape(s.id) + "/" + suffix
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: server returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}
	return nil
}
