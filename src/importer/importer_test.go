package importer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heron/src/ledger"
	"heron/src/models"
)

// fakeClient hands out fakeSessions and records how many were opened.
type fakeClient struct {
	mu       sync.Mutex
	openErr  error
	sessions []*fakeSession

	// hooks shared by all sessions
	syncErr    error
	submitErr  error
	listErr    error
	accounts   []models.Account
	result     *ledger.ImportResult
	blockSync  bool // Synchronize blocks until the context is done
	active     atomic.Int32
	maxActive  atomic.Int32
	activeHold time.Duration
}

func (c *fakeClient) OpenSession(ctx context.Context) (ledger.Session, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	s := &fakeSession{client: c}
	c.mu.Lock()
	c.sessions = append(c.sessions, s)
	c.mu.Unlock()

	n := c.active.Add(1)
	for {
		max := c.maxActive.Load()
		if n <= max || c.maxActive.CompareAndSwap(max, n) {
			break
		}
	}
	return s, nil
}

type fakeSession struct {
	client    *fakeClient
	synced    []string
	submitted []models.NormalizedTransaction
	closes    atomic.Int32
}

func (s *fakeSession) Synchronize(ctx context.Context, budgetID string) error {
	if s.client.blockSync {
		<-ctx.Done()
		return ctx.Err()
	}
	if s.client.activeHold > 0 {
		time.Sleep(s.client.activeHold)
	}
	s.synced = append(s.synced, budgetID)
	return s.client.syncErr
}

func (s *fakeSession) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return s.client.accounts, s.client.listErr
}

func (s *fakeSession) SubmitTransactions(ctx context.Context, accountID string, txns []models.NormalizedTransaction) (*ledger.ImportResult, error) {
	if s.client.submitErr != nil {
		return nil, s.client.submitErr
	}
	s.submitted = append(s.submitted, txns...)
	if s.client.result != nil {
		return s.client.result, nil
	}
	added := make([]string, len(txns))
	for i, t := range txns {
		added[i] = t.ImportedID
	}
	return &ledger.ImportResult{Added: added}, nil
}

func (s *fakeSession) Close(ctx context.Context) error {
	s.closes.Add(1)
	s.client.active.Add(-1)
	return nil
}

func newTestImporter(client *fakeClient, opts Options) *Importer {
	if opts.BudgetID == "" {
		opts.BudgetID = "budget-7"
	}
	return New(client, opts, zerolog.Nop())
}

func sourceTxn(id string) models.SourceTransaction {
	return models.SourceTransaction{
		Timestamp:       "2024-03-15T10:22:00Z",
		Description:     "Coffee Shop",
		TransactionType: models.TransactionTypeDebit,
		Amount:          decimal.RequireFromString("4.00"),
		TransactionID:   id,
	}
}

func TestImportBatch_HappyPath(t *testing.T) {
	client := &fakeClient{}
	imp := newTestImporter(client, Options{})

	summary, err := imp.ImportBatch(context.Background(), "acct-1",
		[]models.SourceTransaction{sourceTxn("t1"), sourceTxn("t2")})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)

	require.Len(t, client.sessions, 1)
	sess := client.sessions[0]
	assert.Equal(t, []string{"budget-7"}, sess.synced)
	require.Len(t, sess.submitted, 2)
	assert.Equal(t, "t1", sess.submitted[0].ImportedID)
	assert.Equal(t, "t2", sess.submitted[1].ImportedID)
	assert.Equal(t, int64(-400), sess.submitted[0].AmountMinorUnits)
	assert.Equal(t, int32(1), sess.closes.Load())
}

func TestImportBatch_ImportedCountsOnlyAdded(t *testing.T) {
	client := &fakeClient{result: &ledger.ImportResult{
		Added:              []string{"t1"},
		Updated:            []string{"t2"},
		DuplicateImportIDs: []string{"t3"},
	}}
	imp := newTestImporter(client, Options{})

	summary, err := imp.ImportBatch(context.Background(), "acct-1",
		[]models.SourceTransaction{sourceTxn("t1"), sourceTxn("t2"), sourceTxn("t3")})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, []string{"t3"}, summary.Result.DuplicateImportIDs)
}

func TestImportBatch_EmptyBatchNeverOpensSession(t *testing.T) {
	client := &fakeClient{}
	imp := newTestImporter(client, Options{})

	summary, err := imp.ImportBatch(context.Background(), "acct-1", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Imported)
	assert.Empty(t, client.sessions)
}

func TestImportBatch_ValidationRejectsWholeBatch(t *testing.T) {
	client := &fakeClient{}
	imp := newTestImporter(client, Options{})

	bad := sourceTxn("")
	_, err := imp.ImportBatch(context.Background(), "acct-1",
		[]models.SourceTransaction{sourceTxn("t1"), bad})
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "transaction 1")
	// Nothing was sent: no session was ever opened.
	assert.Empty(t, client.sessions)
}

func TestImportBatch_MissingAccountID(t *testing.T) {
	imp := newTestImporter(&fakeClient{}, Options{})
	_, err := imp.ImportBatch(context.Background(), "", []models.SourceTransaction{sourceTxn("t1")})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestImportBatch_SubmitFailureStillClosesOnce(t *testing.T) {
	client := &fakeClient{submitErr: errors.New("connection reset")}
	imp := newTestImporter(client, Options{})

	_, err := imp.ImportBatch(context.Background(), "acct-1",
		[]models.SourceTransaction{sourceTxn("t1")})
	require.Error(t, err)

	var uerr *UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "submit transactions", uerr.Op)

	require.Len(t, client.sessions, 1)
	assert.Equal(t, int32(1), client.sessions[0].closes.Load())
}

func TestImportBatch_SyncFailureStillClosesOnce(t *testing.T) {
	client := &fakeClient{syncErr: errors.New("budget download failed")}
	imp := newTestImporter(client, Options{})

	_, err := imp.ImportBatch(context.Background(), "acct-1",
		[]models.SourceTransaction{sourceTxn("t1")})
	var uerr *UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "synchronize", uerr.Op)
	assert.Equal(t, int32(1), client.sessions[0].closes.Load())
}

func TestImportBatch_OpenFailureIsSessionError(t *testing.T) {
	client := &fakeClient{openErr: errors.New("no session slots")}
	imp := newTestImporter(client, Options{})

	_, err := imp.ImportBatch(context.Background(), "acct-1",
		[]models.SourceTransaction{sourceTxn("t1")})
	var serr *SessionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "open", serr.Op)
	assert.Empty(t, client.sessions)
}

func TestImportBatch_TimeoutClosesSession(t *testing.T) {
	client := &fakeClient{blockSync: true}
	imp := newTestImporter(client, Options{SessionTimeout: 20 * time.Millisecond})

	_, err := imp.ImportBatch(context.Background(), "acct-1",
		[]models.SourceTransaction{sourceTxn("t1")})
	require.ErrorIs(t, err, ErrTimeout)

	require.Len(t, client.sessions, 1)
	assert.Equal(t, int32(1), client.sessions[0].closes.Load())
}

func TestImportBatch_CancellationStillCloses(t *testing.T) {
	client := &fakeClient{blockSync: true}
	imp := newTestImporter(client, Options{SessionTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := imp.ImportBatch(ctx, "acct-1", []models.SourceTransaction{sourceTxn("t1")})
	require.Error(t, err)

	require.Len(t, client.sessions, 1)
	assert.Equal(t, int32(1), client.sessions[0].closes.Load())
}

func TestListAccounts(t *testing.T) {
	client := &fakeClient{accounts: []models.Account{{ID: "acct-1", Name: "Checking"}}}
	imp := newTestImporter(client, Options{})

	accounts, err := imp.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Checking", accounts[0].Name)
	assert.Equal(t, int32(1), client.sessions[0].closes.Load())
}

func TestListAccounts_UpstreamFailure(t *testing.T) {
	client := &fakeClient{listErr: errors.New("boom")}
	imp := newTestImporter(client, Options{})

	_, err := imp.ListAccounts(context.Background())
	var uerr *UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, int32(1), client.sessions[0].closes.Load())
}

func TestImportBatch_SessionsNeverOverlapAtLimitOne(t *testing.T) {
	// activeHold keeps each session open long enough that overlapping
	// lifetimes would be observed by the active counter.
	client := &fakeClient{activeHold: 30 * time.Millisecond}
	imp := newTestImporter(client, Options{MaxConcurrentSessions: 1})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := imp.ImportBatch(context.Background(), "acct-1",
				[]models.SourceTransaction{sourceTxn("t1")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, client.sessions, 4)
	assert.Equal(t, int32(1), client.maxActive.Load(), "two sessions were open at once")
	for _, s := range client.sessions {
		assert.Equal(t, int32(1), s.closes.Load())
	}
}

func TestImportBatch_ConcurrentSessionsAllowedAtHigherLimit(t *testing.T) {
	client := &fakeClient{activeHold: 30 * time.Millisecond}
	imp := newTestImporter(client, Options{MaxConcurrentSessions: 2})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = imp.ImportBatch(context.Background(), "acct-1",
				[]models.SourceTransaction{sourceTxn("t1")})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, client.maxActive.Load(), int32(2))
}
