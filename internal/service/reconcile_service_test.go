package service

import (
	"context"
	"errors"
	"testing"

	"wallet-reconciler/internal/core/domain"
	"wallet-reconciler/internal/core/ports"
	"wallet-reconciler/internal/core/ports/mocks"
	"wallet-reconciler/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type reconcileTestDeps struct {
	svc        *ReconcileService
	feed       *mocks.MockFeedClient
	accounts   *mocks.MockAccountRepository
	ledger     *mocks.MockLedgerRepository
	transactor *mocks.MockDBTransactor
	recorder   *mocks.MockRunRecorder
	runs       *mocks.MockRunRepository
	cache      *mocks.MockCreditedCache
	publisher  *mocks.MockEventPublisher
	ctrl       *gomock.Controller
}

func setupReconcileService(t *testing.T) *reconcileTestDeps {
	ctrl := gomock.NewController(t)
	d := &reconcileTestDeps{
		feed:       mocks.NewMockFeedClient(ctrl),
		accounts:   mocks.NewMockAccountRepository(ctrl),
		ledger:     mocks.NewMockLedgerRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		recorder:   mocks.NewMockRunRecorder(ctrl),
		runs:       mocks.NewMockRunRepository(ctrl),
		cache:      mocks.NewMockCreditedCache(ctrl),
		publisher:  mocks.NewMockEventPublisher(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewReconcileService(ReconcileDeps{
		Feed:       d.feed,
		Accounts:   d.accounts,
		Ledger:     d.ledger,
		Transactor: d.transactor,
		Settings:   NewSettingsResolver(nil, testReconcileConfig(), "feed-token", zerolog.Nop()),
		Recorder:   d.recorder,
		Runs:       d.runs,
		Cache:      d.cache,
		Publisher:  d.publisher,
	}, ReconcileOptions{}, zerolog.Nop())
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct {
	pgx.Tx
	committed  bool
	commitErr  error
	rolledBack bool
}

func (m *mockTx) Rollback(_ context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

func (m *mockTx) Commit(_ context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, expectedCode, appErr.Code)
}

var testRunConfig = ports.RunConfig{FeedToken: "feed-token", MemoPrefix: "vietool", MinAmount: 10000}

func creditLine(seq, amount, memo string) domain.FeedTransaction {
	return domain.FeedTransaction{
		SeqNo:       seq,
		PostingDate: "15/03/2024",
		Amount:      amount,
		DorCCode:    domain.DebitCreditCodeCredit,
		Description: memo,
	}
}

func TestReconcile_CreditsDeposit(t *testing.T) {
	d := setupReconcileService(t)
	ctx := context.Background()
	tx := &mockTx{}
	account := &domain.Account{ID: uuid.New(), Username: "alice99"}
	fp := domain.Fingerprint("1001-15/03/2024")

	d.feed.EXPECT().Fetch(ctx, "feed-token").Return([]domain.FeedTransaction{
		creditLine("1001", "50,000", "VIETOOL.alice99 thank you"),
	}, nil)
	d.cache.EXPECT().IsCredited(ctx, fp).Return(false, nil)
	d.accounts.EXPECT().GetByUsername(ctx, "alice99").Return(account, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.ledger.EXPECT().InsertDeposit(gomock.Any(), tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, e *domain.LedgerEntry) (bool, error) {
			assert.Equal(t, account.ID, e.AccountID)
			assert.Equal(t, int64(50000), e.Amount)
			assert.Equal(t, fp, e.Fingerprint)
			assert.Equal(t, "Bank: 1001-15/03/2024", e.Note)
			assert.Equal(t, domain.LedgerEntryKindDeposit, e.Kind)
			assert.Equal(t, domain.LedgerEntryStatusCompleted, e.Status)
			return true, nil
		})
	d.accounts.EXPECT().Credit(gomock.Any(), tx, account.ID, int64(50000)).Return(nil)
	d.cache.EXPECT().MarkCredited(ctx, fp, defaultCreditedCacheTTL).Return(nil)
	d.publisher.EXPECT().PublishDepositCredited(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, evt domain.DepositCredited) error {
			assert.Equal(t, "alice99", evt.Username)
			assert.Equal(t, int64(50000), evt.Amount)
			assert.Equal(t, fp, evt.Fingerprint)
			return nil
		})
	d.recorder.EXPECT().Record(ctx, gomock.Any())

	run, err := d.svc.Reconcile(ctx, testRunConfig)
	require.NoError(t, err)
	assert.True(t, tx.committed)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, 1, run.Fetched)
	assert.Equal(t, 1, run.Processed)
	assert.Equal(t, int64(50000), run.CreditedAmount)
	assert.Empty(t, run.Errors)
	assert.NotNil(t, run.FinishedAt)
}

func TestReconcile_SkipsSilently(t *testing.T) {
	d := setupReconcileService(t)
	ctx := context.Background()

	d.feed.EXPECT().Fetch(ctx, "feed-token").Return([]domain.FeedTransaction{
		{SeqNo: "1", PostingDate: "d", Amount: "90,000", DorCCode: domain.DebitCreditCodeDebit, Description: "vietool alice"},
		creditLine("2", "abc", "vietool alice"),
		creditLine("3", "9,999", "vietool alice"),
		creditLine("4", "50,000", "salary march"),
		creditLine("5", "50,000", "vietool ."),
	}, nil)
	d.recorder.EXPECT().Record(ctx, gomock.Any())

	run, err := d.svc.Reconcile(ctx, testRunConfig)
	require.NoError(t, err)
	assert.Equal(t, 5, run.Fetched)
	assert.Equal(t, 0, run.Processed)
	assert.Equal(t, 1, run.Ignored)
	assert.Equal(t, 1, run.Unparsable)
	assert.Equal(t, 1, run.BelowMinimum)
	assert.Equal(t, 2, run.Unmatched)
	assert.Empty(t, run.Errors)
}

func TestReconcile_CacheHitSkipsDatabase(t *testing.T) {
	d := setupReconcileService(t)
	ctx := context.Background()

	d.feed.EXPECT().Fetch(ctx, "feed-token").Return([]domain.FeedTransaction{
		creditLine("7", "20000", "vietool bob2"),
	}, nil)
	d.cache.EXPECT().IsCredited(ctx, domain.Fingerprint("7-15/03/2024")).Return(true, nil)
	d.recorder.EXPECT().Record(ctx, gomock.Any())

	run, err := d.svc.Reconcile(ctx, testRunConfig)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Duplicates)
	assert.Equal(t, 0, run.Processed)
	assert.Empty(t, run.Errors)
}

func TestReconcile_CacheErrorFallsThrough(t *testing.T) {
	d := setupReconcileService(t)
	ctx := context.Background()
	tx := &mockTx{}
	account := &domain.Account{ID: uuid.New(), Username: "bob2"}

	d.feed.EXPECT().Fetch(ctx, "feed-token").Return([]domain.FeedTransaction{
		creditLine("7", "20000", "vietool bob2"),
	}, nil)
	d.cache.EXPECT().IsCredited(ctx, gomock.Any()).Return(false, errors.New("redis down"))
	d.accounts.EXPECT().GetByUsername(ctx, "bob2").Return(account, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.ledger.EXPECT().InsertDeposit(gomock.Any(), tx, gomock.Any()).Return(true, nil)
	d.accounts.EXPECT().Credit(gomock.Any(), tx, account.ID, int64(20000)).Return(nil)
	d.cache.EXPECT().MarkCredited(ctx, gomock.Any(), gomock.Any()).Return(errors.New("redis down"))
	d.publisher.EXPECT().PublishDepositCredited(ctx, gomock.Any()).Return(errors.New("broker down"))
	d.recorder.EXPECT().Record(ctx, gomock.Any())

	run, err := d.svc.Reconcile(ctx, testRunConfig)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Processed)
	assert.Empty(t, run.Errors)
}

func TestReconcile_LedgerConflictIsDuplicate(t *testing.T) {
	d := setupReconcileService(t)
	ctx := context.Background()
	tx := &mockTx{}
	account := &domain.Account{ID: uuid.New(), Username: "carol"}

	d.feed.EXPECT().Fetch(ctx, "feed-token").Return([]domain.FeedTransaction{
		creditLine("8", "30000", "vietool carol"),
	}, nil)
	d.cache.EXPECT().IsCredited(ctx, gomock.Any()).Return(false, nil)
	d.accounts.EXPECT().GetByUsername(ctx, "carol").Return(account, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.ledger.EXPECT().InsertDeposit(gomock.Any(), tx, gomock.Any()).Return(false, nil)
	// Credit must not be called
	d.cache.EXPECT().MarkCredited(ctx, domain.Fingerprint("8-15/03/2024"), gomock.Any()).Return(nil)
	d.recorder.EXPECT().Record(ctx, gomock.Any())

	run, err := d.svc.Reconcile(ctx, testRunConfig)
	require.NoError(t, err)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
	assert.Equal(t, 1, run.Duplicates)
	assert.Equal(t, 0, run.Processed)
	assert.Empty(t, run.Errors)
}

func TestReconcile_AccountNotFound(t *testing.T) {
	d := setupReconcileService(t)
	ctx := context.Background()

	d.feed.EXPECT().Fetch(ctx, "feed-token").Return([]domain.FeedTransaction{
		creditLine("9", "30000", "vietool ghost"),
	}, nil)
	d.cache.EXPECT().IsCredited(ctx, gomock.Any()).Return(false, nil)
	d.accounts.EXPECT().GetByUsername(ctx, "ghost").Return(nil, nil)
	d.recorder.EXPECT().Record(ctx, gomock.Any())

	run, err := d.svc.Reconcile(ctx, testRunConfig)
	require.NoError(t, err)
	assert.Equal(t, 1, run.NotFound)
	assert.Equal(t, []string{"User not found: ghost"}, run.Errors)
}

func TestReconcile_CreditFailureRollsBack(t *testing.T) {
	d := setupReconcileService(t)
	ctx := context.Background()
	tx := &mockTx{}
	account := &domain.Account{ID: uuid.New(), Username: "dave"}

	d.feed.EXPECT().Fetch(ctx, "feed-token").Return([]domain.FeedTransaction{
		creditLine("10", "30000", "vietool dave"),
	}, nil)
	d.cache.EXPECT().IsCredited(ctx, gomock.Any()).Return(false, nil)
	d.accounts.EXPECT().GetByUsername(ctx, "dave").Return(account, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.ledger.EXPECT().InsertDeposit(gomock.Any(), tx, gomock.Any()).Return(true, nil)
	d.accounts.EXPECT().Credit(gomock.Any(), tx, account.ID, int64(30000)).Return(errors.New("deadlock detected"))
	d.recorder.EXPECT().Record(ctx, gomock.Any())

	run, err := d.svc.Reconcile(ctx, testRunConfig)
	require.NoError(t, err)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, []string{"Failed to update balance for dave: credit account: deadlock detected"}, run.Errors)
}

func TestReconcile_CommitFailure(t *testing.T) {
	d := setupReconcileService(t)
	ctx := context.Background()
	tx := &mockTx{commitErr: errors.New("connection lost")}
	account := &domain.Account{ID: uuid.New(), Username: "erin"}

	d.feed.EXPECT().Fetch(ctx, "feed-token").Return([]domain.FeedTransaction{
		creditLine("11", "30000", "vietool erin"),
	}, nil)
	d.cache.EXPECT().IsCredited(ctx, gomock.Any()).Return(false, nil)
	d.accounts.EXPECT().GetByUsername(ctx, "erin").Return(account, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil)
	d.ledger.EXPECT().InsertDeposit(gomock.Any(), tx, gomock.Any()).Return(true, nil)
	d.accounts.EXPECT().Credit(gomock.Any(), tx, account.ID, int64(30000)).Return(nil)
	d.recorder.EXPECT().Record(ctx, gomock.Any())

	run, err := d.svc.Reconcile(ctx, testRunConfig)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, 0, run.Processed)
	assert.Contains(t, run.Errors[0], "Failed to update balance for erin: commit tx")
}

func TestReconcile_LookupError(t *testing.T) {
	d := setupReconcileService(t)
	ctx := context.Background()

	d.feed.EXPECT().Fetch(ctx, "feed-token").Return([]domain.FeedTransaction{
		creditLine("12", "30000", "vietool frank"),
	}, nil)
	d.cache.EXPECT().IsCredited(ctx, gomock.Any()).Return(false, nil)
	d.accounts.EXPECT().GetByUsername(ctx, "frank").Return(nil, errors.New("too many connections"))
	d.recorder.EXPECT().Record(ctx, gomock.Any())

	run, err := d.svc.Reconcile(ctx, testRunConfig)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Failed)
	assert.Equal(t, []string{"Failed to update balance for frank: lookup account: too many connections"}, run.Errors)
}

func TestReconcile_BeginFailure(t *testing.T) {
	d := setupReconcileService(t)
	ctx := context.Background()
	account := &domain.Account{ID: uuid.New(), Username: "grace"}

	d.feed.EXPECT().Fetch(ctx, "feed-token").Return([]domain.FeedTransaction{
		creditLine("13", "30000", "vietool grace"),
	}, nil)
	d.cache.EXPECT().IsCredited(ctx, gomock.Any()).Return(false, nil)
	d.accounts.EXPECT().GetByUsername(ctx, "grace").Return(account, nil)
	d.transactor.EXPECT().Begin(gomock.Any()).Return(nil, errors.New("pool exhausted"))
	d.recorder.EXPECT().Record(ctx, gomock.Any())

	run, err := d.svc.Reconcile(ctx, testRunConfig)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Failed)
}

func TestReconcile_MissingTokenAbortsBeforeFetch(t *testing.T) {
	d := setupReconcileService(t)
	ctx := context.Background()

	d.recorder.EXPECT().Record(ctx, gomock.Any()).Do(func(_ context.Context, run *domain.ReconciliationRun) {
		assert.Equal(t, domain.RunStatusFailed, run.Status)
		require.NotNil(t, run.FatalError)
		assert.Equal(t, "Feed access token not configured", *run.FatalError)
	})

	cfg := testRunConfig
	cfg.FeedToken = ""
	run, err := d.svc.Reconcile(ctx, cfg)
	assertAppError(t, err, "CFG_001")
	assert.Equal(t, domain.RunStatusFailed, run.Status)
}

func TestReconcile_UpstreamFailureAborts(t *testing.T) {
	d := setupReconcileService(t)
	ctx := context.Background()

	d.feed.EXPECT().Fetch(ctx, "feed-token").Return(nil, apperror.ErrUpstreamRejected("99", `{"code":"99"}`))
	d.recorder.EXPECT().Record(ctx, gomock.Any())

	run, err := d.svc.Reconcile(ctx, testRunConfig)
	assertAppError(t, err, "UPS_002")
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Equal(t, 0, run.Processed)
}

func TestRun_SettingsFailureAborts(t *testing.T) {
	d := setupReconcileService(t)
	settings := mocks.NewMockSettingsRepository(d.ctrl)
	d.svc.deps.Settings = NewSettingsResolver(settings, testReconcileConfig(), "feed-token", zerolog.Nop())
	ctx := context.Background()

	settings.EXPECT().Get(ctx, "transfer_content").Return(nil, errors.New("db down"))
	d.recorder.EXPECT().Record(ctx, gomock.Any())

	run, err := d.svc.Run(ctx)
	assertAppError(t, err, "CFG_002")
	assert.Equal(t, domain.RunStatusFailed, run.Status)
}

func TestRun_UsesResolvedSettings(t *testing.T) {
	d := setupReconcileService(t)
	settings := mocks.NewMockSettingsRepository(d.ctrl)
	d.svc.deps.Settings = NewSettingsResolver(settings, testReconcileConfig(), "feed-token", zerolog.Nop())
	ctx := context.Background()

	settings.EXPECT().Get(ctx, "transfer_content").Return(strPtr("napvi"), nil)
	settings.EXPECT().Get(ctx, "min_deposit_amount").Return(strPtr("100000"), nil)
	d.feed.EXPECT().Fetch(ctx, "feed-token").Return([]domain.FeedTransaction{
		creditLine("1", "50000", "napvi alice"),
		creditLine("2", "500000", "vietool alice"),
	}, nil)
	d.recorder.EXPECT().Record(ctx, gomock.Any())

	run, err := d.svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, run.BelowMinimum)
	assert.Equal(t, 1, run.Unmatched)
}

func TestListRuns(t *testing.T) {
	d := setupReconcileService(t)
	ctx := context.Background()

	want := []domain.ReconciliationRun{{ID: uuid.New(), Status: domain.RunStatusCompleted}}
	d.runs.EXPECT().ListRecent(ctx, 20).Return(want, nil)

	got, err := d.svc.ListRuns(ctx, 20)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestListRuns_InvalidLimit(t *testing.T) {
	d := setupReconcileService(t)

	for _, limit := range []int{0, -1, 101} {
		_, err := d.svc.ListRuns(context.Background(), limit)
		assertAppError(t, err, "REQ_001")
	}
}

func TestListRuns_RepoError(t *testing.T) {
	d := setupReconcileService(t)
	ctx := context.Background()

	d.runs.EXPECT().ListRecent(ctx, 5).Return(nil, errors.New("timeout"))

	_, err := d.svc.ListRuns(ctx, 5)
	assertAppError(t, err, "SYS_001")
}

func TestListRuns_NoRepo(t *testing.T) {
	svc := NewReconcileService(ReconcileDeps{}, ReconcileOptions{}, zerolog.Nop())

	got, err := svc.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}
