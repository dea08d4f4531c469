package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-reconciler/internal/core/domain"
	"wallet-reconciler/internal/core/ports"
	"wallet-reconciler/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	defaultCreditTimeout    = 5 * time.Second
	defaultCreditedCacheTTL = 30 * 24 * time.Hour
	maxRunsLimit            = 100
)

// ReconcileDeps holds the collaborators of ReconcileService.
// Cache, Publisher and Runs may be nil to disable that feature.
type ReconcileDeps struct {
	Feed       ports.FeedClient
	Accounts   ports.AccountRepository
	Ledger     ports.LedgerRepository
	Transactor ports.DBTransactor
	Settings   *SettingsResolver
	Recorder   ports.RunRecorder
	Runs       ports.RunRepository
	Cache      ports.CreditedCache
	Publisher  ports.EventPublisher
}

// ReconcileOptions tunes per-credit behaviour.
type ReconcileOptions struct {
	CreditTimeout    time.Duration
	CreditedCacheTTL time.Duration
}

// ReconcileService implements ports.ReconciliationService.
type ReconcileService struct {
	deps ReconcileDeps
	opts ReconcileOptions
	now  func() time.Time
	log  zerolog.Logger
}

// NewReconcileService creates a new ReconcileService.
func NewReconcileService(deps ReconcileDeps, opts ReconcileOptions, log zerolog.Logger) *ReconcileService {
	if opts.CreditTimeout <= 0 {
		opts.CreditTimeout = defaultCreditTimeout
	}
	if opts.CreditedCacheTTL <= 0 {
		opts.CreditedCacheTTL = defaultCreditedCacheTTL
	}
	if deps.Recorder == nil {
		deps.Recorder = NewRunRecorder(nil, log)
	}
	return &ReconcileService{
		deps: deps,
		opts: opts,
		now:  func() time.Time { return time.Now().UTC() },
		log:  log,
	}
}

// Run resolves settings and reconciles the feed once.
func (s *ReconcileService) Run(ctx context.Context) (*domain.ReconciliationRun, error) {
	var cfg ports.RunConfig
	if s.deps.Settings != nil {
		resolved, err := s.deps.Settings.Resolve(ctx)
		if err != nil {
			return s.abort(ctx, domain.NewReconciliationRun(s.now()), err)
		}
		cfg = resolved
	}
	return s.Reconcile(ctx, cfg)
}

// Reconcile fetches the feed and processes every line in feed order.
// Fatal errors (configuration, upstream) abort before any credit; a failure
// on one line is recorded in the run and processing continues.
func (s *ReconcileService) Reconcile(ctx context.Context, cfg ports.RunConfig) (*domain.ReconciliationRun, error) {
	run := domain.NewReconciliationRun(s.now())

	if cfg.FeedToken == "" {
		return s.abort(ctx, run, apperror.ErrFeedTokenMissing())
	}

	txs, err := s.deps.Feed.Fetch(ctx, cfg.FeedToken)
	if err != nil {
		return s.abort(ctx, run, err)
	}
	run.Fetched = len(txs)

	s.log.Info().
		Str("run_id", run.ID.String()).
		Int("fetched", run.Fetched).
		Str("prefix", cfg.MemoPrefix).
		Int64("min_amount", cfg.MinAmount).
		Msg("reconciling bank feed")

	for i := range txs {
		s.process(ctx, cfg, run, &txs[i])
	}

	finished := s.now()
	run.FinishedAt = &finished
	run.Status = domain.RunStatusCompleted
	s.deps.Recorder.Record(ctx, run)
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *ReconcileService) ListRuns(ctx context.Context, limit int) ([]domain.ReconciliationRun, error) {
	if limit < 1 || limit > maxRunsLimit {
		return nil, apperror.Validation(fmt.Sprintf("limit must be between 1 and %d", maxRunsLimit))
	}
	if s.deps.Runs == nil {
		return []domain.ReconciliationRun{}, nil
	}
	runs, err := s.deps.Runs.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list runs: %w", err))
	}
	return runs, nil
}

func (s *ReconcileService) abort(ctx context.Context, run *domain.ReconciliationRun, err error) (*domain.ReconciliationRun, error) {
	finished := s.now()
	run.FinishedAt = &finished
	run.Status = domain.RunStatusFailed
	msg := describe(err)
	run.FatalError = &msg
	s.deps.Recorder.Record(ctx, run)
	return run, err
}

func (s *ReconcileService) process(ctx context.Context, cfg ports.RunConfig, run *domain.ReconciliationRun, tx *domain.FeedTransaction) {
	fp := tx.Fingerprint()
	log := s.log.With().Str("fingerprint", fp.String()).Logger()

	amount, class := Classify(tx, cfg.MinAmount)
	switch class {
	case NotCredit:
		run.Ignored++
		return
	case Unparsable:
		run.Unparsable++
		log.Debug().Str("amount", tx.Amount).Msg("skipping line with unparsable amount")
		return
	case BelowMinimum:
		run.BelowMinimum++
		log.Debug().Int64("amount", amount).Msg("skipping deposit below minimum")
		return
	}

	username, ok := ExtractUsername(tx.Memo(), cfg.MemoPrefix)
	if !ok {
		run.Unmatched++
		log.Debug().Str("memo", tx.Memo()).Msg("no username in memo")
		return
	}
	log = log.With().Str("username", username).Int64("amount", amount).Logger()

	// Layer 1: Redis fast path
	if s.deps.Cache != nil {
		credited, err := s.deps.Cache.IsCredited(ctx, fp)
		if err != nil {
			log.Warn().Err(err).Msg("credited cache check failed, falling through to DB")
		}
		if credited {
			run.Duplicates++
			log.Debug().Msg("already credited (cache)")
			return
		}
	}

	account, err := s.deps.Accounts.GetByUsername(ctx, username)
	if err != nil {
		s.fail(run, log, apperror.ErrCreditFailed(username, fmt.Errorf("lookup account: %w", err)))
		return
	}
	if account == nil {
		run.NotFound++
		appErr := apperror.ErrAccountNotFound(username)
		run.Errors = append(run.Errors, appErr.Describe())
		log.Warn().Msg(appErr.Message)
		return
	}

	// Layer 2: ledger unique index, atomic with the balance change
	entry := domain.NewDepositEntry(account.ID, amount, fp, s.now())
	inserted, err := s.credit(ctx, entry)
	if err != nil {
		s.fail(run, log, apperror.ErrCreditFailed(account.Username, err))
		return
	}

	s.markCredited(ctx, log, fp)
	if !inserted {
		run.Duplicates++
		log.Debug().Msg("already credited (ledger)")
		return
	}

	run.Processed++
	run.CreditedAmount += amount
	log.Info().Str("ledger_entry_id", entry.ID.String()).Msg("deposit credited")

	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishDepositCredited(ctx, domain.NewDepositCredited(entry, account.Username)); err != nil {
			log.Warn().Err(err).Msg("failed to publish deposit event")
		}
	}
}

// credit inserts the ledger entry and increments the balance in one
// transaction. It returns false when the fingerprint was already credited.
func (s *ReconcileService) credit(ctx context.Context, entry *domain.LedgerEntry) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.CreditTimeout)
	defer cancel()

	dbTx, err := s.deps.Transactor.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	inserted, err := s.deps.Ledger.InsertDeposit(ctx, dbTx, entry)
	if err != nil {
		return false, fmt.Errorf("insert ledger entry: %w", err)
	}
	if !inserted {
		return false, nil
	}

	if err := s.deps.Accounts.Credit(ctx, dbTx, entry.AccountID, entry.Amount); err != nil {
		return false, fmt.Errorf("credit account: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	return true, nil
}

func (s *ReconcileService) markCredited(ctx context.Context, log zerolog.Logger, fp domain.Fingerprint) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.MarkCredited(ctx, fp, s.opts.CreditedCacheTTL); err != nil {
		log.Warn().Err(err).Msg("failed to cache credited fingerprint")
	}
}

func (s *ReconcileService) fail(run *domain.ReconciliationRun, log zerolog.Logger, appErr *apperror.AppError) {
	run.Failed++
	run.Errors = append(run.Errors, appErr.Describe())
	log.Error().Err(appErr.Err).Msg(appErr.Message)
}

func describe(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Describe()
	}
	return err.Error()
}
