package ports

import (
	"context"

	"wallet-reconciler/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for wallet accounts.
type AccountRepository interface {
	// GetByUsername looks up an account by canonical (lower-case) username.
	// Returns nil, nil if no account matches.
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	// Credit atomically adds amount to balance and total_deposit inside tx.
	Credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) error
}

// LedgerRepository defines persistence operations for ledger entries.
type LedgerRepository interface {
	// InsertDeposit records a deposit entry inside tx. Returns false without
	// error when a deposit with the same fingerprint already exists.
	InsertDeposit(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) (bool, error)
}

// SettingsRepository reads operator settings. Get returns nil, nil for a missing key.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (*string, error)
}

// RunRepository persists reconciliation run history.
type RunRepository interface {
	Create(ctx context.Context, run *domain.ReconciliationRun) error
	ListRecent(ctx context.Context, limit int) ([]domain.ReconciliationRun, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
