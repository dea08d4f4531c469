package postgres

import (
	"context"
	"fmt"

	"wallet-reconciler/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// InsertDeposit inserts a deposit entry unless one already exists for the
// fingerprint (ledger_entries_deposit_fingerprint_key). A concurrent insert
// of the same fingerprint blocks until the other transaction finishes, then
// either conflicts or proceeds. Returns false on conflict.
func (r *LedgerRepo) InsertDeposit(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) (bool, error) {
	query := `INSERT INTO ledger_entries (id, account_id, kind, amount, note, fingerprint, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (fingerprint) WHERE kind = 'deposit' DO NOTHING`

	tag, err := tx.Exec(ctx, query,
		e.ID, e.AccountID, e.Kind, e.Amount, e.Note, e.Fingerprint, e.Status, e.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert ledger entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
