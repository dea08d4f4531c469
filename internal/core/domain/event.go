package domain

import (
	"time"

	"github.com/google/uuid"
)

// DepositCredited is published after a deposit has been committed.
type DepositCredited struct {
	LedgerEntryID uuid.UUID   `json:"ledger_entry_id"`
	AccountID     uuid.UUID   `json:"account_id"`
	Username      string      `json:"username"`
	Amount        int64       `json:"amount"`
	Fingerprint   Fingerprint `json:"fingerprint"`
	CreditedAt    time.Time   `json:"credited_at"`
}

// NewDepositCredited builds the event for a committed ledger entry.
func NewDepositCredited(entry *LedgerEntry, username string) DepositCredited {
	return DepositCredited{
		LedgerEntryID: entry.ID,
		AccountID:     entry.AccountID,
		Username:      username,
		Amount:        entry.Amount,
		Fingerprint:   entry.Fingerprint,
		CreditedAt:    entry.CreatedAt,
	}
}
