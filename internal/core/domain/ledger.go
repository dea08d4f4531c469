package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerEntryKind represents the kind of balance movement.
type LedgerEntryKind string

const (
	LedgerEntryKindDeposit LedgerEntryKind = "deposit"
)

// LedgerEntryStatus represents the lifecycle state of a ledger entry.
type LedgerEntryStatus string

const (
	LedgerEntryStatusCompleted LedgerEntryStatus = "completed"
)

// LedgerEntry is an immutable record of a balance change. At most one deposit
// entry exists per fingerprint.
type LedgerEntry struct {
	ID          uuid.UUID         `json:"id"`
	AccountID   uuid.UUID         `json:"account_id"`
	Kind        LedgerEntryKind   `json:"kind"`
	Amount      int64             `json:"amount"`
	Note        string            `json:"note"`
	Fingerprint Fingerprint       `json:"fingerprint"`
	Status      LedgerEntryStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewDepositEntry builds a completed deposit entry for a bank transaction.
func NewDepositEntry(accountID uuid.UUID, amount int64, fp Fingerprint, now time.Time) *LedgerEntry {
	return &LedgerEntry{
		ID:          uuid.New(),
		AccountID:   accountID,
		Kind:        LedgerEntryKindDeposit,
		Amount:      amount,
		Note:        fp.LedgerNote(),
		Fingerprint: fp,
		Status:      LedgerEntryStatusCompleted,
		CreatedAt:   now,
	}
}
