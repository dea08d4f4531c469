package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus is the final state of a reconciliation run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ReconciliationRun summarises one pass over the feed. It is both the report
// returned to the trigger and the row persisted in run history.
type ReconciliationRun struct {
	ID             uuid.UUID  `json:"id"`
	Status         RunStatus  `json:"status"`
	Fetched        int        `json:"fetched"`
	Processed      int        `json:"processed"`
	Ignored        int        `json:"ignored"`
	Unparsable     int        `json:"unparsable"`
	BelowMinimum   int        `json:"below_minimum"`
	Unmatched      int        `json:"unmatched"`
	NotFound       int        `json:"not_found"`
	Duplicates     int        `json:"duplicates"`
	Failed         int        `json:"failed"`
	CreditedAmount int64      `json:"credited_amount"`
	Errors         []string   `json:"errors"`
	FatalError     *string    `json:"fatal_error,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// NewReconciliationRun starts an empty run.
func NewReconciliationRun(now time.Time) *ReconciliationRun {
	return &ReconciliationRun{
		ID:        uuid.New(),
		Errors:    []string{},
		StartedAt: now,
	}
}

// Succeeded returns true if the run reached the end of the feed.
func (r *ReconciliationRun) Succeeded() bool {
	return r.Status == RunStatusCompleted
}
