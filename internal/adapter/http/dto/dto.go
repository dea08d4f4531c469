package dto

import (
	"time"

	"wallet-reconciler/internal/core/domain"
)

// ReconcileResponse is the flat body returned by the reconciliation trigger.
type ReconcileResponse struct {
	Success   bool     `json:"success"`
	Processed int      `json:"processed"`
	Errors    []string `json:"errors,omitempty"`
}

// NewReconcileResponse maps a finished run. Errors is omitted when empty.
func NewReconcileResponse(run *domain.ReconciliationRun) ReconcileResponse {
	resp := ReconcileResponse{Success: true, Processed: run.Processed}
	if len(run.Errors) > 0 {
		resp.Errors = run.Errors
	}
	return resp
}

// ListRunsQuery binds the query string of GET /api/v1/reconciliation/runs.
type ListRunsQuery struct {
	Limit int `form:"limit,default=20" binding:"min=1,max=100"`
}

// RunResponse is one entry of the run history.
type RunResponse struct {
	ID             string   `json:"id"`
	Status         string   `json:"status"`
	Fetched        int      `json:"fetched"`
	Processed      int      `json:"processed"`
	Ignored        int      `json:"ignored"`
	Unparsable     int      `json:"unparsable"`
	BelowMinimum   int      `json:"below_minimum"`
	Unmatched      int      `json:"unmatched"`
	NotFound       int      `json:"not_found"`
	Duplicates     int      `json:"duplicates"`
	Failed         int      `json:"failed"`
	CreditedAmount int64    `json:"credited_amount"`
	Errors         []string `json:"errors"`
	FatalError     *string  `json:"fatal_error,omitempty"`
	StartedAt      string   `json:"started_at"`
	FinishedAt     *string  `json:"finished_at,omitempty"`
}

// NewRunResponse maps a persisted run.
func NewRunResponse(run *domain.ReconciliationRun) RunResponse {
	resp := RunResponse{
		ID:             run.ID.String(),
		Status:         string(run.Status),
		Fetched:        run.Fetched,
		Processed:      run.Processed,
		Ignored:        run.Ignored,
		Unparsable:     run.Unparsable,
		BelowMinimum:   run.BelowMinimum,
		Unmatched:      run.Unmatched,
		NotFound:       run.NotFound,
		Duplicates:     run.Duplicates,
		Failed:         run.Failed,
		CreditedAmount: run.CreditedAmount,
		Errors:         run.Errors,
		FatalError:     run.FatalError,
		StartedAt:      run.StartedAt.Format(time.RFC3339),
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	if run.FinishedAt != nil {
		s := run.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &s
	}
	return resp
}

// ListRunsResponse wraps the run history.
type ListRunsResponse struct {
	Runs []RunResponse `json:"runs"`
}
