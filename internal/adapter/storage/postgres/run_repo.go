package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"wallet-reconciler/internal/core/domain"
)

// RunRepo implements ports.RunRepository.
type RunRepo struct {
	pool Pool
}

// NewRunRepo creates a new RunRepo.
func NewRunRepo(pool Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

// Create inserts a finished run.
func (r *RunRepo) Create(ctx context.Context, run *domain.ReconciliationRun) error {
	errs, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}

	query := `INSERT INTO reconciliation_runs (id, status, fetched, processed, ignored, unparsable,
		below_minimum, unmatched, not_found, duplicates, failed, credited_amount, errors, fatal_error,
		started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = r.pool.Exec(ctx, query,
		run.ID, run.Status, run.Fetched, run.Processed, run.Ignored, run.Unparsable,
		run.BelowMinimum, run.Unmatched, run.NotFound, run.Duplicates, run.Failed, run.CreditedAmount,
		errs, run.FatalError, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reconciliation run: %w", err)
	}
	return nil
}

// ListRecent returns up to limit runs, newest first.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]domain.ReconciliationRun, error) {
	query := `SELECT id, status, fetched, processed, ignored, unparsable,
		below_minimum, unmatched, not_found, duplicates, failed, credited_amount, errors, fatal_error,
		started_at, finished_at
		FROM reconciliation_runs ORDER BY started_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list reconciliation runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.ReconciliationRun{}
	for rows.Next() {
		var (
			run  domain.ReconciliationRun
			errs []byte
		)
		err := rows.Scan(
			&run.ID, &run.Status, &run.Fetched, &run.Processed, &run.Ignored, &run.Unparsable,
			&run.BelowMinimum, &run.Unmatched, &run.NotFound, &run.Duplicates, &run.Failed, &run.CreditedAmount,
			&errs, &run.FatalError, &run.StartedAt, &run.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reconciliation run row: %w", err)
		}
		run.Errors = []string{}
		if len(errs) > 0 {
			if err := json.Unmarshal(errs, &run.Errors); err != nil {
				return nil, fmt.Errorf("decode run errors: %w", err)
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reconciliation run rows: %w", err)
	}
	return runs, nil
}
