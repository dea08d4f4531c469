package service

import (
	"context"
	"time"

	"wallet-reconciler/internal/core/domain"
	"wallet-reconciler/internal/core/ports"

	"github.com/rs/zerolog"
)

const runPersistTimeout = 5 * time.Second

type runRecorder struct {
	repo ports.RunRepository
	log  zerolog.Logger
}

// NewRunRecorder creates a run recorder.
// If repo is nil, runs are only written to the logger.
func NewRunRecorder(repo ports.RunRepository, log zerolog.Logger) ports.RunRecorder {
	return &runRecorder{repo: repo, log: log}
}

// Record logs the run summary and persists it (best-effort). The write
// survives cancellation of ctx so that an aborted trigger still leaves history.
func (r *runRecorder) Record(ctx context.Context, run *domain.ReconciliationRun) {
	evt := r.log.Info()
	if !run.Succeeded() {
		evt = r.log.Error()
		if run.FatalError != nil {
			evt = evt.Str("fatal_error", *run.FatalError)
		}
	}
	evt.
		Str("run_id", run.ID.String()).
		Str("status", string(run.Status)).
		Int("fetched", run.Fetched).
		Int("processed", run.Processed).
		Int("ignored", run.Ignored).
		Int("unparsable", run.Unparsable).
		Int("below_minimum", run.BelowMinimum).
		Int("unmatched", run.Unmatched).
		Int("not_found", run.NotFound).
		Int("duplicates", run.Duplicates).
		Int("failed", run.Failed).
		Int64("credited_amount", run.CreditedAmount).
		Msg("reconciliation run finished")

	if r.repo == nil {
		return
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), runPersistTimeout)
	defer cancel()
	if err := r.repo.Create(persistCtx, run); err != nil {
		r.log.Warn().Err(err).Str("run_id", run.ID.String()).Msg("failed to persist reconciliation run")
	}
}
