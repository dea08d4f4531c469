package ports

import (
	"context"
	"time"

	"wallet-reconciler/internal/core/domain"
)

// FeedClient fetches the bank statement feed.
type FeedClient interface {
	Fetch(ctx context.Context, token string) ([]domain.FeedTransaction, error)
}

// CreditedCache is the Redis-layer record of credited fingerprints (fast path).
// It is advisory: the ledger's unique index is authoritative.
type CreditedCache interface {
	IsCredited(ctx context.Context, fp domain.Fingerprint) (bool, error)
	MarkCredited(ctx context.Context, fp domain.Fingerprint, ttl time.Duration) error
}

// EventPublisher announces committed deposits to downstream consumers.
type EventPublisher interface {
	PublishDepositCredited(ctx context.Context, evt domain.DepositCredited) error
}

// RunRecorder stores the outcome of a run. Failures are logged, never returned.
type RunRecorder interface {
	Record(ctx context.Context, run *domain.ReconciliationRun)
}

// TokenService handles JWT token operations for the trigger endpoint.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
	Issuer  string
}

// --- Service Ports (Business Logic) ---

// ReconciliationService runs the reconciliation pipeline.
type ReconciliationService interface {
	// Run resolves the run configuration and reconciles the feed once.
	// A non-nil error is fatal; the returned run is still populated.
	Run(ctx context.Context) (*domain.ReconciliationRun, error)
	// Reconcile processes the feed with an explicit configuration.
	Reconcile(ctx context.Context, cfg RunConfig) (*domain.ReconciliationRun, error)
	ListRuns(ctx context.Context, limit int) ([]domain.ReconciliationRun, error)
}

// RunConfig is the resolved configuration of one run.
type RunConfig struct {
	FeedToken  string
	MemoPrefix string
	MinAmount  int64
}
