package domain

// ReconciliationSettings are the operator-tunable parameters of a run.
type ReconciliationSettings struct {
	MemoPrefix string
	MinAmount  int64
}
