package handler

import (
	"wallet-reconciler/internal/adapter/http/dto"
	"wallet-reconciler/internal/core/ports"
	"wallet-reconciler/pkg/apperror"
	"wallet-reconciler/pkg/response"

	"github.com/gin-gonic/gin"
)

// ReconciliationHandler exposes the reconciliation engine over HTTP.
type ReconciliationHandler struct {
	svc ports.ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(svc ports.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{svc: svc}
}

// Trigger handles POST /api/v1/reconciliation/bank-transactions.
// The request body is ignored.
func (h *ReconciliationHandler) Trigger(c *gin.Context) {
	run, err := h.svc.Run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Plain(c, dto.NewReconcileResponse(run))
}

// ListRuns handles GET /api/v1/reconciliation/runs.
func (h *ReconciliationHandler) ListRuns(c *gin.Context) {
	var q dto.ListRunsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation("limit must be an integer between 1 and 100"))
		return
	}

	runs, err := h.svc.ListRuns(c.Request.Context(), q.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.RunResponse, 0, len(runs))
	for i := range runs {
		items = append(items, dto.NewRunResponse(&runs[i]))
	}
	response.OK(c, dto.ListRunsResponse{Runs: items})
}
