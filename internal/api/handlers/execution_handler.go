package handlers

import (
	"net/http"
	"strconv"

	apierrors "leadflow/internal/pkg/errors"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

type ExecutionHandler struct {
	repo *repositories.ExecutionLogRepository
}

func NewExecutionHandler(repo *repositories.ExecutionLogRepository) *ExecutionHandler {
	return &ExecutionHandler{repo: repo}
}

// List returns the organization's most recent webhook executions, newest first.
func (h *ExecutionHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 500 {
		limit = 100
	}

	executions, err := h.repo.ListByOrg(r.Context(), claims.OrganizationID, limit)
	if err != nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to list executions", nil)
		return
	}
	if executions == nil {
		executions = []*models.WebhookExecution{}
	}

	apierrors.WriteJSON(w, http.StatusOK, map[string]interface{}{"executions": executions})
}
