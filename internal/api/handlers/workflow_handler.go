package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"leadflow/internal/engine/dispatch"
	apierrors "leadflow/internal/pkg/errors"
	"leadflow/internal/platform/models"
	"leadflow/internal/platform/repositories"
)

// CacheInvalidator is told when an organization's workflows change.
type CacheInvalidator interface {
	Invalidate(orgID string)
}

type WorkflowHandler struct {
	repo  *repositories.WorkflowRepository
	cache CacheInvalidator
}

// NewWorkflowHandler accepts a nil cache.
func NewWorkflowHandler(repo *repositories.WorkflowRepository, cache CacheInvalidator) *WorkflowHandler {
	return &WorkflowHandler{repo: repo, cache: cache}
}

func (h *WorkflowHandler) invalidate(orgID string) {
	if h.cache != nil {
		h.cache.Invalidate(orgID)
	}
}

type workflowRequest struct {
	Name          *string                  `json:"name"`
	Status        *string                  `json:"status"`
	TriggerType   *string                  `json:"trigger_type"`
	TriggerConfig *models.TriggerConfig    `json:"trigger_config"`
	Settings      *models.WorkflowSettings `json:"settings"`
}

func (req *workflowRequest) apply(wf *models.Workflow) {
	if req.Name != nil {
		wf.Name = *req.Name
	}
	if req.Status != nil {
		wf.Status = *req.Status
	}
	if req.TriggerType != nil {
		wf.TriggerType = triggerType(*req.TriggerType)
	}
	if req.TriggerConfig != nil {
		wf.TriggerConfig = *req.TriggerConfig
	}
	if req.Settings != nil {
		wf.Settings = *req.Settings
	}
}

func validateWorkflow(wf *models.Workflow) string {
	if wf.Name == "" {
		return "name is required"
	}
	if wf.Status != models.WorkflowStatusActive && wf.Status != models.WorkflowStatusInactive {
		return "status must be active or inactive"
	}
	if wf.TriggerType == "" {
		return "trigger_type is required"
	}
	if p := wf.Settings.Priority; p != "" && dispatch.Priority(p).Rank() < 0 {
		return "settings.priority must be one of critical, high, normal, low"
	}
	if wf.TriggerConfig.Delay < 0 {
		return "trigger_config.delay must not be negative"
	}
	return ""
}

func (h *WorkflowHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req workflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	wf := &models.Workflow{
		OrganizationID: claims.OrganizationID,
		Status:         models.WorkflowStatusInactive,
		TriggerType:    models.TriggerLeadCreated,
	}
	req.apply(wf)
	if msg := validateWorkflow(wf); msg != "" {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, msg, nil)
		return
	}

	if err := h.repo.Create(r.Context(), wf); err != nil {
		log.Error().Err(err).Str("org_id", claims.OrganizationID).Msg("failed to create workflow")
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to create workflow", nil)
		return
	}

	h.invalidate(wf.OrganizationID)
	log.Info().Str("org_id", wf.OrganizationID).Str("workflow_id", wf.ID).Msg("workflow created")
	apierrors.WriteJSON(w, http.StatusCreated, wf)
}

func (h *WorkflowHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	workflows, err := h.repo.List(r.Context(), claims.OrganizationID)
	if err != nil {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Failed to list workflows", nil)
		return
	}
	if workflows == nil {
		workflows = []*models.Workflow{}
	}

	apierrors.WriteJSON(w, http.StatusOK, map[string]interface{}{"workflows": workflows})
}

func (h *WorkflowHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	wf, err := h.repo.GetByID(r.Context(), claims.OrganizationID, pathParam(r, "workflow_id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	apierrors.WriteJSON(w, http.StatusOK, wf)
}

func (h *WorkflowHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)

	var req workflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	wf, err := h.repo.GetByID(r.Context(), claims.OrganizationID, pathParam(r, "workflow_id"))
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	req.apply(wf)
	if msg := validateWorkflow(wf); msg != "" {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrCodeInvalidInput, msg, nil)
		return
	}

	if err := h.repo.Update(r.Context(), wf); err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.invalidate(wf.OrganizationID)

	apierrors.WriteJSON(w, http.StatusOK, wf)
}

func (h *WorkflowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	id := pathParam(r, "workflow_id")

	if err := h.repo.Delete(r.Context(), claims.OrganizationID, id); err != nil {
		h.writeLookupError(w, err)
		return
	}

	h.invalidate(claims.OrganizationID)
	log.Info().Str("org_id", claims.OrganizationID).Str("workflow_id", id).Msg("workflow deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *WorkflowHandler) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, repositories.ErrNotFound) {
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrCodeNotFound, "Workflow not found", nil)
		return
	}
	log.Error().Err(err).Msg("workflow query failed")
	apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrCodeInternal, "Internal server error", nil)
}
