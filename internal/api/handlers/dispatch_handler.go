package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"leadflow/internal/engine/dispatch"
	apierrors "leadflow/internal/pkg/errors"
)

const maxDispatchBody = 1 << 20

type Dispatcher interface {
	Dispatch(ctx context.Context, req *dispatch.Request) (*dispatch.Result, error)
}

// DispatchHandler is the inbound lead webhook endpoint.
type DispatchHandler struct {
	dispatcher Dispatcher
}

func NewDispatchHandler(dispatcher Dispatcher) *DispatchHandler {
	return &DispatchHandler{dispatcher: dispatcher}
}

type dispatchBody struct {
	Lead           *dispatch.Lead         `json:"lead"`
	OrganizationID string                 `json:"organizationId"`
	Priority       json.RawMessage        `json:"priority,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type dispatchResponse struct {
	Success bool `json:"success"`
	*dispatch.Result
}

type lookupFailure struct {
	Error            string `json:"error"`
	Details          string `json:"details"`
	ProcessingTimeMs int64  `json:"processingTimeMs"`
}

func (h *DispatchHandler) Handle(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxDispatchBody))
	if err != nil {
		apierrors.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	var body dispatchBody
	if err := json.Unmarshal(raw, &body); err != nil {
		apierrors.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	req := &dispatch.Request{
		TriggerType:    triggerType(pathParam(r, "trigger")),
		OrganizationID: body.OrganizationID,
		Lead:           body.Lead,
		Priority:       body.Priority,
		Metadata:       body.Metadata,
		RawPayload:     raw,
	}

	result, err := h.dispatcher.Dispatch(r.Context(), req)
	if err != nil {
		var lookupErr *dispatch.LookupError
		switch {
		case errors.Is(err, dispatch.ErrInvalidInput):
			apierrors.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing lead or organization data"})
		case errors.As(err, &lookupErr):
			apierrors.WriteJSON(w, http.StatusInternalServerError, lookupFailure{
				Error:            "Failed to fetch workflows",
				Details:          lookupErr.Err.Error(),
				ProcessingTimeMs: lookupErr.Elapsed.Milliseconds(),
			})
		default:
			log.Error().Err(err).Msg("dispatch failed")
			apierrors.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
		}
		return
	}

	apierrors.WriteJSON(w, http.StatusOK, dispatchResponse{Success: true, Result: result})
}

// triggerType maps the path segment to a stored trigger type: lead-created => lead_created.
func triggerType(param string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(param)), "-", "_")
}
