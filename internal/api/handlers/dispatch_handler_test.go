package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apiContext "leadflow/internal/api/context"
	"leadflow/internal/engine/dispatch"
)

type fakeDispatcher struct {
	got    *dispatch.Request
	result *dispatch.Result
	err    error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	f.got = req
	return f.result, f.err
}

func withParams(r *http.Request, ps httprouter.Params) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), apiContext.Params, ps))
}

func postWebhook(h *DispatchHandler, trigger, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/"+trigger, strings.NewReader(body))
	req = withParams(req, httprouter.Params{{Key: "trigger", Value: trigger}})
	rr := httptest.NewRecorder()
	h.Handle(rr, req)
	return rr
}

func TestDispatchHandler_Success(t *testing.T) {
	fd := &fakeDispatcher{result: &dispatch.Result{
		Message:        "Processed 1 workflows: 1 queued, 0 skipped, 0 failed",
		Summary:        dispatch.Summary{TotalWorkflows: 1, Queued: 1},
		Executions:     []dispatch.EnqueueResult{{WorkflowID: "wf_1", Status: dispatch.StatusQueued, ExecutionID: "exec_1"}},
		LeadID:         "L1",
		CorrelationIDs: []string{"exec_1"},
	}}
	h := NewDispatchHandler(fd)

	body := `{"organizationId":"O1","lead":{"id":"L1","source":"referral","tags":["vip"]},"metadata":{"campaign":"spring"}}`
	rr := postWebhook(h, "lead-created", body)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, fd.got)
	assert.Equal(t, "lead_created", fd.got.TriggerType)
	assert.Equal(t, "O1", fd.got.OrganizationID)
	assert.Equal(t, "referral", fd.got.Lead.Source)
	assert.Equal(t, "spring", fd.got.Metadata["campaign"])
	assert.JSONEq(t, body, string(fd.got.RawPayload))

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "L1", resp["leadId"])
	assert.Equal(t, []interface{}{"exec_1"}, resp["correlationIds"])
	summary := resp["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["queued"])
}

func TestDispatchHandler_InvalidJSON(t *testing.T) {
	fd := &fakeDispatcher{}
	rr := postWebhook(NewDispatchHandler(fd), "lead-created", `{not json`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, rr.Body.String())
	assert.Nil(t, fd.got)
}

func TestDispatchHandler_MissingData(t *testing.T) {
	fd := &fakeDispatcher{err: dispatch.ErrInvalidInput}
	rr := postWebhook(NewDispatchHandler(fd), "lead-created", `{"organizationId":"O1"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"Missing lead or organization data"}`, rr.Body.String())
}

func TestDispatchHandler_LookupFailure(t *testing.T) {
	fd := &fakeDispatcher{err: &dispatch.LookupError{Err: errors.New("database is locked"), Elapsed: 12 * time.Millisecond}}
	rr := postWebhook(NewDispatchHandler(fd), "lead_created", `{"organizationId":"O1","lead":{"id":"L1"}}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Failed to fetch workflows","details":"database is locked","processingTimeMs":12}`, rr.Body.String())
}

func TestTriggerType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"lead-created", "lead_created"},
		{"lead_created", "lead_created"},
		{"Lead-Updated", "lead_updated"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, triggerType(tt.in), tt.in)
	}
}
