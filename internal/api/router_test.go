package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"leadflow/internal/api/handlers"
	"leadflow/internal/api/middleware"
	"leadflow/internal/engine/dispatch"
	"leadflow/internal/engine/webhooks"
	"leadflow/internal/platform/auth"
	"leadflow/internal/platform/config"
	"leadflow/internal/platform/ratelimit"
	"leadflow/internal/platform/repositories"
)

type stubDispatcher struct{}

func (stubDispatcher) Dispatch(_ context.Context, req *dispatch.Request) (*dispatch.Result, error) {
	return &dispatch.Result{LeadID: req.Lead.ID, Executions: []dispatch.EnqueueResult{}, CorrelationIDs: []string{}}, nil
}

func newTestRouter(t *testing.T, tokens *auth.TokenService) http.Handler {
	t.Helper()
	return NewRouter(&Dependencies{
		DispatchHandler:     handlers.NewDispatchHandler(stubDispatcher{}),
		WorkflowHandler:     handlers.NewWorkflowHandler(repositories.NewWorkflowRepository(nil), nil),
		ExecutionHandler:    handlers.NewExecutionHandler(repositories.NewExecutionLogRepository(nil)),
		HealthHandler:       handlers.NewHealthHandler(nil),
		MetricsHandler:      handlers.NewMetricsHandler(),
		AuthMiddleware:      middleware.NewAuthMiddleware(tokens),
		SignatureMiddleware: middleware.NewSignatureMiddleware("hook-secret"),
		RateLimitMiddleware: middleware.NewRateLimitMiddleware(ratelimit.NewMemoryLimiter()),
		RateLimits:          config.RateLimitConfig{WebhookPerMinute: 100, APIReadPerMinute: 100, APIWritePerMinute: 100},
	})
}

func TestRouter_WebhookRequiresSignature(t *testing.T) {
	router := newTestRouter(t, auth.NewTokenService(config.JWTConfig{Secret: "s", AccessTokenTTL: time.Hour}))
	body := `{"organizationId":"O1","lead":{"id":"L1"}}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/lead-created", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/lead-created", strings.NewReader(body))
	req.Header.Set(webhooks.SignatureHeader, webhooks.Sign("hook-secret", []byte(body)))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"leadId":"L1"`)
}

func TestRouter_WorkflowWritesRequireAdmin(t *testing.T) {
	tokens := auth.NewTokenService(config.JWTConfig{Secret: "s", AccessTokenTTL: time.Hour})
	router := newTestRouter(t, tokens)

	token, err := tokens.GenerateAccessToken("user_1", "org_1", "member")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/workflows", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, auth.NewTokenService(config.JWTConfig{Secret: "s", AccessTokenTTL: time.Hour}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
