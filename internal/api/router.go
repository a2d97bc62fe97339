package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "leadflow/internal/api/context"
	"leadflow/internal/api/handlers"
	"leadflow/internal/api/middleware"
	"leadflow/internal/platform/auth"
	"leadflow/internal/platform/config"
	"leadflow/internal/pkg/errors"
)

type Dependencies struct {
	DispatchHandler     *handlers.DispatchHandler
	WorkflowHandler     *handlers.WorkflowHandler
	ExecutionHandler    *handlers.ExecutionHandler
	HealthHandler       *handlers.HealthHandler
	MetricsHandler      *handlers.MetricsHandler
	AuthMiddleware      *middleware.AuthMiddleware
	SignatureMiddleware *middleware.SignatureMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
	RateLimits          config.RateLimitConfig
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()

	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	rl := deps.RateLimitMiddleware
	limits := deps.RateLimits

	// Inbound lead webhooks
	router.POST("/api/v1/webhooks/:trigger",
		chain(deps.DispatchHandler.Handle,
			rl.Limit("webhook", limits.WebhookPerMinute),
			deps.SignatureMiddleware.Handle))

	authMid := deps.AuthMiddleware
	read := rl.Limit("api_read", limits.APIReadPerMinute)
	write := rl.Limit("api_write", limits.APIWritePerMinute)

	// Workflow management
	router.GET("/api/v1/workflows",
		chain(deps.WorkflowHandler.List, authMid.Handle, read))
	router.POST("/api/v1/workflows",
		chain(deps.WorkflowHandler.Create, authMid.Handle, requireRole("admin", "owner"), write))
	router.GET("/api/v1/workflows/:workflow_id",
		chain(deps.WorkflowHandler.Get, authMid.Handle, read))
	router.PATCH("/api/v1/workflows/:workflow_id",
		chain(deps.WorkflowHandler.Update, authMid.Handle, requireRole("admin", "owner"), write))
	router.DELETE("/api/v1/workflows/:workflow_id",
		chain(deps.WorkflowHandler.Delete, authMid.Handle, requireRole("admin", "owner"), write))

	// Dispatch audit trail
	router.GET("/api/v1/executions",
		chain(deps.ExecutionHandler.List, authMid.Handle, read))

	return router
}

// chain applies middlewares in order: the first one runs outermost.
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

func requireRole(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, _ := r.Context().Value(apiContext.Claims).(*auth.Claims)

			allowed := false
			for _, role := range roles {
				if claims != nil && claims.Role == role {
					allowed = true
					break
				}
			}

			if !allowed {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Insufficient permissions", nil)
				return
			}

			next(w, r)
		}
	}
}
