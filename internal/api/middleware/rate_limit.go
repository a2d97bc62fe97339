package middleware

import (
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"
	apiContext "leadflow/internal/api/context"
	"leadflow/internal/pkg/errors"
	"leadflow/internal/platform/auth"
	"leadflow/internal/platform/metrics"
	"leadflow/internal/platform/ratelimit"
)

type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
}

func NewRateLimitMiddleware(limiter ratelimit.Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit allows perMinute requests per organization (authenticated) or client IP.
// Limiter backend errors let the request through.
func (m *RateLimitMiddleware) Limit(limitType string, perMinute int) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := fmt.Sprintf("%s:%s", limitType, clientKey(r))

			allowed, err := m.limiter.Allow(r.Context(), key, perMinute)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
				next(w, r)
				return
			}

			if !allowed {
				metrics.RateLimited.WithLabelValues(limitType).Inc()
				w.Header().Set("Retry-After", "60")
				errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
				return
			}

			next(w, r)
		}
	}
}

func clientKey(r *http.Request) string {
	if claims, ok := r.Context().Value(apiContext.Claims).(*auth.Claims); ok && claims != nil {
		return "org:" + claims.OrganizationID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
