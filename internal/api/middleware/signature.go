package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"leadflow/internal/engine/webhooks"
	"leadflow/internal/pkg/errors"
)

const maxWebhookBody = 1 << 20

// SignatureMiddleware rejects webhook calls whose body is not signed with the shared secret.
// With an empty secret every request passes.
type SignatureMiddleware struct {
	secret string
}

func NewSignatureMiddleware(secret string) *SignatureMiddleware {
	return &SignatureMiddleware{secret: secret}
}

func (m *SignatureMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.secret == "" {
			next(w, r)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
		if err != nil {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Failed to read request body", nil)
			return
		}
		if len(body) > maxWebhookBody {
			errors.WriteError(w, http.StatusRequestEntityTooLarge, errors.ErrCodeInvalidInput, "Request body too large", nil)
			return
		}

		if !webhooks.Verify(m.secret, body, r.Header.Get(webhooks.SignatureHeader)) {
			log.Warn().Str("remote_addr", r.RemoteAddr).Msg("webhook signature rejected")
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid webhook signature", nil)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next(w, r)
	}
}
