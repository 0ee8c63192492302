// internal/server/middleware.go
package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	apperrors "insight-agent/internal/common/errors"

	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const identityKey contextKey = "identity"

// requireBearer enforces the shared API key. The verified token becomes
// the caller identity for rate limiting.
func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, apperrors.NewUnauthorizedError("missing bearer token"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Auth.APIKey)) != 1 {
			s.writeError(w, apperrors.NewUnauthorizedError("invalid bearer token"))
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// logRequests emits one structured line per completed request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request completed", map[string]interface{}{
			"requestId":  middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"durationMs": time.Since(start).Milliseconds(),
		})
	})
}

func identityFrom(ctx context.Context) string {
	if id, ok := ctx.Value(identityKey).(string); ok {
		return id
	}
	return "anonymous"
}
