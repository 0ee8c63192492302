// internal/server/handlers.go
package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	apperrors "insight-agent/internal/common/errors"
	"insight-agent/internal/models"
)

// handleHealth reports liveness. Kept unauthenticated so load balancers
// can probe it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   s.cfg.App.Name,
		"version":   s.cfg.App.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req models.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.NewInvalidInputError("request body is not valid JSON"))
		return
	}

	result, err := s.service.Analyze(r.Context(), identityFrom(r.Context()), &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperrors.NewInvalidInputError("request body is not valid JSON"))
		return
	}

	result, err := s.service.Chat(r.Context(), identityFrom(r.Context()), &req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

// writeError maps a pipeline error onto the HTTP surface. Rate-limit
// rejections carry a Retry-After hint.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	stdErr := apperrors.AsStandard(err)
	status := apperrors.HTTPStatus(stdErr.Code)

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
	}

	if retryAfter := stdErr.RetryAfterSeconds(); retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}

	s.writeJSON(w, status, map[string]interface{}{"error": stdErr})
}
