package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
)

// ApiResponse is the envelope for every JSON response
type ApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Health represents the health check response
type Health struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Database  string                 `json:"database"`
	Mailer    map[string]interface{} `json:"mailer,omitempty"`
}

// healthCheckHandler reports service liveness plus the state of its dependencies
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	health := Health{
		Status:    "ok",
		Version:   "0.1.0",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Database:  "ok",
	}

	if err := s.db.Ping(r.Context()); err != nil {
		health.Status = "degraded"
		health.Database = "unreachable"
	}

	if s.mailer != nil {
		health.Mailer = s.mailer.BreakerState()
	}

	code := http.StatusOK

	if health.Status != "ok" {
		code = http.StatusServiceUnavailable
	}

	s.respondWithJSON(w, code, ApiResponse{
		Success: health.Status == "ok",
		Data:    health,
	})
}

// respondWithAppError maps a domain error to its HTTP status
func (s *Server) respondWithAppError(w http.ResponseWriter, err error) {
	s.respondWithError(w, apperrors.StatusCode(err), err.Error())
}

// respondWithError sends a JSON response with an error message
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, ApiResponse{
		Success: false,
		Error:   message,
	})
}

// respondWithJSON sends a JSON response
func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)

	if err != nil {
		s.logger.Error("Failed to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// pagination reads limit/offset query params with sane bounds
func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
