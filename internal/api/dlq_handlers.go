package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// getDeadLettersHandler lists dead-lettered events for operator inspection
func (s *Server) getDeadLettersHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	messages, err := s.dlqRepo.GetAll(r.Context(), limit, offset)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    messages,
	})
}

// retryDeadLetterHandler republishes one dead-lettered event on demand
func (s *Server) retryDeadLetterHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid dead letter id")
		return
	}

	if err := s.deadLetterProcessor.RetryMessage(r.Context(), id); err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
	})
}

// discardDeadLetterHandler marks a dead-lettered event as discarded
func (s *Server) discardDeadLetterHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid dead letter id")
		return
	}

	if err := s.dlqRepo.MarkDiscarded(r.Context(), id); err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
	})
}
