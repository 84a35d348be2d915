package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agrimarket/marketplace-api/internal/models"
	"github.com/agrimarket/marketplace-api/pkg/middleware"
)

type requestPayoutRequest struct {
	Amount        float64 `json:"amount"`
	BankName      string  `json:"bank_name"`
	BankAccount   string  `json:"bank_account"`
	AccountHolder string  `json:"account_holder"`
}

type approvePayoutRequest struct {
	Note string `json:"note,omitempty"`
}

type rejectPayoutRequest struct {
	Reason string `json:"reason"`
}

type processPayoutRequest struct {
	TransactionID string `json:"transaction_id"`
}

// requestPayoutHandler creates a payout request for the authenticated farmer
func (s *Server) requestPayoutHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())

	var req requestPayoutRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	payout, err := s.payoutService.RequestPayout(r.Context(), actor.UserID, req.Amount, models.BankDetails{
		BankName:      req.BankName,
		BankAccount:   req.BankAccount,
		AccountHolder: req.AccountHolder,
	})

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{
		Success: true,
		Data:    payout,
	})
}

// getPayoutsHandler lists payouts. Admins see all, optionally filtered by
// status; farmers see their own.
func (s *Server) getPayoutsHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	limit, offset := pagination(r)

	var (
		payouts []*models.Payout
		err     error
	)

	if actor.Role == middleware.RoleAdmin {
		status := models.PayoutStatus(r.URL.Query().Get("status"))
		payouts, err = s.payoutService.GetAllPayouts(r.Context(), status, limit, offset)
	} else {
		payouts, err = s.payoutService.GetFarmerPayouts(r.Context(), actor.UserID, limit, offset)
	}

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    payouts,
	})
}

// getPayoutByIDHandler returns one payout, visible to its farmer and to admins
func (s *Server) getPayoutByIDHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id := mux.Vars(r)["id"]

	payout, err := s.payoutService.GetPayout(r.Context(), id)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	if payout.FarmerID != actor.UserID && actor.Role != middleware.RoleAdmin {
		s.respondWithError(w, http.StatusForbidden, "payout belongs to another farmer")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    payout,
	})
}

// approvePayoutHandler approves a pending payout and debits the farmer's wallet
func (s *Server) approvePayoutHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id := mux.Vars(r)["id"]

	var req approvePayoutRequest

	// The note is optional, so an empty body is fine
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	payout, err := s.payoutService.ApprovePayout(r.Context(), id, actor.UserID, req.Note)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    payout,
	})
}

// rejectPayoutHandler rejects a pending payout with a mandatory reason
func (s *Server) rejectPayoutHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id := mux.Vars(r)["id"]

	var req rejectPayoutRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	payout, err := s.payoutService.RejectPayout(r.Context(), id, actor.UserID, req.Reason)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    payout,
	})
}

// processPayoutHandler records the external transfer for an approved payout
func (s *Server) processPayoutHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id := mux.Vars(r)["id"]

	var req processPayoutRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	payout, err := s.payoutService.ProcessPayout(r.Context(), id, actor.UserID, req.TransactionID)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    payout,
	})
}
