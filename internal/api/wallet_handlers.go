package api

import (
	"encoding/json"
	"net/http"

	"github.com/agrimarket/marketplace-api/pkg/middleware"
)

type walletAdjustmentRequest struct {
	UserID      string  `json:"user_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

type transferRequest struct {
	ToUserID    string  `json:"to_user_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// getWalletHandler returns the authenticated user's wallet
func (s *Server) getWalletHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())

	wallet, err := s.walletService.GetWallet(r.Context(), actor.UserID)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    wallet,
	})
}

// getWalletTransactionsHandler returns the user's ledger history, newest first
func (s *Server) getWalletTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	limit, offset := pagination(r)

	transactions, err := s.walletService.GetTransactions(r.Context(), actor.UserID, limit, offset)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    transactions,
	})
}

// transferHandler moves funds from the authenticated user's wallet to another user's
func (s *Server) transferHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())

	var req transferRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	if err := s.walletService.Transfer(r.Context(), actor.UserID, req.ToUserID, req.Amount, req.Description); err != nil {
		s.respondWithAppError(w, err)
		return
	}

	wallet, err := s.walletService.GetWallet(r.Context(), actor.UserID)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    wallet,
	})
}

// creditWalletHandler credits any user's wallet. Admin only; this is the entry
// point for settlements and manual corrections.
func (s *Server) creditWalletHandler(w http.ResponseWriter, r *http.Request) {
	var req walletAdjustmentRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.UserID == "" {
		s.respondWithError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	wallet, err := s.walletService.Credit(r.Context(), req.UserID, req.Amount, req.Description)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    wallet,
	})
}

// debitWalletHandler debits any user's wallet. Admin only.
func (s *Server) debitWalletHandler(w http.ResponseWriter, r *http.Request) {
	var req walletAdjustmentRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	if req.UserID == "" {
		s.respondWithError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	wallet, err := s.walletService.Debit(r.Context(), req.UserID, req.Amount, req.Description)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    wallet,
	})
}
