package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agrimarket/marketplace-api/internal/models"
	"github.com/agrimarket/marketplace-api/pkg/middleware"
)

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
	Type    string `json:"type,omitempty"`
}

// createReviewHandler adds a review for a product
func (s *Server) createReviewHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	productID := mux.Vars(r)["id"]

	var req reviewRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	review, err := s.reviewService.CreateReview(r.Context(), actor.UserID, productID, req.Rating, req.Comment, models.ReviewType(req.Type))

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{
		Success: true,
		Data:    review,
	})
}

// getProductReviewsHandler lists a product's reviews, newest first
func (s *Server) getProductReviewsHandler(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["id"]
	limit, offset := pagination(r)

	reviews, err := s.reviewService.GetProductReviews(r.Context(), productID, limit, offset)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    reviews,
	})
}

// updateReviewHandler changes a review's rating or comment
func (s *Server) updateReviewHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id := mux.Vars(r)["id"]

	var req reviewRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	isAdmin := actor.Role == middleware.RoleAdmin

	review, err := s.reviewService.UpdateReview(r.Context(), id, actor.UserID, isAdmin, req.Rating, req.Comment)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    review,
	})
}

// deleteReviewHandler removes a review and refreshes the product's rating stats
func (s *Server) deleteReviewHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id := mux.Vars(r)["id"]

	isAdmin := actor.Role == middleware.RoleAdmin

	if err := s.reviewService.DeleteReview(r.Context(), id, actor.UserID, isAdmin); err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
	})
}
