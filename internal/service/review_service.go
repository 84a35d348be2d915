package service

import (
	"context"
	"fmt"

	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
	"github.com/agrimarket/marketplace-api/pkg/middleware"
)

// ReviewStore is the persistence surface the review service needs. Mutations
// recompute the product's rating stats as part of the same operation.
type ReviewStore interface {
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id string) (*models.Review, error)
	GetByProductID(ctx context.Context, productID string, limit, offset int) ([]*models.Review, error)
}

// ReviewService handles review CRUD and keeps product rating stats fresh
type ReviewService struct {
	reviews  ReviewStore
	products ProductReader
	cache    ProductInvalidator
	logger   logger.Logger
}

// NewReviewService creates a new ReviewService
func NewReviewService(reviews ReviewStore, products ProductReader, cache ProductInvalidator, logger logger.Logger) *ReviewService {
	return &ReviewService{
		reviews:  reviews,
		products: products,
		cache:    cache,
		logger:   logger,
	}
}

// CreateReview adds a review for a product. A user gets one review per product;
// a duplicate attempt fails validation.
func (s *ReviewService) CreateReview(ctx context.Context, userID, productID string, rating int, comment string, reviewType models.ReviewType) (*models.Review, error) {
	if !models.ValidRating(rating) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("rating must be an integer between 1 and 5, got %d", rating))
	}

	if reviewType == "" {
		reviewType = models.ReviewTypeProduct
	}

	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}

	review := models.NewReview(userID, productID, rating, comment, reviewType)

	if err := s.reviews.Create(ctx, review); err != nil {
		middleware.RecordDomainOperation("review_create", false)
		return nil, err
	}

	s.cache.Invalidate(ctx, productID)

	middleware.RecordDomainOperation("review_create", true)
	s.logger.Info("Review created", "reviewID", review.ID, "productID", productID, "rating", rating)

	return review, nil
}

// UpdateReview changes a review's rating or comment. Only the author (or an
// admin) may update it.
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID, actorID string, isAdmin bool, rating int, comment string) (*models.Review, error) {
	if !models.ValidRating(rating) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("rating must be an integer between 1 and 5, got %d", rating))
	}

	review, err := s.reviews.GetByID(ctx, reviewID)

	if err != nil {
		return nil, err
	}

	if review.UserID != actorID && !isAdmin {
		return nil, apperrors.NewForbiddenError("only the author may modify a review")
	}

	review.Rating = rating
	review.Comment = comment

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, review.ProductID)
	s.logger.Info("Review updated", "reviewID", review.ID, "productID", review.ProductID, "rating", rating)

	return review, nil
}

// DeleteReview removes a review; the product's stats drop to 0/0 when the last
// review goes.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, actorID string, isAdmin bool) error {
	review, err := s.reviews.GetByID(ctx, reviewID)

	if err != nil {
		return err
	}

	if review.UserID != actorID && !isAdmin {
		return apperrors.NewForbiddenError("only the author may delete a review")
	}

	if err := s.reviews.Delete(ctx, review); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, review.ProductID)
	s.logger.Info("Review deleted", "reviewID", review.ID, "productID", review.ProductID)

	return nil
}

// GetProductReviews lists a product's reviews, newest first
func (s *ReviewService) GetProductReviews(ctx context.Context, productID string, limit, offset int) ([]*models.Review, error) {
	return s.reviews.GetByProductID(ctx, productID, limit, offset)
}
