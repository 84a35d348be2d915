package service

import (
	"context"
	"errors"
	"testing"

	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

func newReviewFixture() (*ReviewService, *fakeProductStore, *models.Product) {
	products := newFakeProductStore()
	product := models.NewProduct("farmer-1", "Honey", "raw wildflower", 8.00, 20)
	products.add(product)

	reviews := newFakeReviewStore(products)
	svc := NewReviewService(reviews, products, newFakeCache(), logger.NopLogger{})

	return svc, products, product
}

func TestCreateReviewUpdatesProductStats(t *testing.T) {
	svc, products, product := newReviewFixture()
	ctx := context.Background()

	if _, err := svc.CreateReview(ctx, "user-1", product.ID, 4, "good", models.ReviewTypeProduct); err != nil {
		t.Fatalf("CreateReview failed: %v", err)
	}

	if _, err := svc.CreateReview(ctx, "user-2", product.ID, 2, "bruised", models.ReviewTypeProduct); err != nil {
		t.Fatalf("CreateReview failed: %v", err)
	}

	stored := products.products[product.ID]

	if stored.AverageRating != 3.0 {
		t.Errorf("average rating = %.2f, want 3.00", stored.AverageRating)
	}

	if stored.TotalReviews != 2 {
		t.Errorf("total reviews = %d, want 2", stored.TotalReviews)
	}
}

func TestCreateReviewValidation(t *testing.T) {
	svc, _, product := newReviewFixture()
	ctx := context.Background()

	for _, rating := range []int{0, 6, -3} {
		if _, err := svc.CreateReview(ctx, "user-1", product.ID, rating, "", ""); !errors.Is(err, apperrors.ErrValidation) {
			t.Errorf("rating %d should fail validation, got %v", rating, err)
		}
	}

	if _, err := svc.CreateReview(ctx, "user-1", "prd-missing", 4, "", ""); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("review of unknown product should be not found, got %v", err)
	}
}

func TestDuplicateReviewRejected(t *testing.T) {
	svc, _, product := newReviewFixture()
	ctx := context.Background()

	if _, err := svc.CreateReview(ctx, "user-1", product.ID, 4, "", ""); err != nil {
		t.Fatalf("CreateReview failed: %v", err)
	}

	_, err := svc.CreateReview(ctx, "user-1", product.ID, 5, "changed my mind", "")

	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("second review by the same user should be rejected, got %v", err)
	}
}

func TestUpdateReviewRecomputesStats(t *testing.T) {
	svc, products, product := newReviewFixture()
	ctx := context.Background()

	review, err := svc.CreateReview(ctx, "user-1", product.ID, 2, "", "")

	if err != nil {
		t.Fatalf("CreateReview failed: %v", err)
	}

	if _, err := svc.UpdateReview(ctx, review.ID, "user-1", false, 5, "much better"); err != nil {
		t.Fatalf("UpdateReview failed: %v", err)
	}

	stored := products.products[product.ID]

	if stored.AverageRating != 5.0 || stored.TotalReviews != 1 {
		t.Errorf("stats = %.2f/%d, want 5.00/1", stored.AverageRating, stored.TotalReviews)
	}
}

func TestReviewAuthorship(t *testing.T) {
	svc, _, product := newReviewFixture()
	ctx := context.Background()

	review, _ := svc.CreateReview(ctx, "user-1", product.ID, 4, "", "")

	if _, err := svc.UpdateReview(ctx, review.ID, "user-2", false, 1, "sabotage"); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("non-author update should be forbidden, got %v", err)
	}

	if err := svc.DeleteReview(ctx, review.ID, "user-2", false); !errors.Is(err, apperrors.ErrForbidden) {
		t.Errorf("non-author delete should be forbidden, got %v", err)
	}

	// Admins may moderate
	if _, err := svc.UpdateReview(ctx, review.ID, "admin-1", true, 3, "moderated"); err != nil {
		t.Errorf("admin update failed: %v", err)
	}
}

func TestDeleteLastReviewZeroesStats(t *testing.T) {
	svc, products, product := newReviewFixture()
	ctx := context.Background()

	review, err := svc.CreateReview(ctx, "user-1", product.ID, 4, "", "")

	if err != nil {
		t.Fatalf("CreateReview failed: %v", err)
	}

	if err := svc.DeleteReview(ctx, review.ID, "user-1", false); err != nil {
		t.Fatalf("DeleteReview failed: %v", err)
	}

	stored := products.products[product.ID]

	if stored.AverageRating != 0 || stored.TotalReviews != 0 {
		t.Errorf("stats after last delete = %.2f/%d, want 0.00/0", stored.AverageRating, stored.TotalReviews)
	}
}
