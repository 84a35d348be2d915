package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/agrimarket/marketplace-api/internal/database"
	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

const pqUniqueViolation = "23505"

// ReviewRepository handles database operations for reviews. Every mutation
// recomputes the product's denormalized rating stats in the same transaction.
type ReviewRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db *database.Database, logger logger.Logger) *ReviewRepository {
	return &ReviewRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a review and refreshes the product's rating stats. The unique
// (user_id, product_id) constraint rejects a second review from the same user.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO reviews (id, user_id, product_id, rating, comment, type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, review.ID, review.UserID, review.ProductID, review.Rating, review.Comment, review.Type,
		review.CreatedAt, review.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error

		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return apperrors.NewValidationError(
				fmt.Sprintf("user %s has already reviewed product %s", review.UserID, review.ProductID))
		}

		r.logger.Error("Failed to create review", "error", err, "productID", review.ProductID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if err = r.refreshProductStatsInTx(tx, review.ProductID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// Update changes a review's rating/comment and refreshes the product stats
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE reviews
		SET rating = $1, comment = $2, updated_at = $3
		WHERE id = $4
	`, review.Rating, review.Comment, models.GetCurrentTime(), review.ID)

	if err != nil {
		r.logger.Error("Failed to update review", "error", err, "reviewID", review.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("review %s not found", review.ID))
	}

	if err = r.refreshProductStatsInTx(tx, review.ProductID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// Delete removes a review and refreshes the product stats. An empty review set
// explicitly writes average 0 / count 0.
func (r *ReviewRepository) Delete(ctx context.Context, review *models.Review) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, review.ID)

	if err != nil {
		r.logger.Error("Failed to delete review", "error", err, "reviewID", review.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("review %s not found", review.ID))
	}

	if err = r.refreshProductStatsInTx(tx, review.ProductID); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// refreshProductStatsInTx recomputes average rating and review count from all
// reviews of the product. COALESCE turns the empty set into 0, not NULL.
func (r *ReviewRepository) refreshProductStatsInTx(tx *sqlx.Tx, productID string) error {
	_, err := tx.Exec(`
		UPDATE products
		SET average_rating = stats.avg_rating,
		    total_reviews = stats.review_count,
		    updated_at = NOW()
		FROM (
			SELECT COALESCE(AVG(rating), 0) AS avg_rating, COUNT(*) AS review_count
			FROM reviews
			WHERE product_id = $1
		) AS stats
		WHERE products.id = $1
	`, productID)

	if err != nil {
		r.logger.Error("Failed to refresh product rating stats", "error", err, "productID", productID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a review by its ID
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*models.Review, error) {
	var review models.Review
	err := r.db.DB.GetContext(ctx, &review, `
		SELECT id, user_id, product_id, rating, comment, type, created_at, updated_at
		FROM reviews
		WHERE id = $1
	`, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("review %s not found", id))
		}
		r.logger.Error("Failed to get review by ID", "error", err, "reviewID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &review, nil
}

// GetByProductID retrieves all reviews for a product, newest first
func (r *ReviewRepository) GetByProductID(ctx context.Context, productID string, limit, offset int) ([]*models.Review, error) {
	var reviews []*models.Review
	err := r.db.DB.SelectContext(ctx, &reviews, `
		SELECT id, user_id, product_id, rating, comment, type, created_at, updated_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, productID, limit, offset)

	if err != nil {
		r.logger.Error("Failed to get reviews by product", "error", err, "productID", productID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return reviews, nil
}
