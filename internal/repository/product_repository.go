package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agrimarket/marketplace-api/internal/database"
	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

var (
	// ErrDatabase wraps unexpected driver-level failures
	ErrDatabase = errors.New("database error")
)

// ProductRepository handles database operations for products
type ProductRepository struct {
	db     *database.Database
	logger logger.Logger
}

// NewProductRepository creates a new ProductRepository
func NewProductRepository(db *database.Database, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new product
func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, farmer_id, name, description, price, quantity, average_rating, total_reviews, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.DB.ExecContext(
		ctx,
		query,
		product.ID,
		product.FarmerID,
		product.Name,
		product.Description,
		product.Price,
		product.Quantity,
		product.AverageRating,
		product.TotalReviews,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create product", "error", err, "productID", product.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// GetByID retrieves a product by its ID
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	query := `
		SELECT id, farmer_id, name, description, price, quantity, average_rating, total_reviews, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var product models.Product
	err := r.db.DB.GetContext(ctx, &product, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
		}
		r.logger.Error("Failed to get product by ID", "error", err, "productID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &product, nil
}

// GetAll retrieves products with pagination
func (r *ProductRepository) GetAll(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	query := `
		SELECT id, farmer_id, name, description, price, quantity, average_rating, total_reviews, created_at, updated_at
		FROM products
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var products []*models.Product
	err := r.db.DB.SelectContext(ctx, &products, query, limit, offset)

	if err != nil {
		r.logger.Error("Failed to get products", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return products, nil
}

// GetByFarmerID retrieves all products listed by a farmer
func (r *ProductRepository) GetByFarmerID(ctx context.Context, farmerID string, limit, offset int) ([]*models.Product, error) {
	query := `
		SELECT id, farmer_id, name, description, price, quantity, average_rating, total_reviews, created_at, updated_at
		FROM products
		WHERE farmer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var products []*models.Product
	err := r.db.DB.SelectContext(ctx, &products, query, farmerID, limit, offset)

	if err != nil {
		r.logger.Error("Failed to get products by farmer", "error", err, "farmerID", farmerID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return products, nil
}

// Update updates a product's listing fields. Stock is only mutated through
// order creation and cancellation, never through this method.
func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, quantity = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.db.DB.ExecContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.Quantity,
		models.GetCurrentTime(),
		product.ID,
	)

	if err != nil {
		r.logger.Error("Failed to update product", "error", err, "productID", product.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", product.ID))
	}

	return nil
}
