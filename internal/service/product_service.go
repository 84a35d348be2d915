package service

import (
	"context"

	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

// ProductStore is the persistence surface the product service needs
type ProductStore interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetAll(ctx context.Context, limit, offset int) ([]*models.Product, error)
	GetByFarmerID(ctx context.Context, farmerID string, limit, offset int) ([]*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
}

// ProductCache is the read-through cache in front of product lookups
type ProductCache interface {
	Get(ctx context.Context, productID string) (*models.Product, bool)
	Set(ctx context.Context, product *models.Product)
	Invalidate(ctx context.Context, productID string)
}

// ProductService handles product listing CRUD with a cache in front of reads
type ProductService struct {
	products ProductStore
	cache    ProductCache
	logger   logger.Logger
}

// NewProductService creates a new ProductService
func NewProductService(products ProductStore, cache ProductCache, logger logger.Logger) *ProductService {
	return &ProductService{
		products: products,
		cache:    cache,
		logger:   logger,
	}
}

// CreateProduct lists a new product for a farmer
func (s *ProductService) CreateProduct(ctx context.Context, farmerID, name, description string, price float64, quantity int) (*models.Product, error) {
	if name == "" {
		return nil, apperrors.NewValidationError("product name is required")
	}

	if price <= 0 {
		return nil, apperrors.NewValidationError("product price must be positive")
	}

	if quantity < 0 {
		return nil, apperrors.NewValidationError("product quantity must not be negative")
	}

	product := models.NewProduct(farmerID, name, description, price, quantity)

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("Product created", "productID", product.ID, "farmerID", farmerID)

	return product, nil
}

// GetProduct retrieves a product, serving from cache when possible
func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if product, ok := s.cache.Get(ctx, id); ok {
		return product, nil
	}

	product, err := s.products.GetByID(ctx, id)

	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, product)

	return product, nil
}

// ListProducts retrieves products with pagination
func (s *ProductService) ListProducts(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	return s.products.GetAll(ctx, limit, offset)
}

// ListFarmerProducts retrieves a farmer's listed products
func (s *ProductService) ListFarmerProducts(ctx context.Context, farmerID string, limit, offset int) ([]*models.Product, error) {
	return s.products.GetByFarmerID(ctx, farmerID, limit, offset)
}

// UpdateProduct updates a listing. Only the owning farmer (or an admin) may
// change it; stock adjustments here are listing corrections, order flow keeps
// its own conditional updates.
func (s *ProductService) UpdateProduct(ctx context.Context, productID, actorID string, isAdmin bool, name, description string, price float64, quantity int) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, productID)

	if err != nil {
		return nil, err
	}

	if product.FarmerID != actorID && !isAdmin {
		return nil, apperrors.NewForbiddenError("only the owning farmer may modify a product")
	}

	if name != "" {
		product.Name = name
	}

	if description != "" {
		product.Description = description
	}

	if price > 0 {
		product.Price = price
	}

	if quantity >= 0 {
		product.Quantity = quantity
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, productID)
	s.logger.Info("Product updated", "productID", productID)

	return product, nil
}
