package service

import (
	"context"
	"errors"
	"testing"

	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

func newProductFixture() (*ProductService, *fakeProductStore, *fakeCache) {
	products := newFakeProductStore()
	cache := newFakeCache()
	return NewProductService(products, cache, logger.NopLogger{}), products, cache
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, _ := newProductFixture()
	ctx := context.Background()

	if _, err := svc.CreateProduct(ctx, "farmer-1", "", "", 5, 10); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("empty name should fail validation, got %v", err)
	}

	if _, err := svc.CreateProduct(ctx, "farmer-1", "Eggs", "", 0, 10); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("zero price should fail validation, got %v", err)
	}

	if _, err := svc.CreateProduct(ctx, "farmer-1", "Eggs", "", 3, -1); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("negative quantity should fail validation, got %v", err)
	}

	product, err := svc.CreateProduct(ctx, "farmer-1", "Eggs", "free range", 3, 12)

	if err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	if product.FarmerID != "farmer-1" || product.Quantity != 12 {
		t.Error("product fields not carried through")
	}
}

func TestGetProductReadThroughCache(t *testing.T) {
	svc, products, cache := newProductFixture()
	ctx := context.Background()

	product := models.NewProduct("farmer-1", "Milk", "", 2.50, 30)
	products.add(product)

	got, err := svc.GetProduct(ctx, product.ID)

	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}

	if got.ID != product.ID {
		t.Errorf("got product %s, want %s", got.ID, product.ID)
	}

	if _, ok := cache.entries[product.ID]; !ok {
		t.Error("miss should populate the cache")
	}

	// Serve from cache even after the store loses the row
	delete(products.products, product.ID)

	if _, err := svc.GetProduct(ctx, product.ID); err != nil {
		t.Errorf("cached product should still be served, got %v", err)
	}
}

func TestUpdateProductOwnership(t *testing.T) {
	svc, products, cache := newProductFixture()
	ctx := context.Background()

	product := models.NewProduct("farmer-1", "Milk", "", 2.50, 30)
	products.add(product)
	cache.Set(ctx, product)

	_, err := svc.UpdateProduct(ctx, product.ID, "farmer-2", false, "Oat milk", "", 3, 30)

	if !errors.Is(err, apperrors.ErrForbidden) {
		t.Fatalf("non-owner update should be forbidden, got %v", err)
	}

	updated, err := svc.UpdateProduct(ctx, product.ID, "farmer-1", false, "Whole milk", "", 3, 25)

	if err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}

	if updated.Name != "Whole milk" || updated.Price != 3 || updated.Quantity != 25 {
		t.Error("update not applied")
	}

	if _, ok := cache.entries[product.ID]; ok {
		t.Error("update should invalidate the cache entry")
	}
}
