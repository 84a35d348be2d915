package service

import (
	"context"
	"errors"
	"testing"

	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

func newOrderFixture() (*OrderService, *fakeProductStore, *fakeOrderStore, *models.Product) {
	products := newFakeProductStore()
	product := models.NewProduct("farmer-1", "Tomatoes", "vine ripened", 12.50, 5)
	products.add(product)

	orders := newFakeOrderStore(products)
	svc := NewOrderService(orders, products, newFakeCache(), logger.NopLogger{})

	return svc, products, orders, product
}

func TestCreateOrderDecrementsStock(t *testing.T) {
	svc, products, _, product := newOrderFixture()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "cust-1", "wallet", []OrderLine{
		{ProductID: product.ID, Quantity: 2},
	})

	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if order.Status != models.OrderStatusPending {
		t.Errorf("order status = %s, want pending", order.Status)
	}

	if order.TotalAmount != 25.00 {
		t.Errorf("total = %.2f, want 25.00", order.TotalAmount)
	}

	if got := products.stock(product.ID); got != 3 {
		t.Errorf("stock after order = %d, want 3", got)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	svc, products, orders, product := newOrderFixture()
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, "cust-1", "wallet", []OrderLine{
		{ProductID: product.ID, Quantity: 10},
	})

	if !errors.Is(err, apperrors.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	if got := products.stock(product.ID); got != 5 {
		t.Errorf("stock after failed order = %d, want 5", got)
	}

	if n, _ := orders.Count(ctx); n != 0 {
		t.Errorf("failed order should not be persisted, found %d orders", n)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _, _, product := newOrderFixture()
	ctx := context.Background()

	if _, err := svc.CreateOrder(ctx, "cust-1", "wallet", nil); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("empty order should fail validation, got %v", err)
	}

	_, err := svc.CreateOrder(ctx, "cust-1", "wallet", []OrderLine{
		{ProductID: product.ID, Quantity: 0},
	})

	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("zero quantity should fail validation, got %v", err)
	}

	_, err = svc.CreateOrder(ctx, "cust-1", "wallet", []OrderLine{
		{ProductID: "prd-missing", Quantity: 1},
	})

	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("unknown product should be not found, got %v", err)
	}
}

func TestCancelOrderRestoresStock(t *testing.T) {
	svc, products, _, product := newOrderFixture()
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, "cust-1", "wallet", []OrderLine{
		{ProductID: product.ID, Quantity: 2},
	})

	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	cancelled, err := svc.CancelOrder(ctx, order.ID)

	if err != nil {
		t.Fatalf("CancelOrder failed: %v", err)
	}

	if cancelled.Status != models.OrderStatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	if got := products.stock(product.ID); got != 5 {
		t.Errorf("stock after cancel = %d, want 5", got)
	}
}

func TestCancelShippedOrderRejected(t *testing.T) {
	svc, products, _, product := newOrderFixture()
	ctx := context.Background()

	order, _ := svc.CreateOrder(ctx, "cust-1", "wallet", []OrderLine{
		{ProductID: product.ID, Quantity: 2},
	})

	for _, target := range []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
	} {
		if _, err := svc.UpdateOrderStatus(ctx, order.ID, target, nil); err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
	}

	_, err := svc.CancelOrder(ctx, order.ID)

	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("cancelling a shipped order should be rejected, got %v", err)
	}

	if got := products.stock(product.ID); got != 3 {
		t.Errorf("stock must stay decremented after rejected cancel, got %d", got)
	}
}

func TestUpdateOrderStatusRejectsIllegalMoves(t *testing.T) {
	svc, _, _, product := newOrderFixture()
	ctx := context.Background()

	order, _ := svc.CreateOrder(ctx, "cust-1", "wallet", []OrderLine{
		{ProductID: product.ID, Quantity: 1},
	})

	// pending may not jump straight to delivered
	if _, err := svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatusDelivered, nil); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("pending -> delivered should be rejected, got %v", err)
	}

	if _, err := svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatus("misplaced"), nil); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("unknown status should fail validation, got %v", err)
	}

	tracking := "TRK-42"

	for _, target := range []models.OrderStatus{
		models.OrderStatusConfirmed,
		models.OrderStatusProcessing,
	} {
		if _, err := svc.UpdateOrderStatus(ctx, order.ID, target, nil); err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
	}

	shipped, err := svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatusShipped, &tracking)

	if err != nil {
		t.Fatalf("transition to shipped failed: %v", err)
	}

	if shipped.TrackingNumber == nil || *shipped.TrackingNumber != tracking {
		t.Error("tracking number should be recorded on shipment")
	}

	// shipped may not move backwards
	if _, err := svc.UpdateOrderStatus(ctx, order.ID, models.OrderStatusPending, nil); err == nil {
		t.Error("shipped -> pending should be rejected")
	}
}
