package service

import (
	"context"
	"fmt"

	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
	"github.com/agrimarket/marketplace-api/pkg/middleware"
)

// OrderStore is the persistence surface the order service needs
type OrderStore interface {
	CreateWithItems(ctx context.Context, order *models.Order, outboxMsg *models.OutboxMessage) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetAll(ctx context.Context, limit, offset int) ([]*models.Order, error)
	GetByCustomerID(ctx context.Context, customerID string, limit, offset int) ([]*models.Order, error)
	UpdateStatus(ctx context.Context, order *models.Order, previousStatus models.OrderStatus, outboxMsg *models.OutboxMessage) error
	CancelWithRestock(ctx context.Context, order *models.Order, previousStatus models.OrderStatus, outboxMsg *models.OutboxMessage) error
	Count(ctx context.Context) (int, error)
}

// ProductReader resolves products for pricing and existence checks
type ProductReader interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
}

// ProductInvalidator drops cached product entries after a stock mutation
type ProductInvalidator interface {
	Invalidate(ctx context.Context, productID string)
}

// OrderLine is one requested product+quantity pair at checkout
type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderService handles order lifecycle operations
type OrderService struct {
	orders   OrderStore
	products ProductReader
	cache    ProductInvalidator
	logger   logger.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(orders OrderStore, products ProductReader, cache ProductInvalidator, logger logger.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		cache:    cache,
		logger:   logger,
	}
}

// CreateOrder prices the requested lines, creates a pending order, and
// decrements stock. The store runs the stock checks and decrements in a single
// transaction, so either every line is reserved or nothing is.
func (s *OrderService) CreateOrder(ctx context.Context, customerID, paymentMethod string, lines []OrderLine) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, apperrors.NewValidationError("order must contain at least one line item")
	}

	items := make([]*models.OrderItem, 0, len(lines))

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("quantity for product %s must be positive", line.ProductID))
		}

		product, err := s.products.GetByID(ctx, line.ProductID)

		if err != nil {
			return nil, err
		}

		items = append(items, &models.OrderItem{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
		})
	}

	order := models.NewOrder(customerID, paymentMethod, items)

	outboxMsg, err := models.NewOrderCreatedEvent(order)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	if err := s.orders.CreateWithItems(ctx, order, outboxMsg); err != nil {
		middleware.RecordDomainOperation("order_create", false)
		return nil, err
	}

	for _, item := range order.Items {
		s.cache.Invalidate(ctx, item.ProductID)
	}

	middleware.RecordDomainOperation("order_create", true)
	s.logger.Info("Order created", "orderID", order.ID, "customerID", customerID, "total", order.TotalAmount)

	return order, nil
}

// UpdateOrderStatus moves an order along the transition table. Cancellation is
// routed through CancelOrder so the stock restore always happens with it.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, target models.OrderStatus, trackingNumber *string) (*models.Order, error) {
	if !target.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown order status %q", target))
	}

	if target == models.OrderStatusCancelled {
		return s.CancelOrder(ctx, orderID)
	}

	order, err := s.orders.GetByID(ctx, orderID)

	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(target) {
		return nil, apperrors.NewInvalidTransitionError(order.Status.TransitionError(target).Error())
	}

	previousStatus := order.Status
	order.Status = target

	if trackingNumber != nil {
		order.TrackingNumber = trackingNumber
	}

	outboxMsg, err := models.NewOrderStatusChangedEvent(order, previousStatus)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	if err := s.orders.UpdateStatus(ctx, order, previousStatus, outboxMsg); err != nil {
		middleware.RecordDomainOperation("order_status_change", false)
		return nil, err
	}

	middleware.RecordDomainOperation("order_status_change", true)
	s.logger.Info("Order status updated",
		"orderID", order.ID,
		"oldStatus", previousStatus,
		"newStatus", target)

	return order, nil
}

// CancelOrder cancels a non-terminal pre-shipment order and restores exactly
// the stock its line items decremented.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)

	if err != nil {
		return nil, err
	}

	if !order.Status.CanBeCancelled() {
		return nil, apperrors.NewInvalidTransitionError(
			order.Status.TransitionError(models.OrderStatusCancelled).Error())
	}

	previousStatus := order.Status

	outboxMsg, err := models.NewOrderCancelledEvent(order, previousStatus)

	if err != nil {
		s.logger.Error("Failed to create outbox message", "error", err)
		return nil, fmt.Errorf("failed to create outbox message: %w", err)
	}

	if err := s.orders.CancelWithRestock(ctx, order, previousStatus, outboxMsg); err != nil {
		middleware.RecordDomainOperation("order_cancel", false)
		return nil, err
	}

	order.Status = models.OrderStatusCancelled

	for _, item := range order.Items {
		s.cache.Invalidate(ctx, item.ProductID)
	}

	middleware.RecordDomainOperation("order_cancel", true)
	s.logger.Info("Order cancelled", "orderID", order.ID, "previousStatus", previousStatus)

	return order, nil
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// GetAllOrders retrieves all orders with pagination
func (s *OrderService) GetAllOrders(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	return s.orders.GetAll(ctx, limit, offset)
}

// GetCustomerOrders retrieves a customer's orders with pagination
func (s *OrderService) GetCustomerOrders(ctx context.Context, customerID string, limit, offset int) ([]*models.Order, error) {
	return s.orders.GetByCustomerID(ctx, customerID, limit, offset)
}

// CountOrders counts the total number of orders
func (s *OrderService) CountOrders(ctx context.Context) (int, error) {
	return s.orders.Count(ctx)
}
