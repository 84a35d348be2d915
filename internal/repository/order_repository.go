package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/agrimarket/marketplace-api/internal/database"
	"github.com/agrimarket/marketplace-api/internal/models"
	apperrors "github.com/agrimarket/marketplace-api/pkg/errors"
	"github.com/agrimarket/marketplace-api/pkg/logger"
)

// OrderRepository handles database operations for orders
type OrderRepository struct {
	db         *database.Database
	outboxRepo *OutboxRepository
	logger     logger.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *database.Database, outboxRepo *OutboxRepository, logger logger.Logger) *OrderRepository {
	return &OrderRepository{
		db:         db,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateWithItems inserts an order, its line items, and the outbox event in a
// single transaction. Stock for every line is decremented with a conditional
// update; any line with insufficient stock aborts the whole transaction so no
// partial decrement is ever committed.
func (r *OrderRepository) CreateWithItems(ctx context.Context, order *models.Order, outboxMsg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	for _, item := range order.Items {
		if err := r.decrementStockInTx(tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	orderQuery := `
		INSERT INTO orders (id, customer_id, total_amount, status, payment_method, tracking_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = tx.ExecContext(
		ctx,
		orderQuery,
		order.ID,
		order.CustomerID,
		order.TotalAmount,
		order.Status,
		order.PaymentMethod,
		order.TrackingNumber,
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create order", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, itemQuery, item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.LineTotal)

		if err != nil {
			r.logger.Error("Failed to create order item", "error", err, "orderID", order.ID, "productID", item.ProductID)
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
	}

	if err = r.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		r.logger.Error("Failed to commit order transaction", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// decrementStockInTx applies "decrement only if quantity >= requested" as one
// atomic statement. Zero rows affected means the product is missing or short.
func (r *OrderRepository) decrementStockInTx(tx *sqlx.Tx, productID string, quantity int) error {
	result, err := tx.Exec(`
		UPDATE products
		SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND quantity >= $2
	`, productID, quantity)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		var exists bool

		if err := tx.Get(&exists, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}

		if !exists {
			return apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", productID))
		}

		return apperrors.NewInsufficientStockError(fmt.Sprintf("insufficient stock for product %s", productID))
	}

	return nil
}

// GetByID retrieves an order and its line items
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `
		SELECT id, customer_id, total_amount, status, payment_method, tracking_number, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order models.Order
	err := r.db.DB.GetContext(ctx, &order, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", id))
		}
		r.logger.Error("Failed to get order by ID", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	itemQuery := `
		SELECT id, order_id, product_id, quantity, unit_price, line_total
		FROM order_items
		WHERE order_id = $1
	`

	if err := r.db.DB.SelectContext(ctx, &order.Items, itemQuery, id); err != nil {
		r.logger.Error("Failed to get order items", "error", err, "orderID", id)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return &order, nil
}

// GetAll retrieves orders with pagination
func (r *OrderRepository) GetAll(ctx context.Context, limit, offset int) ([]*models.Order, error) {
	query := `
		SELECT id, customer_id, total_amount, status, payment_method, tracking_number, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, limit, offset)

	if err != nil {
		r.logger.Error("Failed to get all orders", "error", err, "limit", limit, "offset", offset)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// GetByCustomerID retrieves all orders for a specific customer
func (r *OrderRepository) GetByCustomerID(ctx context.Context, customerID string, limit, offset int) ([]*models.Order, error) {
	query := `
		SELECT id, customer_id, total_amount, status, payment_method, tracking_number, created_at, updated_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	var orders []*models.Order
	err := r.db.DB.SelectContext(ctx, &orders, query, customerID, limit, offset)

	if err != nil {
		r.logger.Error("Failed to get orders by customer ID", "error", err, "customerID", customerID)
		return nil, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return orders, nil
}

// UpdateStatus persists a status change and its outbox event in one transaction.
// The WHERE clause re-checks the expected previous status so a concurrent
// transition cannot be overwritten.
func (r *OrderRepository) UpdateStatus(ctx context.Context, order *models.Order, previousStatus models.OrderStatus, outboxMsg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, tracking_number = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`, order.Status, order.TrackingNumber, models.GetCurrentTime(), order.ID, previousStatus)

	if err != nil {
		r.logger.Error("Failed to update order status", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("order %s was modified concurrently", order.ID))
	}

	if err = r.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		r.logger.Error("Failed to commit status transaction", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// CancelWithRestock flips the order to cancelled and restores exactly the
// quantities its line items decremented, all in one transaction.
func (r *OrderRepository) CancelWithRestock(ctx context.Context, order *models.Order, previousStatus models.OrderStatus, outboxMsg *models.OutboxMessage) error {
	tx, err := r.db.DB.BeginTxx(ctx, nil)

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, models.OrderStatusCancelled, models.GetCurrentTime(), order.ID, previousStatus)

	if err != nil {
		r.logger.Error("Failed to cancel order", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	rowsAffected, err := result.RowsAffected()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	if rowsAffected == 0 {
		return apperrors.NewConflictError(fmt.Sprintf("order %s was modified concurrently", order.ID))
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET quantity = quantity + $2, updated_at = NOW()
			WHERE id = $1
		`, item.ProductID, item.Quantity)

		if err != nil {
			r.logger.Error("Failed to restore stock", "error", err, "orderID", order.ID, "productID", item.ProductID)
			return fmt.Errorf("%w: %v", ErrDatabase, err)
		}
	}

	if err = r.outboxRepo.CreateInTx(tx, outboxMsg); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		r.logger.Error("Failed to commit cancel transaction", "error", err, "orderID", order.ID)
		return fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return nil
}

// Count counts the total number of orders
func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM orders`

	err := r.db.DB.GetContext(ctx, &count, query)

	if err != nil {
		r.logger.Error("Failed to count orders", "error", err)
		return 0, fmt.Errorf("%w: %v", ErrDatabase, err)
	}

	return count, nil
}
