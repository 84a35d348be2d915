package models

import (
	"fmt"
	"time"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// orderTransitions is the single source of truth for legal status changes.
// cancelled and refunded are terminal.
var orderTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:    {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed:  {OrderStatusProcessing: true, OrderStatusCancelled: true},
	OrderStatusProcessing: {OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusShipped:    {OrderStatusDelivered: true},
	OrderStatusDelivered:  {OrderStatusRefunded: true},
	OrderStatusCancelled:  {},
	OrderStatusRefunded:   {},
}

// CanTransitionTo reports whether the status may move to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	return orderTransitions[s][target]
}

// IsValid reports whether the status is a known order status
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are allowed
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanBeCancelled reports whether the order may still be cancelled from this status
func (s OrderStatus) CanBeCancelled() bool {
	return orderTransitions[s][OrderStatusCancelled]
}

// TransitionError builds the caller-facing message for a rejected transition,
// naming both the current and the requested status.
func (s OrderStatus) TransitionError(target OrderStatus) error {
	return fmt.Errorf("invalid transition from %q to %q", s, target)
}

// OrderItem is one product line within an order
type OrderItem struct {
	ID        string  `db:"id" json:"id"`
	OrderID   string  `db:"order_id" json:"order_id"`
	ProductID string  `db:"product_id" json:"product_id"`
	Quantity  int     `db:"quantity" json:"quantity"`
	UnitPrice float64 `db:"unit_price" json:"unit_price"`
	LineTotal float64 `db:"line_total" json:"line_total"`
}

// Order represents a customer order. Orders are never physically deleted.
type Order struct {
	ID             string      `db:"id" json:"id"`
	CustomerID     string      `db:"customer_id" json:"customer_id"`
	TotalAmount    float64     `db:"total_amount" json:"total_amount"`
	Status         OrderStatus `db:"status" json:"status"`
	PaymentMethod  string      `db:"payment_method" json:"payment_method"`
	TrackingNumber *string     `db:"tracking_number" json:"tracking_number,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`

	Items []*OrderItem `db:"-" json:"items,omitempty"`
}

// NewOrder creates a pending order from line items. Each item's line total and
// the order total are computed here; the total is fixed at creation time.
func NewOrder(customerID, paymentMethod string, items []*OrderItem) *Order {
	now := GetCurrentTime()

	order := &Order{
		ID:            GenerateID("ord"),
		CustomerID:    customerID,
		Status:        OrderStatusPending,
		PaymentMethod: paymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var total float64

	for _, item := range items {
		item.ID = GenerateID("itm")
		item.OrderID = order.ID
		item.LineTotal = item.UnitPrice * float64(item.Quantity)
		total += item.LineTotal
	}

	order.Items = items
	order.TotalAmount = total

	return order
}
