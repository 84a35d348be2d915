package models

import (
	"strings"
	"testing"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusDelivered, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusShipped, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusRefunded, true},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{OrderStatusRefunded, OrderStatusDelivered, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	if !OrderStatusCancelled.IsTerminal() {
		t.Error("cancelled should be terminal")
	}

	if !OrderStatusRefunded.IsTerminal() {
		t.Error("refunded should be terminal")
	}

	if OrderStatusPending.IsTerminal() {
		t.Error("pending should not be terminal")
	}

	if OrderStatusShipped.IsTerminal() {
		t.Error("shipped should not be terminal")
	}
}

func TestOrderStatusCanBeCancelled(t *testing.T) {
	cancellable := []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing}

	for _, s := range cancellable {
		if !s.CanBeCancelled() {
			t.Errorf("%s should be cancellable", s)
		}
	}

	notCancellable := []OrderStatus{OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded}

	for _, s := range notCancellable {
		if s.CanBeCancelled() {
			t.Errorf("%s should not be cancellable", s)
		}
	}
}

func TestOrderStatusIsValid(t *testing.T) {
	if !OrderStatusProcessing.IsValid() {
		t.Error("processing should be a valid status")
	}

	if OrderStatus("teleported").IsValid() {
		t.Error("unknown status should not be valid")
	}
}

func TestOrderStatusTransitionError(t *testing.T) {
	err := OrderStatusShipped.TransitionError(OrderStatusPending)

	if !strings.Contains(err.Error(), "shipped") || !strings.Contains(err.Error(), "pending") {
		t.Errorf("transition error should name both statuses, got %q", err.Error())
	}
}

func TestNewOrderComputesTotals(t *testing.T) {
	items := []*OrderItem{
		{ProductID: "prd-1", Quantity: 2, UnitPrice: 10.50},
		{ProductID: "prd-2", Quantity: 3, UnitPrice: 4.00},
	}

	order := NewOrder("cust-1", "wallet", items)

	if order.Status != OrderStatusPending {
		t.Errorf("new order status = %s, want pending", order.Status)
	}

	if order.TotalAmount != 33.00 {
		t.Errorf("total = %.2f, want 33.00", order.TotalAmount)
	}

	if items[0].LineTotal != 21.00 {
		t.Errorf("line total = %.2f, want 21.00", items[0].LineTotal)
	}

	for _, item := range order.Items {
		if item.OrderID != order.ID {
			t.Errorf("item order id = %s, want %s", item.OrderID, order.ID)
		}

		if item.ID == "" {
			t.Error("item should get an id")
		}
	}

	if !strings.HasPrefix(order.ID, "ord-") {
		t.Errorf("order id %q should carry the ord prefix", order.ID)
	}
}
