package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agrimarket/marketplace-api/internal/models"
	"github.com/agrimarket/marketplace-api/internal/service"
	"github.com/agrimarket/marketplace-api/pkg/middleware"
)

type createOrderRequest struct {
	PaymentMethod string              `json:"payment_method"`
	Items         []service.OrderLine `json:"items"`
}

type updateOrderStatusRequest struct {
	Status         string  `json:"status"`
	TrackingNumber *string `json:"tracking_number,omitempty"`
}

// createOrderHandler places a new order for the authenticated customer
func (s *Server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())

	var req createOrderRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	order, err := s.orderService.CreateOrder(r.Context(), actor.UserID, req.PaymentMethod, req.Items)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{
		Success: true,
		Data:    order,
	})
}

// getOrdersHandler lists orders. Admins see everything; customers see their own.
func (s *Server) getOrdersHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	limit, offset := pagination(r)

	var (
		orders []*models.Order
		err    error
	)

	if actor.Role == middleware.RoleAdmin {
		orders, err = s.orderService.GetAllOrders(r.Context(), limit, offset)
	} else {
		orders, err = s.orderService.GetCustomerOrders(r.Context(), actor.UserID, limit, offset)
	}

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    orders,
	})
}

// getOrderByIDHandler returns one order, visible to its customer and to admins
func (s *Server) getOrderByIDHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id := mux.Vars(r)["id"]

	order, err := s.orderService.GetOrder(r.Context(), id)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	if order.CustomerID != actor.UserID && actor.Role != middleware.RoleAdmin {
		s.respondWithError(w, http.StatusForbidden, "order belongs to another customer")
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    order,
	})
}

// getCustomerOrdersHandler lists one customer's orders. Customers may list
// their own; admins may list anyone's.
func (s *Server) getCustomerOrdersHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	customerID := mux.Vars(r)["id"]

	if customerID != actor.UserID && actor.Role != middleware.RoleAdmin {
		s.respondWithError(w, http.StatusForbidden, "orders belong to another customer")
		return
	}

	limit, offset := pagination(r)

	orders, err := s.orderService.GetCustomerOrders(r.Context(), customerID, limit, offset)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    orders,
	})
}

// updateOrderStatusHandler moves an order along its lifecycle
func (s *Server) updateOrderStatusHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req updateOrderStatusRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	order, err := s.orderService.UpdateOrderStatus(r.Context(), id, models.OrderStatus(req.Status), req.TrackingNumber)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    order,
	})
}

// cancelOrderHandler cancels an order and restores its reserved stock. A
// customer may cancel their own order; admins may cancel any.
func (s *Server) cancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id := mux.Vars(r)["id"]

	order, err := s.orderService.GetOrder(r.Context(), id)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	if order.CustomerID != actor.UserID && actor.Role != middleware.RoleAdmin {
		s.respondWithError(w, http.StatusForbidden, "order belongs to another customer")
		return
	}

	cancelled, err := s.orderService.CancelOrder(r.Context(), id)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    cancelled,
	})
}
