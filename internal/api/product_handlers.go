package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agrimarket/marketplace-api/pkg/middleware"
)

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

// createProductHandler lists a new product for the authenticated farmer
func (s *Server) createProductHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())

	var req productRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	product, err := s.productService.CreateProduct(r.Context(), actor.UserID, req.Name, req.Description, req.Price, req.Quantity)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusCreated, ApiResponse{
		Success: true,
		Data:    product,
	})
}

// getProductsHandler lists products, optionally filtered to one farmer
func (s *Server) getProductsHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	if farmerID := r.URL.Query().Get("farmer_id"); farmerID != "" {
		products, err := s.productService.ListFarmerProducts(r.Context(), farmerID, limit, offset)

		if err != nil {
			s.respondWithAppError(w, err)
			return
		}

		s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: products})
		return
	}

	products, err := s.productService.ListProducts(r.Context(), limit, offset)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    products,
	})
}

// getProductByIDHandler returns one product
func (s *Server) getProductByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	product, err := s.productService.GetProduct(r.Context(), id)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    product,
	})
}

// updateProductHandler updates a product listing
func (s *Server) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFrom(r.Context())
	id := mux.Vars(r)["id"]

	var req productRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	isAdmin := actor.Role == middleware.RoleAdmin

	product, err := s.productService.UpdateProduct(r.Context(), id, actor.UserID, isAdmin, req.Name, req.Description, req.Price, req.Quantity)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    product,
	})
}
