package models

import (
	"time"
)

// Product represents a farmer's listed product with denormalized rating stats
type Product struct {
	ID            string    `db:"id" json:"id"`
	FarmerID      string    `db:"farmer_id" json:"farmer_id"`
	Name          string    `db:"name" json:"name"`
	Description   string    `db:"description" json:"description,omitempty"`
	Price         float64   `db:"price" json:"price"`
	Quantity      int       `db:"quantity" json:"quantity"`
	AverageRating float64   `db:"average_rating" json:"average_rating"`
	TotalReviews  int       `db:"total_reviews" json:"total_reviews"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// NewProduct creates a new product listing
func NewProduct(farmerID, name, description string, price float64, quantity int) *Product {
	now := GetCurrentTime()

	return &Product{
		ID:          GenerateID("prd"),
		FarmerID:    farmerID,
		Name:        name,
		Description: description,
		Price:       price,
		Quantity:    quantity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
