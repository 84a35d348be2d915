package models

import (
	"time"
)

// ReviewType distinguishes product reviews from farmer reviews
type ReviewType string

const (
	ReviewTypeProduct ReviewType = "product"
	ReviewTypeFarmer  ReviewType = "farmer"
)

// Review is one user's rating of a product. At most one per (user, product).
type Review struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	ProductID string     `db:"product_id" json:"product_id"`
	Rating    int        `db:"rating" json:"rating"`
	Comment   string     `db:"comment" json:"comment,omitempty"`
	Type      ReviewType `db:"type" json:"type"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// ValidRating reports whether the rating is an integer in [1, 5]
func ValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}

// NewReview creates a new review
func NewReview(userID, productID string, rating int, comment string, reviewType ReviewType) *Review {
	now := GetCurrentTime()

	return &Review{
		ID:        GenerateID("rev"),
		UserID:    userID,
		ProductID: productID,
		Rating:    rating,
		Comment:   comment,
		Type:      reviewType,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
