package domain

import "time"

// CartLine is one product/quantity pair held for a user prior to checkout.
// At most one line exists per (user, product); upserting the same product
// overwrites the quantity.
type CartLine struct {
	ProductID string    `bson:"product_id" json:"productId"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}

// Cart is the stored shape of a user's lines. It has no lifecycle of its
// own: it appears with the first line and is gone when the last line is
// removed. Consumers work with the line slice, not the document.
type Cart struct {
	ID        string     `bson:"_id,omitempty"`
	UserID    string     `bson:"user_id"`
	Lines     []CartLine `bson:"lines"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}
