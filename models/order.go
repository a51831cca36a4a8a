package models

import "time"

// Order statuses. An order starts life as a cart and receives its order
// number exactly once, at checkout.
const (
	OrderStatusCart      = "cart"
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// OrderItem is a single line of an order with the unit price captured at the
// time the item was added.
type OrderItem struct {
	ItemId   string  `json:"itemId" bson:"itemId"`
	ItemName string  `json:"itemName" bson:"itemName"`
	Quantity int     `json:"quantity" bson:"quantity"`
	Price    float64 `json:"price" bson:"price"` // unit price snapshot
}

// Order represents a cart or a finalized order. OrderNumber is present if and
// only if the order has left the cart state; carts carry no number so the
// partial unique index on orderNumber never sees them.
type Order struct {
	OrderID     string      `json:"orderId" bson:"orderid"`
	UserID      string      `json:"userId" bson:"userId"`
	Status      string      `json:"status" bson:"status"`
	OrderNumber *int64      `json:"orderNumber,omitempty" bson:"orderNumber,omitempty"`
	Items       []OrderItem `json:"items" bson:"items"`
	Subtotal    float64     `json:"subtotal" bson:"subtotal"`
	Total       float64     `json:"total" bson:"total"`
	CreatedAt   time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt" bson:"updatedAt"`
}
