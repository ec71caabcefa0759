package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

const StatusConfirmed = "confirmed"

type Order struct {
	ID              int64           `json:"order_id"`
	UserID          int64           `json:"user_id"`
	ShippingAddress string          `json:"shipping_address"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          string          `json:"status"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID              int64           `json:"order_item_id"`
	OrderID         int64           `json:"order_id"`
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	ItemTotal       decimal.Decimal `json:"item_total"`
}

type CreateOrderRequest struct {
	UserID          int64             `json:"user_id"`
	ShippingAddress string            `json:"shipping_address"`
	Items           []CreateOrderItem `json:"items"`
}

type CreateOrderItem struct {
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// RestockEntry is one pending stock reversal. Entries accumulate in order
// while reservations succeed and are replayed by releaseStock when a later
// step fails.
type RestockEntry struct {
	ProductID int64
	Quantity  int
}

type ListQuery struct {
	Skip   int
	Limit  int
	UserID *int64
	Status string
}
