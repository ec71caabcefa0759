package orders

import (
	"context"

	"github.com/minishop/order-service/internal/inventory"
)

// OrderStore is the persistence boundary. Create and Delete are atomic over
// the order and its items; Delete returns the removed items so their stock
// can be returned to inventory.
type OrderStore interface {
	Create(ctx context.Context, o Order) (Order, error)
	Get(ctx context.Context, id int64) (Order, error)
	GetItems(ctx context.Context, id int64) ([]OrderItem, error)
	List(ctx context.Context, q ListQuery) ([]Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) (Order, error)
	Delete(ctx context.Context, id int64) ([]OrderItem, error)
}

// InventoryClient is the remote inventory boundary. Every call is a single
// bounded-timeout attempt.
type InventoryClient interface {
	GetProduct(ctx context.Context, productID int64) (inventory.Product, error)
	DeductStock(ctx context.Context, productID int64, quantity int) error
	AddStock(ctx context.Context, productID int64, quantity int) error
}
