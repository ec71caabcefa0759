package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/minishop/order-service/internal/inventory"
	"github.com/minishop/order-service/internal/metrics"
)

// Service coordinates the order workflow against two systems that share no
// transaction: the inventory service (stock) and the order store. Creation
// reserves stock item by item and persists the order only when every
// reservation succeeded; any failure in between releases exactly the
// already-reserved prefix.
type Service struct {
	log       *slog.Logger
	store     OrderStore
	inventory InventoryClient
	metrics   *metrics.Metrics
}

func NewService(log *slog.Logger, store OrderStore, inv InventoryClient, m *metrics.Metrics) *Service {
	return &Service{log: log, store: store, inventory: inv, metrics: m}
}

// CreateOrder runs the reservation saga. Items are processed strictly
// sequentially so that on failure the pending reversals are exactly the
// prefix that succeeded.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (Order, error) {
	if len(req.Items) == 0 {
		s.metrics.OrderCreated("no_items")
		return Order{}, ErrEmptyOrder
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 {
			s.metrics.OrderCreated("invalid_quantity")
			return Order{}, fmt.Errorf("product %d: %w", it.ProductID, ErrInvalidQuantity)
		}
	}

	s.log.Info("creating order", "user_id", req.UserID, "items", len(req.Items))

	journal := make([]RestockEntry, 0, len(req.Items))
	for _, it := range req.Items {
		snap, err := s.inventory.GetProduct(ctx, it.ProductID)
		if err != nil {
			s.releaseStock(ctx, journal)
			s.metrics.OrderCreated(creationOutcome(err))
			return Order{}, err
		}

		if snap.StockQuantity < it.Quantity {
			s.log.Warn("insufficient stock",
				"product_id", it.ProductID, "product", snap.Name,
				"requested", it.Quantity, "available", snap.StockQuantity)
			s.releaseStock(ctx, journal)
			s.metrics.OrderCreated("insufficient_stock")
			return Order{}, fmt.Errorf("product %q: requested %d, available %d: %w",
				snap.Name, it.Quantity, snap.StockQuantity, inventory.ErrInsufficientStock)
		}

		if err := s.inventory.DeductStock(ctx, it.ProductID, it.Quantity); err != nil {
			s.releaseStock(ctx, journal)
			s.metrics.OrderCreated(creationOutcome(err))
			return Order{}, err
		}
		journal = append(journal, RestockEntry{ProductID: it.ProductID, Quantity: it.Quantity})
		s.metrics.ItemsReserved(it.ProductID, it.Quantity)
		s.log.Info("stock reserved", "product_id", it.ProductID, "quantity", it.Quantity)
	}

	total := decimal.Zero
	items := make([]OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		line := it.PriceAtPurchase.Mul(decimal.NewFromInt(int64(it.Quantity)))
		items = append(items, OrderItem{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtPurchase,
			ItemTotal:       line,
		})
		total = total.Add(line)
	}

	created, err := s.store.Create(ctx, Order{
		UserID:          req.UserID,
		ShippingAddress: req.ShippingAddress,
		TotalAmount:     total,
		Status:          StatusConfirmed,
		Items:           items,
	})
	if err != nil {
		// Stock is already deducted remotely and no order record exists.
		// No compensation is attempted here; the deduction must be
		// reconciled by hand.
		s.log.Error("order save failed after successful stock deduction; manual intervention required",
			"user_id", req.UserID, "total_amount", total.String(), "err", err)
		s.metrics.OrderCreated("db_error")
		return Order{}, fmt.Errorf("%w: %v", ErrInconsistentState, err)
	}

	s.metrics.OrderCreated("success")
	amount, _ := total.Float64()
	s.metrics.ObserveOrderTotal(amount)
	s.log.Info("order confirmed", "order_id", created.ID, "user_id", created.UserID, "total_amount", total.String())
	return created, nil
}

// releaseStock replays the journal of pending reversals, one add-stock call
// per entry. Calls are independent and best-effort: a failed reversal is
// logged and counted, then abandoned. Failures never reach the caller.
func (s *Service) releaseStock(ctx context.Context, journal []RestockEntry) {
	if len(journal) == 0 {
		return
	}
	s.log.Warn("rolling back stock deductions", "count", len(journal))
	for _, e := range journal {
		if err := s.inventory.AddStock(ctx, e.ProductID, e.Quantity); err != nil {
			s.metrics.RestockFailed()
			s.log.Error("stock rollback failed; manual intervention required",
				"product_id", e.ProductID, "quantity", e.Quantity, "err", err)
			continue
		}
		s.log.Info("stock restored", "product_id", e.ProductID, "quantity", e.Quantity)
	}
}

func (s *Service) GetOrder(ctx context.Context, id int64) (Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) GetOrderItems(ctx context.Context, id int64) ([]OrderItem, error) {
	return s.store.GetItems(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, q ListQuery) ([]Order, error) {
	return s.store.List(ctx, q)
}

// UpdateStatus sets the order's status to any non-empty string the caller
// provides. Transition legality is deliberately not checked.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (Order, error) {
	o, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			s.metrics.StatusUpdated("not_found")
		} else {
			s.metrics.StatusUpdated("db_error")
		}
		return Order{}, err
	}
	s.metrics.StatusUpdated("success")
	s.log.Info("order status updated", "order_id", id, "status", status)
	return o, nil
}

// DeleteOrder removes the order and its items, then returns each item's
// quantity to inventory. Restocking starts only after the delete committed;
// if the delete fails nothing is restocked. Restock failures do not affect
// the result. The removed items are returned to the caller.
func (s *Service) DeleteOrder(ctx context.Context, id int64) ([]OrderItem, error) {
	items, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("order deleted", "order_id", id, "items", len(items))

	journal := make([]RestockEntry, 0, len(items))
	for _, it := range items {
		journal = append(journal, RestockEntry{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	s.releaseStock(ctx, journal)
	return items, nil
}

func creationOutcome(err error) string {
	switch {
	case errors.Is(err, inventory.ErrUnavailable):
		return "inventory_unavailable"
	case errors.Is(err, inventory.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, inventory.ErrInsufficientStock):
		return "insufficient_stock"
	default:
		return "inventory_error"
	}
}
