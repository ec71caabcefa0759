package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo implements OrderStore on postgres.
type Repo struct{ DB *pgxpool.Pool }

// Create inserts the order and its items in one transaction and returns the
// stored order with assigned identifiers.
func (r *Repo) Create(ctx context.Context, o Order) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, shipping_address, total_amount, status)
		VALUES ($1, $2, $3::numeric, $4)
		RETURNING order_id, created_at, updated_at`,
		o.UserID, o.ShippingAddress, o.TotalAmount.String(), o.Status,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price_at_purchase, item_total)
			VALUES ($1, $2, $3, $4::numeric, $5::numeric)
			RETURNING order_item_id`,
			o.ID, it.ProductID, it.Quantity, it.PriceAtPurchase.String(), it.ItemTotal.String(),
		).Scan(&it.ID)
		if err != nil {
			return Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `
		SELECT order_id, user_id, shipping_address, total_amount::text, status, created_at, updated_at
		FROM orders WHERE order_id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
		}
		return Order{}, err
	}
	o.Items, err = r.GetItems(ctx, id)
	if err != nil && !errors.Is(err, ErrOrderNotFound) {
		return Order{}, err
	}
	return o, nil
}

func (r *Repo) GetItems(ctx context.Context, id int64) ([]OrderItem, error) {
	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE order_id=$1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT order_item_id, order_id, product_id, quantity, price_at_purchase::text, item_total::text
		FROM order_items WHERE order_id=$1 ORDER BY order_item_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItems(rows)
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]Order, error) {
	conds := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if q.UserID != nil {
		args = append(args, *q.UserID)
		conds = append(conds, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, q.Status)
		conds = append(conds, fmt.Sprintf("status=$%d", len(args)))
	}

	sql := `SELECT order_id, user_id, shipping_address, total_amount::text, status, created_at, updated_at FROM orders`
	if len(conds) > 0 {
		sql += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, q.Skip)
	sql += fmt.Sprintf(" ORDER BY order_id OFFSET $%d", len(args))
	args = append(args, q.Limit)
	sql += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Order, 0)
	ids := make([]int64, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	itemRows, err := r.DB.Query(ctx, `
		SELECT order_item_id, order_id, product_id, quantity, price_at_purchase::text, item_total::text
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_item_id`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	items, err := scanItems(itemRows)
	if err != nil {
		return nil, err
	}

	byOrder := make(map[int64][]OrderItem, len(out))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range out {
		out[i].Items = byOrder[out[i].ID]
	}
	return out, nil
}

func (r *Repo) UpdateStatus(ctx context.Context, id int64, status string) (Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `
		UPDATE orders SET status=$2, updated_at=now()
		WHERE order_id=$1
		RETURNING order_id, user_id, shipping_address, total_amount::text, status, created_at, updated_at`,
		id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
		}
		return Order{}, err
	}
	o.Items, err = r.GetItems(ctx, id)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// Delete removes the order and its items in one transaction and returns the
// items that were removed.
func (r *Repo) Delete(ctx context.Context, id int64) ([]OrderItem, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT order_item_id, order_id, product_id, quantity, price_at_purchase::text, item_total::text
		FROM order_items WHERE order_id=$1 ORDER BY order_item_id`, id)
	if err != nil {
		return nil, err
	}
	items, err := scanItems(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, id); err != nil {
		return nil, err
	}
	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE order_id=$1`, id)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return items, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var total string
	if err := row.Scan(&o.ID, &o.UserID, &o.ShippingAddress, &total, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return Order{}, err
	}
	var err error
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return Order{}, err
	}
	return o, nil
}

func scanItems(rows pgx.Rows) ([]OrderItem, error) {
	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		var price, lineTotal string
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price, &lineTotal); err != nil {
			return nil, err
		}
		var err error
		if it.PriceAtPurchase, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if it.ItemTotal, err = decimal.NewFromString(lineTotal); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
