package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	order_id         BIGSERIAL PRIMARY KEY,
	user_id          BIGINT NOT NULL,
	shipping_address TEXT NOT NULL,
	total_amount     NUMERIC(12,2) NOT NULL,
	status           VARCHAR(50) NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS order_items (
	order_item_id     BIGSERIAL PRIMARY KEY,
	order_id          BIGINT NOT NULL REFERENCES orders(order_id) ON DELETE CASCADE,
	product_id        BIGINT NOT NULL,
	quantity          INT NOT NULL CHECK (quantity > 0),
	price_at_purchase NUMERIC(12,2) NOT NULL,
	item_total        NUMERIC(12,2) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id);
`

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
