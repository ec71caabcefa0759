package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minishop/order-service/internal/metrics"
)

const callTimeout = 5 * time.Second

// Product is the snapshot returned by the inventory service. It is never
// persisted here; it only informs the sufficiency check and labels restock
// calls.
type Product struct {
	ID            int64           `json:"product_id"`
	Name          string          `json:"name"`
	StockQuantity int             `json:"stock_quantity"`
	Price         decimal.Decimal `json:"price"`
}

type stockChange struct {
	QuantityToDeduct int `json:"quantity_to_deduct"`
}

type Client struct {
	base    string
	hc      *http.Client
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewClient(log *slog.Logger, m *metrics.Metrics, baseURL string) *Client {
	return &Client{
		base:    baseURL,
		hc:      &http.Client{Timeout: callTimeout},
		log:     log,
		metrics: m,
	}
}

func (c *Client) GetProduct(ctx context.Context, productID int64) (Product, error) {
	target := fmt.Sprintf("%s/products/%d", c.base, productID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Product{}, err
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.metrics.ObserveInventoryCall(target, http.MethodGet, "network_error", time.Since(start))
		c.log.Warn("inventory request failed", "method", http.MethodGet, "target", target, "err", err)
		return Product{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveInventoryCall(target, http.MethodGet, strconv.Itoa(resp.StatusCode), time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Product{}, fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Product{}, statusErr(http.MethodGet, target, resp)
	}

	var p Product
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Product{}, fmt.Errorf("decode product %d: %w", productID, err)
	}
	return p, nil
}

// DeductStock reserves quantity units of a product. A 400 from the inventory
// service means the stock ran out between snapshot and deduction.
func (c *Client) DeductStock(ctx context.Context, productID int64, quantity int) error {
	resp, target, err := c.patchStock(ctx, productID, "deduct-stock", quantity)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("product %d: %w", productID, ErrInsufficientStock)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return statusErr(http.MethodPatch, target, resp)
	}
	return nil
}

// AddStock returns quantity units of a product to inventory. The request body
// schema is shared with DeductStock; only the endpoint differs.
func (c *Client) AddStock(ctx context.Context, productID int64, quantity int) error {
	resp, target, err := c.patchStock(ctx, productID, "add-stock", quantity)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("product %d: %w", productID, ErrProductNotFound)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return statusErr(http.MethodPatch, target, resp)
	}
	return nil
}

func (c *Client) patchStock(ctx context.Context, productID int64, action string, quantity int) (*http.Response, string, error) {
	target := fmt.Sprintf("%s/products/%d/%s", c.base, productID, action)

	body, err := json.Marshal(stockChange{QuantityToDeduct: quantity})
	if err != nil {
		return nil, target, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, target, bytes.NewReader(body))
	if err != nil {
		return nil, target, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.metrics.ObserveInventoryCall(target, http.MethodPatch, "network_error", time.Since(start))
		c.log.Warn("inventory request failed", "method", http.MethodPatch, "target", target, "err", err)
		return nil, target, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.metrics.ObserveInventoryCall(target, http.MethodPatch, strconv.Itoa(resp.StatusCode), time.Since(start))
	return resp, target, nil
}

func statusErr(method, target string, resp *http.Response) *StatusError {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &StatusError{
		Method: method,
		Target: target,
		Code:   resp.StatusCode,
		Detail: string(detail),
	}
}
