package inventory

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minishop/order-service/internal/metrics"
)

func newTestClient(baseURL string) *Client {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(log, metrics.New("test"), baseURL)
}

func TestGetProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/products/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"product_id": 42, "name": "widget", "stock_quantity": 7, "price": "19.99"}`))
	}))
	defer srv.Close()

	p, err := newTestClient(srv.URL).GetProduct(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.ID)
	assert.Equal(t, "widget", p.Name)
	assert.Equal(t, 7, p.StockQuantity)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("19.99")))
}

func TestGetProductNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Product not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetProduct(context.Background(), 42)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestGetProductServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetProduct(context.Background(), 42)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, http.MethodGet, se.Method)
}

func TestGetProductNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing is listening anymore

	_, err := newTestClient(srv.URL).GetProduct(context.Background(), 42)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDeductStock(t *testing.T) {
	var gotBody stockChange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/products/7/deduct-stock", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).DeductStock(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, gotBody.QuantityToDeduct)
}

func TestDeductStockInsufficient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Insufficient stock"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).DeductStock(context.Background(), 7, 3)
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestDeductStockNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).DeductStock(context.Background(), 7, 3)
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestAddStock(t *testing.T) {
	var gotBody stockChange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/products/7/add-stock", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).AddStock(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, gotBody.QuantityToDeduct)
}

func TestAddStockBadRequestIsNotInsufficientStock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := newTestClient(srv.URL).AddStock(context.Background(), 7, 3)
	require.NotErrorIs(t, err, ErrInsufficientStock)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
}

func TestAddStockNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := newTestClient(srv.URL).AddStock(context.Background(), 7, 3)
	require.ErrorIs(t, err, ErrUnavailable)
}
