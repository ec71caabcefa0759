package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/minishop/order-service/internal/inventory"
	kafkax "github.com/minishop/order-service/internal/kafka"
	"github.com/minishop/order-service/internal/orders"
	"github.com/minishop/order-service/internal/redisx"
)

const maxStatusLen = 50

// EventPublisher is the producer side of the order-events topic.
type EventPublisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Service  *orders.Service
	Producer EventPublisher
	Redis    *redis.Client // optional status cache; nil disables it
	AppName  string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/items", h.getOrderItems)
	r.Get("/orders/{id}/status", h.getOrderStatus)
	r.Patch("/orders/{id}/status", h.updateOrderStatus)
	r.Delete("/orders/{id}", h.deleteOrder)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"detail": err.Error()})
}

// statusFor maps the workflow's error taxonomy onto response codes.
func statusFor(err error) int {
	var se *inventory.StatusError
	switch {
	case errors.Is(err, orders.ErrEmptyOrder),
		errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrProductNotFound),
		errors.Is(err, inventory.ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, inventory.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, orders.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.As(err, &se):
		if se.Code >= 400 && se.Code < 500 {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid json"})
		return
	}

	o, err := h.Service.CreateOrder(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheStatus(r.Context(), o.ID, o.Status)
	h.publishConfirmed(r, o)
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := orders.ListQuery{Limit: 100}
	qs := r.URL.Query()

	if v := qs.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "skip must be a non-negative integer"})
			return
		}
		q.Skip = n
	}
	if v := qs.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "limit must be between 1 and 100"})
			return
		}
		q.Limit = n
	}
	if v := qs.Get("user_id"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "user_id must be a positive integer"})
			return
		}
		q.UserID = &n
	}
	if v := qs.Get("status"); v != "" {
		if len(v) > maxStatusLen {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "status filter too long"})
			return
		}
		q.Status = v
	}

	out, err := h.Service.ListOrders(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	o, err := h.Service.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus serves the cached status document when present and falls
// back to the store on a miss.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, id)
	if h.Redis != nil {
		if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	o, err := h.Service.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(r.Context(), o.ID, o.Status)
	writeJSON(w, http.StatusOK, map[string]string{"status": o.Status})
}

func (h *OrdersHandler) getOrderItems(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	items, err := h.Service.GetOrderItems(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []orders.OrderItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *OrdersHandler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	newStatus := r.URL.Query().Get("new_status")
	if newStatus == "" || len(newStatus) > maxStatusLen {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "new_status must be 1-50 characters"})
		return
	}

	o, err := h.Service.UpdateStatus(r.Context(), id, newStatus)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(r.Context(), o.ID, o.Status)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	items, err := h.Service.DeleteOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	if h.Redis != nil {
		_ = h.Redis.Del(r.Context(), fmt.Sprintf(redisx.KeyOrderStatus, id)).Err()
	}
	h.publishDeleted(r, id, items)
	w.WriteHeader(http.StatusNoContent)
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "order id must be an integer"})
		return 0, false
	}
	return id, true
}

// cacheStatus keeps the status read path hot; the store stays the source of
// truth and failures here are ignored.
func (h *OrdersHandler) cacheStatus(ctx context.Context, orderID int64, status string) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	body, _ := json.Marshal(map[string]string{"status": status})
	_ = h.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) publishConfirmed(r *http.Request, o orders.Order) {
	if h.Producer == nil {
		return
	}
	items := make([]orders.EventItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orders.EventItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	h.publish(r, orders.EventOrderConfirmed, o.ID, orders.OrderConfirmedPayload{
		OrderID:     o.ID,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount.String(),
		Items:       items,
	})
}

func (h *OrdersHandler) publishDeleted(r *http.Request, orderID int64, items []orders.OrderItem) {
	if h.Producer == nil {
		return
	}
	restocked := make([]orders.EventItem, 0, len(items))
	for _, it := range items {
		restocked = append(restocked, orders.EventItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	h.publish(r, orders.EventOrderDeleted, orderID, orders.OrderDeletedPayload{
		OrderID:   orderID,
		Restocked: restocked,
	})
}

func (h *OrdersHandler) publish(r *http.Request, eventType string, orderID int64, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.AppName,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       kafkax.MustMarshal(payload),
	}
	h.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
