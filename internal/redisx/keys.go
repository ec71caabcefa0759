package redisx

import "time"

const (
	// Cache of an order's status document: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%d"
)

var TTLStatusCache = 5 * time.Minute
