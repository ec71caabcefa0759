package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable covers network failures and timeouts talking to the
	// inventory service. A single attempt is made per call; there is no retry.
	ErrUnavailable = errors.New("inventory service unavailable")

	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// StatusError is an unexpected non-2xx response from the inventory service.
type StatusError struct {
	Method string
	Target string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inventory %s %s: status %d: %s", e.Method, e.Target, e.Code, e.Detail)
}
