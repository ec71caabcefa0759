package orders

import "errors"

var (
	ErrEmptyOrder      = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("item quantity must be positive")
	ErrOrderNotFound   = errors.New("order not found")

	// ErrInconsistentState means stock was deducted remotely but the order
	// failed to persist. There is no automatic compensation for this case;
	// it requires manual reconciliation.
	ErrInconsistentState = errors.New("order not saved after successful stock deduction; manual intervention required")
)
