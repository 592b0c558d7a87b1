package orders

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested order was not found.
	ErrNotFound = errors.New("sales order not found")
	// ErrInvalidTransition indicates the action is not permitted from the
	// order's current status. Not retryable without changing the action.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrValidation indicates a malformed request (caller bug).
	ErrValidation = errors.New("validation failed")
	// ErrInsufficientStock signals a submit blocked by stock. Use errors.As
	// with *InsufficientStockError for the item involved.
	ErrInsufficientStock = errors.New("insufficient stock for order item")
)

// InsufficientStockError names the first item that failed the availability
// check during submit.
type InsufficientStockError struct {
	ItemCode  string
	Warehouse string
	Qty       float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s at %s (requested %.4f)", e.ItemCode, e.Warehouse, e.Qty)
}

// Is lets errors.Is(err, ErrInsufficientStock) match the typed error.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
