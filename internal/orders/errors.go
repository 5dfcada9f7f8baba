package orders

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyOrder indicates a placement request without items.
	ErrEmptyOrder = errors.New("orders: order has no items")
	// ErrInvalidQuantity indicates a non-positive line quantity.
	ErrInvalidQuantity = errors.New("orders: quantity must be at least 1")
	// ErrUnknownStatus indicates a status outside the closed set.
	ErrUnknownStatus = errors.New("orders: unknown status")
	// ErrNotFound covers both a missing order and an order belonging to
	// another company; callers must not be able to tell the two apart.
	ErrNotFound = errors.New("orders: order not found")
)

// ProductNotFoundError identifies the item that failed to resolve.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("orders: product %d does not exist", e.ProductID)
}

// CrossCompanyOrderError identifies the product that broke the
// single-company invariant.
type CrossCompanyOrderError struct {
	ProductID int64
	WantOwner int64
	GotOwner  int64
}

func (e *CrossCompanyOrderError) Error() string {
	return fmt.Sprintf("orders: product %d belongs to company %d, order targets company %d", e.ProductID, e.GotOwner, e.WantOwner)
}

// InsufficientStockError carries the requested and available quantities.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("orders: insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// InvalidTransitionError reports an illegal status change.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("orders: illegal status transition %s -> %s", e.From, e.To)
}
