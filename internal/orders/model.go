package orders

import (
	"fmt"
	"time"
)

// Status enumerates the order lifecycle states.
type Status string

const (
	// StatusNew is the only valid initial state.
	StatusNew Status = "new"
	// StatusShipped means the company has dispatched the order.
	StatusShipped Status = "shipped"
	// StatusDelivered means the client has received the order.
	StatusDelivered Status = "delivered"
	// StatusCancelled is the terminal state; reachable from every other state.
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusNew, StatusShipped, StatusDelivered, StatusCancelled:
		return Status(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

// transitions is the closed state machine: new→shipped→delivered, and any
// state may be cancelled. Cancelled is final.
var transitions = map[Status][]Status{
	StatusNew:       {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
	StatusDelivered: {StatusCancelled},
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is a committed purchase. Orders are permanent audit records: they
// are never deleted and only the status field ever changes.
type Order struct {
	ID        int64       `json:"id"`
	ClientID  int64       `json:"client_id"`
	CompanyID int64       `json:"company_id"`
	Status    Status      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Lines     []OrderLine `json:"lines"`
}

// OrderLine is one product position of an order. The unit price is the
// catalog price observed when the order was placed; later catalog price
// changes must not leak into historical orders.
type OrderLine struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"order_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}
