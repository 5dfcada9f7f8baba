package jobs

import (
	"context"

	"github.com/segundop/segundop/internal/orders"
)

// OrderNotifier adapts the queue client to the order service's notifier
// port. Enqueue failures are reported to the caller, which treats them
// as best effort.
type OrderNotifier struct {
	Client *Client
}

// NewOrderNotifier constructs the adapter.
func NewOrderNotifier(client *Client) *OrderNotifier {
	return &OrderNotifier{Client: client}
}

func (n *OrderNotifier) OrderPlaced(ctx context.Context, orderID, clientID, companyID int64) error {
	_, err := n.Client.EnqueueOrderPlaced(ctx, OrderPlacedPayload{
		OrderID:   orderID,
		ClientID:  clientID,
		CompanyID: companyID,
	})
	return err
}

func (n *OrderNotifier) OrderStatusChanged(ctx context.Context, orderID int64, status orders.Status) error {
	_, err := n.Client.EnqueueOrderStatusChanged(ctx, OrderStatusChangedPayload{
		OrderID: orderID,
		Status:  string(status),
	})
	return err
}
