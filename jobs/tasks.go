package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOrderPlaced is emitted after an order commits.
	TaskOrderPlaced = "orders:placed"
	// TaskOrderStatusChanged is emitted after a status transition.
	TaskOrderStatusChanged = "orders:status_changed"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// OrderPlacedPayload identifies a freshly committed order.
type OrderPlacedPayload struct {
	OrderID   int64 `json:"order_id"`
	ClientID  int64 `json:"client_id"`
	CompanyID int64 `json:"company_id"`
}

// OrderStatusChangedPayload carries a status transition.
type OrderStatusChangedPayload struct {
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
}

// NewOrderPlacedTask constructs an Asynq task.
func NewOrderPlacedTask(payload OrderPlacedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderPlaced, data), nil
}

// NewOrderStatusChangedTask constructs an Asynq task.
func NewOrderStatusChangedTask(payload OrderStatusChangedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderStatusChanged, data), nil
}

// NewIdempotencyCleanupTask constructs the scheduled cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}

// HandleOrderPlacedTask processes TaskOrderPlaced tasks.
// Placeholder for buyer/seller notification delivery.
func HandleOrderPlacedTask(ctx context.Context, t *asynq.Task) error {
	var payload OrderPlacedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	slog.Default().Info("order placed notification",
		slog.Int64("order_id", payload.OrderID),
		slog.Int64("client_id", payload.ClientID),
		slog.Int64("company_id", payload.CompanyID))
	return nil
}

// HandleOrderStatusChangedTask processes TaskOrderStatusChanged tasks.
func HandleOrderStatusChangedTask(ctx context.Context, t *asynq.Task) error {
	var payload OrderStatusChangedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	slog.Default().Info("order status notification",
		slog.Int64("order_id", payload.OrderID),
		slog.String("status", payload.Status))
	return nil
}
