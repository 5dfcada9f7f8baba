package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/segundop/segundop/internal/shared"
)

// RepositoryPort abstracts order persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetForCompany(ctx context.Context, id, companyID int64) (*Order, error)
	ListByClient(ctx context.Context, clientID int64) ([]Order, error)
	ListByCompany(ctx context.Context, companyID int64) ([]Order, error)
	UpdateStatus(ctx context.Context, id, companyID int64, from, to Status) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against replayed placement requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Notifier publishes order lifecycle events for async processing.
type Notifier interface {
	OrderPlaced(ctx context.Context, orderID, clientID, companyID int64) error
	OrderStatusChanged(ctx context.Context, orderID int64, status Status) error
}

// MetricsPort records order placement outcomes.
type MetricsPort interface {
	OrderPlaced()
	OrderRejected(reason string)
}

// Service coordinates order placement and lifecycle management.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	notifier    Notifier
	metrics     MetricsPort
	logger      *slog.Logger
}

// NewService builds Service. Audit, idempotency, notifier and metrics
// may be nil; the corresponding side effects are skipped.
func NewService(repo RepositoryPort, audit AuditPort, idempotency IdempotencyPort, notifier Notifier, metrics MetricsPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idempotency,
		notifier:    notifier,
		metrics:     metrics,
		logger:      logger,
	}
}

const idempotencyModule = "orders"

// Place validates and persists an order atomically. The order's company
// is derived from the owner of the first requested product; every other
// product must belong to that same company. Stock is checked and
// decremented under row locks so concurrent placements never overdraw.
func (s *Service) Place(ctx context.Context, clientID int64, req PlaceOrderRequest, idempotencyKey string) (*Order, error) {
	if len(req.Items) == 0 {
		s.reject("empty_order")
		return nil, ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			s.reject("invalid_quantity")
			return nil, ErrInvalidQuantity
		}
	}

	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			return nil, err
		}
	}

	var order *Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		locked, err := tx.LockProducts(ctx, productIDs(req.Items))
		if err != nil {
			return fmt.Errorf("lock products: %w", err)
		}

		var companyID int64
		requested := make(map[int64]int, len(req.Items))
		for i, item := range req.Items {
			product, ok := locked[item.ProductID]
			if !ok {
				return &ProductNotFoundError{ProductID: item.ProductID}
			}
			if i == 0 {
				companyID = product.CompanyID
				if req.CompanyID != 0 && req.CompanyID != companyID {
					return &CrossCompanyOrderError{
						ProductID: item.ProductID,
						WantOwner: req.CompanyID,
						GotOwner:  companyID,
					}
				}
			} else if product.CompanyID != companyID {
				return &CrossCompanyOrderError{
					ProductID: item.ProductID,
					WantOwner: companyID,
					GotOwner:  product.CompanyID,
				}
			}
			requested[item.ProductID] += item.Quantity
		}

		for id, qty := range requested {
			if product := locked[id]; qty > product.Stock {
				return &InsufficientStockError{
					ProductID: id,
					Requested: qty,
					Available: product.Stock,
				}
			}
		}

		orderID, createdAt, err := tx.InsertOrder(ctx, clientID, companyID, StatusNew)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		lines := make([]OrderLine, 0, len(req.Items))
		for _, item := range req.Items {
			product := locked[item.ProductID]
			line := OrderLine{
				OrderID:     orderID,
				ProductID:   item.ProductID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
				UnitPrice:   product.Price,
			}
			line.ID, err = tx.InsertLine(ctx, line)
			if err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
			lines = append(lines, line)
		}
		ids := make([]int64, 0, len(requested))
		for id := range requested {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			if err := tx.DecrementStock(ctx, id, requested[id]); err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
		}
		order = &Order{
			ID:        orderID,
			ClientID:  clientID,
			CompanyID: companyID,
			Status:    StatusNew,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
			Lines:     lines,
		}
		return nil
	})
	if err != nil {
		if idempotencyKey != "" && s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, idempotencyKey)
		}
		s.reject(rejectionReason(err))
		return nil, err
	}

	// The summary is assembled from the transaction's own data, so the
	// caller always learns the order id once the commit has landed.
	if s.metrics != nil {
		s.metrics.OrderPlaced()
	}
	s.record(ctx, clientID, "orders:place", order.ID, map[string]any{
		"company_id": order.CompanyID,
		"lines":      len(order.Lines),
	})
	if s.notifier != nil {
		if err := s.notifier.OrderPlaced(ctx, order.ID, order.ClientID, order.CompanyID); err != nil {
			s.logger.Warn("order placed notification failed", "order_id", order.ID, "error", err)
		}
	}
	return order, nil
}

// statusUpdateAttempts bounds re-reads when concurrent transitions keep
// invalidating the observed status.
const statusUpdateAttempts = 3

// UpdateStatus transitions an order owned by the company. Unknown target
// statuses and transitions outside the lifecycle table are rejected. The
// write is conditional on the status the check was made against, so two
// racing updates cannot combine into a transition outside the table.
func (s *Service) UpdateStatus(ctx context.Context, companyID, orderID int64, rawStatus string) (*Order, error) {
	status, err := ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	var from Status
	for attempt := 0; attempt < statusUpdateAttempts; attempt++ {
		order, err := s.repo.GetForCompany(ctx, orderID, companyID)
		if err != nil {
			return nil, err
		}
		if !order.Status.CanTransitionTo(status) {
			return nil, &InvalidTransitionError{From: order.Status, To: status}
		}
		from = order.Status

		err = s.repo.UpdateStatus(ctx, orderID, companyID, from, status)
		if err == nil {
			s.record(ctx, companyID, "orders:status", orderID, map[string]any{
				"from": string(from),
				"to":   string(status),
			})
			if s.notifier != nil {
				if err := s.notifier.OrderStatusChanged(ctx, orderID, status); err != nil {
					s.logger.Warn("status change notification failed", "order_id", orderID, "error", err)
				}
			}
			return s.repo.GetForCompany(ctx, orderID, companyID)
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		// Lost a status race; re-read and re-check against the new state.
	}
	return nil, &InvalidTransitionError{From: from, To: status}
}

// ListForClient returns the authenticated client's order history.
func (s *Service) ListForClient(ctx context.Context, clientID int64) ([]Order, error) {
	return s.repo.ListByClient(ctx, clientID)
}

// ListForCompany returns the orders placed against the company.
func (s *Service) ListForCompany(ctx context.Context, companyID int64) ([]Order, error) {
	return s.repo.ListByCompany(ctx, companyID)
}

func (s *Service) reject(reason string) {
	if s.metrics != nil {
		s.metrics.OrderRejected(reason)
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "order",
		EntityID: strconv.FormatInt(orderID, 10),
		Meta:     meta,
	})
}

// productIDs returns the distinct product IDs sorted ascending, so lock
// acquisition order is stable across concurrent placements.
func productIDs(items []OrderItemRequest) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func rejectionReason(err error) string {
	switch err.(type) {
	case *ProductNotFoundError:
		return "product_not_found"
	case *CrossCompanyOrderError:
		return "cross_company"
	case *InsufficientStockError:
		return "insufficient_stock"
	}
	return "storage"
}
