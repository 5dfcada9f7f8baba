package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/segundop/segundop/internal/platform/db"
)

// LockedProduct is a product row held under a row lock for the duration
// of a placement transaction.
type LockedProduct struct {
	ID        int64
	CompanyID int64
	Name      string
	Price     float64
	Stock     int
}

// TxRepository exposes the transactional operations used during placement.
type TxRepository interface {
	LockProducts(ctx context.Context, ids []int64) (map[int64]LockedProduct, error)
	DecrementStock(ctx context.Context, productID int64, qty int) error
	InsertOrder(ctx context.Context, clientID, companyID int64, status Status) (int64, time.Time, error)
	InsertLine(ctx context.Context, line OrderLine) (int64, error)
}

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction with
// bounded retries on serialization conflicts.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

// LockProducts acquires row locks on the given products. IDs must be
// sorted ascending before calling so concurrent placements acquire locks
// in a consistent order. Missing products are simply absent from the map.
func (r *txRepo) LockProducts(ctx context.Context, ids []int64) (map[int64]LockedProduct, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, company_id, name, price, stock
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locked := make(map[int64]LockedProduct, len(ids))
	for rows.Next() {
		var p LockedProduct
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, err
		}
		locked[p.ID] = p
	}
	return locked, rows.Err()
}

func (r *txRepo) DecrementStock(ctx context.Context, productID int64, qty int) error {
	tag, err := r.tx.Exec(ctx, `
		UPDATE products
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
	`, qty, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("orders: stock decrement lost for product %d", productID)
	}
	return nil
}

func (r *txRepo) InsertOrder(ctx context.Context, clientID, companyID int64, status Status) (int64, time.Time, error) {
	var id int64
	var createdAt time.Time
	err := r.tx.QueryRow(ctx, `
		INSERT INTO orders (client_id, company_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at
	`, clientID, companyID, string(status)).Scan(&id, &createdAt)
	return id, createdAt, err
}

func (r *txRepo) InsertLine(ctx context.Context, line OrderLine) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, line.OrderID, line.ProductID, line.Quantity, line.UnitPrice).Scan(&id)
	return id, err
}

const orderColumns = "o.id, o.client_id, o.company_id, o.status, o.created_at, o.updated_at"

// GetForCompany returns the order only when it belongs to the company.
// Missing and not-owned are indistinguishable to the caller.
func (r *Repository) GetForCompany(ctx context.Context, id, companyID int64) (*Order, error) {
	return r.fetchOne(ctx,
		fmt.Sprintf("SELECT %s FROM orders o WHERE o.id = $1 AND o.company_id = $2", orderColumns),
		id, companyID)
}

// ListByClient returns the client's orders, newest first.
func (r *Repository) ListByClient(ctx context.Context, clientID int64) ([]Order, error) {
	return r.fetchMany(ctx,
		fmt.Sprintf("SELECT %s FROM orders o WHERE o.client_id = $1 ORDER BY o.created_at DESC, o.id DESC", orderColumns),
		clientID)
}

// ListByCompany returns the orders addressed to the company, newest first.
func (r *Repository) ListByCompany(ctx context.Context, companyID int64) ([]Order, error) {
	return r.fetchMany(ctx,
		fmt.Sprintf("SELECT %s FROM orders o WHERE o.company_id = $1 ORDER BY o.created_at DESC, o.id DESC", orderColumns),
		companyID)
}

// UpdateStatus persists a status change scoped to the owning company.
// The write only lands when the row still carries the expected current
// status, so a transition checked against a stale read cannot win.
// ErrNotFound covers both a missing row and a lost status race; callers
// re-read to tell them apart.
func (r *Repository) UpdateStatus(ctx context.Context, id, companyID int64, from, to Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND company_id = $3 AND status = $4
	`, string(to), id, companyID, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) fetchOne(ctx context.Context, query string, args ...interface{}) (*Order, error) {
	var o Order
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&o.ID, &o.ClientID, &o.CompanyID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	lines, err := r.loadLines(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	return &o, nil
}

func (r *Repository) fetchMany(ctx context.Context, query string, args ...interface{}) ([]Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	var ids []int64
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.ClientID, &o.CompanyID, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	lines, err := r.loadLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

// loadLines fetches the lines for a set of orders in one query, joining
// products for the display name. The name reflects the catalog's current
// value; the unit price is the one captured at placement.
func (r *Repository) loadLines(ctx context.Context, orderIDs []int64) (map[int64][]OrderLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.order_id, l.product_id, COALESCE(p.name, ''), l.quantity, l.unit_price
		FROM order_lines l
		LEFT JOIN products p ON p.id = l.product_id
		WHERE l.order_id = ANY($1)
		ORDER BY l.order_id, l.id
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := make(map[int64][]OrderLine)
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		lines[l.OrderID] = append(lines[l.OrderID], l)
	}
	return lines, rows.Err()
}
