package reviews

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists reviews in PostgreSQL.
type Repository interface {
	Insert(ctx context.Context, review Review) (int64, error)
	Get(ctx context.Context, id int64) (*Review, error)
	ListByProduct(ctx context.Context, productID int64) ([]Review, error)
	HasPurchased(ctx context.Context, clientID, productID int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Insert(ctx context.Context, review Review) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO reviews (product_id, client_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id
	`, review.ProductID, review.ClientID, review.Rating, review.Comment).Scan(&id)
	return id, err
}

func (r *repository) Get(ctx context.Context, id int64) (*Review, error) {
	var rv Review
	err := r.pool.QueryRow(ctx, `
		SELECT r.id, r.product_id, COALESCE(p.name, ''), r.client_id, r.rating, r.comment, r.created_at
		FROM reviews r
		LEFT JOIN products p ON p.id = r.product_id
		WHERE r.id = $1
	`, id).Scan(&rv.ID, &rv.ProductID, &rv.ProductName, &rv.ClientID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *repository) ListByProduct(ctx context.Context, productID int64) ([]Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.product_id, COALESCE(p.name, ''), r.client_id, r.rating, r.comment, r.created_at
		FROM reviews r
		LEFT JOIN products p ON p.id = r.product_id
		WHERE r.product_id = $1
		ORDER BY r.created_at DESC, r.id DESC
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.ProductID, &rv.ProductName, &rv.ClientID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

// HasPurchased reports whether the client has ever placed an order
// containing the product. It reads committed data, so an order placed
// immediately before is already visible.
func (r *repository) HasPurchased(ctx context.Context, clientID, productID int64) (bool, error) {
	var purchased bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM orders o
			JOIN order_lines l ON l.order_id = o.id
			WHERE o.client_id = $1 AND l.product_id = $2
		)
	`, clientID, productID).Scan(&purchased)
	return purchased, err
}
