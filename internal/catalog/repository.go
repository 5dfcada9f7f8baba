package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists catalog data in PostgreSQL.
type Repository interface {
	Create(ctx context.Context, p Product) (int64, error)
	Get(ctx context.Context, id int64) (*Product, error)
	GetOwned(ctx context.Context, id, companyID int64) (*Product, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id, companyID int64) error
	ListByCompany(ctx context.Context, companyID int64) ([]Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = "id, company_id, name, description, price, stock, created_at, updated_at"

func (r *repository) Create(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (company_id, name, description, price, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id
	`, p.CompanyID, p.Name, p.Description, p.Price, p.Stock).Scan(&id)
	return id, err
}

func (r *repository) Get(ctx context.Context, id int64) (*Product, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM products WHERE id = $1", productColumns), id))
}

func (r *repository) GetOwned(ctx context.Context, id, companyID int64) (*Product, error) {
	return r.scanOne(r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM products WHERE id = $1 AND company_id = $2", productColumns), id, companyID))
}

func (r *repository) Update(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name = $1, description = $2, price = $3, stock = $4, updated_at = NOW()
		WHERE id = $5 AND company_id = $6
	`, p.Name, p.Description, p.Price, p.Stock, p.ID, p.CompanyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id, companyID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListByCompany(ctx context.Context, companyID int64) ([]Product, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM products WHERE company_id = $1 ORDER BY id", productColumns), companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.CompanyID != nil {
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", argPos))
		args = append(args, *filter.CompanyID)
		argPos++
	}
	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argPos))
		args = append(args, *filter.MinPrice)
		argPos++
	}
	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argPos))
		args = append(args, *filter.MaxPrice)
		argPos++
	}

	query := fmt.Sprintf("SELECT %s FROM products", productColumns)
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *repository) scanOne(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
