package catalog

import (
	"errors"
	"time"
)

// Product is a catalog entry owned by exactly one company.
type Product struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ErrNotFound covers both a missing product and a product owned by
// another company; callers must not be able to tell the two apart.
var ErrNotFound = errors.New("catalog: product not found")
