package reviews

import (
	"errors"
	"time"
)

// Review is a client's rating of a product. Reviews are append-only:
// no update or delete, and a client may review the same product more
// than once.
type Review struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	ClientID    int64     `json:"client_id"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
}

// ErrNotEligible indicates the client never purchased the product.
var ErrNotEligible = errors.New("reviews: client has not purchased this product")
