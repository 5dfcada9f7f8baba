package reviews

import (
	"context"
	"fmt"
	"strconv"

	"github.com/segundop/segundop/internal/catalog"
	"github.com/segundop/segundop/internal/shared"
)

// ProductPort resolves products from the catalog.
type ProductPort interface {
	Get(ctx context.Context, id int64) (*catalog.Product, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service enforces the purchase gate and serves review listings.
type Service struct {
	repo     Repository
	products ProductPort
	audit    AuditPort
}

// NewService builds Service.
func NewService(repo Repository, products ProductPort, audit AuditPort) *Service {
	return &Service{repo: repo, products: products, audit: audit}
}

// Create submits a review. The product must exist and the client must
// have purchased it at least once; repeat reviews are allowed.
func (s *Service) Create(ctx context.Context, clientID int64, form ReviewForm) (*Review, error) {
	if _, err := s.products.Get(ctx, form.ProductID); err != nil {
		return nil, err
	}

	purchased, err := s.repo.HasPurchased(ctx, clientID, form.ProductID)
	if err != nil {
		return nil, fmt.Errorf("check purchase: %w", err)
	}
	if !purchased {
		return nil, ErrNotEligible
	}

	id, err := s.repo.Insert(ctx, Review{
		ProductID: form.ProductID,
		ClientID:  clientID,
		Rating:    form.Rating,
		Comment:   form.Comment,
	})
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  clientID,
			Action:   "reviews:create",
			Entity:   "review",
			EntityID: strconv.FormatInt(id, 10),
			Meta: map[string]any{
				"product_id": form.ProductID,
				"rating":     form.Rating,
			},
		})
	}
	return s.repo.Get(ctx, id)
}

// ListForProduct returns a product's reviews, newest first. The product
// must exist.
func (s *Service) ListForProduct(ctx context.Context, productID int64) ([]Review, error) {
	if _, err := s.products.Get(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.ListByProduct(ctx, productID)
}
