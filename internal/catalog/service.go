package catalog

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/segundop/segundop/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo  Repository
	cache *Cache
	audit AuditPort
	group singleflight.Group
}

// NewService builds Service.
func NewService(repo Repository, cache *Cache, audit AuditPort) *Service {
	return &Service{repo: repo, cache: cache, audit: audit}
}

// Create inserts a product owned by the company.
func (s *Service) Create(ctx context.Context, companyID int64, form ProductForm) (*Product, error) {
	id, err := s.repo.Create(ctx, Product{
		CompanyID:   companyID,
		Name:        form.Name,
		Description: form.Description,
		Price:       form.Price,
		Stock:       form.Stock,
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx)
	s.record(ctx, companyID, "catalog:create", id, form)
	return s.repo.Get(ctx, id)
}

// Update replaces a product's mutable fields; only the owner may update.
func (s *Service) Update(ctx context.Context, id, companyID int64, form ProductForm) (*Product, error) {
	err := s.repo.Update(ctx, Product{
		ID:          id,
		CompanyID:   companyID,
		Name:        form.Name,
		Description: form.Description,
		Price:       form.Price,
		Stock:       form.Stock,
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.record(ctx, companyID, "catalog:update", id, form)
	return s.repo.Get(ctx, id)
}

// Delete removes a product; only the owner may delete.
func (s *Service) Delete(ctx context.Context, id, companyID int64) error {
	if err := s.repo.Delete(ctx, id, companyID); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.record(ctx, companyID, "catalog:delete", id, nil)
	return nil
}

// Get loads a single product regardless of owner.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.repo.Get(ctx, id)
}

// GetOwn loads one of the company's own products. Products owned by
// another company come back as ErrNotFound.
func (s *Service) GetOwn(ctx context.Context, id, companyID int64) (*Product, error) {
	return s.repo.GetOwned(ctx, id, companyID)
}

// ListOwn lists the company's own products.
func (s *Service) ListOwn(ctx context.Context, companyID int64) ([]Product, error) {
	return s.repo.ListByCompany(ctx, companyID)
}

// ListPublic lists products for the public storefront, served from the
// redis cache when warm. Concurrent misses for the same filter collapse
// into one database query.
func (s *Service) ListPublic(ctx context.Context, filter ListFilter) ([]Product, error) {
	key, err := s.cache.BuildKey(ctx, "catalog", "list", filterKey(filter))
	if err != nil {
		return s.repo.List(ctx, filter)
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		var products []Product
		err := s.cache.FetchJSON(ctx, key, &products, func(ctx context.Context) (interface{}, error) {
			return s.repo.List(ctx, filter)
		})
		return products, err
	})
	if err != nil {
		return nil, err
	}
	return result.([]Product), nil
}

func (s *Service) invalidate(ctx context.Context) {
	_ = s.cache.Bump(ctx)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, productID int64, form any) {
	if s.audit == nil {
		return
	}
	meta := map[string]any{}
	if f, ok := form.(ProductForm); ok {
		meta["name"] = f.Name
		meta["price"] = f.Price
		meta["stock"] = f.Stock
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: strconv.FormatInt(productID, 10),
		Meta:     meta,
	})
}

func filterKey(filter ListFilter) string {
	key := "all"
	if filter.CompanyID != nil {
		key += fmt.Sprintf(":c%d", *filter.CompanyID)
	}
	if filter.MinPrice != nil {
		key += fmt.Sprintf(":min%g", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		key += fmt.Sprintf(":max%g", *filter.MaxPrice)
	}
	return key
}
