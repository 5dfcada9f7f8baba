package reviews

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/segundop/segundop/internal/catalog"
)

type memoryRepo struct {
	reviews   map[int64]Review
	purchases map[[2]int64]bool
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		reviews:   make(map[int64]Review),
		purchases: make(map[[2]int64]bool),
	}
}

func (r *memoryRepo) recordPurchase(clientID, productID int64) {
	r.purchases[[2]int64{clientID, productID}] = true
}

func (r *memoryRepo) Insert(ctx context.Context, review Review) (int64, error) {
	r.nextID++
	review.ID = r.nextID
	review.CreatedAt = time.Now()
	r.reviews[review.ID] = review
	return review.ID, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Review, error) {
	rv := r.reviews[id]
	return &rv, nil
}

func (r *memoryRepo) ListByProduct(ctx context.Context, productID int64) ([]Review, error) {
	var out []Review
	for _, rv := range r.reviews {
		if rv.ProductID == productID {
			out = append(out, rv)
		}
	}
	return out, nil
}

func (r *memoryRepo) HasPurchased(ctx context.Context, clientID, productID int64) (bool, error) {
	return r.purchases[[2]int64{clientID, productID}], nil
}

type staticProducts map[int64]*catalog.Product

func (p staticProducts) Get(ctx context.Context, id int64) (*catalog.Product, error) {
	if product, ok := p[id]; ok {
		return product, nil
	}
	return nil, catalog.ErrNotFound
}

func TestCreateRequiresPurchase(t *testing.T) {
	repo := newMemoryRepo()
	products := staticProducts{1: {ID: 1, Name: "Widget"}}
	svc := NewService(repo, products, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 100, ReviewForm{ProductID: 1, Rating: 5, Comment: "great"})
	require.ErrorIs(t, err, ErrNotEligible)

	repo.recordPurchase(100, 1)
	review, err := svc.Create(ctx, 100, ReviewForm{ProductID: 1, Rating: 5, Comment: "great"})
	require.NoError(t, err)
	require.Equal(t, int64(100), review.ClientID)
	require.Equal(t, 5, review.Rating)
}

func TestCreateUnknownProduct(t *testing.T) {
	svc := NewService(newMemoryRepo(), staticProducts{}, nil)
	_, err := svc.Create(context.Background(), 100, ReviewForm{ProductID: 9, Rating: 3})
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCreateAllowsRepeatReviews(t *testing.T) {
	repo := newMemoryRepo()
	repo.recordPurchase(100, 1)
	svc := NewService(repo, staticProducts{1: {ID: 1}}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 100, ReviewForm{ProductID: 1, Rating: 4, Comment: "good"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 100, ReviewForm{ProductID: 1, Rating: 2, Comment: "changed my mind"})
	require.NoError(t, err)

	reviews, err := svc.ListForProduct(ctx, 1)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
}

func TestEligibilityIsPerProduct(t *testing.T) {
	repo := newMemoryRepo()
	repo.recordPurchase(100, 1)
	svc := NewService(repo, staticProducts{1: {ID: 1}, 2: {ID: 2}}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 100, ReviewForm{ProductID: 2, Rating: 4})
	require.ErrorIs(t, err, ErrNotEligible)
}

func TestListForProductUnknownProduct(t *testing.T) {
	svc := NewService(newMemoryRepo(), staticProducts{}, nil)
	_, err := svc.ListForProduct(context.Background(), 42)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}
