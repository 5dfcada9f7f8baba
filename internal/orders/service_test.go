package orders

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu       sync.Mutex
	products map[int64]LockedProduct
	orders   map[int64]*Order
	nextID   int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(products ...LockedProduct) *memoryRepo {
	r := &memoryRepo{
		products: make(map[int64]LockedProduct),
		orders:   make(map[int64]*Order),
	}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

// WithTx serializes callbacks under a mutex, mirroring the row locks the
// real store takes, and discards all writes when the callback fails.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.restore(snapshot)
		return err
	}
	return nil
}

type repoState struct {
	products map[int64]LockedProduct
	orders   map[int64]*Order
	nextID   int64
}

func (r *memoryRepo) snapshot() repoState {
	s := repoState{
		products: make(map[int64]LockedProduct, len(r.products)),
		orders:   make(map[int64]*Order, len(r.orders)),
		nextID:   r.nextID,
	}
	for id, p := range r.products {
		s.products[id] = p
	}
	for id, o := range r.orders {
		clone := *o
		clone.Lines = append([]OrderLine(nil), o.Lines...)
		s.orders[id] = &clone
	}
	return s
}

func (r *memoryRepo) restore(s repoState) {
	r.products = s.products
	r.orders = s.orders
	r.nextID = s.nextID
}

func (tx *memoryTx) LockProducts(ctx context.Context, ids []int64) (map[int64]LockedProduct, error) {
	locked := make(map[int64]LockedProduct, len(ids))
	for _, id := range ids {
		if p, ok := tx.repo.products[id]; ok {
			locked[id] = p
		}
	}
	return locked, nil
}

func (tx *memoryTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	p := tx.repo.products[productID]
	p.Stock -= qty
	tx.repo.products[productID] = p
	return nil
}

func (tx *memoryTx) InsertOrder(ctx context.Context, clientID, companyID int64, status Status) (int64, time.Time, error) {
	tx.repo.nextID++
	now := time.Now()
	tx.repo.orders[tx.repo.nextID] = &Order{
		ID:        tx.repo.nextID,
		ClientID:  clientID,
		CompanyID: companyID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.repo.nextID, now, nil
}

func (tx *memoryTx) InsertLine(ctx context.Context, line OrderLine) (int64, error) {
	order := tx.repo.orders[line.OrderID]
	line.ID = int64(len(order.Lines) + 1)
	if p, ok := tx.repo.products[line.ProductID]; ok {
		line.ProductName = p.Name
	}
	order.Lines = append(order.Lines, line)
	return line.ID, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (r *memoryRepo) GetForCompany(ctx context.Context, id, companyID int64) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.CompanyID != companyID {
		return nil, ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (r *memoryRepo) ListByClient(ctx context.Context, clientID int64) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		if o.ClientID == clientID {
			out = append(out, *o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (r *memoryRepo) ListByCompany(ctx context.Context, companyID int64) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		if o.CompanyID == companyID {
			out = append(out, *o)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// sortNewestFirst mirrors the store's created_at DESC, id DESC ordering.
func sortNewestFirst(out []Order) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
}

func (r *memoryRepo) UpdateStatus(ctx context.Context, id, companyID int64, from, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.CompanyID != companyID || o.Status != from {
		return ErrNotFound
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return nil
}

func (r *memoryRepo) stock(productID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[productID].Stock
}

func newTestService(repo RepositoryPort) *Service {
	return NewService(repo, nil, nil, nil, nil, nil)
}

func TestPlaceDecrementsStockAndCapturesPrice(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Name: "Widget", Price: 10.00, Stock: 5})
	svc := newTestService(repo)
	ctx := context.Background()

	order, err := svc.Place(ctx, 100, PlaceOrderRequest{
		Items: []OrderItemRequest{{ProductID: 1, Quantity: 3}},
	}, "")
	require.NoError(t, err)
	require.Equal(t, StatusNew, order.Status)
	require.Equal(t, int64(10), order.CompanyID)
	require.Len(t, order.Lines, 1)
	require.Equal(t, 3, order.Lines[0].Quantity)
	require.InDelta(t, 10.00, order.Lines[0].UnitPrice, 0.0001)
	require.Equal(t, 2, repo.stock(1))
}

func TestPlaceCapturedPriceSurvivesCatalogChange(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Name: "Widget", Price: 10.00, Stock: 5})
	svc := newTestService(repo)
	ctx := context.Background()

	order, err := svc.Place(ctx, 100, PlaceOrderRequest{
		Items: []OrderItemRequest{{ProductID: 1, Quantity: 1}},
	}, "")
	require.NoError(t, err)

	repo.mu.Lock()
	p := repo.products[1]
	p.Price = 99.99
	repo.products[1] = p
	repo.mu.Unlock()

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.InDelta(t, 10.00, got.Lines[0].UnitPrice, 0.0001)
}

func TestPlaceEmptyOrder(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	_, err := svc.Place(context.Background(), 100, PlaceOrderRequest{}, "")
	require.ErrorIs(t, err, ErrEmptyOrder)
}

func TestPlaceInvalidQuantity(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Price: 10, Stock: 5})
	svc := newTestService(repo)
	_, err := svc.Place(context.Background(), 100, PlaceOrderRequest{
		Items: []OrderItemRequest{{ProductID: 1, Quantity: 0}},
	}, "")
	require.ErrorIs(t, err, ErrInvalidQuantity)
	require.Equal(t, 5, repo.stock(1))
}

func TestPlaceProductNotFound(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Price: 10, Stock: 5})
	svc := newTestService(repo)
	_, err := svc.Place(context.Background(), 100, PlaceOrderRequest{
		Items: []OrderItemRequest{{ProductID: 99, Quantity: 1}},
	}, "")
	var notFound *ProductNotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, int64(99), notFound.ProductID)
}

func TestPlaceInsufficientStock(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Price: 10, Stock: 5})
	svc := newTestService(repo)
	_, err := svc.Place(context.Background(), 100, PlaceOrderRequest{
		Items: []OrderItemRequest{{ProductID: 1, Quantity: 6}},
	}, "")
	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)
	require.Equal(t, 6, short.Requested)
	require.Equal(t, 5, short.Available)
	require.Equal(t, 5, repo.stock(1))
}

func TestPlaceCumulativeQuantityAcrossDuplicateItems(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Price: 10, Stock: 5})
	svc := newTestService(repo)
	_, err := svc.Place(context.Background(), 100, PlaceOrderRequest{
		Items: []OrderItemRequest{
			{ProductID: 1, Quantity: 3},
			{ProductID: 1, Quantity: 3},
		},
	}, "")
	var short *InsufficientStockError
	require.ErrorAs(t, err, &short)
	require.Equal(t, 6, short.Requested)
	require.Equal(t, 5, repo.stock(1))
}

func TestPlaceCrossCompanyRejected(t *testing.T) {
	repo := newMemoryRepo(
		LockedProduct{ID: 1, CompanyID: 10, Price: 10, Stock: 5},
		LockedProduct{ID: 2, CompanyID: 20, Price: 20, Stock: 5},
	)
	svc := newTestService(repo)
	_, err := svc.Place(context.Background(), 100, PlaceOrderRequest{
		Items: []OrderItemRequest{
			{ProductID: 1, Quantity: 1},
			{ProductID: 2, Quantity: 1},
		},
	}, "")
	var cross *CrossCompanyOrderError
	require.ErrorAs(t, err, &cross)
	require.Equal(t, int64(2), cross.ProductID)
	require.Equal(t, 5, repo.stock(1))
	require.Equal(t, 5, repo.stock(2))
}

func TestPlaceCompanyMismatchRejected(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Price: 10, Stock: 5})
	svc := newTestService(repo)
	_, err := svc.Place(context.Background(), 100, PlaceOrderRequest{
		CompanyID: 20,
		Items:     []OrderItemRequest{{ProductID: 1, Quantity: 1}},
	}, "")
	var cross *CrossCompanyOrderError
	require.ErrorAs(t, err, &cross)
	require.Equal(t, 5, repo.stock(1))
}

func TestPlaceConcurrentOneWins(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Price: 10, Stock: 5})
	svc := newTestService(repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Place(ctx, int64(100+i), PlaceOrderRequest{
				Items: []OrderItemRequest{{ProductID: 1, Quantity: 4}},
			}, "")
		}(i)
	}
	wg.Wait()

	var oks, shorts int
	for _, err := range errs {
		if err == nil {
			oks++
			continue
		}
		var short *InsufficientStockError
		require.ErrorAs(t, err, &short)
		shorts++
	}
	require.Equal(t, 1, oks)
	require.Equal(t, 1, shorts)
	require.Equal(t, 1, repo.stock(1))
}

func TestUpdateStatusLifecycle(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Price: 10, Stock: 5})
	svc := newTestService(repo)
	ctx := context.Background()

	order, err := svc.Place(ctx, 100, PlaceOrderRequest{
		Items: []OrderItemRequest{{ProductID: 1, Quantity: 1}},
	}, "")
	require.NoError(t, err)

	order, err = svc.UpdateStatus(ctx, 10, order.ID, "shipped")
	require.NoError(t, err)
	require.Equal(t, StatusShipped, order.Status)

	order, err = svc.UpdateStatus(ctx, 10, order.ID, "delivered")
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, order.Status)
}

func TestUpdateStatusRejectsIllegalTransitions(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Price: 10, Stock: 5})
	svc := newTestService(repo)
	ctx := context.Background()

	order, err := svc.Place(ctx, 100, PlaceOrderRequest{
		Items: []OrderItemRequest{{ProductID: 1, Quantity: 1}},
	}, "")
	require.NoError(t, err)

	// new → delivered skips shipping
	_, err = svc.UpdateStatus(ctx, 10, order.ID, "delivered")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	_, err = svc.UpdateStatus(ctx, 10, order.ID, "cancelled")
	require.NoError(t, err)

	// terminal states are frozen
	_, err = svc.UpdateStatus(ctx, 10, order.ID, "shipped")
	require.ErrorAs(t, err, &invalid)
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	_, err := svc.UpdateStatus(context.Background(), 10, 1, "enviado")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestUpdateStatusHidesForeignOrders(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Price: 10, Stock: 5})
	svc := newTestService(repo)
	ctx := context.Background()

	order, err := svc.Place(ctx, 100, PlaceOrderRequest{
		Items: []OrderItemRequest{{ProductID: 1, Quantity: 1}},
	}, "")
	require.NoError(t, err)

	// company 20 does not own the order; indistinguishable from missing
	_, err = svc.UpdateStatus(ctx, 20, order.ID, "shipped")
	require.ErrorIs(t, err, ErrNotFound)

	// untouched
	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusNew, got.Status)
}

func TestListForClientOnlyOwnOrders(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Price: 10, Stock: 10})
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Place(ctx, 100, PlaceOrderRequest{
		Items: []OrderItemRequest{{ProductID: 1, Quantity: 1}},
	}, "")
	require.NoError(t, err)
	_, err = svc.Place(ctx, 200, PlaceOrderRequest{
		Items: []OrderItemRequest{{ProductID: 1, Quantity: 1}},
	}, "")
	require.NoError(t, err)

	mine, err := svc.ListForClient(ctx, 100)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, int64(100), mine[0].ClientID)
}

func TestListForClientNewestFirstAndRepeatable(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Name: "Widget", Price: 10, Stock: 10})
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Place(ctx, 100, PlaceOrderRequest{
		Items: []OrderItemRequest{{ProductID: 1, Quantity: 1}},
	}, "")
	require.NoError(t, err)
	second, err := svc.Place(ctx, 100, PlaceOrderRequest{
		Items: []OrderItemRequest{{ProductID: 1, Quantity: 2}},
	}, "")
	require.NoError(t, err)

	// widen the gap so created_at alone decides the order
	repo.mu.Lock()
	repo.orders[first.ID].CreatedAt = repo.orders[first.ID].CreatedAt.Add(-time.Minute)
	repo.mu.Unlock()

	mine, err := svc.ListForClient(ctx, 100)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, second.ID, mine[0].ID)
	require.Equal(t, first.ID, mine[1].ID)

	// same-instant orders fall back to id, newest id first
	repo.mu.Lock()
	repo.orders[first.ID].CreatedAt = repo.orders[second.ID].CreatedAt
	repo.mu.Unlock()

	tied, err := svc.ListForClient(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, second.ID, tied[0].ID)
	require.Equal(t, first.ID, tied[1].ID)

	// reading is idempotent: a second list with no writes in between
	// returns exactly the same result
	again, err := svc.ListForClient(ctx, 100)
	require.NoError(t, err)
	require.Equal(t, tied, again)
}

func TestPlaceReturnsCommittedSummary(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Name: "Widget", Price: 10.00, Stock: 5})
	svc := newTestService(repo)

	order, err := svc.Place(context.Background(), 100, PlaceOrderRequest{
		Items: []OrderItemRequest{{ProductID: 1, Quantity: 2}},
	}, "")
	require.NoError(t, err)

	// the summary is built from the transaction's own data, not a
	// post-commit read, so every field a caller needs is present
	require.NotZero(t, order.ID)
	require.Equal(t, int64(100), order.ClientID)
	require.Equal(t, int64(10), order.CompanyID)
	require.Equal(t, StatusNew, order.Status)
	require.False(t, order.CreatedAt.IsZero())
	require.Equal(t, order.CreatedAt, order.UpdatedAt)
	require.Len(t, order.Lines, 1)
	require.NotZero(t, order.Lines[0].ID)
	require.Equal(t, "Widget", order.Lines[0].ProductName)

	got, err := repo.Get(context.Background(), order.ID)
	require.NoError(t, err)
	require.Equal(t, order.Status, got.Status)
	require.Equal(t, order.CompanyID, got.CompanyID)
}

// staleGetRepo serves one stale snapshot before delegating reads, standing
// in for a concurrent update landing between the check and the write.
type staleGetRepo struct {
	*memoryRepo
	stale Order
	reads int
}

func (r *staleGetRepo) GetForCompany(ctx context.Context, id, companyID int64) (*Order, error) {
	r.reads++
	if r.reads == 1 {
		clone := r.stale
		return &clone, nil
	}
	return r.memoryRepo.GetForCompany(ctx, id, companyID)
}

func TestUpdateStatusStaleReadCannotBypassLifecycle(t *testing.T) {
	repo := newMemoryRepo(LockedProduct{ID: 1, CompanyID: 10, Price: 10, Stock: 5})
	svc := newTestService(repo)
	ctx := context.Background()

	order, err := svc.Place(ctx, 100, PlaceOrderRequest{
		Items: []OrderItemRequest{{ProductID: 1, Quantity: 1}},
	}, "")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, 10, order.ID, "cancelled")
	require.NoError(t, err)

	// the first read reports the order as still new; the conditional
	// write must miss and the re-check must reject shipping it
	stale := *order
	svc = newTestService(&staleGetRepo{memoryRepo: repo, stale: stale})
	_, err = svc.UpdateStatus(ctx, 10, order.ID, "shipped")
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	require.Equal(t, StatusCancelled, invalid.From)

	got, err := repo.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
}
