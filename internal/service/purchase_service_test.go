package service

import (
	"context"
	"testing"

	"marketplace-api/internal/domain"
	"marketplace-api/internal/pricing"
	"marketplace-api/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// In-memory store shared by the mock repositories. The fake TxRunner
// snapshots it before running the transactional function and restores
// the snapshot on error, mirroring a database rollback.
type mockStore struct {
	products  map[int64]*domain.Product
	purchases []*domain.Purchase
	lineItems []*domain.PurchasedProduct
	nextID    int64
	commits   int
	rollbacks int
}

func newMockStore() *mockStore {
	return &mockStore{
		products: map[int64]*domain.Product{},
		nextID:   1,
	}
}

func (s *mockStore) addProduct(name string, price float64, stock int) *domain.Product {
	p := &domain.Product{
		ID:       s.nextID,
		Name:     name,
		Price:    price,
		Stock:    stock,
		SellerID: uuid.New(),
	}
	s.nextID++
	s.products[p.ID] = p
	return p
}

func (s *mockStore) snapshot() *mockStore {
	cp := &mockStore{
		products:  map[int64]*domain.Product{},
		purchases: append([]*domain.Purchase{}, s.purchases...),
		lineItems: append([]*domain.PurchasedProduct{}, s.lineItems...),
		nextID:    s.nextID,
	}
	for id, p := range s.products {
		clone := *p
		cp.products[id] = &clone
	}
	return cp
}

func (s *mockStore) restore(from *mockStore) {
	s.products = from.products
	s.purchases = from.purchases
	s.lineItems = from.lineItems
	s.nextID = from.nextID
}

type fakeTxRunner struct {
	store *mockStore
}

func (f *fakeTxRunner) WithinTx(ctx context.Context, fn func(tx repository.Querier) error) error {
	before := f.store.snapshot()
	if err := fn(nil); err != nil {
		f.store.restore(before)
		f.store.rollbacks++
		return err
	}
	f.store.commits++
	return nil
}

type mockProductRepository struct {
	store *mockStore
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	product.ID = m.store.nextID
	m.store.nextID++
	m.store.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, id int64, sellerID uuid.UUID, upd domain.ProductUpdate) (*domain.Product, error) {
	return nil, repository.ErrProductNotFound
}

func (m *mockProductRepository) SoftDelete(ctx context.Context, id int64, sellerID uuid.UUID) error {
	return repository.ErrProductNotFound
}

func (m *mockProductRepository) FindByID(ctx context.Context, q repository.Querier, id int64) (*domain.Product, error) {
	product, ok := m.store.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	clone := *product
	return &clone, nil
}

func (m *mockProductRepository) DecrementStock(ctx context.Context, q repository.Querier, id int64, amount int) error {
	product, ok := m.store.products[id]
	if !ok || product.Stock < amount {
		return repository.ErrOutOfStock
	}
	product.Stock -= amount
	return nil
}

func (m *mockProductRepository) ListForSale(ctx context.Context) ([]*domain.Product, error) {
	return nil, nil
}

func (m *mockProductRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error) {
	return nil, nil
}

func (m *mockProductRepository) ListByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	return nil, nil
}

type mockPurchaseRepository struct {
	store *mockStore
}

func (m *mockPurchaseRepository) CreatePurchase(ctx context.Context, q repository.Querier, purchase *domain.Purchase) error {
	purchase.ID = m.store.nextID
	m.store.nextID++
	m.store.purchases = append(m.store.purchases, purchase)
	return nil
}

func (m *mockPurchaseRepository) CreateLineItem(ctx context.Context, q repository.Querier, item *domain.PurchasedProduct) error {
	item.ID = m.store.nextID
	m.store.nextID++
	clone := *item
	m.store.lineItems = append(m.store.lineItems, &clone)
	return nil
}

func (m *mockPurchaseRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Purchase, error) {
	result := []*domain.Purchase{}
	for _, p := range m.store.purchases {
		if p.BuyerID != buyerID || p.DeletedAt != nil {
			continue
		}
		clone := *p
		clone.Products = []domain.PurchasedProduct{}
		for _, item := range m.store.lineItems {
			if item.PurchaseID == p.ID {
				clone.Products = append(clone.Products, *item)
			}
		}
		result = append(result, &clone)
	}
	return result, nil
}

func newTestService(store *mockStore) PurchaseService {
	return NewPurchaseService(
		&fakeTxRunner{store: store},
		&mockProductRepository{store: store},
		&mockPurchaseRepository{store: store},
		zap.NewNop(),
	)
}

func TestCheckoutDebitTotal(t *testing.T) {
	store := newMockStore()
	first := store.addProduct("keyboard", 100, 10)
	second := store.addProduct("mouse", 50, 5)

	svc := newTestService(store)
	buyerID := uuid.New()

	result, err := svc.Checkout(context.Background(), buyerID, pricing.PaymentDebit, []LineItemRequest{
		{ProductID: first.ID, Amount: 2},
		{ProductID: second.ID, Amount: 1},
	})
	require.NoError(t, err)

	assert.InDelta(t, 252.5, result.Total, 1e-9)
	assert.Equal(t, float64(1), result.InterestPercentage)
	assert.Equal(t, float64(0), result.DiscountPercentage)
	assert.Len(t, result.Products, 2)

	assert.Equal(t, 8, store.products[first.ID].Stock)
	assert.Equal(t, 4, store.products[second.ID].Stock)
	assert.Equal(t, 1, store.commits)
}

func TestCheckoutSnapshotsPrice(t *testing.T) {
	store := newMockStore()
	product := store.addProduct("monitor", 300, 3)

	svc := newTestService(store)
	buyerID := uuid.New()

	result, err := svc.Checkout(context.Background(), buyerID, pricing.PaymentCash, []LineItemRequest{
		{ProductID: product.ID, Amount: 1},
	})
	require.NoError(t, err)
	require.Len(t, result.Products, 1)
	assert.Equal(t, float64(300), result.Products[0].UnitPrice)

	// A later price change must not touch the committed purchase.
	store.products[product.ID].Price = 999

	listed, err := svc.ListForBuyer(context.Background(), buyerID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, float64(300), listed[0].Products[0].UnitPrice)
	assert.InDelta(t, 294.0, listed[0].Total, 1e-9)
}

func TestCheckoutProductNotFoundRollsBack(t *testing.T) {
	store := newMockStore()
	product := store.addProduct("keyboard", 100, 10)

	svc := newTestService(store)

	_, err := svc.Checkout(context.Background(), uuid.New(), pricing.PaymentCash, []LineItemRequest{
		{ProductID: product.ID, Amount: 2},
		{ProductID: 9999, Amount: 1},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
	assert.Contains(t, err.Error(), "9999")

	// Nothing from the failed checkout survives.
	assert.Equal(t, 10, store.products[product.ID].Stock)
	assert.Empty(t, store.purchases)
	assert.Empty(t, store.lineItems)
	assert.Equal(t, 1, store.rollbacks)
	assert.Equal(t, 0, store.commits)
}

func TestCheckoutOutOfStockRollsBack(t *testing.T) {
	store := newMockStore()
	plenty := store.addProduct("cable", 5, 100)
	scarce := store.addProduct("gpu", 1500, 1)

	svc := newTestService(store)

	_, err := svc.Checkout(context.Background(), uuid.New(), pricing.PaymentCredit, []LineItemRequest{
		{ProductID: plenty.ID, Amount: 10},
		{ProductID: scarce.ID, Amount: 2},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrOutOfStock)
	assert.Contains(t, err.Error(), "gpu")

	assert.Equal(t, 100, store.products[plenty.ID].Stock)
	assert.Equal(t, 1, store.products[scarce.ID].Stock)
	assert.Empty(t, store.purchases)
	assert.Empty(t, store.lineItems)
}

func TestCheckoutEmptyCart(t *testing.T) {
	store := newMockStore()
	svc := newTestService(store)

	_, err := svc.Checkout(context.Background(), uuid.New(), pricing.PaymentCash, nil)
	assert.ErrorIs(t, err, ErrEmptyPurchase)
	assert.Empty(t, store.purchases)
}

func TestCheckoutInvalidPaymentMethod(t *testing.T) {
	store := newMockStore()
	product := store.addProduct("keyboard", 100, 10)

	svc := newTestService(store)

	_, err := svc.Checkout(context.Background(), uuid.New(), pricing.PaymentMethod("barter"), []LineItemRequest{
		{ProductID: product.ID, Amount: 1},
	})
	assert.ErrorIs(t, err, pricing.ErrInvalidPaymentMethod)
	assert.Equal(t, 10, store.products[product.ID].Stock)
	assert.Empty(t, store.purchases)
}

func TestListForBuyerIsIdempotent(t *testing.T) {
	store := newMockStore()
	product := store.addProduct("desk", 250, 4)

	svc := newTestService(store)
	buyerID := uuid.New()

	_, err := svc.Checkout(context.Background(), buyerID, pricing.PaymentDebit, []LineItemRequest{
		{ProductID: product.ID, Amount: 2},
	})
	require.NoError(t, err)

	first, err := svc.ListForBuyer(context.Background(), buyerID)
	require.NoError(t, err)
	second, err := svc.ListForBuyer(context.Background(), buyerID)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].Total, second[0].Total)
	assert.Equal(t, first[0].Products, second[0].Products)
}

func TestListForBuyerOnlyOwnPurchases(t *testing.T) {
	store := newMockStore()
	product := store.addProduct("lamp", 40, 10)

	svc := newTestService(store)
	buyer := uuid.New()
	other := uuid.New()

	_, err := svc.Checkout(context.Background(), buyer, pricing.PaymentCash, []LineItemRequest{
		{ProductID: product.ID, Amount: 1},
	})
	require.NoError(t, err)
	_, err = svc.Checkout(context.Background(), other, pricing.PaymentCash, []LineItemRequest{
		{ProductID: product.ID, Amount: 1},
	})
	require.NoError(t, err)

	purchases, err := svc.ListForBuyer(context.Background(), buyer)
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, buyer, purchases[0].BuyerID)
}

func TestProperty_FailedCheckoutLeavesNoTrace(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a checkout with any out-of-range line item changes nothing", prop.ForAll(
		func(stock int, over int) bool {
			store := newMockStore()
			good := store.addProduct("good", 10, stock)
			bad := store.addProduct("bad", 20, stock)

			svc := newTestService(store)

			_, err := svc.Checkout(context.Background(), uuid.New(), pricing.PaymentDebit, []LineItemRequest{
				{ProductID: good.ID, Amount: 1},
				{ProductID: bad.ID, Amount: stock + over},
			})

			return err != nil &&
				store.products[good.ID].Stock == stock &&
				store.products[bad.ID].Stock == stock &&
				len(store.purchases) == 0 &&
				len(store.lineItems) == 0
		},
		gen.IntRange(1, 50),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}
