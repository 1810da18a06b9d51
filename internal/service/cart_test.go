package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type cartFixture struct {
	svc      *CartService
	carts    *mockCartRepository
	products *mockProductRepository
	events   *mockPublisher
}

func newCartFixture() *cartFixture {
	f := &cartFixture{
		carts:    new(mockCartRepository),
		products: new(mockProductRepository),
		events:   new(mockPublisher),
	}
	f.svc = NewCartService(f.carts, f.products, f.events, testLogger())
	return f
}

func TestCartService_AddProduct_New(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()

	f.products.On("GetByID", ctx, "p1").Return(&domain.Product{ID: "p1", QuantityLeft: 5}, nil)
	f.carts.On("FetchOrCreate", ctx, "u1", "p1").Return(&domain.CartItem{ID: "c1", ProductID: "p1", Quantity: 1}, true, nil)
	f.events.On("PublishCartUpdated", ctx, event.CartUpdatedData{UserID: "u1", ItemID: "c1", ProductID: "p1", Quantity: 1}).Return(nil)

	item, err := f.svc.AddProduct(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
	f.carts.AssertNotCalled(t, "AdjustQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.events.AssertExpectations(t)
}

func TestCartService_AddProduct_Existing(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()

	f.products.On("GetByID", ctx, "p1").Return(&domain.Product{ID: "p1", QuantityLeft: 5}, nil)
	f.carts.On("FetchOrCreate", ctx, "u1", "p1").Return(&domain.CartItem{ID: "c1", ProductID: "p1", Quantity: 2}, false, nil)
	f.carts.On("AdjustQuantity", ctx, "u1", "c1", 1).Return(domain.QuantityChange{ItemID: "c1", Quantity: 3}, nil)
	f.events.On("PublishCartUpdated", ctx, mock.Anything).Return(nil)

	item, err := f.svc.AddProduct(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	f.carts.AssertExpectations(t)
}

func TestCartService_AddProduct_TakesQuantityFromStore(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()

	// The item was read at 2 but another request already incremented it.
	f.products.On("GetByID", ctx, "p1").Return(&domain.Product{ID: "p1", QuantityLeft: 5}, nil)
	f.carts.On("FetchOrCreate", ctx, "u1", "p1").Return(&domain.CartItem{ID: "c1", ProductID: "p1", Quantity: 2}, false, nil)
	f.carts.On("AdjustQuantity", ctx, "u1", "c1", 1).Return(domain.QuantityChange{ItemID: "c1", Quantity: 4}, nil)
	f.events.On("PublishCartUpdated", ctx, event.CartUpdatedData{UserID: "u1", ItemID: "c1", ProductID: "p1", Quantity: 4}).Return(nil)

	item, err := f.svc.AddProduct(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)
	f.events.AssertExpectations(t)
}

func TestCartService_AddProduct_Rejects(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown product", func(t *testing.T) {
		f := newCartFixture()
		f.products.On("GetByID", ctx, "p9").Return(nil, apperrors.ErrNotFound)
		_, err := f.svc.AddProduct(ctx, "u1", "p9")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("out of stock", func(t *testing.T) {
		f := newCartFixture()
		f.products.On("GetByID", ctx, "p1").Return(&domain.Product{ID: "p1"}, nil)
		_, err := f.svc.AddProduct(ctx, "u1", "p1")
		assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
		f.carts.AssertNotCalled(t, "FetchOrCreate", mock.Anything, mock.Anything, mock.Anything)
	})
}

func cartItems() []domain.CartItem {
	return []domain.CartItem{
		{ID: "c1", UserID: "u1", ProductID: "p1", Quantity: 2, Product: &domain.Product{Price: 1000}},
		{ID: "c2", UserID: "u1", ProductID: "p2", Quantity: 1, Product: &domain.Product{Price: 500}},
	}
}

func TestCartService_ChangeQuantity(t *testing.T) {
	ctx := context.Background()
	items := cartItems()

	t.Run("increment is applied by the store", func(t *testing.T) {
		f := newCartFixture()
		f.carts.On("GetByID", ctx, "u1", "c1").Return(&items[0], nil)
		f.carts.On("AdjustQuantity", ctx, "u1", "c1", 1).Return(domain.QuantityChange{ItemID: "c1", Quantity: 3}, nil)
		f.events.On("PublishCartUpdated", ctx, event.CartUpdatedData{UserID: "u1", ItemID: "c1", ProductID: "p1", Quantity: 3}).Return(nil)

		change, err := f.svc.ChangeQuantity(ctx, "u1", "c1", 1)
		require.NoError(t, err)
		assert.Equal(t, domain.QuantityChange{ItemID: "c1", Quantity: 3}, change)
		f.carts.AssertExpectations(t)
		f.events.AssertExpectations(t)
	})

	t.Run("decrement to zero removes", func(t *testing.T) {
		f := newCartFixture()
		f.carts.On("GetByID", ctx, "u1", "c2").Return(&items[1], nil)
		f.carts.On("AdjustQuantity", ctx, "u1", "c2", -1).Return(domain.QuantityChange{ItemID: "c2", Removed: true}, nil)
		f.events.On("PublishCartUpdated", ctx, event.CartUpdatedData{UserID: "u1", ItemID: "c2", ProductID: "p2", Removed: true}).Return(nil)

		change, err := f.svc.ChangeQuantity(ctx, "u1", "c2", -1)
		require.NoError(t, err)
		assert.True(t, change.Removed)
		f.carts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
		f.events.AssertExpectations(t)
	})

	t.Run("unknown item", func(t *testing.T) {
		f := newCartFixture()
		f.carts.On("GetByID", ctx, "u1", "c9").Return(nil, apperrors.ErrNotFound)

		_, err := f.svc.ChangeQuantity(ctx, "u1", "c9", 1)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		f.carts.AssertNotCalled(t, "AdjustQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.events.AssertNotCalled(t, "PublishCartUpdated", mock.Anything, mock.Anything)
	})

	t.Run("item removed concurrently", func(t *testing.T) {
		f := newCartFixture()
		f.carts.On("GetByID", ctx, "u1", "c1").Return(&items[0], nil)
		f.carts.On("AdjustQuantity", ctx, "u1", "c1", 1).Return(domain.QuantityChange{}, apperrors.ErrNotFound)

		_, err := f.svc.ChangeQuantity(ctx, "u1", "c1", 1)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		f.events.AssertNotCalled(t, "PublishCartUpdated", mock.Anything, mock.Anything)
	})

	t.Run("zero delta", func(t *testing.T) {
		f := newCartFixture()
		_, err := f.svc.ChangeQuantity(ctx, "u1", "c1", 0)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestCartService_RemoveItem(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()

	f.carts.On("Delete", ctx, "u1", "c1").Return(nil)
	f.carts.On("Delete", ctx, "u1", "c9").Return(apperrors.NotFound("cart item", "c9"))
	f.events.On("PublishCartUpdated", ctx, event.CartUpdatedData{UserID: "u1", ItemID: "c1", Removed: true}).Return(nil)

	require.NoError(t, f.svc.RemoveItem(ctx, "u1", "c1"))
	assert.ErrorIs(t, f.svc.RemoveItem(ctx, "u1", "c9"), apperrors.ErrNotFound)
	f.events.AssertNumberOfCalls(t, "PublishCartUpdated", 1)
}

func TestCartService_GetCartAndCount(t *testing.T) {
	f := newCartFixture()
	ctx := context.Background()

	f.carts.On("ListByUser", ctx, "u1").Return(cartItems(), nil)
	f.carts.On("CountQuantity", ctx, "u1").Return(3, nil)

	cart, err := f.svc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, cart.TotalQuantity())
	assert.Equal(t, int64(2500), cart.TotalPrice())

	n, err := f.svc.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
