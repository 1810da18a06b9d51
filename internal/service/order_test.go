package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type orderFixture struct {
	svc      *OrderService
	orders   *mockOrderRepository
	cache    *mockCatalogCache
	events   *mockPublisher
	renderer *mockRenderer
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orders:   new(mockOrderRepository),
		cache:    new(mockCatalogCache),
		events:   new(mockPublisher),
		renderer: new(mockRenderer),
	}
	f.svc = NewOrderService(f.orders, f.cache, f.events, f.renderer, testLogger())
	return f
}

func TestOrderService_Checkout(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	placed := &domain.Order{ID: "o1", UserID: "u1", TotalPrice: 1500}

	f.orders.On("PlaceFromCart", ctx, "u1").Return(placed, nil)
	f.cache.On("Invalidate", ctx).Return(nil)
	f.events.On("PublishOrderPlaced", ctx, placed).Return(nil)

	o, err := f.svc.Checkout(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)
	f.cache.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestOrderService_Checkout_SideEffectFailuresAreLogged(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	placed := &domain.Order{ID: "o1", UserID: "u1"}

	f.orders.On("PlaceFromCart", ctx, "u1").Return(placed, nil)
	f.cache.On("Invalidate", ctx).Return(errors.New("redis down"))
	f.events.On("PublishOrderPlaced", ctx, placed).Return(errors.New("broker down"))

	_, err := f.svc.Checkout(ctx, "u1")
	assert.NoError(t, err)
}

func TestOrderService_Checkout_Errors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"empty cart", apperrors.InvalidInput("cart is empty"), apperrors.ErrInvalidInput},
		{"short on stock", apperrors.InsufficientStock("p1", 3, 1), apperrors.ErrInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture()
			f.orders.On("PlaceFromCart", ctx, "u1").Return(nil, tt.err)

			_, err := f.svc.Checkout(ctx, "u1")
			assert.ErrorIs(t, err, tt.want)
			var appErr *apperrors.AppError
			assert.True(t, errors.As(err, &appErr))
			f.cache.AssertNotCalled(t, "Invalidate", mock.Anything)
		})
	}
}

func TestOrderService_GetOrder_Ownership(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.orders.On("GetByID", ctx, "o1").Return(&domain.Order{ID: "o1", UserID: "u1"}, nil)

	o, err := f.svc.GetOrder(ctx, "u1", "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)

	_, err = f.svc.GetOrder(ctx, "u2", "o1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderService_History(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.orders.On("ListByUser", ctx, "u1").Return([]domain.Order{{ID: "o2"}, {ID: "o1"}}, nil)

	orders, err := f.svc.History(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestOrderService_Receipt(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	order := &domain.Order{ID: "o1", UserID: "u1"}
	f.orders.On("GetByID", ctx, "o1").Return(order, nil)

	var buf bytes.Buffer
	f.renderer.On("Render", ctx, order, &buf).Return(nil)

	require.NoError(t, f.svc.Receipt(ctx, "u1", "o1", &buf))
	assert.Equal(t, "%PDF-", buf.String())

	err := f.svc.Receipt(ctx, "u2", "o1", &buf)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	f.renderer.AssertNumberOfCalls(t, "Render", 1)
}
