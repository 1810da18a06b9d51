package service

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

type productFixture struct {
	svc      *ProductService
	products *mockProductRepository
	cache    *mockCatalogCache
	events   *mockPublisher
}

func newProductFixture() *productFixture {
	f := &productFixture{
		products: new(mockProductRepository),
		cache:    new(mockCatalogCache),
		events:   new(mockPublisher),
	}
	f.svc = NewProductService(f.products, f.cache, f.events, testLogger(), 3)
	return f
}

func inStock(titles ...string) []domain.Product {
	out := make([]domain.Product, len(titles))
	for i, t := range titles {
		out[i] = domain.Product{ID: t, Title: t, QuantityLeft: 1}
	}
	return out
}

func TestProductService_Catalog_CacheMiss(t *testing.T) {
	f := newProductFixture()
	ctx := context.Background()
	all := inStock("Tea", "Green tea", "Coffee", "Milk", "Tea set")

	f.cache.On("GetAvailable", ctx).Return(nil, false, nil)
	f.products.On("ListAvailable", ctx).Return(all, nil)
	f.cache.On("SetAvailable", ctx, all).Return(nil)

	w, err := f.svc.Catalog(ctx, CatalogQuery{})
	require.NoError(t, err)
	assert.Len(t, w.Items, 3)
	assert.True(t, w.HasNext)
	assert.Equal(t, 5, w.Total)

	f.cache.AssertExpectations(t)
	f.products.AssertExpectations(t)
}

func TestProductService_Catalog_CacheHitSearchAndPage(t *testing.T) {
	f := newProductFixture()
	ctx := context.Background()
	f.cache.On("GetAvailable", ctx).Return(inStock("Tea", "Green tea", "Coffee", "Milk", "Tea set"), true, nil)

	w, err := f.svc.Catalog(ctx, CatalogQuery{Query: "TEA", Page: 0, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tea", "Green tea"}, []string{w.Items[0].Title, w.Items[1].Title})
	assert.True(t, w.HasNext)

	w, err = f.svc.Catalog(ctx, CatalogQuery{Query: "tea", Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, w.Items, 3)
	assert.False(t, w.HasNext)

	f.products.AssertNotCalled(t, "ListAvailable", mock.Anything)
}

func TestProductService_Catalog_CacheErrorFallsThrough(t *testing.T) {
	f := newProductFixture()
	ctx := context.Background()
	f.cache.On("GetAvailable", ctx).Return(nil, false, errors.New("redis down"))
	f.products.On("ListAvailable", ctx).Return(inStock("Tea"), nil)
	f.cache.On("SetAvailable", ctx, mock.Anything).Return(errors.New("redis down"))

	w, err := f.svc.Catalog(ctx, CatalogQuery{})
	require.NoError(t, err)
	assert.Len(t, w.Items, 1)
}

func TestProductService_Catalog_DBError(t *testing.T) {
	f := newProductFixture()
	ctx := context.Background()
	f.cache.On("GetAvailable", ctx).Return(nil, false, nil)
	f.products.On("ListAvailable", ctx).Return(nil, errors.New("db down"))

	_, err := f.svc.Catalog(ctx, CatalogQuery{})
	assert.Error(t, err)
}

func TestProductService_CreateProduct(t *testing.T) {
	f := newProductFixture()
	ctx := context.Background()

	f.products.On("Create", ctx, mock.AnythingOfType("*domain.Product")).Return(nil)
	f.cache.On("Invalidate", ctx).Return(nil)
	f.events.On("PublishProductCreated", ctx, mock.AnythingOfType("*domain.Product")).Return(nil)

	p, err := f.svc.CreateProduct(ctx, "u1", domain.RoleUser, CreateProductInput{
		Title:        " Чай чёрный ",
		Description:  "Листовой",
		Price:        199.99,
		QuantityLeft: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "Чай чёрный", p.Title)
	assert.Equal(t, int64(19999), p.Price)
	assert.Equal(t, "u1", p.CreatedBy)
	assert.Contains(t, p.Slug, "chay-chernyy-")

	f.products.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func TestProductService_CreateProduct_Rejects(t *testing.T) {
	tests := []struct {
		name string
		role string
		in   CreateProductInput
		want error
	}{
		{"no role", "", CreateProductInput{Title: "Tea"}, apperrors.ErrForbidden},
		{"empty title", domain.RoleAdmin, CreateProductInput{Title: " "}, apperrors.ErrInvalidInput},
		{"negative price", domain.RoleUser, CreateProductInput{Title: "Tea", Price: -1}, apperrors.ErrInvalidInput},
		{"nan price", domain.RoleUser, CreateProductInput{Title: "Tea", Price: math.NaN()}, apperrors.ErrInvalidInput},
		{"price over cap", domain.RoleUser, CreateProductInput{Title: "Tea", Price: 1e17}, apperrors.ErrInvalidInput},
		{"infinite price", domain.RoleUser, CreateProductInput{Title: "Tea", Price: math.Inf(1)}, apperrors.ErrInvalidInput},
		{"negative quantity", domain.RoleUser, CreateProductInput{Title: "Tea", QuantityLeft: -1}, apperrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newProductFixture()
			_, err := f.svc.CreateProduct(context.Background(), "u1", tt.role, tt.in)
			assert.ErrorIs(t, err, tt.want)
			f.products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestProductService_GetProduct_NotFound(t *testing.T) {
	f := newProductFixture()
	ctx := context.Background()
	f.products.On("GetByID", ctx, "x").Return(nil, apperrors.ErrNotFound)

	_, err := f.svc.GetProduct(ctx, "x")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
