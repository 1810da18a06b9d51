package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
	"github.com/utafrali/storefront/pkg/slug"
)

// ProductService serves the catalog and product creation.
type ProductService struct {
	products repository.ProductRepository
	cache    repository.CatalogCache
	events   event.Publisher
	logger   *slog.Logger
	perPage  int
}

func NewProductService(
	products repository.ProductRepository,
	cache repository.CatalogCache,
	events event.Publisher,
	logger *slog.Logger,
	perPage int,
) *ProductService {
	if perPage <= 0 {
		perPage = 3
	}
	return &ProductService{
		products: products,
		cache:    cache,
		events:   events,
		logger:   logger,
		perPage:  perPage,
	}
}

// CatalogQuery selects a search and a load-more page.
type CatalogQuery struct {
	Query   string
	Page    int
	PerPage int
}

// CreateProductInput carries a price in major units.
type CreateProductInput struct {
	Title        string
	Description  string
	Price        float64
	QuantityLeft int
	Logo         string
}

// PerPage is the default page size.
func (s *ProductService) PerPage() int {
	return s.perPage
}

// Catalog returns the load-more window of in-stock products matching q.
func (s *ProductService) Catalog(ctx context.Context, q CatalogQuery) (pagination.Window[domain.Product], error) {
	available, err := s.available(ctx)
	if err != nil {
		return pagination.Window[domain.Product]{}, err
	}
	matches := catalog.Search(available, q.Query)
	params := pagination.Params{Page: q.Page, PerPage: q.PerPage}.Normalize(s.perPage)
	return catalog.Page(matches, params), nil
}

// available reads the in-stock list through the cache. Cache failures are
// logged and fall through to the database.
func (s *ProductService) available(ctx context.Context) ([]domain.Product, error) {
	if products, ok, err := s.cache.GetAvailable(ctx); err != nil {
		s.logger.WarnContext(ctx, "catalog cache read failed", slog.String("error", err.Error()))
	} else if ok {
		return products, nil
	}

	products, err := s.products.ListAvailable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list available products: %w", err)
	}
	if err := s.cache.SetAvailable(ctx, products); err != nil {
		s.logger.WarnContext(ctx, "catalog cache write failed", slog.String("error", err.Error()))
	}
	return products, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// CreateProduct stores a product on behalf of userID, whose role must allow it.
func (s *ProductService) CreateProduct(ctx context.Context, userID, role string, in CreateProductInput) (*domain.Product, error) {
	if !domain.CanCreateProducts(role) {
		return nil, apperrors.Forbidden("role may not create products")
	}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		return nil, apperrors.InvalidInput("title is required")
	case !domain.ValidPrice(in.Price):
		return nil, apperrors.InvalidInput(fmt.Sprintf("price must be between 0 and %d", domain.MaxPrice))
	case in.QuantityLeft < 0:
		return nil, apperrors.InvalidInput("quantity_left must not be negative")
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	p := &domain.Product{
		ID:           id,
		Title:        title,
		Slug:         slug.WithSuffix(slug.Generate(title), id, 8),
		Description:  strings.TrimSpace(in.Description),
		Price:        domain.ToMinorUnits(in.Price),
		QuantityLeft: in.QuantityLeft,
		Logo:         strings.TrimSpace(in.Logo),
		CreatedBy:    userID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "catalog cache invalidation failed", slog.String("error", err.Error()))
	}
	if err := s.events.PublishProductCreated(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("created_by", userID),
	)
	return p, nil
}
