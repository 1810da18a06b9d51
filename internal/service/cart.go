package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CartService manages a user's cart items.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	events   event.Publisher
	logger   *slog.Logger
}

func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	events event.Publisher,
	logger *slog.Logger,
) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		events:   events,
		logger:   logger,
	}
}

// AddProduct puts one unit of productID in the cart: a new item starts at 1,
// an existing one is incremented.
func (s *CartService) AddProduct(ctx context.Context, userID, productID string) (*domain.CartItem, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if !product.InStock() {
		return nil, apperrors.InsufficientStock(productID, 1, product.QuantityLeft)
	}

	item, created, err := s.carts.FetchOrCreate(ctx, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("fetch or create cart item: %w", err)
	}
	if !created {
		change, err := s.carts.AdjustQuantity(ctx, userID, item.ID, 1)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NotFound("cart item", item.ID)
			}
			return nil, fmt.Errorf("increment cart item: %w", err)
		}
		item.Quantity = change.Quantity
	}

	s.publish(ctx, event.CartUpdatedData{
		UserID:    userID,
		ItemID:    item.ID,
		ProductID: productID,
		Quantity:  item.Quantity,
	})
	return item, nil
}

// GetCart returns the user's cart with products loaded.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	items, err := s.carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	return &domain.Cart{UserID: userID, Items: items}, nil
}

// ChangeQuantity adds delta to an item's quantity, removing the item when
// the result is zero or less.
func (s *CartService) ChangeQuantity(ctx context.Context, userID, itemID string, delta int) (domain.QuantityChange, error) {
	if delta == 0 {
		return domain.QuantityChange{}, apperrors.InvalidInput("delta must not be zero")
	}

	item, err := s.carts.GetByID(ctx, userID, itemID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.QuantityChange{}, apperrors.NotFound("cart item", itemID)
		}
		return domain.QuantityChange{}, fmt.Errorf("get cart item: %w", err)
	}

	change, err := s.carts.AdjustQuantity(ctx, userID, itemID, delta)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.QuantityChange{}, apperrors.NotFound("cart item", itemID)
		}
		return domain.QuantityChange{}, fmt.Errorf("persist cart change: %w", err)
	}

	s.publish(ctx, event.CartUpdatedData{
		UserID:    userID,
		ItemID:    itemID,
		ProductID: item.ProductID,
		Quantity:  change.Quantity,
		Removed:   change.Removed,
	})
	return change, nil
}

// RemoveItem deletes an item from the user's cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID string) error {
	if err := s.carts.Delete(ctx, userID, itemID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("cart item", itemID)
		}
		return fmt.Errorf("delete cart item: %w", err)
	}
	s.publish(ctx, event.CartUpdatedData{UserID: userID, ItemID: itemID, Removed: true})
	return nil
}

// Count is the cart badge: the sum of item quantities.
func (s *CartService) Count(ctx context.Context, userID string) (int, error) {
	n, err := s.carts.CountQuantity(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count cart: %w", err)
	}
	return n, nil
}

func (s *CartService) publish(ctx context.Context, data event.CartUpdatedData) {
	if err := s.events.PublishCartUpdated(ctx, data); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("user_id", data.UserID),
			slog.String("item_id", data.ItemID),
			slog.String("error", err.Error()),
		)
	}
}
