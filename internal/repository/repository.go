// Package repository declares the storefront's persistence interfaces.
package repository

import (
	"context"
	"time"

	"github.com/utafrali/storefront/internal/domain"
)

// UserRepository persists user accounts.
type UserRepository interface {
	// Create inserts a new user. A duplicate email yields ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by id.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email, case-insensitively.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies the mutable profile fields of a user.
	Update(ctx context.Context, user *domain.User) error
}

// ProductRepository persists catalog products.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// ListAvailable returns every product with quantity_left > 0, newest first.
	ListAvailable(ctx context.Context) ([]domain.Product, error)

	Update(ctx context.Context, product *domain.Product) error
}

// CartRepository persists cart items. Every lookup is scoped to the owner, so
// an item of another user behaves as missing.
type CartRepository interface {
	// FetchOrCreate returns the user's item for productID, inserting one with
	// quantity 1 when absent. created reports whether the row was inserted.
	FetchOrCreate(ctx context.Context, userID, productID string) (item *domain.CartItem, created bool, err error)

	// GetByID retrieves one of the user's items.
	GetByID(ctx context.Context, userID, id string) (*domain.CartItem, error)

	// ListByUser returns the user's items with their products, oldest first.
	ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error)

	// AdjustQuantity atomically adds delta to the item's quantity. A result of
	// zero or less deletes the item and reports Removed.
	AdjustQuantity(ctx context.Context, userID, id string, delta int) (domain.QuantityChange, error)

	Delete(ctx context.Context, userID, id string) error

	// CountQuantity sums quantities over the user's items.
	CountQuantity(ctx context.Context, userID string) (int, error)
}

// OrderRepository persists orders.
type OrderRepository interface {
	// ListByUser returns the user's orders, newest first, with items and products.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)

	// GetByID retrieves an order with its items and products.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	ListItems(ctx context.Context, orderID string) ([]domain.OrderItem, error)

	// PlaceFromCart turns the user's cart into an order in one transaction,
	// decrementing stock and clearing the cart.
	PlaceFromCart(ctx context.Context, userID string) (*domain.Order, error)
}

// CatalogCache caches the in-stock product list.
type CatalogCache interface {
	// GetAvailable returns the cached list; ok is false on a miss.
	GetAvailable(ctx context.Context) (products []domain.Product, ok bool, err error)
	SetAvailable(ctx context.Context, products []domain.Product) error
	Invalidate(ctx context.Context) error
}

// SessionStore tracks revoked session ids until their tokens expire.
type SessionStore interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}
