package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ReceiptRenderer writes a printable receipt for an order.
type ReceiptRenderer interface {
	Render(ctx context.Context, order *domain.Order, w io.Writer) error
}

// OrderService serves order history, checkout and receipts.
type OrderService struct {
	orders   repository.OrderRepository
	cache    repository.CatalogCache
	events   event.Publisher
	receipts ReceiptRenderer
	logger   *slog.Logger
}

func NewOrderService(
	orders repository.OrderRepository,
	cache repository.CatalogCache,
	events event.Publisher,
	receipts ReceiptRenderer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		cache:    cache,
		events:   events,
		receipts: receipts,
		logger:   logger,
	}
}

// History returns the user's orders, newest first.
func (s *OrderService) History(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns one of the user's orders. Orders of other users are
// reported as missing.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("order", orderID)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o.UserID != userID {
		return nil, apperrors.NotFound("order", orderID)
	}
	return o, nil
}

// Checkout places an order from the user's cart.
func (s *OrderService) Checkout(ctx context.Context, userID string) (*domain.Order, error) {
	o, err := s.orders.PlaceFromCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "catalog cache invalidation failed", slog.String("error", err.Error()))
	}
	if err := s.events.PublishOrderPlaced(ctx, o); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.placed event",
			slog.String("order_id", o.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", o.ID),
		slog.String("user_id", userID),
		slog.Int64("total_price", o.TotalPrice),
		slog.Int("item_count", len(o.Items)),
	)
	return o, nil
}

// Receipt renders one of the user's orders to w.
func (s *OrderService) Receipt(ctx context.Context, userID, orderID string, w io.Writer) error {
	o, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if err := s.receipts.Render(ctx, o, w); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return nil
}
