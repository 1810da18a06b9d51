package http

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// memStore is an in-memory stand-in for the Postgres repositories.
type memStore struct {
	mu       sync.Mutex
	users    map[string]domain.User
	products map[string]domain.Product
	items    map[string]domain.CartItem
	orders   map[string]domain.Order
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]domain.User),
		products: make(map[string]domain.Product),
		items:    make(map[string]domain.CartItem),
		orders:   make(map[string]domain.Order),
	}
}

type memUsers struct{ *memStore }
type memProducts struct{ *memStore }
type memCarts struct{ *memStore }
type memOrders struct{ *memStore }

func (s memUsers) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &u, nil
}

func (s memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s memUsers) Update(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = *u
	return nil
}

func (s memProducts) Create(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = *p
	return nil
}

func (s memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (s memProducts) ListAvailable(context.Context) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.InStock() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s memProducts) Update(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = *p
	return nil
}

func (s memCarts) FetchOrCreate(_ context.Context, userID, productID string) (*domain.CartItem, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.UserID == userID && it.ProductID == productID {
			return &it, false, nil
		}
	}
	it := domain.CartItem{ID: uuid.NewString(), UserID: userID, ProductID: productID, Quantity: 1, CreatedAt: time.Now()}
	s.items[it.ID] = it
	return &it, true, nil
}

func (s memCarts) GetByID(_ context.Context, userID, id string) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return &it, nil
}

func (s memCarts) ListByUser(_ context.Context, userID string) ([]domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.CartItem
	for _, it := range s.items {
		if it.UserID == userID {
			p := s.products[it.ProductID]
			it.Product = &p
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s memCarts) AdjustQuantity(_ context.Context, userID, id string, delta int) (domain.QuantityChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.UserID != userID {
		return domain.QuantityChange{}, apperrors.ErrNotFound
	}
	cart := domain.Cart{UserID: userID, Items: []domain.CartItem{it}}
	change, _ := cart.ApplyDelta(id, delta)
	if change.Removed {
		delete(s.items, id)
	} else {
		it.Quantity = change.Quantity
		s.items[id] = it
	}
	return change, nil
}

func (s memCarts) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.UserID != userID {
		return apperrors.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s memCarts) CountQuantity(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		if it.UserID == userID {
			n += it.Quantity
		}
	}
	return n, nil
}

func (s memOrders) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Order{}
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s memOrders) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &o, nil
}

func (s memOrders) ListItems(_ context.Context, orderID string) ([]domain.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[orderID].Items, nil
}

func (s memOrders) PlaceFromCart(_ context.Context, userID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cart []string
	for id, it := range s.items {
		if it.UserID != userID {
			continue
		}
		if p := s.products[it.ProductID]; p.QuantityLeft < it.Quantity {
			return nil, apperrors.InsufficientStock(p.ID, it.Quantity, p.QuantityLeft)
		}
		cart = append(cart, id)
	}

	o := domain.Order{ID: uuid.NewString(), UserID: userID, Status: domain.OrderStatusPlaced, CreatedAt: time.Now().UTC()}
	for _, id := range cart {
		it := s.items[id]
		p := s.products[it.ProductID]
		p.QuantityLeft -= it.Quantity
		s.products[p.ID] = p
		o.Items = append(o.Items, domain.OrderItem{
			ID: uuid.NewString(), OrderID: o.ID, ProductID: p.ID, Product: &p, Price: p.Price, Quantity: it.Quantity,
		})
		delete(s.items, id)
	}
	if len(o.Items) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}
	o.TotalPrice = o.ComputeTotal()
	s.orders[o.ID] = o
	return &o, nil
}
