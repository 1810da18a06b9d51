package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const orderItemSelect = `
	SELECT oi.id, oi.order_id, oi.product_id, oi.price, oi.quantity,
	       p.id, p.title, p.slug, p.description, p.price, p.quantity_left, p.logo,
	       COALESCE(p.created_by::text, ''), p.created_at, p.updated_at
	FROM order_items oi
	JOIN products p ON p.id = oi.product_id`

// OrderRepository implements repository.OrderRepository.
type OrderRepository struct {
	pool database.DBTX
}

func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// ListByUser returns the user's orders, newest first, with their items.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) (_ []domain.Order, err error) {
	query := `
		SELECT id, user_id, status, total_price, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id`

	ctx, end := database.TraceQuery(ctx, "orders.list_by_user", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders := make([]domain.Order, 0)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalPrice, &o.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := r.queryItems(ctx, orderItemSelect+` WHERE oi.order_id = ANY($1) ORDER BY oi.order_id, oi.position, oi.id`, ids)
	if err != nil {
		return nil, err
	}

	byOrder := make(map[string][]domain.OrderItem, len(orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}
	return orders, nil
}

// GetByID retrieves an order with its items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (_ *domain.Order, err error) {
	query := `SELECT id, user_id, status, total_price, created_at FROM orders WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "orders.get_by_id", query)
	defer func() { end(err) }()

	var o domain.Order
	err = r.pool.QueryRow(ctx, query, id).Scan(&o.ID, &o.UserID, &o.Status, &o.TotalPrice, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	o.Items, err = r.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ListItems returns an order's items with their products, in the order they
// were added to the cart.
func (r *OrderRepository) ListItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	return r.queryItems(ctx, orderItemSelect+` WHERE oi.order_id = $1 ORDER BY oi.position, oi.id`, orderID)
}

func (r *OrderRepository) queryItems(ctx context.Context, query string, arg any) ([]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0)
	for rows.Next() {
		var (
			it domain.OrderItem
			p  domain.Product
		)
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.Price, &it.Quantity,
			&p.ID, &p.Title, &p.Slug, &p.Description, &p.Price, &p.QuantityLeft, &p.Logo,
			&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		it.Product = &p
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order item rows: %w", err)
	}
	return items, nil
}

// PlaceFromCart locks the user's cart rows and their products, rejects the
// order when any product is short on stock, then decrements stock, inserts
// the order with its items and empties the cart.
func (r *OrderRepository) PlaceFromCart(ctx context.Context, userID string) (_ *domain.Order, err error) {
	lock := cartItemSelect + `
		WHERE c.user_id = $1
		ORDER BY p.id
		FOR UPDATE OF c, p`

	ctx, end := database.TraceQuery(ctx, "orders.place_from_cart", lock)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, lock, userID)
	if err != nil {
		return nil, fmt.Errorf("lock cart items: %w", err)
	}
	cart := make([]domain.CartItem, 0)
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		cart = append(cart, *item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart item rows: %w", err)
	}
	if len(cart) == 0 {
		return nil, apperrors.InvalidInput("cart is empty")
	}

	// Locked by product id; items keep the order they were added to the cart.
	sort.SliceStable(cart, func(i, j int) bool {
		if !cart[i].CreatedAt.Equal(cart[j].CreatedAt) {
			return cart[i].CreatedAt.Before(cart[j].CreatedAt)
		}
		return cart[i].ID < cart[j].ID
	})

	for _, c := range cart {
		if c.Product.QuantityLeft < c.Quantity {
			return nil, apperrors.InsufficientStock(c.ProductID, c.Quantity, c.Product.QuantityLeft)
		}
	}

	order := &domain.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    domain.OrderStatusPlaced,
		CreatedAt: time.Now().UTC(),
		Items:     make([]domain.OrderItem, 0, len(cart)),
	}
	for _, c := range cart {
		p := *c.Product
		p.QuantityLeft -= c.Quantity
		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ProductID: c.ProductID,
			Product:   &p,
			Price:     c.Product.Price,
			Quantity:  c.Quantity,
		})
	}
	order.TotalPrice = order.ComputeTotal()

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		order.ID, order.UserID, order.Status, order.TotalPrice, order.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	for pos, it := range order.Items {
		if _, err := tx.Exec(ctx,
			`UPDATE products SET quantity_left = quantity_left - $1, updated_at = $2 WHERE id = $3`,
			it.Quantity, order.CreatedAt, it.ProductID,
		); err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, price, quantity, position)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			it.ID, it.OrderID, it.ProductID, it.Price, it.Quantity, pos,
		); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return order, nil
}
