package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const cartItemSelect = `
	SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
	       p.id, p.title, p.slug, p.description, p.price, p.quantity_left, p.logo,
	       COALESCE(p.created_by::text, ''), p.created_at, p.updated_at
	FROM cart_items c
	JOIN products p ON p.id = c.product_id`

// CartRepository implements repository.CartRepository.
type CartRepository struct {
	pool database.DBTX
}

func NewCartRepository(pool database.DBTX) *CartRepository {
	return &CartRepository{pool: pool}
}

// FetchOrCreate inserts a (user, product) row with quantity 1 unless one
// exists, then reads the row back. Concurrent callers converge on one row.
func (r *CartRepository) FetchOrCreate(ctx context.Context, userID, productID string) (_ *domain.CartItem, created bool, err error) {
	insert := `
		INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, 1, $4, $4)
		ON CONFLICT (user_id, product_id) DO NOTHING`

	ctx, end := database.TraceQuery(ctx, "cart.fetch_or_create", insert)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, insert, uuid.NewString(), userID, productID, time.Now().UTC())
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, false, apperrors.NotFound("product", productID)
		}
		return nil, false, fmt.Errorf("insert cart item: %w", err)
	}
	created = ct.RowsAffected() == 1

	item, err := scanCartItem(r.pool.QueryRow(ctx,
		cartItemSelect+` WHERE c.user_id = $1 AND c.product_id = $2`, userID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Deleted between insert and select.
			return nil, false, apperrors.NotFound("cart item", productID)
		}
		return nil, false, fmt.Errorf("select cart item: %w", err)
	}
	return item, created, nil
}

// GetByID retrieves one of the user's items.
func (r *CartRepository) GetByID(ctx context.Context, userID, id string) (_ *domain.CartItem, err error) {
	query := cartItemSelect + ` WHERE c.id = $1 AND c.user_id = $2`

	ctx, end := database.TraceQuery(ctx, "cart.get_by_id", query)
	defer func() { end(err) }()

	item, err := scanCartItem(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("cart item", id)
		}
		return nil, fmt.Errorf("scan cart item: %w", err)
	}
	return item, nil
}

// ListByUser returns the user's items, oldest first.
func (r *CartRepository) ListByUser(ctx context.Context, userID string) (_ []domain.CartItem, err error) {
	query := cartItemSelect + ` WHERE c.user_id = $1 ORDER BY c.created_at, c.id`

	ctx, end := database.TraceQuery(ctx, "cart.list_by_user", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.CartItem, 0)
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart item rows: %w", err)
	}
	return items, nil
}

// adjustAttempts bounds the update-or-delete loop in AdjustQuantity.
const adjustAttempts = 3

// AdjustQuantity adds delta to one of the user's items in place, so
// concurrent changes never overwrite each other. When the sum would drop to
// zero or below the row is deleted instead.
func (r *CartRepository) AdjustQuantity(ctx context.Context, userID, id string, delta int) (_ domain.QuantityChange, err error) {
	update := `
		UPDATE cart_items SET quantity = quantity + $1, updated_at = $2
		WHERE id = $3 AND user_id = $4 AND quantity + $1 > 0
		RETURNING quantity`
	remove := `
		DELETE FROM cart_items
		WHERE id = $2 AND user_id = $3 AND quantity + $1 <= 0`

	ctx, end := database.TraceQuery(ctx, "cart.adjust_quantity", update)
	defer func() { end(err) }()

	// Another writer may move the quantity across zero between the two
	// guarded statements; retry until one of them applies.
	for range adjustAttempts {
		var qty int
		err = r.pool.QueryRow(ctx, update, delta, time.Now().UTC(), id, userID).Scan(&qty)
		if err == nil {
			return domain.QuantityChange{ItemID: id, Quantity: qty}, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.QuantityChange{}, fmt.Errorf("update cart item: %w", err)
		}

		ct, delErr := r.pool.Exec(ctx, remove, delta, id, userID)
		if delErr != nil {
			return domain.QuantityChange{}, fmt.Errorf("delete cart item: %w", delErr)
		}
		if ct.RowsAffected() == 1 {
			return domain.QuantityChange{ItemID: id, Removed: true}, nil
		}
	}
	return domain.QuantityChange{}, apperrors.NotFound("cart item", id)
}

// Delete removes one of the user's items.
func (r *CartRepository) Delete(ctx context.Context, userID, id string) (err error) {
	query := `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`

	ctx, end := database.TraceQuery(ctx, "cart.delete", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("cart item", id)
	}
	return nil
}

// CountQuantity sums the quantities of the user's items.
func (r *CartRepository) CountQuantity(ctx context.Context, userID string) (_ int, err error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM cart_items WHERE user_id = $1`

	ctx, end := database.TraceQuery(ctx, "cart.count_quantity", query)
	defer func() { end(err) }()

	var n int64
	if err = r.pool.QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cart quantity: %w", err)
	}
	return int(n), nil
}

func scanCartItem(row pgx.Row) (*domain.CartItem, error) {
	var (
		c domain.CartItem
		p domain.Product
	)
	if err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.ProductID,
		&c.Quantity,
		&c.CreatedAt,
		&c.UpdatedAt,
		&p.ID,
		&p.Title,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.QuantityLeft,
		&p.Logo,
		&p.CreatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Product = &p
	return &c, nil
}
