package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleUser() *domain.User {
	return &domain.User{
		ID:           "11111111-1111-1111-1111-111111111111",
		Email:        "ivan.petrov@shop.ru",
		PasswordHash: "deadbeef",
		FirstName:    "Ivan",
		LastName:     "Petrov",
		Role:         domain.RoleUser,
		DateJoined:   testNow,
		UpdatedAt:    testNow,
	}
}

func userRow(u *domain.User) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "email", "password_hash", "first_name", "last_name", "avatar", "role", "date_joined", "updated_at",
	}).AddRow(u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Avatar, u.Role, u.DateJoined, u.UpdatedAt)
}

func sampleProduct(id string, price int64, left int) domain.Product {
	return domain.Product{
		ID:           id,
		Title:        "Product " + id,
		Slug:         "product-" + id,
		Description:  "desc",
		Price:        price,
		QuantityLeft: left,
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
}

var productCols = []string{
	"id", "title", "slug", "description", "price", "quantity_left", "logo", "created_by", "created_at", "updated_at",
}

func productValues(p domain.Product) []any {
	return []any{p.ID, p.Title, p.Slug, p.Description, p.Price, p.QuantityLeft, p.Logo, p.CreatedBy, p.CreatedAt, p.UpdatedAt}
}

var cartCols = append([]string{"c_id", "user_id", "product_id", "quantity", "c_created_at", "c_updated_at"}, productCols...)

func cartValues(c domain.CartItem) []any {
	return append([]any{c.ID, c.UserID, c.ProductID, c.Quantity, c.CreatedAt, c.UpdatedAt}, productValues(*c.Product)...)
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func TestUserRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Avatar, u.Role, u.DateJoined, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), u)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	u := sampleUser()

	mock.ExpectQuery(`FROM users WHERE lower\(email\) = lower\(\$1\)`).
		WithArgs(u.Email).
		WillReturnRows(userRow(u))

	got, err := repo.GetByEmail(context.Background(), u.Email)
	require.NoError(t, err)
	assert.Equal(t, u, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery("FROM users WHERE id =").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Update(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	u := sampleUser()
	u.FirstName = "Pyotr"

	mock.ExpectExec("UPDATE users").
		WithArgs(u.PasswordHash, "Pyotr", u.LastName, u.Avatar, u.Role, pgxmock.AnyArg(), u.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.Update(context.Background(), u))
	assert.True(t, u.UpdatedAt.After(testNow))

	err := repo.Update(context.Background(), u)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

func TestProductRepository_Create_NullCreator(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	p := sampleProduct("p1", 1999, 5)

	mock.ExpectExec("INSERT INTO products").
		WithArgs(p.ID, p.Title, p.Slug, p.Description, p.Price, p.QuantityLeft, p.Logo, nil, p.CreatedAt, p.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), &p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_ListAvailable(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	a := sampleProduct("a", 100, 1)
	b := sampleProduct("b", 200, 3)

	mock.ExpectQuery(`FROM products WHERE quantity_left > 0 ORDER BY created_at DESC`).
		WillReturnRows(pgxmock.NewRows(productCols).
			AddRow(productValues(a)...).
			AddRow(productValues(b)...))

	got, err := repo.ListAvailable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Product{a, b}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_ListAvailable_Empty(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("FROM products").WillReturnRows(pgxmock.NewRows(productCols))

	got, err := repo.ListAvailable(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("FROM products WHERE id =").WithArgs("x").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "x")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Cart
// ---------------------------------------------------------------------------

func sampleCartItem(qty int) domain.CartItem {
	p := sampleProduct("p1", 1000, 10)
	return domain.CartItem{
		ID: "c1", UserID: "u1", ProductID: p.ID, Quantity: qty,
		Product: &p, CreatedAt: testNow, UpdatedAt: testNow,
	}
}

func TestCartRepository_FetchOrCreate(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		created  bool
		qty      int
	}{
		{"inserted", 1, true, 1},
		{"existing", 0, false, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			repo := NewCartRepository(mock)
			item := sampleCartItem(tt.qty)

			mock.ExpectExec(`INSERT INTO cart_items .* ON CONFLICT \(user_id, product_id\) DO NOTHING`).
				WithArgs(pgxmock.AnyArg(), "u1", "p1", pgxmock.AnyArg()).
				WillReturnResult(pgxmock.NewResult("INSERT", tt.affected))
			mock.ExpectQuery(`FROM cart_items c .* WHERE c.user_id = \$1 AND c.product_id = \$2`).
				WithArgs("u1", "p1").
				WillReturnRows(pgxmock.NewRows(cartCols).AddRow(cartValues(item)...))

			got, created, err := repo.FetchOrCreate(context.Background(), "u1", "p1")
			require.NoError(t, err)
			assert.Equal(t, tt.created, created)
			assert.Equal(t, tt.qty, got.Quantity)
			require.NotNil(t, got.Product)
			assert.Equal(t, int64(1000), got.Product.Price)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCartRepository_FetchOrCreate_UnknownProduct(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectExec("INSERT INTO cart_items").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, _, err := repo.FetchOrCreate(context.Background(), "u1", "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

const (
	adjustUpdateSQL = `UPDATE cart_items SET quantity = quantity \+ \$1, updated_at = \$2 WHERE id = \$3 AND user_id = \$4 AND quantity \+ \$1 > 0 RETURNING quantity`
	adjustDeleteSQL = `DELETE FROM cart_items WHERE id = \$2 AND user_id = \$3 AND quantity \+ \$1 <= 0`
)

func TestCartRepository_AdjustQuantity_IncrementsInPlace(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectQuery(adjustUpdateSQL).
		WithArgs(1, pgxmock.AnyArg(), "c1", "u1").
		WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(3))

	change, err := repo.AdjustQuantity(context.Background(), "u1", "c1", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.QuantityChange{ItemID: "c1", Quantity: 3}, change)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_AdjustQuantity_DeletesAtZero(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectQuery(adjustUpdateSQL).
		WithArgs(-5, pgxmock.AnyArg(), "c1", "u1").
		WillReturnRows(pgxmock.NewRows([]string{"quantity"}))
	mock.ExpectExec(adjustDeleteSQL).
		WithArgs(-5, "c1", "u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	change, err := repo.AdjustQuantity(context.Background(), "u1", "c1", -5)
	require.NoError(t, err)
	assert.Equal(t, domain.QuantityChange{ItemID: "c1", Removed: true}, change)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_AdjustQuantity_RetriesWhenRowMoved(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	// A concurrent add lifts the quantity between the update and delete guards.
	mock.ExpectQuery(adjustUpdateSQL).
		WithArgs(-1, pgxmock.AnyArg(), "c1", "u1").
		WillReturnRows(pgxmock.NewRows([]string{"quantity"}))
	mock.ExpectExec(adjustDeleteSQL).
		WithArgs(-1, "c1", "u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery(adjustUpdateSQL).
		WithArgs(-1, pgxmock.AnyArg(), "c1", "u1").
		WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(1))

	change, err := repo.AdjustQuantity(context.Background(), "u1", "c1", -1)
	require.NoError(t, err)
	assert.Equal(t, domain.QuantityChange{ItemID: "c1", Quantity: 1}, change)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_AdjustQuantity_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	for range adjustAttempts {
		mock.ExpectQuery(adjustUpdateSQL).
			WithArgs(1, pgxmock.AnyArg(), "c1", "someone-else").
			WillReturnRows(pgxmock.NewRows([]string{"quantity"}))
		mock.ExpectExec(adjustDeleteSQL).
			WithArgs(1, "c1", "someone-else").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
	}

	_, err := repo.AdjustQuantity(context.Background(), "someone-else", "c1", 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectExec("DELETE FROM cart_items WHERE id =").
		WithArgs("c1", "u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM cart_items WHERE id =").
		WithArgs("c9", "u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(context.Background(), "u1", "c1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "u1", "c9"), apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_ListAndCount(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)
	item := sampleCartItem(2)

	mock.ExpectQuery(`FROM cart_items c .* WHERE c.user_id = \$1 ORDER BY`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(cartCols).AddRow(cartValues(item)...))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(quantity\), 0\) FROM cart_items`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(int64(2)))

	items, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Product p1", items[0].Product.Title)

	n, err := repo.CountQuantity(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

var orderCols = []string{"id", "user_id", "status", "total_price", "created_at"}

var orderItemCols = append([]string{"oi_id", "order_id", "product_id", "oi_price", "oi_quantity"}, productCols...)

func orderItemValues(id, orderID string, p domain.Product, price int64, qty int) []any {
	return append([]any{id, orderID, p.ID, price, qty}, productValues(p)...)
}

func TestOrderRepository_ListByUser(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	p := sampleProduct("p1", 500, 3)

	mock.ExpectQuery("FROM orders WHERE user_id =").
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(orderCols).
			AddRow("o2", "u1", domain.OrderStatusPlaced, int64(1500), testNow).
			AddRow("o1", "u1", domain.OrderStatusPlaced, int64(500), testNow.Add(-time.Hour)))
	mock.ExpectQuery(`FROM order_items oi .* WHERE oi.order_id = ANY\(\$1\) ORDER BY oi.order_id, oi.position, oi.id`).
		WithArgs([]string{"o2", "o1"}).
		WillReturnRows(pgxmock.NewRows(orderItemCols).
			AddRow(orderItemValues("i1", "o1", p, 500, 1)...).
			AddRow(orderItemValues("i2", "o2", p, 500, 3)...))

	orders, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "o2", orders[0].ID)
	require.Len(t, orders[0].Items, 1)
	assert.Equal(t, 3, orders[0].TotalQuantity())
	assert.Equal(t, "i1", orders[1].Items[0].ID)
	assert.Equal(t, "Product p1", orders[1].Items[0].Product.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_ListByUser_NoOrders(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders").WithArgs("u1").WillReturnRows(pgxmock.NewRows(orderCols))

	orders, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	p := sampleProduct("p1", 250, 3)

	mock.ExpectQuery("FROM orders WHERE id =").
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows(orderCols).AddRow("o1", "u1", domain.OrderStatusPlaced, int64(500), testNow))
	mock.ExpectQuery(`WHERE oi.order_id = \$1 ORDER BY oi.position, oi.id`).
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows(orderItemCols).AddRow(orderItemValues("i1", "o1", p, 250, 2)...))

	o, err := repo.GetByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), o.ComputeTotal())
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectQuery("FROM orders WHERE id =").WithArgs("o9").WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetByID(context.Background(), "o9")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderRepository_PlaceFromCart(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	a := sampleCartItem(2)
	pb := sampleProduct("p2", 300, 1)
	b := domain.CartItem{ID: "c2", UserID: "u1", ProductID: "p2", Quantity: 1, Product: &pb, CreatedAt: testNow, UpdatedAt: testNow}

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM cart_items c .* FOR UPDATE OF c, p`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(cartCols).AddRow(cartValues(a)...).AddRow(cartValues(b)...))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(pgxmock.AnyArg(), "u1", domain.OrderStatusPlaced, int64(2300), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE products SET quantity_left = quantity_left -").
		WithArgs(2, pgxmock.AnyArg(), "p1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "p1", int64(1000), 2, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE products SET quantity_left = quantity_left -").
		WithArgs(1, pgxmock.AnyArg(), "p2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "p2", int64(300), 1, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM cart_items WHERE user_id =").
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	o, err := repo.PlaceFromCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2300), o.TotalPrice)
	assert.Equal(t, 3, o.TotalQuantity())
	assert.Equal(t, 8, o.Items[0].Product.QuantityLeft)
	assert.Equal(t, 0, o.Items[1].Product.QuantityLeft)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_PlaceFromCart_KeepsCartOrder(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	// p1 sorts first by product id but was added to the cart last.
	a := sampleCartItem(1)
	pb := sampleProduct("p2", 300, 5)
	b := domain.CartItem{
		ID: "c9", UserID: "u1", ProductID: "p2", Quantity: 2,
		Product: &pb, CreatedAt: testNow.Add(-time.Hour), UpdatedAt: testNow,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF c, p`).
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows(cartCols).AddRow(cartValues(a)...).AddRow(cartValues(b)...))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(pgxmock.AnyArg(), "u1", domain.OrderStatusPlaced, int64(1600), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE products SET quantity_left").
		WithArgs(2, pgxmock.AnyArg(), "p2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO order_items \(id, order_id, product_id, price, quantity, position\)`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "p2", int64(300), 2, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE products SET quantity_left").
		WithArgs(1, pgxmock.AnyArg(), "p1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "p1", int64(1000), 1, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM cart_items WHERE user_id =").
		WithArgs("u1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	o, err := repo.PlaceFromCart(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "p2", o.Items[0].ProductID)
	assert.Equal(t, "p1", o.Items[1].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_PlaceFromCart_EmptyCart(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("u1").WillReturnRows(pgxmock.NewRows(cartCols))
	mock.ExpectRollback()

	_, err := repo.PlaceFromCart(context.Background(), "u1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_PlaceFromCart_InsufficientStock(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	item := sampleCartItem(11)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs("u1").WillReturnRows(pgxmock.NewRows(cartCols).AddRow(cartValues(item)...))
	mock.ExpectRollback()

	_, err := repo.PlaceFromCart(context.Background(), "u1")
	assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "requested 11, only 10 left")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_PlaceFromCart_BeginError(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	_, err := repo.PlaceFromCart(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
}
