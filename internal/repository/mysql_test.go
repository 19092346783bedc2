package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshop/internal/domain"
)

// Тесты запускаются только против настоящей базы:
// FOODSHOP_TEST_MYSQL_DSN=user:pass@tcp(localhost:3306)/foodshop_test
func setupMySQL(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("FOODSHOP_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("FOODSHOP_TEST_MYSQL_DSN is not set")
	}
	require.NoError(t, Migrate(dsn))
	db, err := OpenMySQL(context.Background(), dsn, 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, table := range []string{"order_line", "orders", "cart_line", "cart", "product"} {
		_, err := db.Exec("DELETE FROM " + table)
		require.NoError(t, err)
	}
	return db
}

func TestNormalizeDSN(t *testing.T) {
	dsn, err := NormalizeDSN("user:secret@tcp(db:3306)/shop")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "clientFoundRows=true")
	assert.NotContains(t, dsn, "multiStatements")

	dsn, err = migrationDSN("user:secret@tcp(db:3306)/shop")
	require.NoError(t, err)
	assert.Contains(t, dsn, "multiStatements=true")
	assert.Contains(t, dsn, "parseTime=true")

	_, err = NormalizeDSN("::not a dsn")
	assert.Error(t, err)
}

func TestMySQLProducts_DecrementStockConcurrent(t *testing.T) {
	db := setupMySQL(t)
	ctx := context.Background()
	products := NewMySQLProducts(db)

	p := domain.Product{Name: "Pho", Price: decimal.RequireFromString("4.50"), Stock: 5}
	require.NoError(t, products.Create(ctx, &p))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := products.DecrementStock(ctx, p.ID, 1)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	stock, err := products.Stock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stock)
}

func TestMySQLTx_Rollback(t *testing.T) {
	db := setupMySQL(t)
	ctx := context.Background()
	products := NewMySQLProducts(db)
	orders := NewMySQLOrders(db)
	tx := NewMySQLTx(db)

	p := domain.Product{Name: "Banh mi", Price: decimal.NewFromInt(3), Stock: 2}
	require.NoError(t, products.Create(ctx, &p))

	boom := errors.New("boom")
	err := tx.WithTransaction(ctx, func(ctx context.Context, tx Tx) error {
		ok, err := tx.Stock().DecrementStock(ctx, p.ID, 2)
		require.NoError(t, err)
		require.True(t, ok)
		o := domain.Order{CustomerID: "c1", Status: domain.OrderStatusPending, PaymentStatus: domain.PaymentStatusUnpaid}
		require.NoError(t, tx.Orders().Create(ctx, &o))
		require.NoError(t, tx.Orders().AddLine(ctx, domain.OrderLine{OrderID: o.ID, ProductID: p.ID, UnitPrice: p.Price, Quantity: 2}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	stock, err := products.Stock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stock)
	list, err := orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMySQLOrders_NullableCoupon(t *testing.T) {
	db := setupMySQL(t)
	ctx := context.Background()
	orders := NewMySQLOrders(db)

	coupon := "SUMMER"
	withCoupon := domain.Order{CustomerID: "c1", Status: domain.OrderStatusPending, PaymentStatus: domain.PaymentStatusUnpaid, CouponID: &coupon}
	withoutCoupon := domain.Order{CustomerID: "c1", Status: domain.OrderStatusPending, PaymentStatus: domain.PaymentStatusUnpaid}
	require.NoError(t, orders.Create(ctx, &withCoupon))
	require.NoError(t, orders.Create(ctx, &withoutCoupon))

	got, err := orders.GetByID(ctx, withCoupon.ID)
	require.NoError(t, err)
	require.NotNil(t, got.CouponID)
	assert.Equal(t, coupon, *got.CouponID)

	got, err = orders.GetByID(ctx, withoutCoupon.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CouponID)

	// повторная установка того же статуса не считается "не найдено"
	require.NoError(t, orders.UpdateStatus(ctx, got.ID, domain.OrderStatusPending))
	assert.ErrorIs(t, orders.UpdateStatus(ctx, got.ID+100, domain.OrderStatusPending), ErrNotFound)
}

func TestMySQLCarts_UniqueCustomer(t *testing.T) {
	db := setupMySQL(t)
	ctx := context.Background()
	carts := NewMySQLCarts(db)
	products := NewMySQLProducts(db)

	p := domain.Product{Name: "Com tam", Price: decimal.NewFromInt(5), Stock: 10}
	require.NoError(t, products.Create(ctx, &p))

	c := domain.Cart{CustomerID: "c1"}
	require.NoError(t, carts.Create(ctx, &c))
	dup := domain.Cart{CustomerID: "c1"}
	assert.ErrorIs(t, carts.Create(ctx, &dup), ErrAlreadyExists)

	require.NoError(t, carts.SaveLine(ctx, domain.CartLine{CartID: c.ID, ProductID: p.ID, Quantity: 1}))
	require.NoError(t, carts.SaveLine(ctx, domain.CartLine{CartID: c.ID, ProductID: p.ID, Quantity: 3}))

	items, err := carts.Items(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(3), items[0].Quantity)
	assert.Equal(t, "Com tam", items[0].Name)

	n, err := carts.ClearLines(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMySQLProducts_DecrementStockRejectsNonPositive(t *testing.T) {
	db := setupMySQL(t)
	ctx := context.Background()
	products := NewMySQLProducts(db)

	p := domain.Product{Name: "Com tam", Price: decimal.NewFromInt(6), Stock: 2}
	require.NoError(t, products.Create(ctx, &p))

	ok, err := products.DecrementStock(ctx, p.ID, -5)
	require.NoError(t, err)
	assert.False(t, ok)

	stock, err := products.Stock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stock)
}

func TestMySQLOrders_LinesKeepPriceAndName(t *testing.T) {
	db := setupMySQL(t)
	ctx := context.Background()
	products := NewMySQLProducts(db)
	orders := NewMySQLOrders(db)

	p := domain.Product{Name: "Bun cha", Price: decimal.RequireFromString("7.35"), Stock: 2}
	require.NoError(t, products.Create(ctx, &p))

	o := domain.Order{CustomerID: "c1", PlacedAt: time.Now().UTC(), Status: domain.OrderStatusPending, PaymentStatus: domain.PaymentStatusUnpaid}
	require.NoError(t, orders.Create(ctx, &o))
	require.NoError(t, orders.AddLine(ctx, domain.OrderLine{OrderID: o.ID, ProductID: p.ID, UnitPrice: p.Price, Quantity: 1}))

	lines, err := orders.Lines(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Bun cha", lines[0].ProductName)
	assert.True(t, p.Price.Equal(lines[0].UnitPrice), "got %s", lines[0].UnitPrice)
}
