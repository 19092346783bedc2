package repository

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshop/internal/domain"
)

func TestMemoryStore_ProductCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := domain.Product{Name: "A", Price: decimal.NewFromInt(10), Stock: 5}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 {
		t.Fatalf("no id")
	}

	got, err := store.GetByID(ctx, p.ID)
	if err != nil || got.ID != p.ID {
		t.Fatalf("get: %v", err)
	}

	p.Price = decimal.NewFromInt(12)
	if err := store.Update(ctx, &p); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetByID(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_DecrementStock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := domain.Product{Name: "A", Price: decimal.NewFromInt(1), Stock: 3}
	require.NoError(t, store.Create(ctx, &p))

	ok, err := store.DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok, "остатка 1 не хватает на 2")

	stock, err := store.Stock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stock)

	ok, err = store.DecrementStock(ctx, 999, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Stock(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DecrementStockRejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := domain.Product{Name: "A", Price: decimal.NewFromInt(1), Stock: 3}
	require.NoError(t, store.Create(ctx, &p))

	for _, qty := range []int64{0, -1, -9223372036854775807} {
		ok, err := store.DecrementStock(ctx, p.ID, qty)
		require.NoError(t, err)
		assert.False(t, ok, "qty %d", qty)
	}

	stock, err := store.Stock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stock)
}

func TestMemoryOrders_LinesCarryProductName(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := NewMemoryOrders(store)
	pho := domain.Product{Name: "Pho", Price: decimal.NewFromInt(5), Stock: 3}
	tea := domain.Product{Name: "Tea", Price: decimal.NewFromInt(1), Stock: 3}
	require.NoError(t, store.Create(ctx, &pho))
	require.NoError(t, store.Create(ctx, &tea))

	o := domain.Order{CustomerID: "c"}
	require.NoError(t, orders.Create(ctx, &o))
	require.NoError(t, orders.AddLine(ctx, domain.OrderLine{OrderID: o.ID, ProductID: pho.ID, UnitPrice: pho.Price, Quantity: 1}))
	require.NoError(t, orders.AddLine(ctx, domain.OrderLine{OrderID: o.ID, ProductID: tea.ID, UnitPrice: tea.Price, Quantity: 2}))
	require.NoError(t, store.Delete(ctx, tea.ID))

	lines, err := orders.Lines(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "Pho", lines[0].ProductName)
	assert.Empty(t, lines[1].ProductName)
}

func TestMemoryTx_TransactionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)

	// seed product
	p := domain.Product{Name: "A", Price: decimal.NewFromInt(10), Stock: 5}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}

	// emulate atomic create order with stock decrease
	err := tx.WithTransaction(ctx, func(ctx context.Context, tx Tx) error {
		ok, err := tx.Stock().DecrementStock(ctx, p.ID, 3)
		if err != nil {
			return err
		}
		if !ok {
			t.Fatalf("stock precondition")
		}
		o := domain.Order{CustomerID: "john", Status: domain.OrderStatusPending, PaymentStatus: domain.PaymentStatusUnpaid}
		if err := tx.Orders().Create(ctx, &o); err != nil {
			return err
		}
		return tx.Orders().AddLine(ctx, domain.OrderLine{OrderID: o.ID, ProductID: p.ID, UnitPrice: p.Price, Quantity: 3})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	// check stock after
	pp, _ := store.GetByID(context.Background(), p.ID)
	if pp.Stock != 2 {
		t.Fatalf("stock expected 2, got %v", pp.Stock)
	}
	list, err := orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestMemoryTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)
	carts := NewMemoryCarts(store)

	p := domain.Product{Name: "A", Price: decimal.NewFromInt(10), Stock: 5}
	require.NoError(t, store.Create(ctx, &p))
	cart := domain.Cart{CustomerID: "c1"}
	require.NoError(t, carts.Create(ctx, &cart))
	require.NoError(t, carts.SaveLine(ctx, domain.CartLine{CartID: cart.ID, ProductID: p.ID, Quantity: 2}))

	boom := errors.New("boom")
	err := tx.WithTransaction(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Stock().DecrementStock(ctx, p.ID, 5); err != nil {
			return err
		}
		o := domain.Order{CustomerID: "c1"}
		if err := tx.Orders().Create(ctx, &o); err != nil {
			return err
		}
		if _, err := tx.Carts().ClearLines(ctx, cart.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stock, err := store.Stock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stock)

	list, err := orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	items, err := carts.Items(ctx, cart.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	// идентификатор заказа тоже откатывается
	o := domain.Order{CustomerID: "c1"}
	require.NoError(t, orders.Create(ctx, &o))
	assert.Equal(t, int64(1), o.ID)
}

func TestMemoryTx_RollbackOnPanic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	p := domain.Product{Name: "A", Price: decimal.NewFromInt(1), Stock: 1}
	require.NoError(t, store.Create(ctx, &p))

	assert.Panics(t, func() {
		_ = tx.WithTransaction(ctx, func(ctx context.Context, tx Tx) error {
			_, _ = tx.Stock().DecrementStock(ctx, p.ID, 1)
			panic("unexpected")
		})
	})

	stock, err := store.Stock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stock)
}

func TestMemoryCarts_Lines(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	carts := NewMemoryCarts(store)

	a := domain.Product{Name: "A", Price: decimal.NewFromInt(3), Stock: 10}
	require.NoError(t, store.Create(ctx, &a))

	c := domain.Cart{CustomerID: "c1"}
	require.NoError(t, carts.Create(ctx, &c))
	dup := domain.Cart{CustomerID: "c1"}
	assert.ErrorIs(t, carts.Create(ctx, &dup), ErrAlreadyExists)

	found, err := carts.FindByCustomer(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)

	require.NoError(t, carts.SaveLine(ctx, domain.CartLine{CartID: c.ID, ProductID: a.ID, Quantity: 1}))
	require.NoError(t, carts.SaveLine(ctx, domain.CartLine{CartID: c.ID, ProductID: a.ID, Quantity: 4}))

	line, err := carts.GetLine(ctx, c.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), line.Quantity)

	items, err := carts.Items(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].UnitPrice.Equal(decimal.NewFromInt(3)))

	assert.ErrorIs(t, carts.SaveLine(ctx, domain.CartLine{CartID: 42, ProductID: a.ID, Quantity: 1}), ErrNotFound)
	assert.ErrorIs(t, carts.DeleteLine(ctx, c.ID, 999), ErrNotFound)

	n, err := carts.ClearLines(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryOrders_ListOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := NewMemoryOrders(store)

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	create := func(customer string, at time.Time) int64 {
		o := domain.Order{CustomerID: customer, PlacedAt: at}
		require.NoError(t, orders.Create(ctx, &o))
		return o.ID
	}
	first := create("c1", base)
	tieA := create("c1", base.Add(time.Hour))
	other := create("c2", base.Add(2*time.Hour))
	tieB := create("c1", base.Add(time.Hour))

	list, err := orders.ListByCustomer(ctx, "c1")
	require.NoError(t, err)
	ids := make([]int64, 0, len(list))
	for _, o := range list {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []int64{tieA, tieB, first}, ids)

	all, err := orders.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, other, all[0].ID)

	require.NoError(t, orders.UpdateStatus(ctx, first, domain.OrderStatusConfirmed))
	got, err := orders.GetByID(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, got.Status)
	assert.ErrorIs(t, orders.UpdatePaymentStatus(ctx, 999, domain.PaymentStatusPaid), ErrNotFound)
}
