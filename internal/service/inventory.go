package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"foodshop/internal/repository"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotEnoughStock = errors.New("not enough stock")
)

// StockError нехватка остатка по конкретному товару.
// errors.Is(err, ErrNotEnoughStock) для неё истинно.
type StockError struct {
	ProductID int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("not enough stock for product %d", e.ProductID)
}

func (e *StockError) Is(target error) bool { return target == ErrNotEnoughStock }

func invalidf(format string, args ...interface{}) error {
	return errors.WithMessagef(ErrInvalidInput, format, args...)
}

// Цены хранятся в DECIMAL(12,2): больше двух знаков после запятой
// или выход за диапазон база молча округлит или отвергнет.
const priceScale = 2

var maxPrice = decimal.RequireFromString("9999999999.99")

func validatePrice(what string, price decimal.Decimal) error {
	if price.IsNegative() {
		return invalidf("%s must not be negative", what)
	}
	if !price.Equal(price.Round(priceScale)) {
		return invalidf("%s must have at most %d decimal places", what, priceScale)
	}
	if price.GreaterThan(maxPrice) {
		return invalidf("%s must not exceed %s", what, maxPrice)
	}
	return nil
}

// Inventory проверка и списание остатков поверх StockLedger.
// Внутри транзакции создаётся из tx.Stock(), вне её - из обычного хранилища.
type Inventory struct {
	ledger repository.StockLedger
}

func NewInventory(ledger repository.StockLedger) *Inventory {
	return &Inventory{ledger: ledger}
}

// CheckAvailability хватает ли остатка на qty. Только быстрая предварительная
// проверка: окончательное решение принимает DecrementStock.
func (i *Inventory) CheckAvailability(ctx context.Context, productID, qty int64) (bool, error) {
	stock, err := i.ledger.Stock(ctx, productID)
	if err != nil {
		return false, errors.WithMessagef(err, "product %d", productID)
	}
	return stock >= qty, nil
}

// EnsureAvailable как CheckAvailability, но нехватка возвращается как *StockError
func (i *Inventory) EnsureAvailable(ctx context.Context, productID, qty int64) error {
	ok, err := i.CheckAvailability(ctx, productID, qty)
	if err != nil {
		return err
	}
	if !ok {
		return &StockError{ProductID: productID}
	}
	return nil
}

func (i *Inventory) DecrementStock(ctx context.Context, productID, qty int64) error {
	if qty <= 0 {
		return invalidf("quantity of product %d must be positive", productID)
	}
	ok, err := i.ledger.DecrementStock(ctx, productID, qty)
	if err != nil {
		return err
	}
	if !ok {
		return &StockError{ProductID: productID}
	}
	return nil
}
