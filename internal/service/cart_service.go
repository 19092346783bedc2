package service

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"foodshop/internal/domain"
	"foodshop/internal/repository"
)

// CartService корзина покупателя до оформления заказа.
// Правки одной корзины клиент выполняет последовательно.
type CartService struct {
	carts     repository.CartRepository
	inventory *Inventory
	log       logrus.FieldLogger
}

func NewCartService(carts repository.CartRepository, stock repository.StockLedger, logger logrus.FieldLogger) *CartService {
	return &CartService{carts: carts, inventory: NewInventory(stock), log: logger}
}

// EnsureCart возвращает корзину покупателя, создавая её при первом обращении
func (s *CartService) EnsureCart(ctx context.Context, customerID string) (int64, error) {
	if customerID == "" {
		return 0, invalidf("customer id is required")
	}
	c, err := s.carts.FindByCustomer(ctx, customerID)
	if err == nil {
		return c.ID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, err
	}
	c = &domain.Cart{CustomerID: customerID}
	err = s.carts.Create(ctx, c)
	if errors.Is(err, repository.ErrAlreadyExists) {
		// корзину успел создать параллельный запрос
		c, err = s.carts.FindByCustomer(ctx, customerID)
		if err != nil {
			return 0, err
		}
		return c.ID, nil
	}
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"customer_id": customerID, "cart_id": c.ID}).Debug("cart created")
	return c.ID, nil
}

// AddOrIncrement добавляет товар или увеличивает количество.
// Остаток проверяется на итоговое количество, а не на добавку.
func (s *CartService) AddOrIncrement(ctx context.Context, cartID, productID, qty int64) error {
	if productID <= 0 || qty <= 0 {
		return invalidf("product id and quantity must be positive")
	}
	if _, err := s.carts.GetByID(ctx, cartID); err != nil {
		return err
	}
	var current int64
	line, err := s.carts.GetLine(ctx, cartID, productID)
	switch {
	case err == nil:
		current = line.Quantity
	case !errors.Is(err, repository.ErrNotFound):
		return err
	}
	if qty > math.MaxInt64-current {
		return invalidf("quantity of product %d is too large", productID)
	}
	total := current + qty
	if err := s.inventory.EnsureAvailable(ctx, productID, total); err != nil {
		return err
	}
	return s.carts.SaveLine(ctx, domain.CartLine{CartID: cartID, ProductID: productID, Quantity: total})
}

// SetQuantity задаёт абсолютное количество. Ноль удаляет позицию.
func (s *CartService) SetQuantity(ctx context.Context, cartID, productID, qty int64) error {
	if productID <= 0 || qty < 0 {
		return invalidf("product id must be positive and quantity non-negative")
	}
	if _, err := s.carts.GetLine(ctx, cartID, productID); err != nil {
		return err
	}
	if qty == 0 {
		return s.carts.DeleteLine(ctx, cartID, productID)
	}
	if err := s.inventory.EnsureAvailable(ctx, productID, qty); err != nil {
		return err
	}
	return s.carts.SaveLine(ctx, domain.CartLine{CartID: cartID, ProductID: productID, Quantity: qty})
}

func (s *CartService) RemoveLine(ctx context.Context, cartID, productID int64) error {
	if productID <= 0 {
		return invalidf("product id must be positive")
	}
	return s.carts.DeleteLine(ctx, cartID, productID)
}

// Clear удаляет все позиции и возвращает их количество
func (s *CartService) Clear(ctx context.Context, cartID int64) (int64, error) {
	if _, err := s.carts.GetByID(ctx, cartID); err != nil {
		return 0, err
	}
	return s.carts.ClearLines(ctx, cartID)
}

// Snapshot позиции корзины и итоги по текущим ценам каталога
func (s *CartService) Snapshot(ctx context.Context, cartID int64) (*domain.CartSnapshot, error) {
	c, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	items, err := s.carts.Items(ctx, cartID)
	if err != nil {
		return nil, err
	}
	snap := &domain.CartSnapshot{
		CartID:      c.ID,
		CustomerID:  c.CustomerID,
		Items:       items,
		TotalAmount: decimal.Zero,
	}
	for _, it := range items {
		snap.TotalQuantity += it.Quantity
		snap.TotalAmount = snap.TotalAmount.Add(it.LineTotal())
	}
	return snap, nil
}

// Операции по идентификатору покупателя, их использует HTTP-слой

func (s *CartService) AddForCustomer(ctx context.Context, customerID string, productID, qty int64) (*domain.CartSnapshot, error) {
	cartID, err := s.EnsureCart(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := s.AddOrIncrement(ctx, cartID, productID, qty); err != nil {
		return nil, err
	}
	return s.Snapshot(ctx, cartID)
}

func (s *CartService) SetQuantityForCustomer(ctx context.Context, customerID string, productID, qty int64) (*domain.CartSnapshot, error) {
	cartID, err := s.cartOf(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := s.SetQuantity(ctx, cartID, productID, qty); err != nil {
		return nil, err
	}
	return s.Snapshot(ctx, cartID)
}

func (s *CartService) RemoveForCustomer(ctx context.Context, customerID string, productID int64) (*domain.CartSnapshot, error) {
	cartID, err := s.cartOf(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := s.RemoveLine(ctx, cartID, productID); err != nil {
		return nil, err
	}
	return s.Snapshot(ctx, cartID)
}

func (s *CartService) ClearForCustomer(ctx context.Context, customerID string) (*domain.CartSnapshot, error) {
	cartID, err := s.cartOf(ctx, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		return emptySnapshot(customerID), nil
	}
	if err != nil {
		return nil, err
	}
	removed, err := s.Clear(ctx, cartID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"customer_id": customerID, "removed": removed}).Info("cart cleared")
	return s.Snapshot(ctx, cartID)
}

// SnapshotForCustomer для покупателя без корзины возвращает пустую корзину
func (s *CartService) SnapshotForCustomer(ctx context.Context, customerID string) (*domain.CartSnapshot, error) {
	cartID, err := s.cartOf(ctx, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		return emptySnapshot(customerID), nil
	}
	if err != nil {
		return nil, err
	}
	return s.Snapshot(ctx, cartID)
}

func (s *CartService) cartOf(ctx context.Context, customerID string) (int64, error) {
	if customerID == "" {
		return 0, invalidf("customer id is required")
	}
	c, err := s.carts.FindByCustomer(ctx, customerID)
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

func emptySnapshot(customerID string) *domain.CartSnapshot {
	return &domain.CartSnapshot{CustomerID: customerID, Items: []domain.CartItem{}, TotalAmount: decimal.Zero}
}
