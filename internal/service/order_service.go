package service

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"foodshop/internal/domain"
	"foodshop/internal/events"
	"foodshop/internal/repository"
)

// OrderService оформление заказов и чтение истории
type OrderService struct {
	orders repository.OrderRepository
	tx     repository.TxManager
	events events.Dispatcher
	log    logrus.FieldLogger
	now    func() time.Time

	dispatchTimeout time.Duration
}

// сколько ответ на оформленный заказ может ждать публикации события
const defaultDispatchTimeout = 2 * time.Second

func NewOrderService(orders repository.OrderRepository, tx repository.TxManager, dispatcher events.Dispatcher, logger logrus.FieldLogger) *OrderService {
	return &OrderService{
		orders: orders,
		tx:     tx,
		events: dispatcher,
		log:    logger,
		now:    func() time.Time { return time.Now().UTC() },

		dispatchTimeout: defaultDispatchTimeout,
	}
}

// LineItem позиция, которую клиент передаёт при оформлении.
// Цене клиента доверяем: она попадает в заказ как есть.
type LineItem struct {
	ProductID int64           `json:"product_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
}

type PlaceOrderRequest struct {
	CustomerID      string
	Delivery        domain.DeliveryInfo
	PaymentMethodID *string
	CouponID        *string
	Lines           []LineItem
}

// CheckoutRequest оформление из сохранённой корзины
type CheckoutRequest struct {
	Delivery        domain.DeliveryInfo
	PaymentMethodID *string
	CouponID        *string
}

// PlaceOrder проверяет остатки, создаёт заказ с позициями и списывает остатки
// в одной транзакции. При любой ошибке ничего из этого не сохраняется.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.PlacedOrder, error) {
	if err := validatePlaceOrder(req); err != nil {
		return nil, err
	}

	var placed *domain.PlacedOrder
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		placed, err = s.place(ctx, tx, s.newOrder(req.CustomerID, req.Delivery, req.PaymentMethodID, req.CouponID), req.Lines)
		return err
	})
	if err != nil {
		return nil, s.placementFailed(req.CustomerID, err)
	}
	s.placed(ctx, placed)
	return placed, nil
}

// Checkout оформляет заказ из корзины покупателя по текущим ценам каталога
// и очищает корзину в той же транзакции.
func (s *OrderService) Checkout(ctx context.Context, customerID string, req CheckoutRequest) (*domain.PlacedOrder, error) {
	if customerID == "" {
		return nil, invalidf("customer id is required")
	}

	var placed *domain.PlacedOrder
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		cart, err := tx.Carts().FindByCustomer(ctx, customerID)
		if errors.Is(err, repository.ErrNotFound) {
			return invalidf("cart is empty")
		}
		if err != nil {
			return err
		}
		items, err := tx.Carts().Items(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return invalidf("cart is empty")
		}
		lines := make([]LineItem, 0, len(items))
		for _, it := range items {
			lines = append(lines, LineItem{ProductID: it.ProductID, UnitPrice: it.UnitPrice, Quantity: it.Quantity})
		}
		// строки корзины проверяются так же, как позиции явного заказа
		if err := validateLines(lines); err != nil {
			return err
		}

		placed, err = s.place(ctx, tx, s.newOrder(customerID, req.Delivery, req.PaymentMethodID, req.CouponID), lines)
		if err != nil {
			return err
		}
		if _, err := tx.Carts().ClearLines(ctx, cart.ID); err != nil {
			return errors.Wrap(err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, s.placementFailed(customerID, err)
	}
	s.placed(ctx, placed)
	return placed, nil
}

func (s *OrderService) newOrder(customerID string, d domain.DeliveryInfo, paymentMethodID, couponID *string) domain.Order {
	return domain.Order{
		CustomerID:      customerID,
		PlacedAt:        s.now(),
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentStatusUnpaid,
		DeliveryAddress: d.Address,
		Phone:           d.Phone,
		Note:            d.Note,
		CouponID:        emptyToNil(couponID),
		PaymentMethodID: emptyToNil(paymentMethodID),
	}
}

// place выполняется внутри транзакции
func (s *OrderService) place(ctx context.Context, tx repository.Tx, o domain.Order, items []LineItem) (*domain.PlacedOrder, error) {
	inventory := NewInventory(tx.Stock())

	// быстрая проверка до записи чего-либо
	for _, it := range items {
		if err := inventory.EnsureAvailable(ctx, it.ProductID, it.Quantity); err != nil {
			return nil, err
		}
	}

	if err := tx.Orders().Create(ctx, &o); err != nil {
		return nil, errors.Wrap(err, "insert order")
	}

	lines := make([]domain.OrderLine, 0, len(items))
	for _, it := range items {
		line := domain.OrderLine{OrderID: o.ID, ProductID: it.ProductID, UnitPrice: it.UnitPrice, Quantity: it.Quantity}
		if err := tx.Orders().AddLine(ctx, line); err != nil {
			return nil, errors.Wrapf(err, "insert line for product %d", it.ProductID)
		}
		lines = append(lines, line)
	}

	// условное списание: остаток мог уйти параллельному заказу после проверки.
	// Списываем в порядке id товара, чтобы блокировки строк брались в одном порядке.
	for _, it := range byProductID(items) {
		if err := inventory.DecrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			return nil, err
		}
	}
	return &domain.PlacedOrder{Order: o, Lines: lines}, nil
}

func (s *OrderService) placed(ctx context.Context, p *domain.PlacedOrder) {
	s.log.WithFields(logrus.Fields{
		"order_id":    p.Order.ID,
		"customer_id": p.Order.CustomerID,
		"lines":       len(p.Lines),
		"total":       p.TotalAmount().String(),
	}).Info("order placed")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dispatchTimeout)
	defer cancel()
	if err := s.events.Dispatch(ctx, events.NewOrderPlaced(*p)); err != nil {
		s.log.WithError(err).WithField("order_id", p.Order.ID).Warn("failed to dispatch order event")
	}
}

// placementFailed ожидаемые ошибки возвращаются как есть, остальные
// считаются сбоем транзакции
func (s *OrderService) placementFailed(customerID string, err error) error {
	entry := s.log.WithError(err).WithField("customer_id", customerID)
	if isExpected(err) {
		entry.Info("order rejected")
		return err
	}
	entry.Error("order placement failed")
	return errors.Wrap(err, "place order")
}

func isExpected(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotEnoughStock) || errors.Is(err, repository.ErrNotFound)
}

func validatePlaceOrder(req PlaceOrderRequest) error {
	if req.CustomerID == "" {
		return invalidf("customer id is required")
	}
	if len(req.Lines) == 0 {
		return invalidf("order has no items")
	}
	return validateLines(req.Lines)
}

func validateLines(lines []LineItem) error {
	seen := make(map[int64]struct{}, len(lines))
	for _, l := range lines {
		if l.ProductID <= 0 {
			return invalidf("product id must be positive")
		}
		if l.Quantity <= 0 {
			return invalidf("quantity of product %d must be positive", l.ProductID)
		}
		if err := validatePrice("unit price", l.UnitPrice); err != nil {
			return errors.WithMessagef(err, "product %d", l.ProductID)
		}
		if _, dup := seen[l.ProductID]; dup {
			return invalidf("product %d listed more than once", l.ProductID)
		}
		seen[l.ProductID] = struct{}{}
	}
	return nil
}

func byProductID(items []LineItem) []LineItem {
	sorted := append([]LineItem(nil), items...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	return sorted
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
