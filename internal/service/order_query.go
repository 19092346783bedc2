package service

import (
	"context"

	"foodshop/internal/domain"
)

// GetOrder возвращает заказ вместе с позициями
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.PlacedOrder, error) {
	if id <= 0 {
		return nil, invalidf("order id must be positive")
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lines, err := s.orders.Lines(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.PlacedOrder{Order: *o, Lines: lines}, nil
}

// ListOrdersByCustomer история покупателя, новые сверху
func (s *OrderService) ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	if customerID == "" {
		return nil, invalidf("customer id is required")
	}
	return s.orders.ListByCustomer(ctx, customerID)
}

func (s *OrderService) ListAllOrders(ctx context.Context) ([]domain.Order, error) {
	return s.orders.List(ctx)
}

func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if id <= 0 || !status.Valid() {
		return nil, invalidf("unknown order status %q", status)
	}
	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) (*domain.Order, error) {
	if id <= 0 || !status.Valid() {
		return nil, invalidf("unknown payment status %q", status)
	}
	if err := s.orders.UpdatePaymentStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.orders.GetByID(ctx, id)
}
