package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product товар каталога. Сервис заказов меняет только Stock.
type Product struct {
	ID         int64           `json:"id" db:"id"`
	Name       string          `json:"name" db:"name"`
	CategoryID *int64          `json:"category_id,omitempty" db:"category_id"`
	Price      decimal.Decimal `json:"price" db:"price"`
	Stock      int64           `json:"stock" db:"stock"`
}

// OrderStatus статус выполнения заказа
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending_confirmation"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivering, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus статус оплаты. Выставляется клиентом, не проверяется.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusUnpaid || s == PaymentStatusPaid
}

// Order заголовок заказа (без позиций)
type Order struct {
	ID              int64         `json:"id" db:"id"`
	CustomerID      string        `json:"customer_id" db:"customer_id"`
	PlacedAt        time.Time     `json:"placed_at" db:"placed_at"`
	Status          OrderStatus   `json:"status" db:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status" db:"payment_status"`
	DeliveryAddress string        `json:"delivery_address" db:"delivery_address"`
	Phone           string        `json:"phone" db:"phone"`
	Note            string        `json:"note" db:"note"`
	CouponID        *string       `json:"coupon_id" db:"coupon_id"`
	PaymentMethodID *string       `json:"payment_method_id" db:"payment_method_id"`
}

// OrderLine позиция заказа. UnitPrice фиксируется в момент заказа.
// ProductName заполняется только при чтении, из текущего каталога.
type OrderLine struct {
	OrderID     int64           `json:"order_id" db:"order_id"`
	ProductID   int64           `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name,omitempty" db:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Quantity    int64           `json:"quantity" db:"quantity"`
}

// Total стоимость позиции
func (l OrderLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// PlacedOrder заказ вместе с позициями
type PlacedOrder struct {
	Order Order       `json:"order"`
	Lines []OrderLine `json:"lines"`
}

// TotalAmount сумма по всем позициям заказа
func (o PlacedOrder) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Total())
	}
	return total
}

// DeliveryInfo данные доставки, которые клиент передаёт при оформлении
type DeliveryInfo struct {
	Address string `json:"delivery_address"`
	Phone   string `json:"phone"`
	Note    string `json:"note"`
}

// Cart корзина покупателя. У покупателя не больше одной корзины.
type Cart struct {
	ID         int64     `json:"id" db:"id"`
	CustomerID string    `json:"customer_id" db:"customer_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// CartLine позиция корзины, Quantity всегда >= 1
type CartLine struct {
	CartID    int64 `json:"cart_id" db:"cart_id"`
	ProductID int64 `json:"product_id" db:"product_id"`
	Quantity  int64 `json:"quantity" db:"quantity"`
}

// CartItem позиция корзины вместе с текущими данными товара
type CartItem struct {
	ProductID int64           `json:"product_id" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"price"`
	Stock     int64           `json:"stock" db:"stock"`
	Quantity  int64           `json:"quantity" db:"quantity"`
}

// LineTotal стоимость позиции по текущей цене
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// CartSnapshot состояние корзины с итогами по живым ценам каталога
type CartSnapshot struct {
	CartID        int64           `json:"cart_id"`
	CustomerID    string          `json:"customer_id"`
	Items         []CartItem      `json:"items"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}
