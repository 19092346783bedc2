package repository

import (
	"context"

	"github.com/pkg/errors"

	"foodshop/internal/domain"
)

var (
	// ErrNotFound возвращается, когда сущность не найдена
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists нарушение уникальности (например, вторая корзина покупателя)
	ErrAlreadyExists = errors.New("already exists")
)

// ProductRepository интерфейс каталога товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Product, error)
}

// StockLedger учёт остатков.
// DecrementStock списывает qty только если остатка хватает и возвращает false,
// если условие не выполнилось (ни одна строка не изменена). qty <= 0 не списывается.
type StockLedger interface {
	Stock(ctx context.Context, productID int64) (int64, error)
	DecrementStock(ctx context.Context, productID, qty int64) (bool, error)
}

// CartRepository корзины и их позиции
type CartRepository interface {
	Create(ctx context.Context, c *domain.Cart) error
	GetByID(ctx context.Context, id int64) (*domain.Cart, error)
	FindByCustomer(ctx context.Context, customerID string) (*domain.Cart, error)
	GetLine(ctx context.Context, cartID, productID int64) (*domain.CartLine, error)
	// SaveLine вставляет позицию или заменяет количество существующей
	SaveLine(ctx context.Context, line domain.CartLine) error
	DeleteLine(ctx context.Context, cartID, productID int64) error
	ClearLines(ctx context.Context, cartID int64) (int64, error)
	// Items позиции корзины вместе с текущими ценой и остатком товара
	Items(ctx context.Context, cartID int64) ([]domain.CartItem, error)
}

// OrderWriter запись заказа. Используется только внутри транзакции.
type OrderWriter interface {
	Create(ctx context.Context, o *domain.Order) error
	AddLine(ctx context.Context, line domain.OrderLine) error
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	OrderWriter
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	Lines(ctx context.Context, orderID int64) ([]domain.OrderLine, error)
	// ListByCustomer и List сортируют по PlacedAt по убыванию, при равенстве в порядке вставки
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error
}

// Tx набор возможностей, доступных внутри одной транзакции
type Tx interface {
	Stock() StockLedger
	Orders() OrderWriter
	Carts() CartRepository
}

// TxManager абстракция транзакции. Если fn вернула ошибку или запаниковала,
// все изменения, сделанные через tx, откатываются.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
