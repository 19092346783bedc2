package events

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"foodshop/internal/domain"
)

// Event доменное событие, публикуемое после фиксации транзакции
type Event interface {
	Type() string
	Key() string
}

// Dispatcher публикует события. Ошибка публикации не откатывает заказ.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

type OrderPlacedLine struct {
	ProductID int64           `json:"product_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
}

type OrderPlaced struct {
	OrderID     int64             `json:"order_id"`
	CustomerID  string            `json:"customer_id"`
	PlacedAt    time.Time         `json:"placed_at"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Lines       []OrderPlacedLine `json:"lines"`
}

func (OrderPlaced) Type() string  { return "OrderPlaced" }
func (e OrderPlaced) Key() string { return strconv.FormatInt(e.OrderID, 10) }

func NewOrderPlaced(o domain.PlacedOrder) OrderPlaced {
	lines := make([]OrderPlacedLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderPlacedLine{ProductID: l.ProductID, UnitPrice: l.UnitPrice, Quantity: l.Quantity})
	}
	return OrderPlaced{
		OrderID:     o.Order.ID,
		CustomerID:  o.Order.CustomerID,
		PlacedAt:    o.Order.PlacedAt,
		TotalAmount: o.TotalAmount(),
		Lines:       lines,
	}
}
