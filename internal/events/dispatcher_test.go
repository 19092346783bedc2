package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodshop/internal/domain"
)

func placedOrder() domain.PlacedOrder {
	return domain.PlacedOrder{
		Order: domain.Order{ID: 7, CustomerID: "c1", PlacedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		Lines: []domain.OrderLine{
			{OrderID: 7, ProductID: 1, UnitPrice: decimal.RequireFromString("2.50"), Quantity: 2},
			{OrderID: 7, ProductID: 2, UnitPrice: decimal.NewFromInt(10), Quantity: 1},
		},
	}
}

func TestNewOrderPlaced(t *testing.T) {
	e := NewOrderPlaced(placedOrder())
	assert.Equal(t, "7", e.Key())
	assert.Equal(t, "OrderPlaced", e.Type())
	assert.True(t, e.TotalAmount.Equal(decimal.NewFromInt(15)), e.TotalAmount.String())
	assert.Len(t, e.Lines, 2)
}

func TestEncodeMessage(t *testing.T) {
	msg, err := encodeMessage(NewOrderPlaced(placedOrder()))
	require.NoError(t, err)
	assert.Equal(t, []byte("7"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "OrderPlaced", string(msg.Headers[0].Value))

	var decoded OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, int64(7), decoded.OrderID)
	assert.Equal(t, "c1", decoded.CustomerID)
}

func TestLogDispatcher(t *testing.T) {
	logger, hook := test.NewNullLogger()
	d := NewLogDispatcher(logger)

	require.NoError(t, d.Dispatch(context.Background(), NewOrderPlaced(placedOrder())))
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "OrderPlaced", hook.LastEntry().Data["event"])
}
