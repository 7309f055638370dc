package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"vela/internal/common"
)

func newTestOrder(qty string) *common.Order {
	q := decimal.RequireFromString(qty)
	return &common.Order{
		OrderID:       "test-id",
		Side:          common.Buy,
		OrderType:     common.Limit,
		Quantity:      q,
		TotalQuantity: q,
	}
}

func TestLevel_EnqueueFIFO(t *testing.T) {
	lvl := NewLevel(decimal.NewFromInt(100))

	first := newTestOrder("1.0")
	second := newTestOrder("2.0")
	lvl.Enqueue(first)
	lvl.Enqueue(second)

	assert.Equal(t, first, lvl.Peek(), "first enqueued order must be first to match")
	assert.True(t, decimal.NewFromInt(3).Equal(lvl.TotalQuantity()))
}

func TestLevel_DecrementAndPop(t *testing.T) {
	lvl := NewLevel(decimal.NewFromInt(100))
	o := newTestOrder("1.0")
	lvl.Enqueue(o)

	lvl.DecrementHead(decimal.RequireFromString("0.4"))
	assert.True(t, decimal.RequireFromString("0.6").Equal(lvl.TotalQuantity()))
	assert.False(t, lvl.Empty())

	lvl.DecrementHead(decimal.RequireFromString("0.6"))
	assert.True(t, lvl.Empty(), "total_qty non-positive must make the level empty")

	popped := lvl.Pop()
	assert.Equal(t, o, popped)
	assert.True(t, lvl.Empty(), "an empty queue must also report empty")
}

func TestLevel_TotalMatchesSumOfResiduals(t *testing.T) {
	lvl := NewLevel(decimal.NewFromInt(100))
	lvl.Enqueue(newTestOrder("1.5"))
	lvl.Enqueue(newTestOrder("2.25"))
	lvl.Enqueue(newTestOrder("0.25"))

	sum := decimal.Zero
	for _, o := range lvl.Orders() {
		sum = sum.Add(o.Quantity)
	}
	assert.True(t, sum.Equal(lvl.TotalQuantity()), "cached total must equal sum of residuals")
}
