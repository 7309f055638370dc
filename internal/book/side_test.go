package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSide_BestPrice_BidsDescendingAsksAscending(t *testing.T) {
	bids := NewSide(true)
	asks := NewSide(false)

	for _, p := range []string{"99", "100", "98"} {
		bids.GetOrCreateLevel(decimal.RequireFromString(p)).Enqueue(newTestOrder("1"))
		asks.GetOrCreateLevel(decimal.RequireFromString(p)).Enqueue(newTestOrder("1"))
	}

	best, ok := bids.BestPrice()
	assert.True(t, ok)
	assert.True(t, decimal.NewFromInt(100).Equal(best), "best bid is the maximum price")

	best, ok = asks.BestPrice()
	assert.True(t, ok)
	assert.True(t, decimal.NewFromInt(98).Equal(best), "best ask is the minimum price")
}

func TestSide_RemoveLevelIfEmpty(t *testing.T) {
	s := NewSide(false)
	price := decimal.NewFromInt(100)
	lvl := s.GetOrCreateLevel(price)
	lvl.Enqueue(newTestOrder("1"))
	lvl.Pop()

	assert.True(t, lvl.Empty())
	s.RemoveLevelIfEmpty(price)

	_, ok := s.Level(price)
	assert.False(t, ok, "empty level must be removed from the map")
	_, ok = s.BestPrice()
	assert.False(t, ok)
}

func TestSide_IterMatchablePrices_RespectsLimit(t *testing.T) {
	bids := NewSide(true)
	for _, p := range []string{"100", "99", "98"} {
		bids.GetOrCreateLevel(decimal.RequireFromString(p)).Enqueue(newTestOrder("1"))
	}

	limit := decimal.NewFromInt(99)
	prices := bids.IterMatchablePrices(&limit)
	assert.Len(t, prices, 2)
	assert.True(t, prices[0].Equal(decimal.NewFromInt(100)))
	assert.True(t, prices[1].Equal(decimal.NewFromInt(99)))
}

func TestSide_Depth_TopNInMatchOrder(t *testing.T) {
	asks := NewSide(false)
	for _, p := range []string{"103", "101", "102"} {
		asks.GetOrCreateLevel(decimal.RequireFromString(p)).Enqueue(newTestOrder("5"))
	}

	depth := asks.Depth(2)
	assert.Len(t, depth, 2)
	assert.True(t, depth[0].Price.Equal(decimal.NewFromInt(101)))
	assert.True(t, depth[1].Price.Equal(decimal.NewFromInt(102)))
}
