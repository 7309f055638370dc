package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBook_BBOAndDepth(t *testing.T) {
	b := New("BTC-USDT")

	b.Bids.GetOrCreateLevel(decimal.NewFromInt(99)).Enqueue(newTestOrder("1"))
	b.Asks.GetOrCreateLevel(decimal.NewFromInt(100)).Enqueue(newTestOrder("2"))

	bbo := b.GetBBO()
	assert.True(t, bbo.Bid.Price.Equal(decimal.NewFromInt(99)))
	assert.True(t, bbo.Ask.Price.Equal(decimal.NewFromInt(100)))

	depth := b.Depth(10)
	assert.Len(t, depth.Bids, 1)
	assert.Len(t, depth.Asks, 1)
}

func TestBook_EmptySideHasNoBBO(t *testing.T) {
	b := New("BTC-USDT")
	bbo := b.GetBBO()
	assert.Nil(t, bbo.Bid)
	assert.Nil(t, bbo.Ask)
}
