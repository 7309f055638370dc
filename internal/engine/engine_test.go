package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vela/internal/common"
	"vela/internal/pubsub"
)

const symbol = common.Symbol("BTC-USDT")

func newTestEngine(t *testing.T) *Engine {
	e := New(pubsub.New(), 2)
	t.Cleanup(e.Close)
	return e
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func submitLimit(t *testing.T, e *Engine, side common.Side, qty, price string) Result {
	t.Helper()
	res, err := e.Submit(context.Background(), symbol, common.Limit, side, d(qty), d(price), true)
	require.NoError(t, err)
	return res
}

// Scenario A — Price-time priority FIFO.
func TestScenarioA_PriceTimeFIFO(t *testing.T) {
	e := newTestEngine(t)

	first := submitLimit(t, e, common.Sell, "1.0", "100")
	assert.Equal(t, common.Accepted, first.Status)
	second := submitLimit(t, e, common.Sell, "1.0", "100")
	assert.Equal(t, common.Accepted, second.Status)

	res, err := e.Submit(context.Background(), symbol, common.Market, common.Buy, d("1.5"), decimal.Zero, false)
	require.NoError(t, err)

	assert.Equal(t, common.Filled, res.Status)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, first.OrderID, res.Trades[0].MakerOrderID)
	assert.True(t, res.Trades[0].Quantity.Equal(d("1.0")))
	assert.Equal(t, second.OrderID, res.Trades[1].MakerOrderID)
	assert.True(t, res.Trades[1].Quantity.Equal(d("0.5")))

	depth, err := e.Depth(symbol, 10)
	require.NoError(t, err)
	require.Len(t, depth.Asks, 1)
	assert.True(t, depth.Asks[0].Qty.Equal(d("0.5")))
}

// Scenario B — IOC no-rest.
func TestScenarioB_IOCNoRest(t *testing.T) {
	e := newTestEngine(t)
	submitLimit(t, e, common.Sell, "1", "101")

	res, err := e.Submit(context.Background(), symbol, common.IOC, common.Buy, d("1"), d("100"), true)
	require.NoError(t, err)
	assert.Equal(t, common.Canceled, res.Status)
	assert.Empty(t, res.Trades)

	depth, err := e.Depth(symbol, 10)
	require.NoError(t, err)
	require.Len(t, depth.Asks, 1)
	assert.True(t, depth.Asks[0].Qty.Equal(d("1")))
}

// Scenario C — FOK all-or-nothing.
func TestScenarioC_FOKAllOrNothing(t *testing.T) {
	e := newTestEngine(t)
	submitLimit(t, e, common.Sell, "1.0", "100")
	submitLimit(t, e, common.Sell, "0.5", "100")

	rejected, err := e.Submit(context.Background(), symbol, common.FOK, common.Buy, d("2.0"), d("100"), true)
	require.NoError(t, err)
	assert.Equal(t, common.Rejected, rejected.Status)
	assert.Empty(t, rejected.Trades)

	depth, err := e.Depth(symbol, 10)
	require.NoError(t, err)
	require.Len(t, depth.Asks, 1)
	assert.True(t, depth.Asks[0].Qty.Equal(d("1.5")))

	filled, err := e.Submit(context.Background(), symbol, common.FOK, common.Buy, d("1.5"), d("100"), true)
	require.NoError(t, err)
	assert.Equal(t, common.Filled, filled.Status)
	sum := decimal.Zero
	for _, tr := range filled.Trades {
		sum = sum.Add(tr.Quantity)
	}
	assert.True(t, sum.Equal(d("1.5")))

	depth, err = e.Depth(symbol, 10)
	require.NoError(t, err)
	assert.Empty(t, depth.Asks)
}

// Scenario D — Market trade-through.
func TestScenarioD_MarketTradeThrough(t *testing.T) {
	e := newTestEngine(t)
	submitLimit(t, e, common.Sell, "1.0", "101")
	submitLimit(t, e, common.Sell, "1.0", "100")

	res, err := e.Submit(context.Background(), symbol, common.Market, common.Buy, d("1.5"), decimal.Zero, false)
	require.NoError(t, err)
	assert.Equal(t, common.Filled, res.Status)
	require.Len(t, res.Trades, 2)
	assert.True(t, res.Trades[0].Price.Equal(d("100")))
	assert.True(t, res.Trades[0].Quantity.Equal(d("1.0")))
	assert.True(t, res.Trades[1].Price.Equal(d("101")))
	assert.True(t, res.Trades[1].Quantity.Equal(d("0.5")))

	depth, err := e.Depth(symbol, 10)
	require.NoError(t, err)
	require.Len(t, depth.Asks, 1)
	assert.True(t, depth.Asks[0].Qty.Equal(d("0.5")))
}

// Scenario E — Limit price protection.
func TestScenarioE_LimitPriceProtection(t *testing.T) {
	e := newTestEngine(t)
	submitLimit(t, e, common.Sell, "1.0", "105")

	res := submitLimit(t, e, common.Buy, "1.0", "100")
	assert.Equal(t, common.Accepted, res.Status)
	assert.Empty(t, res.Trades)

	bbo, err := e.BBO(symbol)
	require.NoError(t, err)
	require.NotNil(t, bbo.Bid)
	require.NotNil(t, bbo.Ask)
	assert.True(t, bbo.Bid.Price.Equal(d("100")))
	assert.True(t, bbo.Ask.Price.Equal(d("105")))
}

// Scenario F — Partial limit rests the remainder.
func TestScenarioF_PartialLimitRests(t *testing.T) {
	e := newTestEngine(t)
	submitLimit(t, e, common.Sell, "0.4", "100")

	res := submitLimit(t, e, common.Buy, "1.0", "100")
	assert.Equal(t, common.Accepted, res.Status)
	require.Len(t, res.Trades, 1)
	assert.True(t, res.Trades[0].Quantity.Equal(d("0.4")))

	bbo, err := e.BBO(symbol)
	require.NoError(t, err)
	require.NotNil(t, bbo.Bid)
	assert.True(t, bbo.Bid.Price.Equal(d("100")))
	assert.True(t, bbo.Bid.Qty.Equal(d("0.6")))
}

// Property: conservation of quantity.
func TestProperty_Conservation(t *testing.T) {
	e := newTestEngine(t)
	submitLimit(t, e, common.Sell, "1.0", "100")

	res, err := e.Submit(context.Background(), symbol, common.Limit, common.Buy, d("0.6"), d("100"), true)
	require.NoError(t, err)

	assert.True(t, res.FilledQuantity.Add(res.RemainingQuantity).Equal(d("0.6")))
	sum := decimal.Zero
	for _, tr := range res.Trades {
		sum = sum.Add(tr.Quantity)
	}
	assert.True(t, sum.Equal(res.FilledQuantity))
}

// Property: FIFO at equal price, same side.
func TestProperty_SamePriceFIFO(t *testing.T) {
	e := newTestEngine(t)
	a := submitLimit(t, e, common.Sell, "1.0", "100")
	b := submitLimit(t, e, common.Sell, "1.0", "100")

	res, err := e.Submit(context.Background(), symbol, common.Market, common.Buy, d("1.2"), decimal.Zero, false)
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)
	assert.Equal(t, a.OrderID, res.Trades[0].MakerOrderID)
	assert.Equal(t, b.OrderID, res.Trades[1].MakerOrderID)
}

func TestValidation_RejectsBadInput(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Submit(context.Background(), symbol, common.Limit, common.Buy, d("1"), decimal.Zero, false)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = e.Submit(context.Background(), symbol, common.Limit, common.Buy, decimal.Zero, d("100"), true)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = e.Submit(context.Background(), symbol, common.OrderType(99), common.Buy, d("1"), d("100"), true)
	assert.ErrorIs(t, err, ErrInvalidOrderType)

	_, err = e.Submit(context.Background(), symbol, common.Limit, common.Side(99), d("1"), d("100"), true)
	assert.ErrorIs(t, err, ErrInvalidSide)
}

func TestSubmit_MarketOrderIgnoresStrayPrice(t *testing.T) {
	e := newTestEngine(t)
	submitLimit(t, e, common.Sell, "1", "100")

	res, err := e.Submit(context.Background(), symbol, common.Market, common.Buy, d("1"), d("999"), true)
	require.NoError(t, err)
	assert.Equal(t, common.Filled, res.Status)
}
