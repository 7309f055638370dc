package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"vela/internal/book"
	"vela/internal/common"
)

// runMatching executes the order-type-specific algorithm of spec.md
// §4.4 against b. It must be called with b's symbol lock held for its
// entire duration. It returns the trades produced, the order's
// remaining (unfilled) quantity, and the resulting status.
func runMatching(b *book.Book, order *common.Order) ([]common.Trade, decimal.Decimal, common.Status) {
	opp, own := sidesFor(b, order.Side)

	if order.OrderType == common.FOK && !fokCanFill(opp, order) {
		return nil, order.TotalQuantity, common.Rejected
	}

	trades := matchLoop(b, opp, order)
	remaining := order.Quantity

	if !remaining.IsPositive() {
		return trades, decimal.Zero, common.Filled
	}

	switch order.OrderType {
	case common.Limit:
		restOrder(own, order)
		return trades, remaining, common.Accepted
	case common.IOC, common.Market:
		return trades, remaining, common.Canceled
	case common.FOK:
		// Unreachable: the pre-check above guarantees the opposite
		// side holds enough liquidity to fill order.TotalQuantity
		// entirely. Surfacing this as a hard invariant violation
		// rather than silently returning canceled matches spec.md
		// §4.4/§7: an FOK that both passed its pre-check and still
		// rests a residual means the book desynchronized with itself
		// mid-match.
		panic(&InvariantViolation{
			Symbol: string(order.Symbol),
			Reason: "fok order left a residual after its pre-check guaranteed full liquidity",
		})
	default:
		panic(&InvariantViolation{Symbol: string(order.Symbol), Reason: "unreachable order type in disposition"})
	}
}

func sidesFor(b *book.Book, side common.Side) (opp, own *book.Side) {
	if side == common.Buy {
		return b.Asks, b.Bids
	}
	return b.Bids, b.Asks
}

// fokCanFill walks the opposite side's matchable prices, summing total
// quantity until the order's full quantity is covered or the side is
// exhausted. Per spec.md §4.4, this is the all-or-nothing pre-check:
// it must run before any mutation so a rejected FOK leaves no trace.
func fokCanFill(opp *book.Side, order *common.Order) bool {
	var limit *decimal.Decimal
	if order.HasPrice {
		limit = &order.Price
	}

	need := order.Quantity
	for _, price := range opp.IterMatchablePrices(limit) {
		if !need.IsPositive() {
			break
		}
		lvl, ok := opp.Level(price)
		if !ok {
			continue
		}
		need = need.Sub(lvl.TotalQuantity())
	}
	return !need.IsPositive()
}

// matchLoop sweeps opp while it crosses order's limit (if any),
// consuming resting liquidity in price-time priority. It mutates the
// book: maker residuals shrink, fully consumed makers are popped, and
// fully consumed levels are removed from opp.
func matchLoop(b *book.Book, opp *book.Side, order *common.Order) []common.Trade {
	var trades []common.Trade

	for order.Quantity.IsPositive() {
		best, ok := opp.BestPrice()
		if !ok {
			break
		}
		if order.HasPrice && crosses(order, best) {
			break
		}

		lvl, ok := opp.Level(best)
		if !ok {
			break
		}

		for order.Quantity.IsPositive() && !lvl.Empty() {
			maker := lvl.Peek()
			tradeQty := decimal.Min(order.Quantity, maker.Quantity)

			trades = append(trades, common.Trade{
				TradeID:       uuid.New().String(),
				Symbol:        order.Symbol,
				Price:         best,
				Quantity:      tradeQty,
				AggressorSide: order.Side,
				MakerOrderID:  maker.OrderID,
				TakerOrderID:  order.OrderID,
				Timestamp:     time.Now().UTC(),
			})

			log.Info().
				Str("symbol", string(order.Symbol)).
				Str("price", best.String()).
				Str("quantity", tradeQty.String()).
				Str("aggressor_side", order.Side.String()).
				Str("maker_order_id", maker.OrderID).
				Str("taker_order_id", order.OrderID).
				Msg("trade")

			lvl.DecrementHead(tradeQty)
			order.Quantity = order.Quantity.Sub(tradeQty)

			if !maker.Quantity.IsPositive() {
				lvl.Pop()
			}

			assertLevelConsistent(lvl, order.Symbol)
		}

		if lvl.Empty() {
			opp.RemoveLevelIfEmpty(best)
		}
	}

	if order.Quantity.IsNegative() {
		panic(&InvariantViolation{Symbol: string(order.Symbol), Reason: "remaining quantity went negative"})
	}

	return trades
}

// crosses reports whether best, the opposite side's top price, is
// marketable against order's own limit price.
func crosses(order *common.Order, best decimal.Decimal) bool {
	if order.Side == common.Buy {
		return best.GreaterThan(order.Price)
	}
	return best.LessThan(order.Price)
}

// restOrder enqueues order's residual onto own at its own price, as a
// new FIFO tail — spec.md §4.4's post-loop disposition for limit
// orders with quantity remaining.
func restOrder(own *book.Side, order *common.Order) {
	resting := &common.Order{
		OrderID:       order.OrderID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		OrderType:     order.OrderType,
		Quantity:      order.Quantity,
		TotalQuantity: order.TotalQuantity,
		Price:         order.Price,
		HasPrice:      order.HasPrice,
		Timestamp:     order.Timestamp,
	}
	own.GetOrCreateLevel(order.Price).Enqueue(resting)
}

// assertLevelConsistent re-establishes spec.md §8 invariant 1 at the
// end of every matching-loop iteration: the cached total must equal
// the sum of residuals of every order still queued.
func assertLevelConsistent(lvl *book.Level, symbol common.Symbol) {
	sum := decimal.Zero
	for _, o := range lvl.Orders() {
		sum = sum.Add(o.Quantity)
	}
	if !sum.Equal(lvl.TotalQuantity()) {
		panic(&InvariantViolation{
			Symbol: string(symbol),
			Reason: "price level total_qty desynchronized from the sum of resting order residuals",
		})
	}
}
