package book

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

// Side is one side (bids or asks) of a single symbol's book: an
// ordered collection of price levels with O(log n) best-price
// discovery, realized as a single balanced tree keyed by price — the
// "ordered map keyed by price" alternative DESIGN NOTES §9 permits in
// place of the lazily-collapsed duplicate-entry priority structure.
// Grounded on the teacher's `PriceLevels = btree.BTreeG[*PriceLevel]`
// in `internal/engine/orderbook.go`, generalized to decimal keys.
type Side struct {
	isBid bool
	tree  *btree.BTreeG[*Level]
}

// NewSide constructs an empty side. For bids the tree iterates best
// (highest) price first; for asks, best (lowest) price first — in
// both cases the tree's natural ascending traversal order already
// equals price-time match order, so callers can simply Scan it.
func NewSide(isBid bool) *Side {
	var less func(a, b *Level) bool
	if isBid {
		less = func(a, b *Level) bool { return a.Price.GreaterThan(b.Price) }
	} else {
		less = func(a, b *Level) bool { return a.Price.LessThan(b.Price) }
	}
	return &Side{isBid: isBid, tree: btree.NewBTreeG(less)}
}

// BestPrice returns the top of the book for this side, or ok=false if
// the side holds no resting liquidity.
func (s *Side) BestPrice() (decimal.Decimal, bool) {
	best, found := decimal.Zero, false
	s.tree.Scan(func(lvl *Level) bool {
		if lvl.Empty() {
			return true
		}
		best, found = lvl.Price, true
		return false
	})
	return best, found
}

// GetOrCreateLevel returns the level at price, creating and inserting
// it on first touch. Idempotent.
func (s *Side) GetOrCreateLevel(price decimal.Decimal) *Level {
	if lvl, ok := s.tree.Get(&Level{Price: price}); ok {
		return lvl
	}
	lvl := NewLevel(price)
	s.tree.Set(lvl)
	return lvl
}

// Level returns the existing level at price, if any, without creating
// one.
func (s *Side) Level(price decimal.Decimal) (*Level, bool) {
	return s.tree.Get(&Level{Price: price})
}

// RemoveLevelIfEmpty deletes the level at price from the tree once it
// is empty. Safe to call when no level exists at price.
func (s *Side) RemoveLevelIfEmpty(price decimal.Decimal) {
	lvl, ok := s.tree.Get(&Level{Price: price})
	if ok && lvl.Empty() {
		s.tree.Delete(&Level{Price: price})
	}
}

// IterMatchablePrices walks the side's non-empty price levels in match
// order (descending for bids, ascending for asks), stopping once limit
// is crossed. A nil limit walks the whole side.
func (s *Side) IterMatchablePrices(limit *decimal.Decimal) []decimal.Decimal {
	var prices []decimal.Decimal
	s.tree.Scan(func(lvl *Level) bool {
		if lvl.Empty() {
			return true
		}
		if limit != nil {
			if s.isBid && lvl.Price.LessThan(*limit) {
				return false
			}
			if !s.isBid && lvl.Price.GreaterThan(*limit) {
				return false
			}
		}
		prices = append(prices, lvl.Price)
		return true
	})
	return prices
}

// DepthEntry is one row of a depth snapshot: a price and its aggregate
// resting quantity.
type DepthEntry struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// Depth returns the top n non-empty levels in match order.
func (s *Side) Depth(n int) []DepthEntry {
	if n <= 0 {
		return []DepthEntry{}
	}
	entries := make([]DepthEntry, 0, n)
	s.tree.Scan(func(lvl *Level) bool {
		if lvl.Empty() {
			return len(entries) < n
		}
		entries = append(entries, DepthEntry{Price: lvl.Price, Qty: lvl.TotalQuantity()})
		return len(entries) < n
	})
	return entries
}

// Len reports the number of distinct price levels currently tracked,
// including any not-yet-collapsed empty ones.
func (s *Side) Len() int {
	return s.tree.Len()
}
