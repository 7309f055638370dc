package book

import "vela/internal/common"

// Book is a pair of sides for one symbol. It carries no matching
// logic — that is the matching core's (internal/engine) job; Book
// only exposes the read surface spec.md §4.3 describes.
type Book struct {
	Symbol common.Symbol
	Bids   *Side
	Asks   *Side
}

// New constructs an empty book for symbol.
func New(symbol common.Symbol) *Book {
	return &Book{
		Symbol: symbol,
		Bids:   NewSide(true),
		Asks:   NewSide(false),
	}
}

// BBO is the best bid and offer, each with their total quantity at
// that price.
type BBO struct {
	Bid *DepthEntry
	Ask *DepthEntry
}

// BestBid returns the top of the bid side, if any.
func (b *Book) BestBid() *DepthEntry {
	return topOf(b.Bids)
}

// BestAsk returns the top of the ask side, if any.
func (b *Book) BestAsk() *DepthEntry {
	return topOf(b.Asks)
}

func topOf(side *Side) *DepthEntry {
	price, ok := side.BestPrice()
	if !ok {
		return nil
	}
	lvl, ok := side.Level(price)
	if !ok {
		return nil
	}
	return &DepthEntry{Price: price, Qty: lvl.TotalQuantity()}
}

// GetBBO returns the best bid and offer together.
func (b *Book) GetBBO() BBO {
	return BBO{Bid: b.BestBid(), Ask: b.BestAsk()}
}

// DepthSnapshot is the top n levels on each side, in match order.
type DepthSnapshot struct {
	Bids []DepthEntry
	Asks []DepthEntry
}

// Depth returns the top n price levels on each side.
func (b *Book) Depth(n int) DepthSnapshot {
	return DepthSnapshot{
		Bids: b.Bids.Depth(n),
		Asks: b.Asks.Depth(n),
	}
}
