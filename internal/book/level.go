// Package book implements the per-symbol order book: price levels
// (C1), one side of the book (C2), and the bid/ask pair (C3). None of
// it runs the matching algorithm — that lives in internal/engine.
package book

import (
	"github.com/shopspring/decimal"

	"vela/internal/common"
)

// Level is a FIFO queue of resting orders at a single price, with a
// cached aggregate quantity. Orders are consumed from the head; new
// orders are enqueued at the tail. total must equal the sum of the
// residuals of every order still queued — this is re-established
// synchronously on every mutation, never lazily.
type Level struct {
	Price  decimal.Decimal
	orders []*common.Order
	total  decimal.Decimal
}

// NewLevel creates an empty level at price.
func NewLevel(price decimal.Decimal) *Level {
	return &Level{Price: price, total: decimal.Zero}
}

// Enqueue appends order to the tail, preserving FIFO arrival order.
func (l *Level) Enqueue(o *common.Order) {
	l.orders = append(l.orders, o)
	l.total = l.total.Add(o.Quantity)
}

// Peek returns the head order without removing it, or nil if empty.
func (l *Level) Peek() *common.Order {
	if len(l.orders) == 0 {
		return nil
	}
	return l.orders[0]
}

// Pop removes and returns the head order.
func (l *Level) Pop() *common.Order {
	if len(l.orders) == 0 {
		return nil
	}
	o := l.orders[0]
	l.orders = l.orders[1:]
	l.total = l.total.Sub(o.Quantity)
	return o
}

// DecrementHead reduces the head order's residual quantity by qty and
// keeps the cached total in lockstep. It does not pop the head even if
// the residual reaches zero — callers pop explicitly once they have
// observed the zero residual, matching spec.md §4.4's matching loop.
func (l *Level) DecrementHead(qty decimal.Decimal) {
	head := l.Peek()
	if head == nil {
		return
	}
	head.Quantity = head.Quantity.Sub(qty)
	l.total = l.total.Sub(qty)
}

// Empty reports whether the level has no orders or non-positive total
// quantity. The two conditions are kept from drifting apart by every
// mutator above.
func (l *Level) Empty() bool {
	return len(l.orders) == 0 || !l.total.IsPositive()
}

// TotalQuantity returns the cached aggregate residual quantity.
func (l *Level) TotalQuantity() decimal.Decimal {
	return l.total
}

// Orders returns the FIFO queue of resting orders, head first. The
// returned slice must not be mutated by the caller.
func (l *Level) Orders() []*common.Order {
	return l.orders
}
