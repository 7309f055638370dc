// Package engine is the matching core (C4): validation, per-symbol
// serialization, the order-type-specific matching algorithm, and
// publication of the resulting trades and market-data snapshot.
// Grounded on the teacher's internal/engine/orderbook.go Match/
// handleLimit/handleMarket, generalized to market/limit/ioc/fok and to
// the FOK all-or-nothing pre-check original_source's
// MatchingEngine._can_fulfill_fok specifies.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"

	"vela/internal/book"
	"vela/internal/common"
	"vela/internal/pubsub"
	"vela/internal/utils"
)

const defaultPoolSize = 4 // spec.md §5: "the source uses 4"

// MarketDataSnapshot is published to the md topic after every submit
// that touches a symbol's book.
type MarketDataSnapshot struct {
	Symbol    common.Symbol
	Timestamp time.Time
	BBO       book.BBO
	Depth     book.DepthSnapshot
}

const marketDataDepth = 10

// Engine owns every symbol's book and dispatches matching work onto a
// bounded worker pool, one symbol at a time.
type Engine struct {
	bus  *pubsub.Bus
	pool workerPool

	guard    sync.Mutex
	books    map[common.Symbol]*book.Book
	locks    map[common.Symbol]*sync.Mutex
	poisoned map[common.Symbol]*InvariantViolation

	t *tomb.Tomb
}

// workerPool is the subset of utils.WorkerPool the engine needs; kept
// narrow so tests can swap in a synchronous stand-in if ever needed.
type workerPool interface {
	AddTask(task any)
	Setup(t *tomb.Tomb, work utils.WorkerFunction)
}

// New constructs an Engine publishing through bus, with a matching
// dispatch pool of poolSize workers (0 selects the spec's default).
func New(bus *pubsub.Bus, poolSize int) *Engine {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	pool := utils.NewWorkerPool(poolSize)
	e := &Engine{
		bus:      bus,
		pool:     &pool,
		books:    make(map[common.Symbol]*book.Book),
		locks:    make(map[common.Symbol]*sync.Mutex),
		poisoned: make(map[common.Symbol]*InvariantViolation),
	}

	t, _ := tomb.WithContext(context.Background())
	e.t = t
	t.Go(func() error {
		e.pool.Setup(t, func(_ *tomb.Tomb, task any) error {
			job, ok := task.(func())
			if !ok {
				log.Error().Msg("matching pool received a non-job task")
				return nil
			}
			job()
			return nil
		})
		return nil
	})
	return e
}

// Close stops the matching dispatch pool.
func (e *Engine) Close() {
	e.t.Kill(nil)
	_ = e.t.Wait()
}

type submitOutcome struct {
	result Result
	err    error
}

// Submit validates and matches one order against symbol's book. It
// suspends while the job awaits a free worker and while the resulting
// market-data/trade events are published, but never while holding the
// symbol's lock (spec.md §5 "Suspension points").
func (e *Engine) Submit(
	ctx context.Context,
	symbol common.Symbol,
	orderType common.OrderType,
	side common.Side,
	quantity decimal.Decimal,
	price decimal.Decimal,
	hasPrice bool,
) (Result, error) {
	order, err := validateAndBuildOrder(symbol, orderType, side, quantity, price, hasPrice)
	if err != nil {
		return Result{}, err
	}

	done := make(chan submitOutcome, 1)
	e.pool.AddTask(func() {
		res, err := e.matchSync(order)
		done <- submitOutcome{res, err}
	})

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		// The job above still runs to completion and still publishes —
		// we simply stop waiting on it here. The book is never left
		// partially matched: matchSync holds the symbol lock for the
		// entirety of one matching operation regardless of ctx.
		return Result{}, ctx.Err()
	}
}

func validateAndBuildOrder(
	symbol common.Symbol,
	orderType common.OrderType,
	side common.Side,
	quantity decimal.Decimal,
	price decimal.Decimal,
	hasPrice bool,
) (*common.Order, error) {
	if side != common.Buy && side != common.Sell {
		return nil, ErrInvalidSide
	}
	switch orderType {
	case common.Market, common.Limit, common.IOC, common.FOK:
	default:
		return nil, ErrInvalidOrderType
	}
	if !quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	switch orderType {
	case common.Limit, common.IOC, common.FOK:
		if !hasPrice || !price.IsPositive() {
			return nil, ErrInvalidPrice
		}
	case common.Market:
		// A market order's price, if present, is silently ignored —
		// spec.md §9's resolution of the source's ambiguity here.
		hasPrice = false
		price = decimal.Zero
	}

	return &common.Order{
		OrderID:       uuid.New().String(),
		Symbol:        symbol,
		Side:          side,
		OrderType:     orderType,
		Quantity:      quantity,
		TotalQuantity: quantity,
		Price:         price,
		HasPrice:      hasPrice,
		Timestamp:     time.Now().UTC().Truncate(time.Microsecond),
	}, nil
}

// matchSync runs entirely under the symbol's exclusive lock except for
// its final publication step. It never returns with the lock held.
func (e *Engine) matchSync(order *common.Order) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			iv, ok := r.(*InvariantViolation)
			if !ok {
				iv = &InvariantViolation{Symbol: string(order.Symbol), Reason: "unexpected panic during matching"}
			}
			e.poison(order.Symbol, iv)
			result, err = Result{}, iv
		}
	}()

	if poison := e.poisonedState(order.Symbol); poison != nil {
		return Result{}, poison
	}

	b, mu := e.symbolState(order.Symbol)

	var (
		trades    []common.Trade
		remaining decimal.Decimal
		status    common.Status
		snapshot  MarketDataSnapshot
	)
	func() {
		mu.Lock()
		defer mu.Unlock()
		trades, remaining, status = runMatching(b, order)
		snapshot = marketDataSnapshot(b)
	}()

	filled := order.TotalQuantity.Sub(remaining)
	result = Result{
		Status:            status,
		OrderID:           order.OrderID,
		FilledQuantity:    filled,
		RemainingQuantity: remaining,
		Trades:            trades,
	}

	e.publish(snapshot, trades)
	return result, nil
}

func marketDataSnapshot(b *book.Book) MarketDataSnapshot {
	return MarketDataSnapshot{
		Symbol:    b.Symbol,
		Timestamp: time.Now().UTC(),
		BBO:       b.GetBBO(),
		Depth:     b.Depth(marketDataDepth),
	}
}

func (e *Engine) publish(snapshot MarketDataSnapshot, trades []common.Trade) {
	e.bus.PublishMarketData(snapshot.Symbol, snapshot)
	for _, trade := range trades {
		e.bus.PublishTrade(trade)
	}
}

func (e *Engine) symbolState(symbol common.Symbol) (*book.Book, *sync.Mutex) {
	e.guard.Lock()
	defer e.guard.Unlock()

	b, ok := e.books[symbol]
	if !ok {
		b = book.New(symbol)
		e.books[symbol] = b
	}
	mu, ok := e.locks[symbol]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[symbol] = mu
	}
	return b, mu
}

func (e *Engine) poisonedState(symbol common.Symbol) *InvariantViolation {
	e.guard.Lock()
	defer e.guard.Unlock()
	return e.poisoned[symbol]
}

func (e *Engine) poison(symbol common.Symbol, iv *InvariantViolation) {
	e.guard.Lock()
	defer e.guard.Unlock()
	e.poisoned[symbol] = iv
	log.Error().Str("symbol", string(symbol)).Str("reason", iv.Reason).Msg("symbol poisoned by invariant violation")
}

// BBO returns the best bid and offer for symbol under its lock, so the
// read sees a consistent book.
func (e *Engine) BBO(symbol common.Symbol) (book.BBO, error) {
	if poison := e.poisonedState(symbol); poison != nil {
		return book.BBO{}, poison
	}
	b, mu := e.symbolState(symbol)
	mu.Lock()
	defer mu.Unlock()
	return b.GetBBO(), nil
}

// Depth returns the top levels for symbol under its lock.
func (e *Engine) Depth(symbol common.Symbol, levels int) (book.DepthSnapshot, error) {
	if poison := e.poisonedState(symbol); poison != nil {
		return book.DepthSnapshot{}, poison
	}
	b, mu := e.symbolState(symbol)
	mu.Lock()
	defer mu.Unlock()
	return b.Depth(levels), nil
}
