// Package pubsub is the publication bus (C5): a topic-keyed
// broadcaster for market-data and trade events that decouples the
// matching core from its subscribers. Grounded on original_source's
// PubSub class and on the teacher's clientSessionsLock-guarded map
// idiom in internal/net/server.go.
package pubsub

import (
	"sync"

	"github.com/rs/zerolog/log"

	"vela/internal/common"
)

// Topic names the two publication channels spec.md §4.5 defines.
type Topic string

const (
	MarketData Topic = "md"
	Trades     Topic = "trades"
)

// Sink is anything a subscriber can hand the bus to receive payloads.
// Send must be non-blocking and best-effort: a failing or slow Sink
// must never block or affect any other subscriber.
type Sink interface {
	Send(payload any) error
}

type key struct {
	topic  Topic
	symbol common.Symbol
}

// Bus is safe for concurrent Subscribe/Unsubscribe/Broadcast.
type Bus struct {
	mu   sync.RWMutex
	subs map[key]map[Sink]struct{}
}

// New constructs an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[key]map[Sink]struct{})}
}

// Subscribe registers sink against (topic, symbol).
func (b *Bus) Subscribe(topic Topic, symbol common.Symbol, sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key{topic, symbol}
	set, ok := b.subs[k]
	if !ok {
		set = make(map[Sink]struct{})
		b.subs[k] = set
	}
	set[sink] = struct{}{}
}

// Unsubscribe removes sink from (topic, symbol). Idempotent: removing
// an already-absent sink is a no-op.
func (b *Bus) Unsubscribe(topic Topic, symbol common.Symbol, sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := key{topic, symbol}
	set, ok := b.subs[k]
	if !ok {
		return
	}
	delete(set, sink)
	if len(set) == 0 {
		delete(b.subs, k)
	}
}

// Broadcast fans payload out to a snapshot of (topic, symbol)'s
// current subscribers. Each delivery is independent and best-effort:
// a failing subscriber is logged and otherwise ignored.
func (b *Bus) Broadcast(topic Topic, symbol common.Symbol, payload any) {
	b.mu.RLock()
	set := b.subs[key{topic, symbol}]
	snapshot := make([]Sink, 0, len(set))
	for sink := range set {
		snapshot = append(snapshot, sink)
	}
	b.mu.RUnlock()

	for _, sink := range snapshot {
		if err := sink.Send(payload); err != nil {
			log.Error().
				Err(err).
				Str("topic", string(topic)).
				Str("symbol", string(symbol)).
				Msg("publication failed, dropping for this subscriber")
		}
	}
}

// PublishMarketData publishes a market-data snapshot for symbol.
func (b *Bus) PublishMarketData(symbol common.Symbol, snapshot any) {
	b.Broadcast(MarketData, symbol, snapshot)
}

// PublishTrade publishes a single trade for its symbol.
func (b *Bus) PublishTrade(trade common.Trade) {
	b.Broadcast(Trades, trade.Symbol, trade)
}
