package pubsub

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"vela/internal/common"
)

type recordingSink struct {
	mu      sync.Mutex
	payload []any
	err     error
}

func (s *recordingSink) Send(payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.payload = append(s.payload, payload)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payload)
}

func TestBus_BroadcastDeliversToSubscribers(t *testing.T) {
	b := New()
	sink := &recordingSink{}
	b.Subscribe(MarketData, "BTC-USDT", sink)

	b.PublishMarketData("BTC-USDT", "snapshot")

	assert.Equal(t, 1, sink.count())
}

func TestBus_FailingSubscriberDoesNotBlockOthers(t *testing.T) {
	b := New()
	failing := &recordingSink{err: errors.New("boom")}
	ok := &recordingSink{}
	b.Subscribe(Trades, "BTC-USDT", failing)
	b.Subscribe(Trades, "BTC-USDT", ok)

	b.PublishTrade(common.Trade{Symbol: "BTC-USDT"})

	assert.Equal(t, 1, ok.count())
	assert.Equal(t, 0, failing.count())
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	b := New()
	sink := &recordingSink{}
	b.Subscribe(MarketData, "BTC-USDT", sink)

	b.Unsubscribe(MarketData, "BTC-USDT", sink)
	b.Unsubscribe(MarketData, "BTC-USDT", sink)

	b.PublishMarketData("BTC-USDT", "snapshot")
	assert.Equal(t, 0, sink.count())
}

func TestBus_ConcurrentSubscribeUnsubscribeBroadcast(t *testing.T) {
	b := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink := &recordingSink{}
			b.Subscribe(MarketData, "BTC-USDT", sink)
			b.PublishMarketData("BTC-USDT", "snapshot")
			b.Unsubscribe(MarketData, "BTC-USDT", sink)
		}()
	}
	wg.Wait()
}
