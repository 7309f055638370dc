package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"vela/internal/common"
	"vela/internal/pubsub"
)

const (
	wsSendBuffer = 256
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsSink is one streaming subscriber: a single gorilla/websocket
// connection registered against one (topic, symbol) pair on the
// publication bus. Grounded on DimaJoyti-ai-agentic-crypto-browser's
// Client/writePump split, generalized from its session broadcast
// channel to implement pubsub.Sink directly.
type wsSink struct {
	conn *websocket.Conn
	send chan []byte
}

// Send is the pubsub.Sink contract: non-blocking, best-effort. A
// subscriber whose send buffer is full is slow — its update is
// dropped rather than stalling the publisher.
func (c *wsSink) Send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

func (c *wsSink) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains and discards client frames, purely to notice when
// the peer closes the connection (gorilla/websocket requires reads to
// happen for control frames to be processed).
func (c *wsSink) readPump() {
	defer c.conn.Close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func parseTopic(s string) (pubsub.Topic, bool) {
	switch pubsub.Topic(s) {
	case pubsub.MarketData, pubsub.Trades:
		return pubsub.Topic(s), true
	default:
		return "", false
	}
}

// handleStream upgrades to a WebSocket and subscribes it to
// (topic, symbol) on the bus for the life of the connection — spec.md
// §6's subscribe(topic, symbol, sink)/unsubscribe pair, realized as
// connect/disconnect.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	topic, ok := parseTopic(vars["topic"])
	if !ok {
		http.Error(w, "unknown topic", http.StatusBadRequest)
		return
	}
	symbol := common.Symbol(vars["symbol"])

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	sink := &wsSink{conn: conn, send: make(chan []byte, wsSendBuffer)}
	s.bus.Subscribe(topic, symbol, sink)

	go func() {
		sink.readPump()
		s.bus.Unsubscribe(topic, symbol, sink)
		close(sink.send)
	}()
	sink.writePump()
}
