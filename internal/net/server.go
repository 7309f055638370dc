package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"

	"vela/internal/book"
	"vela/internal/common"
	"vela/internal/engine"
	"vela/internal/utils"
)

const (
	maxRecvSize      = 4 * 1024
	defaultNWorkers  = 10
	defaultReqBudget = 5 * time.Second
)

var ErrImproperConversion = errors.New("improper type conversion")

// Engine is the subset of the matching core the TCP front end drives.
// Kept narrow — spec.md §6's external interface, nothing more — so the
// wire layer cannot reach into match internals.
type Engine interface {
	Submit(ctx context.Context, symbol common.Symbol, orderType common.OrderType, side common.Side, quantity, price decimal.Decimal, hasPrice bool) (engine.Result, error)
	BBO(symbol common.Symbol) (book.BBO, error)
	Depth(symbol common.Symbol, levels int) (book.DepthSnapshot, error)
}

// Server is a connection-per-client TCP front end for the matching
// engine. Each connection is handled by one pool worker at a time, read
// a message, dispatch it synchronously, write the response — spec.md's
// submit/bbo/depth calls are all request/response, so unlike the
// teacher's async trade-push design there is no separate session
// registry or reporter fan-out.
type Server struct {
	address string
	port    int
	engine  Engine
	pool    utils.WorkerPool
	cancel  context.CancelFunc
}

func New(address string, port int, eng Engine) *Server {
	return &Server{
		address: address,
		port:    port,
		engine:  eng,
		pool:    utils.NewWorkerPool(defaultNWorkers),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Server) Run(ctx context.Context) {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return
	}
	defer func() {
		if err := listener.Close(); err != nil {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})

	log.Info().Str("address", listener.Addr().String()).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			log.Info().Str("address", conn.RemoteAddr().String()).Msg("new client connected")
			s.pool.AddTask(conn)
		}
	}
}

// handleConnection owns one client connection for its entire lifetime,
// reading and answering messages in a loop until the connection closes
// or the server is shutting down. Grounded on the teacher's
// handleConnection, simplified from a read-one-dispatch-requeue design
// to a straight read loop now that nothing needs cross-connection
// fan-out.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error().Str("address", conn.RemoteAddr().String()).Err(err).Msg("error closing connection")
		}
	}()

	buffer := make([]byte, maxRecvSize)
	for {
		select {
		case <-t.Dying():
			return nil
		default:
		}

		n, err := conn.Read(buffer)
		if err != nil {
			log.Debug().Err(err).Str("address", conn.RemoteAddr().String()).Msg("connection closed")
			return nil
		}

		message, err := parseMessage(buffer[:n])
		if err != nil {
			log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error parsing message")
			s.writeOrLog(conn, generateWireErrorReport(err))
			continue
		}

		s.handleMessage(conn, message)
	}
}

func (s *Server) handleMessage(conn net.Conn, message Message) {
	switch m := message.(type) {
	case NewOrderMessage:
		ctx, cancel := context.WithTimeout(context.Background(), defaultReqBudget)
		defer cancel()
		res, err := s.engine.Submit(ctx, m.Symbol, m.OrderType, m.Side, m.Quantity, m.Price, m.HasPrice)
		if err != nil {
			log.Error().Err(err).Str("symbol", string(m.Symbol)).Msg("order rejected")
			s.writeOrLog(conn, generateWireErrorReport(err))
			return
		}
		report := resultToReport(res.OrderID, res)
		s.writeOrLog(conn, report.Serialize())

	case BBORequestMessage:
		bbo, err := s.engine.BBO(m.Symbol)
		if err != nil {
			s.writeOrLog(conn, generateWireErrorReport(err))
			return
		}
		s.writeOrLog(conn, bboFromBook(bbo).Serialize())

	case DepthRequestMessage:
		depth, err := s.engine.Depth(m.Symbol, int(m.Levels))
		if err != nil {
			s.writeOrLog(conn, generateWireErrorReport(err))
			return
		}
		s.writeOrLog(conn, depthReportFromSnapshot(depth).Serialize())

	case BaseMessage:
		if m.GetType() != Heartbeat {
			s.writeOrLog(conn, generateWireErrorReport(ErrInvalidMessageType))
		}

	default:
		s.writeOrLog(conn, generateWireErrorReport(ErrInvalidMessageType))
	}
}

func bboFromBook(bbo book.BBO) bboReportMessage {
	r := bboReportMessage{}
	if bbo.Bid != nil {
		r.Bid, r.BidQty = &bbo.Bid.Price, &bbo.Bid.Qty
	}
	if bbo.Ask != nil {
		r.Ask, r.AskQty = &bbo.Ask.Price, &bbo.Ask.Qty
	}
	return r
}

func depthReportFromSnapshot(d book.DepthSnapshot) depthReportMessage {
	entries := func(side []book.DepthEntry) []depthWireEntry {
		out := make([]depthWireEntry, len(side))
		for i, e := range side {
			out[i] = depthWireEntry{Price: e.Price, Qty: e.Qty}
		}
		return out
	}
	return depthReportMessage{Bids: entries(d.Bids), Asks: entries(d.Asks)}
}

func (s *Server) writeOrLog(conn net.Conn, payload []byte) {
	if _, err := conn.Write(payload); err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("unable to write response")
	}
}
