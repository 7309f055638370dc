// Package api is the HTTP/WebSocket front end: a REST surface over
// spec.md §6's submit/bbo/depth operations plus a streaming surface
// over the publication bus (C5). Grounded on gorilla/mux routing the
// way DimaJoyti-ai-agentic-crypto-browser's internal/terminal package
// wires its HTTP handlers, and on the websocket hub pattern from that
// same repo's internal/terminal/websocket.go.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"vela/internal/book"
	"vela/internal/common"
	"vela/internal/engine"
	"vela/internal/pubsub"
)

const defaultReqBudget = 5 * time.Second

// Engine is the subset of the matching core the HTTP surface drives.
type Engine interface {
	Submit(ctx context.Context, symbol common.Symbol, orderType common.OrderType, side common.Side, quantity, price decimal.Decimal, hasPrice bool) (engine.Result, error)
	BBO(symbol common.Symbol) (book.BBO, error)
	Depth(symbol common.Symbol, levels int) (book.DepthSnapshot, error)
}

// Server wires the REST and streaming surfaces over one Engine and
// Bus pair.
type Server struct {
	engine Engine
	bus    *pubsub.Bus
	router *mux.Router
}

// New builds the router. Handlers are methods on Server, mux-style.
func New(eng Engine, bus *pubsub.Bus) *Server {
	s := &Server{engine: eng, bus: bus, router: mux.NewRouter()}

	s.router.HandleFunc("/v1/orders", s.handleSubmit).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/bbo/{symbol}", s.handleBBO).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/depth/{symbol}", s.handleDepth).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/stream/{topic}/{symbol}", s.handleStream)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type orderRequest struct {
	Symbol    string `json:"symbol"`
	OrderType string `json:"order_type"`
	Side      string `json:"side"`
	Quantity  string `json:"quantity"`
	Price     string `json:"price,omitempty"`
}

type tradeResponse struct {
	TradeID       string `json:"trade_id"`
	Price         string `json:"price"`
	Quantity      string `json:"quantity"`
	AggressorSide string `json:"aggressor_side"`
	MakerOrderID  string `json:"maker_order_id"`
	TakerOrderID  string `json:"taker_order_id"`
	Timestamp     string `json:"timestamp"`
}

type orderResponse struct {
	Status            string          `json:"status"`
	OrderID           string          `json:"order_id"`
	FilledQuantity    string          `json:"filled_quantity"`
	RemainingQuantity string          `json:"remaining_quantity"`
	Trades            []tradeResponse `json:"trades"`
}

func parseOrderType(s string) (common.OrderType, bool) {
	switch s {
	case "market":
		return common.Market, true
	case "limit":
		return common.Limit, true
	case "ioc":
		return common.IOC, true
	case "fok":
		return common.FOK, true
	default:
		return 0, false
	}
}

func parseSide(s string) (common.Side, bool) {
	switch s {
	case "buy":
		return common.Buy, true
	case "sell":
		return common.Sell, true
	default:
		return 0, false
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	orderType, ok := parseOrderType(req.OrderType)
	if !ok {
		writeError(w, http.StatusBadRequest, engine.ErrInvalidOrderType)
		return
	}
	side, ok := parseSide(req.Side)
	if !ok {
		writeError(w, http.StatusBadRequest, engine.ErrInvalidSide)
		return
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		writeError(w, http.StatusBadRequest, engine.ErrInvalidQuantity)
		return
	}

	var price decimal.Decimal
	hasPrice := req.Price != ""
	if hasPrice {
		price, err = decimal.NewFromString(req.Price)
		if err != nil {
			writeError(w, http.StatusBadRequest, engine.ErrInvalidPrice)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), defaultReqBudget)
	defer cancel()

	res, err := s.engine.Submit(ctx, common.Symbol(req.Symbol), orderType, side, qty, price, hasPrice)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(res))
}

func toOrderResponse(res engine.Result) orderResponse {
	trades := make([]tradeResponse, len(res.Trades))
	for i, tr := range res.Trades {
		trades[i] = tradeResponse{
			TradeID:       tr.TradeID,
			Price:         tr.Price.String(),
			Quantity:      tr.Quantity.String(),
			AggressorSide: tr.AggressorSide.String(),
			MakerOrderID:  tr.MakerOrderID,
			TakerOrderID:  tr.TakerOrderID,
			Timestamp:     tr.Timestamp.Format(time.RFC3339Nano),
		}
	}
	return orderResponse{
		Status:            res.Status.String(),
		OrderID:           res.OrderID,
		FilledQuantity:    res.FilledQuantity.String(),
		RemainingQuantity: res.RemainingQuantity.String(),
		Trades:            trades,
	}
}

type depthEntryResponse struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

type bboResponse struct {
	Bid *depthEntryResponse `json:"bid,omitempty"`
	Ask *depthEntryResponse `json:"ask,omitempty"`
}

func toDepthEntryResponse(e *book.DepthEntry) *depthEntryResponse {
	if e == nil {
		return nil
	}
	return &depthEntryResponse{Price: e.Price.String(), Qty: e.Qty.String()}
}

func (s *Server) handleBBO(w http.ResponseWriter, r *http.Request) {
	symbol := common.Symbol(mux.Vars(r)["symbol"])
	bbo, err := s.engine.BBO(symbol)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, bboResponse{Bid: toDepthEntryResponse(bbo.Bid), Ask: toDepthEntryResponse(bbo.Ask)})
}

type depthResponse struct {
	Bids []depthEntryResponse `json:"bids"`
	Asks []depthEntryResponse `json:"asks"`
}

func toDepthSideResponse(side []book.DepthEntry) []depthEntryResponse {
	out := make([]depthEntryResponse, len(side))
	for i, e := range side {
		out[i] = depthEntryResponse{Price: e.Price.String(), Qty: e.Qty.String()}
	}
	return out
}

func (s *Server) handleDepth(w http.ResponseWriter, r *http.Request) {
	symbol := common.Symbol(mux.Vars(r)["symbol"])
	levels := 10
	if raw := r.URL.Query().Get("levels"); raw != "" {
		if n, err := parsePositiveInt(raw); err == nil {
			levels = n
		}
	}

	depth, err := s.engine.Depth(symbol, levels)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, depthResponse{
		Bids: toDepthSideResponse(depth.Bids),
		Asks: toDepthSideResponse(depth.Asks),
	})
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, engine.ErrInvalidQuantity
		}
		n = n*10 + int(c-'0')
	}
	if n <= 0 {
		return 0, engine.ErrInvalidQuantity
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed writing json response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
