package net

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"vela/internal/common"
	"vela/internal/engine"
)

var (
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrMessageTooShort    = errors.New("message too short for specified payload length")
	ErrInvalidDecimal     = errors.New("malformed decimal field")
)

// MessageType is the wire discriminant of a client request. Cancel/amend
// requests carry no message type — spec.md's Non-goals exclude them from
// the matching core entirely, so the wire protocol never offers them.
type MessageType uint16

const (
	Heartbeat MessageType = iota
	NewOrder
	BBORequest
	DepthRequest
)

type ReportMessageType uint16

const (
	ExecutionReport ReportMessageType = iota
	BBOReport
	DepthReport
	ErrorReport
)

type Message interface {
	GetType() MessageType
}

const BaseMessageHeaderLen = 2

type BaseMessage struct {
	TypeOf MessageType
}

func (m BaseMessage) GetType() MessageType { return m.TypeOf }

func parseMessage(msg []byte) (Message, error) {
	if len(msg) < BaseMessageHeaderLen {
		return BaseMessage{}, ErrMessageTooShort
	}
	typeOf := MessageType(binary.BigEndian.Uint16(msg[0:2]))
	body := msg[2:]
	switch typeOf {
	case NewOrder:
		return parseNewOrder(body)
	case BBORequest:
		return parseBBORequest(body)
	case DepthRequest:
		return parseDepthRequest(body)
	case Heartbeat:
		return BaseMessage{TypeOf: Heartbeat}, nil
	default:
		return BaseMessage{}, ErrInvalidMessageType
	}
}

// readLenPrefixedString reads a uint16-length-prefixed UTF-8 string
// starting at buf[0], returning the string and the bytes consumed.
func readLenPrefixedString(buf []byte) (string, int, error) {
	if len(buf) < 2 {
		return "", 0, ErrMessageTooShort
	}
	n := int(binary.BigEndian.Uint16(buf[0:2]))
	if len(buf) < 2+n {
		return "", 0, ErrMessageTooShort
	}
	return string(buf[2 : 2+n]), 2 + n, nil
}

func writeLenPrefixedString(s string) []byte {
	buf := make([]byte, 2+len(s))
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(s)))
	copy(buf[2:], s)
	return buf
}

func readDecimalField(buf []byte) (decimal.Decimal, bool, int, error) {
	s, n, err := readLenPrefixedString(buf)
	if err != nil {
		return decimal.Decimal{}, false, 0, err
	}
	if s == "" {
		return decimal.Zero, false, n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false, 0, ErrInvalidDecimal
	}
	return d, true, n, nil
}

// NewOrderMessage is a request to submit(symbol, order_type, side,
// quantity, price?) per spec.md §6.
type NewOrderMessage struct {
	BaseMessage
	Symbol    common.Symbol
	OrderType common.OrderType
	Side      common.Side
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	HasPrice  bool
}

func parseNewOrder(msg []byte) (NewOrderMessage, error) {
	m := NewOrderMessage{BaseMessage: BaseMessage{TypeOf: NewOrder}}

	symbol, n, err := readLenPrefixedString(msg)
	if err != nil {
		return NewOrderMessage{}, err
	}
	msg = msg[n:]
	m.Symbol = common.Symbol(symbol)

	if len(msg) < 2 {
		return NewOrderMessage{}, ErrMessageTooShort
	}
	m.OrderType = common.OrderType(msg[0])
	m.Side = common.Side(msg[1])
	msg = msg[2:]

	qty, _, n, err := readDecimalField(msg)
	if err != nil {
		return NewOrderMessage{}, err
	}
	m.Quantity = qty
	msg = msg[n:]

	price, hasPrice, _, err := readDecimalField(msg)
	if err != nil {
		return NewOrderMessage{}, err
	}
	m.Price = price
	m.HasPrice = hasPrice

	return m, nil
}

func (m NewOrderMessage) Serialize() []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf[0:2], uint16(NewOrder))
	buf = append(buf, writeLenPrefixedString(string(m.Symbol))...)
	buf = append(buf, byte(m.OrderType), byte(m.Side))
	buf = append(buf, writeLenPrefixedString(m.Quantity.String())...)
	if m.HasPrice {
		buf = append(buf, writeLenPrefixedString(m.Price.String())...)
	} else {
		buf = append(buf, writeLenPrefixedString("")...)
	}
	return buf
}

// BBORequestMessage requests bbo(symbol).
type BBORequestMessage struct {
	BaseMessage
	Symbol common.Symbol
}

func parseBBORequest(msg []byte) (BBORequestMessage, error) {
	symbol, _, err := readLenPrefixedString(msg)
	if err != nil {
		return BBORequestMessage{}, err
	}
	return BBORequestMessage{BaseMessage: BaseMessage{TypeOf: BBORequest}, Symbol: common.Symbol(symbol)}, nil
}

func (m BBORequestMessage) Serialize() []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf[0:2], uint16(BBORequest))
	return append(buf, writeLenPrefixedString(string(m.Symbol))...)
}

// DepthRequestMessage requests depth(symbol, levels).
type DepthRequestMessage struct {
	BaseMessage
	Symbol common.Symbol
	Levels uint16
}

func parseDepthRequest(msg []byte) (DepthRequestMessage, error) {
	symbol, n, err := readLenPrefixedString(msg)
	if err != nil {
		return DepthRequestMessage{}, err
	}
	msg = msg[n:]
	if len(msg) < 2 {
		return DepthRequestMessage{}, ErrMessageTooShort
	}
	levels := binary.BigEndian.Uint16(msg[0:2])
	return DepthRequestMessage{BaseMessage: BaseMessage{TypeOf: DepthRequest}, Symbol: common.Symbol(symbol), Levels: levels}, nil
}

func (m DepthRequestMessage) Serialize() []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf[0:2], uint16(DepthRequest))
	buf = append(buf, writeLenPrefixedString(string(m.Symbol))...)
	lvl := make([]byte, 2)
	binary.BigEndian.PutUint16(lvl, m.Levels)
	return append(buf, lvl...)
}

// serializeTrade is the over-the-wire encoding of one common.Trade.
func serializeTrade(tr common.Trade) []byte {
	var buf []byte
	buf = append(buf, writeLenPrefixedString(tr.TradeID)...)
	buf = append(buf, writeLenPrefixedString(tr.Price.String())...)
	buf = append(buf, writeLenPrefixedString(tr.Quantity.String())...)
	buf = append(buf, byte(tr.AggressorSide))
	buf = append(buf, writeLenPrefixedString(tr.MakerOrderID)...)
	buf = append(buf, writeLenPrefixedString(tr.TakerOrderID)...)
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(tr.Timestamp.UnixNano()))
	return append(buf, ts...)
}

// ExecutionReportMessage reports the outcome of one submitted order.
type ExecutionReportMessage struct {
	Status            common.Status
	OrderID           string
	FilledQuantity    decimal.Decimal
	RemainingQuantity decimal.Decimal
	Trades            []common.Trade
}

func (r ExecutionReportMessage) Serialize() []byte {
	header := make([]byte, 2)
	binary.BigEndian.PutUint16(header, uint16(ExecutionReport))
	buf := append([]byte{}, header...)
	buf = append(buf, byte(r.Status))
	buf = append(buf, writeLenPrefixedString(r.OrderID)...)
	buf = append(buf, writeLenPrefixedString(r.FilledQuantity.String())...)
	buf = append(buf, writeLenPrefixedString(r.RemainingQuantity.String())...)

	count := make([]byte, 2)
	binary.BigEndian.PutUint16(count, uint16(len(r.Trades)))
	buf = append(buf, count...)
	for _, tr := range r.Trades {
		buf = append(buf, serializeTrade(tr)...)
	}
	return buf
}

// bboReportMessage reports a bbo(symbol) response.
type bboReportMessage struct {
	Bid    *decimal.Decimal
	BidQty *decimal.Decimal
	Ask    *decimal.Decimal
	AskQty *decimal.Decimal
}

func serializeOptionalDecimal(d *decimal.Decimal) []byte {
	if d == nil {
		return writeLenPrefixedString("")
	}
	return writeLenPrefixedString(d.String())
}

func (r bboReportMessage) Serialize() []byte {
	header := make([]byte, 2)
	binary.BigEndian.PutUint16(header, uint16(BBOReport))
	buf := append([]byte{}, header...)
	buf = append(buf, serializeOptionalDecimal(r.Bid)...)
	buf = append(buf, serializeOptionalDecimal(r.BidQty)...)
	buf = append(buf, serializeOptionalDecimal(r.Ask)...)
	buf = append(buf, serializeOptionalDecimal(r.AskQty)...)
	return buf
}

// depthWireEntry is one price/qty row of a depth(symbol, levels) report.
type depthWireEntry struct {
	Price decimal.Decimal
	Qty   decimal.Decimal
}

func (e depthWireEntry) serialize() []byte {
	buf := writeLenPrefixedString(e.Price.String())
	return append(buf, writeLenPrefixedString(e.Qty.String())...)
}

// depthReportMessage reports a depth(symbol, levels) response.
type depthReportMessage struct {
	Bids []depthWireEntry
	Asks []depthWireEntry
}

func serializeDepthSide(side []depthWireEntry) []byte {
	count := make([]byte, 2)
	binary.BigEndian.PutUint16(count, uint16(len(side)))
	buf := append([]byte{}, count...)
	for _, e := range side {
		buf = append(buf, e.serialize()...)
	}
	return buf
}

func (r depthReportMessage) Serialize() []byte {
	header := make([]byte, 2)
	binary.BigEndian.PutUint16(header, uint16(DepthReport))
	buf := append([]byte{}, header...)
	buf = append(buf, serializeDepthSide(r.Bids)...)
	buf = append(buf, serializeDepthSide(r.Asks)...)
	return buf
}

func generateWireErrorReport(err error) []byte {
	header := make([]byte, 2)
	binary.BigEndian.PutUint16(header, uint16(ErrorReport))
	msg := fmt.Sprintf("%v", err)
	return append(header, writeLenPrefixedString(msg)...)
}

// resultToReport converts an engine.Result into its wire encoding.
func resultToReport(orderID string, res engine.Result) ExecutionReportMessage {
	return ExecutionReportMessage{
		Status:            res.Status,
		OrderID:           orderID,
		FilledQuantity:    res.FilledQuantity,
		RemainingQuantity: res.RemainingQuantity,
		Trades:            res.Trades,
	}
}
