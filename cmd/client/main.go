package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"vela/internal/common"
	velaNet "vela/internal/net"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the matching server")
	action := flag.String("action", "submit", "Action to perform: ['submit', 'bbo', 'depth']")

	symbol := flag.String("symbol", "BTC-USDT", "Instrument symbol")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "Order type: 'market', 'limit', 'ioc' or 'fok'")
	priceStr := flag.String("price", "", "Limit price (required for limit/ioc/fok)")
	qtyStr := flag.String("qty", "1", "Quantity")
	levels := flag.Int("levels", 10, "Depth levels to request")

	flag.Parse()

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", *serverAddr)

	switch strings.ToLower(*action) {
	case "submit":
		if err := sendSubmit(conn, *symbol, *typeStr, *sideStr, *qtyStr, *priceStr); err != nil {
			log.Fatalf("failed to submit order: %v", err)
		}
	case "bbo":
		if err := sendBBORequest(conn, *symbol); err != nil {
			log.Fatalf("failed to request bbo: %v", err)
		}
	case "depth":
		if err := sendDepthRequest(conn, *symbol, uint16(*levels)); err != nil {
			log.Fatalf("failed to request depth: %v", err)
		}
	default:
		log.Fatalf("unknown action: %s", *action)
	}

	if err := readResponse(conn); err != nil {
		log.Fatalf("failed reading response: %v", err)
	}
}

func orderTypeFromString(s string) (common.OrderType, error) {
	switch strings.ToLower(s) {
	case "market":
		return common.Market, nil
	case "limit":
		return common.Limit, nil
	case "ioc":
		return common.IOC, nil
	case "fok":
		return common.FOK, nil
	default:
		return 0, fmt.Errorf("unknown order type %q", s)
	}
}

func sideFromString(s string) (common.Side, error) {
	switch strings.ToLower(s) {
	case "buy":
		return common.Buy, nil
	case "sell":
		return common.Sell, nil
	default:
		return 0, fmt.Errorf("unknown side %q", s)
	}
}

func sendSubmit(conn net.Conn, symbol, orderType, side, qty, price string) error {
	ot, err := orderTypeFromString(orderType)
	if err != nil {
		return err
	}
	sd, err := sideFromString(side)
	if err != nil {
		return err
	}

	quantity, err := decimal.NewFromString(qty)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", qty, err)
	}

	msg := velaNet.NewOrderMessage{Symbol: common.Symbol(symbol), OrderType: ot, Side: sd, Quantity: quantity}
	if price != "" {
		p, err := decimal.NewFromString(price)
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", price, err)
		}
		msg.Price, msg.HasPrice = p, true
	}

	_, err = conn.Write(msg.Serialize())
	return err
}

func sendBBORequest(conn net.Conn, symbol string) error {
	msg := velaNet.BBORequestMessage{Symbol: common.Symbol(symbol)}
	_, err := conn.Write(msg.Serialize())
	return err
}

func sendDepthRequest(conn net.Conn, symbol string, levels uint16) error {
	msg := velaNet.DepthRequestMessage{Symbol: common.Symbol(symbol), Levels: levels}
	_, err := conn.Write(msg.Serialize())
	return err
}

// readResponse reads one response frame and prints a best-effort human
// summary of its header. It mirrors internal/net's Serialize methods
// closely enough for diagnostics but is not a general-purpose decoder.
func readResponse(conn net.Conn) error {
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	buf := make([]byte, 8*1024)
	n, err := conn.Read(buf)
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	if n < 2 {
		return fmt.Errorf("short response")
	}
	reportType := binary.BigEndian.Uint16(buf[0:2])
	fmt.Printf("response type=%d payload_bytes=%d\n", reportType, n-2)
	return nil
}
