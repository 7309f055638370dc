package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is immutable once emitted. AggressorSide is the taker's side.
type Trade struct {
	TradeID       string
	Symbol        Symbol
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	AggressorSide Side
	MakerOrderID  string
	TakerOrderID  string
	Timestamp     time.Time
}

func (t Trade) String() string {
	return fmt.Sprintf(
		`TradeID:       %s
Symbol:        %s
Price:         %s
Quantity:      %s
AggressorSide: %v
MakerOrderID:  %s
TakerOrderID:  %s
Timestamp:     %v`,
		t.TradeID,
		t.Symbol,
		TrimDecimal(t.Price),
		TrimDecimal(t.Quantity),
		t.AggressorSide,
		t.MakerOrderID,
		t.TakerOrderID,
		t.Timestamp.Format(time.RFC3339Nano),
	)
}
