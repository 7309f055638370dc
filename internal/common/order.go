package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the engine's record of a submission. Quantity is the
// remaining (unfilled) amount; for a resting order this shrinks as it
// is matched against by later aggressors. Price is the zero value for
// market orders.
type Order struct {
	OrderID       string          // Order tracked uuid, minted on accept
	Symbol        Symbol          // Instrument key
	Side          Side            // Buy or sell
	OrderType     OrderType       // Market, limit, ioc or fok
	Quantity      decimal.Decimal // Remaining (residual) quantity
	TotalQuantity decimal.Decimal // Originally submitted quantity
	Price         decimal.Decimal // Limit price; zero for market orders
	HasPrice      bool            // True for limit/ioc/fok
	Timestamp     time.Time       // Time of arrival, UTC, microsecond resolution
}

func (o Order) String() string {
	price := "-"
	if o.HasPrice {
		price = TrimDecimal(o.Price)
	}
	return fmt.Sprintf(
		`OrderID:   %s
Symbol:    %s
Side:      %v
OrderType: %v
Quantity:  %s (of %s)
Price:     %s
Timestamp: %v`,
		o.OrderID,
		o.Symbol,
		o.Side,
		o.OrderType,
		TrimDecimal(o.Quantity),
		TrimDecimal(o.TotalQuantity),
		price,
		o.Timestamp.Format(time.RFC3339Nano),
	)
}
