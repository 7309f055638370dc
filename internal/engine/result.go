package engine

import (
	"github.com/shopspring/decimal"

	"vela/internal/common"
)

// Result is the envelope returned to the submitter, per spec.md §6.
type Result struct {
	Status            common.Status
	OrderID           string
	FilledQuantity    decimal.Decimal
	RemainingQuantity decimal.Decimal
	Trades            []common.Trade
}
