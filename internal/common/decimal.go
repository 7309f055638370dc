package common

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TrimDecimal renders d in plain decimal notation with trailing
// zeroes trimmed after normalization, matching the outbound string
// format the original engine used for prices and quantities.
func TrimDecimal(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
