package engine

import (
	"errors"
	"fmt"
)

// Submit-time validation errors (spec.md §7 "Invalid argument" class).
// Reported synchronously to the caller; the book is never touched.
var (
	ErrInvalidSide      = errors.New("invalid side")
	ErrInvalidOrderType = errors.New("invalid order_type")
	ErrInvalidQuantity  = errors.New("quantity must be > 0")
	ErrInvalidPrice     = errors.New("price must be > 0 for limit, ioc or fok")
)

// InvariantViolation marks a bug-class failure: a state the matching
// algorithm proved could not be reached (spec.md §7 "Invariant
// violation" class). It is fatal to the symbol that produced it — the
// worker pool boundary recovers from the panic that carries it and
// marks that symbol unusable rather than letting it corrupt the book
// silently.
type InvariantViolation struct {
	Symbol string
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation on symbol %q: %s", e.Symbol, e.Reason)
}
