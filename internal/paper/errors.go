package paper

import "errors"

// Trader errors. Insufficient funds/position never surface here: they are
// terminal order outcomes (status rejected) inspected on the order itself.
var (
	// ErrInvalidOrderState is returned when execute or cancel is called on
	// a non-pending order.
	ErrInvalidOrderState = errors.New("invalid order state: order is not pending")

	// ErrOrderNotFound is returned when no order exists for the given ID.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidOrder is returned by Submit on malformed input
	// (non-positive quantity, limit order without a limit price,
	// stop order without a stop price).
	ErrInvalidOrder = errors.New("invalid order")
)
