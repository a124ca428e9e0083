package accounting

import "errors"

// Accounting errors. Inside the matching engine these surface as terminal
// order outcomes (rejected), not as propagated failures.
var (
	// ErrInsufficientFunds is returned when a debit would drive cash negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientPosition is returned when a reduction exceeds the held
	// quantity or no position exists for the symbol.
	ErrInsufficientPosition = errors.New("insufficient position")
)
