package market

import "errors"

// Business-rule failures. All are checked before any mutation: a trade
// that fails with one of these leaves ledger state untouched.
var (
	// ErrCompetitorNotFound is returned when a trade or history query
	// names a competitor outside the roster.
	ErrCompetitorNotFound = errors.New("market: competitor not found")

	// ErrInvalidSide is returned when a trade side is neither YES nor NO.
	ErrInvalidSide = errors.New("market: side must be YES or NO")

	// ErrInvalidAmount is returned when a trade amount is not positive.
	ErrInvalidAmount = errors.New("market: amount must be positive")

	// ErrInsufficientFunds is returned when a participant's cash does not
	// cover the trade amount.
	ErrInsufficientFunds = errors.New("market: insufficient funds")
)
