package positions

import "errors"

// Calculation errors.
var (
	ErrNoExchangeRate   = errors.New("no exchange rate")
	ErrOutOfOrder       = errors.New("transaction out of chronological order")
	ErrAfterValuation   = errors.New("transaction after the valuation date")
	ErrSecurityMismatch = errors.New("transaction for another security")
	ErrUnknownKind      = errors.New("unknown transaction kind")
)

// Integrity violation codes. They are also returned by the margin calculator
// when a close cannot be matched.
var (
	ErrNegativeUnits          = errors.New("units would become negative")
	ErrDividendUnits          = errors.New("dividend exceeds held units")
	ErrOpenPositionReferenced = errors.New("open position still has closing transactions")
	ErrCloseExceedsOpen       = errors.New("close exceeds the open position units")
	ErrOpenBelowClosed        = errors.New("open position smaller than its closes")
	ErrUnknownOpenPosition    = errors.New("unknown open position")
	ErrCloseDirection         = errors.New("close has the direction of its open position")
	ErrCloseBeforeOpen        = errors.New("close precedes its open position")
)
