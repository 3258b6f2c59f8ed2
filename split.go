package positions

import (
	"github.com/etnz/positions/date"
	"github.com/shopspring/decimal"
)

// SplitEvent is a corporate action turning From units into To units.
type SplitEvent struct {
	Date date.Date       `json:"date"`
	From decimal.Decimal `json:"from"`
	To   decimal.Decimal `json:"to"`
}

// Factor returns To/From.
func (s SplitEvent) Factor() decimal.Decimal {
	if s.From.IsZero() {
		return one
	}
	return s.To.Div(s.From)
}

// SplitFactors are the multiplicative split factors relative to a transaction.
type SplitFactors struct {
	// FromTo composes the splits after the transaction day up to the end date.
	FromTo decimal.Decimal
	// UntilNow composes the splits strictly after the end date. It scales a
	// current quote back to the end date's unit convention.
	UntilNow decimal.Decimal
}

// noSplit are the factors of a security that never split.
var noSplit = SplitFactors{FromTo: one, UntilNow: one}

// SplitLookup returns the split factors of a security between two days.
//
// A nil to means the factors as of today: FromTo composes every split after
// from and UntilNow is 1.
type SplitLookup interface {
	SplitFactors(securityID string, from date.Date, to *date.Date) SplitFactors
}

// SplitTable maps a security id to its split events.
type SplitTable map[string][]SplitEvent

// SplitFactors implements SplitLookup. Splits commute so their order in the table does not matter.
func (t SplitTable) SplitFactors(securityID string, from date.Date, to *date.Date) SplitFactors {
	f := noSplit
	for _, s := range t[securityID] {
		if !s.Date.After(from) {
			continue
		}
		if to == nil || !s.Date.After(*to) {
			f.FromTo = f.FromTo.Mul(s.Factor())
		} else {
			f.UntilNow = f.UntilNow.Mul(s.Factor())
		}
	}
	return f
}

