package positions

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// PositionSummary is the running state of one security during one calculation.
//
// Units are split-adjusted to the calculation's valuation date. Amounts are in
// the security currency, except the MC fields which are in the main currency.
type PositionSummary struct {
	Units            decimal.Decimal
	AdjustedCostBase decimal.Decimal
	// AdjustedCostBaseMC is the cost base converted at the rate of each
	// purchase: the main currency shadow of AdjustedCostBase.
	AdjustedCostBaseMC decimal.Decimal

	// Cumulative realized figures.
	GainLossSecurity   decimal.Decimal
	GainLossMC         decimal.Decimal
	CurrencyGainLossMC decimal.Decimal

	// Figures of the last applied transaction.
	TransactionGainLoss           decimal.Decimal
	TransactionGainLossMC         decimal.Decimal
	TransactionCurrencyGainLossMC decimal.Decimal
	TransactionGainLossPercentage decimal.NullDecimal

	// ClosePriceFactor scales a current quote to the valuation date's units.
	ClosePriceFactor decimal.Decimal

	// Margin instruments only.
	OpenUnitsTimeValuePerPoint decimal.Decimal
	OpenLots                   map[int64]*MarginOpenLot

	// accruedConnected are the ids of principal transactions whose accrued
	// interest is recorded as its own transaction.
	accruedConnected map[int64]bool
	// simulatedAccrued are the realized figures of the accrued interest
	// derived from each principal transaction.
	simulatedAccrued map[int64]realized
}

// realized is a gain in the security and the main currency.
type realized struct{ gain, gainMC decimal.Decimal }

// MarginOpenLot is the remaining exposure of one opening margin transaction.
type MarginOpenLot struct {
	Open Transaction
	// OpenUnits are split-adjusted and signed: negative for a short lot.
	OpenUnits           decimal.Decimal
	ExpenseIncome       decimal.Decimal
	SplitFactorFromOpen decimal.Decimal
}

func newPositionSummary() *PositionSummary {
	return &PositionSummary{
		ClosePriceFactor: one,
		OpenLots:         make(map[int64]*MarginOpenLot),
		accruedConnected: make(map[int64]bool),
		simulatedAccrued: make(map[int64]realized),
	}
}

// Lots returns the open lots ordered by opening transaction id.
func (s *PositionSummary) Lots() []*MarginOpenLot {
	lots := make([]*MarginOpenLot, 0, len(s.OpenLots))
	for _, id := range slices.Sorted(maps.Keys(s.OpenLots)) {
		lots = append(lots, s.OpenLots[id])
	}
	return lots
}

// resetTransaction clears the per-transaction figures.
func (s *PositionSummary) resetTransaction() {
	s.TransactionGainLoss = decimal.Zero
	s.TransactionGainLossMC = decimal.Zero
	s.TransactionCurrencyGainLossMC = decimal.Zero
	s.TransactionGainLossPercentage = decimal.NullDecimal{}
}

// realize records the figures of the current transaction and adds them to the cumulative ones.
func (s *PositionSummary) realize(gain, gainMC, currencyMC decimal.Decimal, pct decimal.NullDecimal) {
	s.TransactionGainLoss = gain
	s.TransactionGainLossMC = gainMC
	s.TransactionCurrencyGainLossMC = currencyMC
	s.TransactionGainLossPercentage = pct
	s.GainLossSecurity = s.GainLossSecurity.Add(gain)
	s.GainLossMC = s.GainLossMC.Add(gainMC)
	s.CurrencyGainLossMC = s.CurrencyGainLossMC.Add(currencyMC)
}

// recordAccrued marks the accrued interest of principal as recorded. It
// reverses the accrued interest already derived from principal, if any, and
// reports whether it did.
func (s *PositionSummary) recordAccrued(principal int64) bool {
	s.accruedConnected[principal] = true
	r, ok := s.simulatedAccrued[principal]
	if !ok {
		return false
	}
	delete(s.simulatedAccrued, principal)
	s.GainLossSecurity = s.GainLossSecurity.Sub(r.gain)
	s.GainLossMC = s.GainLossMC.Sub(r.gainMC)
	return true
}

// clone returns a deep copy of s.
func (s *PositionSummary) clone() *PositionSummary {
	c := *s
	c.OpenLots = make(map[int64]*MarginOpenLot, len(s.OpenLots))
	for id, lot := range s.OpenLots {
		l := *lot
		c.OpenLots[id] = &l
	}
	c.accruedConnected = maps.Clone(s.accruedConnected)
	if c.accruedConnected == nil {
		c.accruedConnected = make(map[int64]bool)
	}
	c.simulatedAccrued = maps.Clone(s.simulatedAccrued)
	if c.simulatedAccrued == nil {
		c.simulatedAccrued = make(map[int64]realized)
	}
	return &c
}
