package positions

import (
	"fmt"

	"github.com/etnz/positions/date"
	"github.com/shopspring/decimal"
)

// marginCalc tracks one lot per opening transaction of a leveraged instrument.
type marginCalc struct{ baseCalc }

// direction is +1 for a long trade and -1 for a short one.
func direction(k Kind) decimal.Decimal {
	if k == KindReduce || k == KindHypotheticalSell {
		return one.Neg()
	}
	return one
}

func (c marginCalc) expand(_ *PositionSummary, tx Transaction) []Transaction {
	return []Transaction{tx}
}

func (c marginCalc) apply(s *PositionSummary, tx *Transaction) error {
	s.resetTransaction()
	switch {
	case tx.Kind.isIncome():
		return c.income(s, tx)
	case !tx.Kind.isTrade():
		return fmt.Errorf("%w: %q", ErrUnknownKind, tx.Kind)
	case tx.ConnectedID == 0:
		return c.open(s, *tx)
	default:
		return c.close(s, tx)
	}
}

func (c marginCalc) open(s *PositionSummary, tx Transaction) error {
	rate, err := c.rate(tx)
	if err != nil {
		return err
	}
	f := c.splitFactors(tx)
	units := tx.Units.Abs().Mul(f.FromTo).Mul(direction(tx.Kind))
	expense := tx.netPrice(c.sec).Abs().Add(tx.taxAndCost())

	s.OpenLots[tx.ID] = &MarginOpenLot{
		Open:                tx,
		OpenUnits:           units,
		ExpenseIncome:       expense,
		SplitFactorFromOpen: f.FromTo,
	}
	s.Units = s.Units.Add(units)
	s.OpenUnitsTimeValuePerPoint = s.OpenUnitsTimeValuePerPoint.Add(units.Mul(tx.valuePerPoint(c.sec)))
	s.AdjustedCostBase = s.AdjustedCostBase.Add(expense)

	// Opening only costs the fees.
	gain := tx.taxAndCost().Neg()
	s.realize(gain, gain.Mul(rate), decimal.Zero, percent(gain, expense))
	return nil
}

// close closes a part of the lot tx is connected to.
func (c marginCalc) close(s *PositionSummary, tx *Transaction) error {
	lot, ok := s.OpenLots[tx.ConnectedID]
	if !ok {
		return fmt.Errorf("%w: transaction %d closes %d", ErrUnknownOpenPosition, tx.ID, tx.ConnectedID)
	}
	openDir := direction(lot.Open.Kind)
	if direction(tx.Kind).Equal(openDir) {
		return fmt.Errorf("%w: transaction %d (%s) closes %d (%s)", ErrCloseDirection, tx.ID, tx.Kind, lot.Open.ID, lot.Open.Kind)
	}
	rate, err := c.rate(*tx)
	if err != nil {
		return err
	}
	closed := tx.Units.Abs().Mul(c.splitFactors(*tx).FromTo)
	remaining := lot.OpenUnits.Abs()
	if closed.Sub(remaining).GreaterThan(unitsTolerance) {
		return fmt.Errorf("%w: transaction %d closes %s units of %d, %s open", ErrCloseExceedsOpen, tx.ID, closed, lot.Open.ID, remaining)
	}
	fraction := one
	if closed.LessThan(remaining) {
		fraction = closed.Div(remaining)
	}

	// The open quotation is brought to the close's unit convention.
	openToClose := lot.SplitFactorFromOpen
	if !tx.Ephemeral {
		day := tx.Day()
		openToClose = c.svc.splits.SplitFactors(c.sec.ID, lot.Open.Day(), &day).FromTo
	}
	openQuotation := lot.Open.Quotation.Div(openToClose)
	gain := tx.Quotation.Sub(openQuotation).
		Mul(tx.Units.Abs()).
		Mul(tx.valuePerPoint(c.sec)).
		Mul(openDir).
		Sub(tx.taxAndCost())
	closedExpense := lot.ExpenseIncome.Mul(fraction)
	s.realize(gain, gain.Mul(rate), decimal.Zero, percent(gain, closedExpense))

	closedUnits := lot.OpenUnits.Mul(fraction)
	lot.OpenUnits = lot.OpenUnits.Sub(closedUnits)
	lot.ExpenseIncome = lot.ExpenseIncome.Sub(closedExpense)
	s.Units = s.Units.Sub(closedUnits)
	s.OpenUnitsTimeValuePerPoint = s.OpenUnitsTimeValuePerPoint.Sub(closedUnits.Mul(lot.Open.valuePerPoint(c.sec)))
	s.AdjustedCostBase = s.AdjustedCostBase.Sub(closedExpense)
	if nearZero(lot.OpenUnits) {
		if !lot.OpenUnits.IsZero() {
			c.log.Warn().Int64("lot", lot.Open.ID).Stringer("residual", lot.OpenUnits).Msg("lot closed within tolerance")
		}
		delete(s.OpenLots, lot.Open.ID)
	}
	if tx.Ephemeral {
		tx.CashAmount = gain
	}
	return nil
}

// markToMarket closes every open lot hypothetically on a copy of s.
func (c marginCalc) markToMarket(s *PositionSummary, price decimal.Decimal, on date.Date) (Valuation, error) {
	quote := price.Mul(s.ClosePriceFactor)
	v := c.svc.newValuation(c.sec, on, quote)
	work := s.clone()
	var value, valueMC decimal.Decimal
	for _, lot := range work.Lots() {
		if c.svc.recalculateLots {
			// Splits recorded since the lot was opened restate its units.
			f := c.svc.splits.SplitFactors(c.sec.ID, lot.Open.Day(), c.until).FromTo
			lot.OpenUnits = lot.OpenUnits.Mul(f).Div(lot.SplitFactorFromOpen)
			lot.SplitFactorFromOpen = f
		}
		kind := KindHypotheticalSell
		if lot.OpenUnits.IsNegative() {
			kind = KindHypotheticalBuy
		}
		tx := c.hypothetical(kind, on, lot.OpenUnits.Abs(), quote)
		tx.ConnectedID = lot.Open.ID
		tx.AssetInvestmentValue2 = lot.Open.AssetInvestmentValue2
		rate, err := c.rate(tx)
		if err != nil {
			return v, err
		}
		units := lot.OpenUnits
		if err := c.close(work, &tx); err != nil {
			return v, err
		}
		exposure := units.Mul(quote).Mul(tx.valuePerPoint(c.sec))
		value = value.Add(exposure)
		valueMC = valueMC.Add(exposure.Mul(rate))
		v.Units = v.Units.Add(units)
		v.Lots = append(v.Lots, LotValuation{
			OpenID:     lot.Open.ID,
			Units:      units,
			GainLoss:   c.svc.money(work.TransactionGainLoss, c.sec.Currency),
			GainLossMC: c.svc.money(work.TransactionGainLossMC, c.svc.mainCurrencyFor(c.sec)),
			Percentage: roundPercent(work.TransactionGainLossPercentage),
		})
	}
	v.Value = c.svc.money(value, c.sec.Currency)
	v.ValueMC = c.svc.money(valueMC, c.svc.mainCurrencyFor(c.sec))
	// Each close was realized on the copy: the unrealized figures are the difference.
	v.UnrealizedGainLoss = c.svc.money(work.GainLossSecurity.Sub(s.GainLossSecurity), c.sec.Currency)
	v.UnrealizedGainLossMC = c.svc.money(work.GainLossMC.Sub(s.GainLossMC), c.svc.mainCurrencyFor(c.sec))
	v.UnrealizedCurrencyGainLossMC = c.svc.money(decimal.Zero, c.svc.mainCurrencyFor(c.sec))
	v.Percentage = roundPercent(percent(work.GainLossSecurity.Sub(s.GainLossSecurity), s.AdjustedCostBase))
	return v, nil
}
