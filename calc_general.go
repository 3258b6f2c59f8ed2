package positions

import (
	"fmt"

	"github.com/etnz/positions/date"
	"github.com/shopspring/decimal"
)

// generalCalc is the average-cost calculator of ordinary instruments.
type generalCalc struct{ baseCalc }

// expand adds the accrued interest paid on a bond purchase, after it, or
// received on a bond sale, before it, unless the ledger records it already.
func (c generalCalc) expand(s *PositionSummary, tx Transaction) []Transaction {
	if !c.svc.simulateAccrued || !c.sec.AssetClass.accruesInterest() || tx.Ephemeral ||
		tx.AssetInvestmentValue1.IsZero() || s.accruedConnected[tx.ID] {
		return []Transaction{tx}
	}
	accrued := Transaction{
		ID:             c.svc.nextID(),
		SecurityID:     tx.SecurityID,
		Kind:           KindAccruedInterest,
		Time:           tx.Time,
		Units:          one,
		CurrencyExRate: tx.CurrencyExRate,
		ConnectedID:    tx.ID,
		Ephemeral:      true,
	}
	switch tx.Kind {
	case KindAccumulate:
		accrued.Quotation = tx.AssetInvestmentValue1.Neg()
		return []Transaction{tx, accrued}
	case KindReduce:
		accrued.Quotation = tx.AssetInvestmentValue1
		return []Transaction{accrued, tx}
	}
	return []Transaction{tx}
}

func (c generalCalc) apply(s *PositionSummary, tx *Transaction) error {
	s.resetTransaction()
	switch tx.Kind {
	case KindAccumulate, KindHypotheticalBuy:
		return c.accumulate(s, *tx)
	case KindReduce, KindHypotheticalSell:
		return c.reduce(s, tx)
	case KindDividend, KindAccruedInterest, KindFinanceCost:
		return c.income(s, tx)
	}
	return fmt.Errorf("%w: %q", ErrUnknownKind, tx.Kind)
}

func (c generalCalc) accumulate(s *PositionSummary, tx Transaction) error {
	rate, err := c.rate(tx)
	if err != nil {
		return err
	}
	f := c.splitFactors(tx)
	cost := tx.netPrice(c.sec).Add(tx.taxAndCost())

	s.Units = s.Units.Add(tx.Units.Abs().Mul(f.FromTo))
	s.AdjustedCostBase = s.AdjustedCostBase.Add(cost)
	s.AdjustedCostBaseMC = s.AdjustedCostBaseMC.Add(cost.Mul(rate))
	s.realize(decimal.Zero, decimal.Zero, decimal.Zero, decimal.NullDecimal{})
	return nil
}

// reduce sells units at the proportional average cost.
func (c generalCalc) reduce(s *PositionSummary, tx *Transaction) error {
	rate, err := c.rate(*tx)
	if err != nil {
		return err
	}
	f := c.splitFactors(*tx)
	sold := tx.Units.Abs().Mul(f.FromTo)

	var allocated, allocatedMC decimal.Decimal
	if !s.Units.IsZero() {
		fraction := sold.Div(s.Units)
		allocated = s.AdjustedCostBase.Mul(fraction)
		allocatedMC = s.AdjustedCostBaseMC.Mul(fraction)
	}
	proceeds := tx.netPrice(c.sec).Sub(tx.taxAndCost())
	gain := proceeds.Sub(allocated)

	// The main currency gain splits into the gain converted at the
	// transaction's rate and what the rate moved since the purchases.
	totalMC := proceeds.Mul(rate).Sub(allocatedMC)
	marketMC := gain.Mul(rate)
	s.realize(gain, totalMC, totalMC.Sub(marketMC), percent(gain, allocated))

	s.Units = s.Units.Sub(sold)
	s.AdjustedCostBase = s.AdjustedCostBase.Sub(allocated)
	s.AdjustedCostBaseMC = s.AdjustedCostBaseMC.Sub(allocatedMC)
	if nearZero(s.Units) && !s.Units.IsZero() {
		c.log.Debug().Int64("tx", tx.ID).Stringer("residual", s.Units).Msg("position closed within tolerance")
	}
	if nearZero(s.Units) {
		s.Units = decimal.Zero
		s.AdjustedCostBase = decimal.Zero
		s.AdjustedCostBaseMC = decimal.Zero
	}
	if tx.Ephemeral {
		tx.CashAmount = proceeds
	}
	return nil
}

// markToMarket sells every unit hypothetically and restores the summary.
func (c generalCalc) markToMarket(s *PositionSummary, price decimal.Decimal, on date.Date) (Valuation, error) {
	v := c.svc.newValuation(c.sec, on, price.Mul(s.ClosePriceFactor))
	if s.Units.IsZero() {
		return v, nil
	}
	saved := s.clone()
	defer func() { *s = *saved }()

	tx := c.hypothetical(KindHypotheticalSell, on, s.Units, price.Mul(s.ClosePriceFactor))
	rate, err := c.rate(tx)
	if err != nil {
		return v, err
	}
	if err := c.reduce(s, &tx); err != nil {
		return v, err
	}
	value := tx.netPrice(c.sec)
	v.Units = tx.Units
	v.Value = c.svc.money(value, c.sec.Currency)
	v.ValueMC = c.svc.money(value.Mul(rate), c.svc.mainCurrencyFor(c.sec))
	v.setUnrealized(c.svc, c.sec, s)
	return v, nil
}
