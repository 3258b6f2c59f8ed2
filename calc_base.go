package positions

import (
	"fmt"
	"time"

	"github.com/etnz/positions/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// calculator applies transactions of one security to a PositionSummary.
type calculator interface {
	// expand returns the transactions to apply for tx, in order. It includes tx.
	expand(s *PositionSummary, tx Transaction) []Transaction
	apply(s *PositionSummary, tx *Transaction) error
	// markToMarket values the open position at price without changing units or lots.
	markToMarket(s *PositionSummary, price decimal.Decimal, on date.Date) (Valuation, error)
}

// baseCalc holds what both calculators share.
type baseCalc struct {
	svc   *Service
	sec   Security
	until *date.Date
	log   zerolog.Logger
}

func newCalculator(svc *Service, sec Security, until *date.Date, log zerolog.Logger) calculator {
	b := baseCalc{svc: svc, sec: sec, until: until, log: log}
	if sec.IsMarginInstrument {
		return marginCalc{b}
	}
	return generalCalc{b}
}

// splitFactors returns the factors of tx relative to the valuation date.
// Hypothetical transactions are already expressed at the valuation date.
func (c baseCalc) splitFactors(tx Transaction) SplitFactors {
	if tx.Kind == KindHypotheticalBuy || tx.Kind == KindHypotheticalSell {
		return noSplit
	}
	return c.svc.splits.SplitFactors(c.sec.ID, tx.Day(), c.until)
}

// rate returns the exchange rate from the security currency to the main currency on tx's day.
func (c baseCalc) rate(tx Transaction) (decimal.Decimal, error) {
	main := c.svc.mainCurrencyFor(c.sec)
	if c.sec.Currency == main {
		return one, nil
	}
	if tx.CurrencyExRate.Valid {
		return tx.CurrencyExRate.Decimal, nil
	}
	if c.svc.rates != nil {
		if r, ok := c.svc.rates.Rate(tx.Day(), c.sec.Currency, main); ok {
			return r, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s to %s on %s", ErrNoExchangeRate, c.sec.Currency, main, tx.Day())
}

// income applies a cash-only transaction: dividend, accrued interest or financing cost.
func (c baseCalc) income(s *PositionSummary, tx *Transaction) error {
	rate, err := c.rate(*tx)
	if err != nil {
		return err
	}
	tax := tx.TaxCost
	if tx.Kind == KindDividend && c.svc.excludeDividendTax {
		tax = decimal.Zero
	}
	gain := tx.Units.Mul(tx.Quotation).Sub(tax).Sub(tx.TransactionCost)
	var pct decimal.NullDecimal
	if !s.Units.IsZero() {
		pct = percent(gain, s.AdjustedCostBase)
	}
	s.realize(gain, gain.Mul(rate), decimal.Zero, pct)
	if tx.Ephemeral {
		tx.CashAmount = gain
		if tx.Kind == KindAccruedInterest {
			s.simulatedAccrued[tx.ConnectedID] = realized{gain, s.TransactionGainLossMC}
		}
	}
	return nil
}

// hypothetical returns an ephemeral transaction dated on.
func (c baseCalc) hypothetical(kind Kind, on date.Date, units, price decimal.Decimal) Transaction {
	return Transaction{
		ID:         c.svc.nextID(),
		SecurityID: c.sec.ID,
		Kind:       kind,
		Time:       on.Time().Add(24*time.Hour - time.Nanosecond),
		Units:      units,
		Quotation:  price,
		Ephemeral:  true,
	}
}
