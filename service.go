package positions

import (
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/etnz/positions/date"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ExchangeRates returns the rate converting an amount in from into to on a day.
type ExchangeRates interface {
	Rate(day date.Date, from, to string) (decimal.Decimal, bool)
}

// IDAllocator returns a negative id, unique within a Service, for ephemeral transactions.
type IDAllocator func() int64

// NegativeSequence returns an IDAllocator counting down from -1.
func NegativeSequence() IDAllocator {
	var n atomic.Int64
	return func() int64 { return n.Add(-1) }
}

// Service computes positions from transaction histories.
//
// A Service holds no position state and can run calculations of different
// securities concurrently.
type Service struct {
	rates              ExchangeRates
	splits             SplitLookup
	mainCurrency       string
	log                zerolog.Logger
	nextID             IDAllocator
	precision          CurrencyPrecision
	excludeDividendTax bool
	simulateAccrued    bool
	recalculateLots    bool
}

// Option configures a Service.
type Option func(*Service)

// WithMainCurrency sets the reporting currency. By default each security reports in its own currency.
func WithMainCurrency(code string) Option { return func(s *Service) { s.mainCurrency = code } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

// WithIDAllocator sets the allocator of ephemeral transaction ids.
func WithIDAllocator(a IDAllocator) Option { return func(s *Service) { s.nextID = a } }

// WithCurrencyPrecision sets the rounding digits of monetary outputs.
func WithCurrencyPrecision(p CurrencyPrecision) Option { return func(s *Service) { s.precision = p } }

// WithDividendTaxCostExcluded ignores the tax of dividends in their gain.
func WithDividendTaxCostExcluded(exclude bool) Option {
	return func(s *Service) { s.excludeDividendTax = exclude }
}

// WithAccruedInterestSimulation enables or disables the accrued interest derived from bond trades. Enabled by default.
func WithAccruedInterestSimulation(enabled bool) Option {
	return func(s *Service) { s.simulateAccrued = enabled }
}

// WithLotRecalculation re-derives the split factor of margin lots before a
// mark-to-market. It only matters when the split lookup learns of new splits
// after the calculation ran, as a Ledger does.
func WithLotRecalculation(enabled bool) Option {
	return func(s *Service) { s.recalculateLots = enabled }
}

// NewService returns a Service reading rates and splits from the given collaborators.
// Both may be nil: no conversion is then possible and no split applies.
func NewService(rates ExchangeRates, splits SplitLookup, opts ...Option) *Service {
	s := &Service{
		rates:           rates,
		splits:          splits,
		log:             zerolog.Nop(),
		precision:       DefaultPrecision,
		simulateAccrued: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.splits == nil {
		s.splits = SplitTable(nil)
	}
	if s.nextID == nil {
		s.nextID = NegativeSequence()
	}
	return s
}

func (s *Service) mainCurrencyFor(sec Security) string {
	if s.mainCurrency == "" {
		return sec.Currency
	}
	return s.mainCurrency
}

// money returns a rounded Money.
func (s *Service) money(v decimal.Decimal, currency string) Money {
	return M(v, currency).Round(s.precision)
}

// Calculation is the running position of one security.
//
// A Calculation is not safe for concurrent use.
type Calculation struct {
	Security Security
	Summary  *PositionSummary
	Results  []Result
	RunID    string

	svc   *Service
	calc  calculator
	until *date.Date
	last  time.Time
	log   zerolog.Logger
}

// Calculate replays the transactions of sec up to until, or all of them when until is nil.
//
// txs is not modified. Transactions of another security are an error.
func (s *Service) Calculate(sec Security, txs []Transaction, until *date.Date) (*Calculation, error) {
	if until != nil {
		u := *until
		until = &u
	}
	c := s.newCalculation(sec, until)
	history := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.SecurityID != sec.ID {
			return nil, fmt.Errorf("%w: transaction %d is for %q, not %q", ErrSecurityMismatch, tx.ID, tx.SecurityID, sec.ID)
		}
		if until != nil && tx.Day().After(*until) {
			continue
		}
		history = append(history, tx)
		if tx.recordsAccrued() {
			c.Summary.accruedConnected[tx.ConnectedID] = true
		}
	}
	SortTransactions(history)

	for _, tx := range history {
		results, err := c.apply(c.Summary, tx)
		if err != nil {
			return nil, fmt.Errorf("calculating %s: transaction %d: %w", sec.ID, tx.ID, err)
		}
		c.Results = append(c.Results, results...)
		c.last = tx.Time
	}
	c.log.Info().Int("transactions", len(history)).Stringer("units", c.Summary.Units).Msg("calculated")
	return c, nil
}

func (s *Service) newCalculation(sec Security, until *date.Date) *Calculation {
	runID := uuid.NewString()
	log := s.log.With().Str("component", "calc").Str("run", runID).Str("security", sec.ID).Logger()
	summary := newPositionSummary()
	if until != nil {
		summary.ClosePriceFactor = s.splits.SplitFactors(sec.ID, date.Date{}, until).UntilNow
	}
	return &Calculation{
		Security: sec,
		Summary:  summary,
		RunID:    runID,
		svc:      s,
		calc:     newCalculator(s, sec, until, log),
		until:    until,
		log:      log,
	}
}

// Apply applies one more transaction to c. It must not be older than the
// transactions already applied. On error c is unchanged.
func (s *Service) Apply(c *Calculation, tx Transaction) ([]Result, error) {
	if tx.SecurityID != c.Security.ID {
		return nil, fmt.Errorf("%w: transaction %d is for %q, not %q", ErrSecurityMismatch, tx.ID, tx.SecurityID, c.Security.ID)
	}
	if tx.Time.Before(c.last) {
		return nil, fmt.Errorf("%w: transaction %d at %s is before %s", ErrOutOfOrder, tx.ID, tx.Time, c.last)
	}
	if c.until != nil && tx.Day().After(*c.until) {
		return nil, fmt.Errorf("%w: transaction %d on %s is after %s", ErrAfterValuation, tx.ID, tx.Day(), c.until)
	}
	work := c.Summary.clone()
	// A recorded accrued interest replaces the one derived from its principal.
	replaced := tx.recordsAccrued() && work.recordAccrued(tx.ConnectedID)
	results, err := c.apply(work, tx)
	if err != nil {
		return nil, fmt.Errorf("applying transaction %d: %w", tx.ID, err)
	}
	c.Summary = work
	if replaced {
		c.Results = slices.DeleteFunc(c.Results, func(r Result) bool {
			return r.Ephemeral && r.Kind == KindAccruedInterest && r.ConnectedID == tx.ConnectedID
		})
		c.log.Debug().Int64("tx", tx.ID).Int64("principal", tx.ConnectedID).Msg("derived accrued interest replaced")
	}
	c.Results = append(c.Results, results...)
	c.last = tx.Time
	return results, nil
}

// MarkToMarket values the open position of c at lastPrice, a quote of the
// current unit convention, on the given day. Units and lots are unchanged.
func (s *Service) MarkToMarket(c *Calculation, lastPrice decimal.Decimal, on date.Date) (Valuation, error) {
	if lastPrice.IsNegative() {
		panic(fmt.Sprintf("negative price %s", lastPrice))
	}
	v, err := c.calc.markToMarket(c.Summary, lastPrice, on)
	if err != nil {
		return v, fmt.Errorf("valuing %s on %s: %w", c.Security.ID, on, err)
	}
	c.log.Debug().Stringer("price", lastPrice).Stringer("unrealized", v.UnrealizedGainLoss).Msg("marked to market")
	return v, nil
}

// apply runs tx and the transactions it derives on summary.
func (c *Calculation) apply(summary *PositionSummary, tx Transaction) ([]Result, error) {
	tx.mustBeWellFormed()
	var results []Result
	for _, step := range c.calc.expand(summary, tx) {
		if err := c.calc.apply(summary, &step); err != nil {
			return nil, err
		}
		r := c.result(summary, step)
		c.log.Debug().
			Int64("tx", step.ID).
			Str("kind", string(step.Kind)).
			Bool("ephemeral", step.Ephemeral).
			Stringer("units", summary.Units).
			Stringer("gain", r.GainLoss).
			Msg("applied")
		results = append(results, r)
	}
	return results, nil
}

func (c *Calculation) result(summary *PositionSummary, tx Transaction) Result {
	main := c.svc.mainCurrencyFor(c.Security)
	return Result{
		TransactionID:      tx.ID,
		ConnectedID:        tx.ConnectedID,
		Kind:               tx.Kind,
		Time:               tx.Time,
		Ephemeral:          tx.Ephemeral,
		Units:              tx.Units,
		CashAmount:         c.svc.money(tx.CashAmount, c.Security.Currency),
		GainLoss:           c.svc.money(summary.TransactionGainLoss, c.Security.Currency),
		GainLossMC:         c.svc.money(summary.TransactionGainLossMC, main),
		CurrencyGainLossMC: c.svc.money(summary.TransactionCurrencyGainLossMC, main),
		GainLossPercentage: roundPercent(summary.TransactionGainLossPercentage),
	}
}
