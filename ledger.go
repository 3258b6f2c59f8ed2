package positions

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/etnz/positions/date"
	"github.com/shopspring/decimal"
)

// Ledger is an in-memory store of securities, their transactions, splits and
// exchange rates. It serves the splits and rates a Service needs.
//
// In a Ledger transactions are always in chronological order.
type Ledger struct {
	transactions []Transaction
	securities   map[string]Security
	splits       SplitTable
	rates        map[pair]*date.History[float64]
}

// pair is a currency pair, its rate converts one unit of from into to.
type pair struct{ from, to string }

func (p pair) String() string { return p.from + p.to }

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		transactions: make([]Transaction, 0),
		securities:   make(map[string]Security),
		splits:       make(SplitTable),
		rates:        make(map[pair]*date.History[float64]),
	}
}

// Declare adds or replaces a security.
func (l *Ledger) Declare(sec Security) { l.securities[sec.ID] = sec }

// Security returns the security declared with id.
func (l *Ledger) Security(id string) (Security, bool) {
	sec, ok := l.securities[id]
	return sec, ok
}

// Securities returns the declared securities ordered by id.
func (l *Ledger) Securities() iter.Seq[Security] {
	return func(yield func(Security) bool) {
		for _, id := range slices.Sorted(maps.Keys(l.securities)) {
			if !yield(l.securities[id]) {
				return
			}
		}
	}
}

// Append appends transactions to this ledger and maintains the chronological order of transactions.
func (l *Ledger) Append(txs ...Transaction) {
	l.transactions = append(l.transactions, txs...)
	SortTransactions(l.transactions)
}

// Transactions returns an iterator over the transactions accepted by any of the filters, or all of them without filters.
func (l *Ledger) Transactions(filters ...func(Transaction) bool) iter.Seq2[int, Transaction] {
	return func(yield func(int, Transaction) bool) {
		for i, tx := range l.transactions {
			accept := len(filters) == 0
			for _, filter := range filters {
				if filter(tx) {
					accept = true
					break
				}
			}
			if !accept {
				continue
			}
			if !yield(i, tx) {
				return
			}
		}
	}
}

// BySecurity returns a filter accepting the transactions of a security.
func BySecurity(id string) func(Transaction) bool {
	return func(tx Transaction) bool { return tx.SecurityID == id }
}

// History returns a copy of the transactions of a security, in chronological order.
func (l *Ledger) History(securityID string) []Transaction {
	var txs []Transaction
	for _, tx := range l.Transactions(BySecurity(securityID)) {
		txs = append(txs, tx)
	}
	return txs
}

// AddSplit records a split of a security. A split on the same day replaces the previous one.
func (l *Ledger) AddSplit(securityID string, s SplitEvent) {
	events := l.splits[securityID]
	for i, e := range events {
		if e.Date == s.Date {
			events[i] = s
			return
		}
	}
	l.splits[securityID] = append(events, s)
}

// Splits returns the split events of a security.
func (l *Ledger) Splits(securityID string) []SplitEvent { return slices.Clone(l.splits[securityID]) }

// SplitFactors implements SplitLookup.
func (l *Ledger) SplitFactors(securityID string, from date.Date, to *date.Date) SplitFactors {
	return l.splits.SplitFactors(securityID, from, to)
}

// AddRate records the rate converting one unit of from into to on a day.
func (l *Ledger) AddRate(on date.Date, from, to string, rate float64) {
	p := pair{from, to}
	h, ok := l.rates[p]
	if !ok {
		h = new(date.History[float64])
		l.rates[p] = h
	}
	h.Append(on, rate)
}

// Rate implements ExchangeRates with the latest rate known on day.
// If the direct pair is not found, the inverse pair is used.
func (l *Ledger) Rate(day date.Date, from, to string) (decimal.Decimal, bool) {
	if from == to {
		return one, true
	}
	if h, ok := l.rates[pair{from, to}]; ok {
		if r, ok := h.ValueAsOf(day); ok && r != 0 {
			return decimal.NewFromFloat(r), true
		}
	}
	if h, ok := l.rates[pair{to, from}]; ok {
		if r, ok := h.ValueAsOf(day); ok && r != 0 {
			return one.Div(decimal.NewFromFloat(r)), true
		}
	}
	return decimal.Zero, false
}

// Check validates ch against the history of its security without applying it.
func (l *Ledger) Check(ch Change) error {
	sec, ok := l.securities[ch.Transaction.SecurityID]
	if !ok {
		return fmt.Errorf("undeclared security %q", ch.Transaction.SecurityID)
	}
	history := l.History(sec.ID)
	if sec.IsMarginInstrument {
		return CheckMarginUnits(history, ch, l)
	}
	return CheckGeneralUnits(history, ch, l)
}

// Commit checks ch and applies it to the ledger. On error the ledger is unchanged.
func (l *Ledger) Commit(ch Change) error {
	if err := l.Check(ch); err != nil {
		return err
	}
	switch ch.Op {
	case OpAdd:
		l.Append(ch.Transaction)
	case OpUpdate, OpDelete:
		i := slices.IndexFunc(l.transactions, func(tx Transaction) bool { return tx.ID == ch.Transaction.ID })
		if i < 0 {
			return fmt.Errorf("%s: unknown transaction %d", ch.Op, ch.Transaction.ID)
		}
		l.transactions = slices.Delete(l.transactions, i, i+1)
		if ch.Op == OpUpdate {
			l.Append(ch.Transaction)
		}
	default:
		return fmt.Errorf("unknown change operation %v", ch.Op)
	}
	return nil
}
