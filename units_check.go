package positions

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/etnz/positions/date"
	"github.com/shopspring/decimal"
)

// Op is the kind of change about to be committed to a history.
type Op int

// Change operations.
const (
	OpAdd Op = iota + 1
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "add"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Change is an add, an update or a delete of one transaction.
// Update and delete identify the existing transaction by id.
type Change struct {
	Op          Op
	Transaction Transaction
}

// Violation is one integrity failure.
type Violation struct {
	Field         string
	Code          error
	TransactionID int64
	Time          time.Time
	Held          decimal.Decimal
	Required      decimal.Decimal
}

func (v Violation) Error() string {
	return fmt.Sprintf("transaction %d on %s: %s: %v (held %s, required %s)",
		v.TransactionID, date.Of(v.Time), v.Field, v.Code, v.Held, v.Required)
}

func (v Violation) Unwrap() error { return v.Code }

// MarshalJSON writes the violation with its code as a message.
func (v Violation) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("transactionId", v.TransactionID)
	w.Append("date", date.Of(v.Time))
	w.Append("field", v.Field)
	w.Append("code", v.Code.Error())
	w.Append("held", v.Held)
	w.Append("required", v.Required)
	return w.MarshalJSON()
}

// IntegrityError collects the violations a change would introduce.
type IntegrityError struct {
	Violations []Violation
}

func (e *IntegrityError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("%d integrity violation(s): %s", len(e.Violations), strings.Join(msgs, "; "))
}

// Unwrap lets errors.Is match any violation code.
func (e *IntegrityError) Unwrap() []error {
	errs := make([]error, len(e.Violations))
	for i, v := range e.Violations {
		errs[i] = v
	}
	return errs
}

// Violations returns the violations in err, if it is or wraps an *IntegrityError.
func Violations(err error) []Violation {
	var ie *IntegrityError
	if errors.As(err, &ie) {
		return ie.Violations
	}
	return nil
}

func integrity(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return &IntegrityError{Violations: violations}
}

// splice returns the chronological history of the change's security once the change is applied.
func splice(history []Transaction, ch Change) []Transaction {
	target := ch.Transaction
	txs := make([]Transaction, 0, len(history)+1)
	for _, tx := range history {
		if tx.SecurityID != target.SecurityID || tx.Ephemeral {
			continue
		}
		if ch.Op != OpAdd && tx.ID == target.ID {
			continue
		}
		txs = append(txs, tx)
	}
	if ch.Op != OpDelete {
		txs = append(txs, target)
	}
	SortTransactions(txs)
	return txs
}

// CheckGeneralUnits replays history with ch applied and reports every point
// where held units would become negative, or where a dividend is paid on more
// units than held.
//
// A dividend may exceed the held units by what was sold after its ex-date and
// before its payment. The history is not modified.
func CheckGeneralUnits(history []Transaction, ch Change, splits SplitLookup) error {
	if splits == nil {
		splits = SplitTable(nil)
	}
	txs := splice(history, ch)
	var violations []Violation
	held := decimal.Zero
	for i, tx := range txs {
		units := tx.Units.Abs().Mul(splits.SplitFactors(tx.SecurityID, tx.Day(), nil).FromTo)
		switch tx.Kind {
		case KindAccumulate:
			held = held.Add(units)
		case KindReduce:
			if units.Sub(held).GreaterThan(unitsTolerance) {
				violations = append(violations, violation("units", ErrNegativeUnits, tx, held, units))
				held = decimal.Zero
				continue
			}
			held = held.Sub(units)
		case KindDividend:
			if units.Sub(held).LessThanOrEqual(unitsTolerance) {
				continue
			}
			if soldAfterExDate(txs[:i], tx.ExDate, splits).Add(held).Sub(units).GreaterThanOrEqual(unitsTolerance.Neg()) {
				continue
			}
			violations = append(violations, violation("units", ErrDividendUnits, tx, held, units))
		}
	}
	return integrity(violations)
}

// soldAfterExDate sums the units reduced strictly after exDate in txs.
func soldAfterExDate(txs []Transaction, exDate date.Date, splits SplitLookup) decimal.Decimal {
	sold := decimal.Zero
	if exDate.IsZero() {
		return sold
	}
	for _, tx := range txs {
		if tx.Kind == KindReduce && tx.Day().After(exDate) {
			sold = sold.Add(tx.Units.Abs().Mul(splits.SplitFactors(tx.SecurityID, tx.Day(), nil).FromTo))
		}
	}
	return sold
}

func violation(field string, code error, tx Transaction, held, required decimal.Decimal) Violation {
	return Violation{Field: field, Code: code, TransactionID: tx.ID, Time: tx.Time, Held: held, Required: required}
}

// CheckMarginUnits checks that ch keeps every margin lot consistent.
//
// Deleting an open that still has closes is rejected. An open must cover the
// units of all its closes, and a close must reference an open of the opposite
// direction with enough remaining units. A close must come after its open in
// replay order. Close units are compared in the open's unit convention, using
// the splits between the open and each close.
func CheckMarginUnits(history []Transaction, ch Change, splits SplitLookup) error {
	if splits == nil {
		splits = SplitTable(nil)
	}
	target := ch.Transaction
	if ch.Op == OpDelete {
		if i := slices.IndexFunc(history, func(tx Transaction) bool { return tx.ID == target.ID && !tx.Ephemeral }); i >= 0 {
			target = history[i]
		}
		var violations []Violation
		if closes := closesOf(history, target); len(closes) > 0 {
			violations = append(violations, violation("connectedId", ErrOpenPositionReferenced, target,
				target.Units.Abs(), closedUnits(closes, target, splits)))
		}
		return integrity(violations)
	}
	if !target.Kind.isTrade() {
		return nil
	}
	txs := splice(history, ch)
	// Position of each transaction in replay order.
	pos := make(map[int64]int, len(txs))
	for i, tx := range txs {
		pos[tx.ID] = i
	}
	if target.ConnectedID == 0 {
		var violations []Violation
		closes := closesOf(txs, target)
		for _, c := range closes {
			if pos[c.ID] < pos[target.ID] {
				violations = append(violations, violation("time", ErrCloseBeforeOpen, c, target.Units.Abs(), c.Units.Abs()))
			}
		}
		required := closedUnits(closes, target, splits)
		if required.Sub(target.Units.Abs()).GreaterThan(unitsTolerance) {
			violations = append(violations, violation("units", ErrOpenBelowClosed, target, target.Units.Abs(), required))
		}
		return integrity(violations)
	}

	var open *Transaction
	for i, tx := range txs {
		if tx.ID == target.ConnectedID && tx.ConnectedID == 0 && tx.Kind.isTrade() {
			open = &txs[i]
		}
	}
	if open == nil {
		return integrity([]Violation{violation("connectedId", ErrUnknownOpenPosition, target, decimal.Zero, target.Units.Abs())})
	}
	if pos[target.ID] < pos[open.ID] {
		return integrity([]Violation{violation("time", ErrCloseBeforeOpen, target, decimal.Zero, target.Units.Abs())})
	}
	if direction(open.Kind).Equal(direction(target.Kind)) {
		return integrity([]Violation{violation("kind", ErrCloseDirection, target, open.Units.Abs(), target.Units.Abs())})
	}
	var others []Transaction
	for _, c := range closesOf(txs, *open) {
		if c.ID != target.ID {
			others = append(others, c)
		}
	}
	// In the open's convention.
	remaining := open.Units.Abs().Sub(closedUnits(others, *open, splits))
	required := closedUnits([]Transaction{target}, *open, splits)
	if required.Sub(remaining).GreaterThan(unitsTolerance) {
		day := target.Day()
		f := splits.SplitFactors(open.SecurityID, open.Day(), &day).FromTo
		return integrity([]Violation{violation("units", ErrCloseExceedsOpen, target, remaining.Mul(f), target.Units.Abs())})
	}
	return nil
}

// closesOf returns the transactions of txs closing open.
func closesOf(txs []Transaction, open Transaction) []Transaction {
	var closes []Transaction
	for _, tx := range txs {
		if tx.ConnectedID == open.ID && tx.Kind.isTrade() && !tx.Ephemeral {
			closes = append(closes, tx)
		}
	}
	return closes
}

// closedUnits sums the units of closes, expressed at the open's day.
func closedUnits(closes []Transaction, open Transaction, splits SplitLookup) decimal.Decimal {
	sum := decimal.Zero
	for _, c := range closes {
		day := c.Day()
		f := splits.SplitFactors(open.SecurityID, open.Day(), &day).FromTo
		sum = sum.Add(c.Units.Abs().Div(f))
	}
	return sum
}
