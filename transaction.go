package positions

import (
	"fmt"
	"time"

	"github.com/etnz/positions/date"
	"github.com/shopspring/decimal"
)

// Kind is a typed string for identifying transaction kinds.
type Kind string

// Transaction kinds.
const (
	KindAccumulate       Kind = "accumulate"
	KindReduce           Kind = "reduce"
	KindDividend         Kind = "dividend"
	KindAccruedInterest  Kind = "accrued-interest"
	KindFinanceCost      Kind = "finance-cost"
	KindHypotheticalBuy  Kind = "hypothetical-buy"
	KindHypotheticalSell Kind = "hypothetical-sell"
)

var kinds = []Kind{KindAccumulate, KindReduce, KindDividend, KindAccruedInterest, KindFinanceCost, KindHypotheticalBuy, KindHypotheticalSell}

// ParseKind returns the Kind named s.
func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown transaction kind %q", s)
}

// isIncome reports whether k is a cash-only kind that never changes units.
func (k Kind) isIncome() bool {
	return k == KindDividend || k == KindAccruedInterest || k == KindFinanceCost
}

// isTrade reports whether k changes units.
func (k Kind) isTrade() bool {
	return k == KindAccumulate || k == KindReduce || k == KindHypotheticalBuy || k == KindHypotheticalSell
}

// AssetClass is the category of a security.
type AssetClass string

// Asset classes.
const (
	AssetClassEquities        AssetClass = "equities"
	AssetClassFixedIncome     AssetClass = "fixed-income"
	AssetClassConvertibleBond AssetClass = "convertible-bond"
	AssetClassFund            AssetClass = "fund"
	AssetClassCFD             AssetClass = "cfd"
	AssetClassForex           AssetClass = "forex"
)

// accruesInterest reports whether buying or selling such a security carries accrued interest.
func (a AssetClass) accruesInterest() bool {
	return a == AssetClassFixedIncome || a == AssetClassConvertibleBond
}

// Security holds the metadata the engine needs about an instrument.
type Security struct {
	ID                 string          `json:"id"`
	Currency           string          `json:"currency"`
	AssetClass         AssetClass      `json:"assetClass"`
	IsMarginInstrument bool            `json:"margin,omitempty"`
	ValuePerPoint      decimal.Decimal `json:"valuePerPoint,omitzero"` // ValuePerPoint is the value per point or the leverage of a margin instrument.
}

// Transaction is one ledger record for a security.
//
// The engine reads transactions and never changes a persisted one. Ephemeral
// transactions are created during a calculation (accrued interest, hypothetical
// closes) and carry a negative id that no persisted transaction uses.
type Transaction struct {
	ID         int64     `json:"id"`
	SecurityID string    `json:"security"`
	Kind       Kind      `json:"kind"`
	Time       time.Time `json:"time"`
	ExDate     date.Date `json:"exDate,omitzero"`

	// Units is the quantity traded. For margin instruments its sign is not
	// significant, the kind gives the direction.
	Units decimal.Decimal `json:"units"`
	// Quotation is the price, the dividend or interest per unit, or the
	// financing rate.
	Quotation       decimal.Decimal `json:"quotation"`
	TaxCost         decimal.Decimal `json:"taxCost,omitzero"`
	TransactionCost decimal.Decimal `json:"transactionCost,omitzero"`
	CashAmount      decimal.Decimal `json:"cashAmount,omitzero"`

	// AssetInvestmentValue1 is the accrued interest for bonds, or the daily
	// holding cost for margin instruments.
	AssetInvestmentValue1 decimal.Decimal `json:"assetInvestmentValue1,omitzero"`
	// AssetInvestmentValue2 is the value-per-point multiplier.
	AssetInvestmentValue2 decimal.Decimal     `json:"assetInvestmentValue2,omitzero"`
	CurrencyExRate        decimal.NullDecimal `json:"currencyExRate,omitzero"`
	ConnectedID           int64               `json:"connectedId,omitempty"`

	Ephemeral bool `json:"ephemeral,omitempty"`
}

// Day returns the calendar day of the transaction.
func (t Transaction) Day() date.Date { return date.Of(t.Time) }

// mustBeWellFormed panics when t breaks a contract no caller should break.
func (t Transaction) mustBeWellFormed() {
	if t.Quotation.IsNegative() && !t.Kind.isIncome() {
		panic(fmt.Sprintf("transaction %d: negative quotation %s on a %s transaction", t.ID, t.Quotation, t.Kind))
	}
}

// valuePerPoint returns the multiplier converting a quotation into cash.
func (t Transaction) valuePerPoint(sec Security) decimal.Decimal {
	if !t.AssetInvestmentValue2.IsZero() {
		return t.AssetInvestmentValue2
	}
	return orOne(sec.ValuePerPoint)
}

// netPrice returns |units| x quotation x value-per-point.
func (t Transaction) netPrice(sec Security) decimal.Decimal {
	return t.Units.Abs().Mul(t.Quotation).Mul(t.valuePerPoint(sec))
}

// taxAndCost returns the sum of tax and transaction cost.
func (t Transaction) taxAndCost() decimal.Decimal { return t.TaxCost.Add(t.TransactionCost) }

// recordsAccrued reports whether t is the recorded accrued interest of the
// principal transaction it is connected to.
func (t Transaction) recordsAccrued() bool {
	return t.Kind == KindAccruedInterest && t.ConnectedID != 0 && !t.Ephemeral
}
