package positions

import (
	"time"

	"github.com/etnz/positions/date"
	"github.com/shopspring/decimal"
)

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// dec is a helper for test to create a decimal from a const.
func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// on returns noon UTC of a day given as "2025-01-31".
func on(day string) time.Time { return date.MustParse(day).Time().Add(12 * time.Hour) }

var (
	equity = Security{ID: "ACME", Currency: "EUR", AssetClass: AssetClassEquities}
	bond   = Security{ID: "BOND", Currency: "EUR", AssetClass: AssetClassFixedIncome, ValuePerPoint: dec(0.01)}
	cfd    = Security{ID: "DAX", Currency: "EUR", AssetClass: AssetClassCFD, IsMarginInstrument: true, ValuePerPoint: dec(1)}
)

func buy(id int64, day string, units, price float64) Transaction {
	return Transaction{ID: id, SecurityID: equity.ID, Kind: KindAccumulate, Time: on(day), Units: dec(units), Quotation: dec(price)}
}

func sell(id int64, day string, units, price float64) Transaction {
	return Transaction{ID: id, SecurityID: equity.ID, Kind: KindReduce, Time: on(day), Units: dec(units), Quotation: dec(price)}
}

func dividend(id int64, day string, units, perUnit float64) Transaction {
	return Transaction{ID: id, SecurityID: equity.ID, Kind: KindDividend, Time: on(day), Units: dec(units), Quotation: dec(perUnit)}
}

// marginTx returns a margin trade on cfd, connected to the opening transaction when connected is not 0.
func marginTx(id int64, kind Kind, day string, units, price float64, connected int64) Transaction {
	return Transaction{ID: id, SecurityID: cfd.ID, Kind: kind, Time: on(day), Units: dec(units), Quotation: dec(price), ConnectedID: connected}
}
