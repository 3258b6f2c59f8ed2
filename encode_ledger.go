package positions

import (
	"bufio"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/etnz/positions/date"
	"github.com/shopspring/decimal"
)

// Ledger commands that are not transactions.
const (
	cmdDeclare = "declare"
	cmdSplit   = "split"
	cmdRate    = "rate"
)

// txCmd is the JSONL form of a transaction. The command is the transaction kind.
type txCmd struct {
	Command               string              `json:"command"`
	ID                    int64               `json:"id"`
	Security              string              `json:"security"`
	Time                  *time.Time          `json:"time,omitempty"`
	Date                  date.Date           `json:"date,omitzero"`
	ExDate                date.Date           `json:"exDate,omitzero"`
	Units                 decimal.Decimal     `json:"units"`
	Quotation             decimal.Decimal     `json:"quotation"`
	TaxCost               decimal.Decimal     `json:"taxCost"`
	TransactionCost       decimal.Decimal     `json:"transactionCost"`
	CashAmount            decimal.Decimal     `json:"cashAmount"`
	AssetInvestmentValue1 decimal.Decimal     `json:"assetInvestmentValue1"`
	AssetInvestmentValue2 decimal.Decimal     `json:"assetInvestmentValue2"`
	CurrencyExRate        decimal.NullDecimal `json:"currencyExRate"`
	ConnectedID           int64               `json:"connectedId"`
}

// transaction returns the transaction of c. A bare date is read as midnight UTC.
func (c txCmd) transaction() (Transaction, error) {
	kind, err := ParseKind(c.Command)
	if err != nil {
		return Transaction{}, err
	}
	if kind == KindHypotheticalBuy || kind == KindHypotheticalSell {
		return Transaction{}, fmt.Errorf("%s transactions cannot be recorded", kind)
	}
	if c.Security == "" {
		return Transaction{}, errors.New("missing security")
	}
	tx := Transaction{
		ID:                    c.ID,
		SecurityID:            c.Security,
		Kind:                  kind,
		ExDate:                c.ExDate,
		Units:                 c.Units,
		Quotation:             c.Quotation,
		TaxCost:               c.TaxCost,
		TransactionCost:       c.TransactionCost,
		CashAmount:            c.CashAmount,
		AssetInvestmentValue1: c.AssetInvestmentValue1,
		AssetInvestmentValue2: c.AssetInvestmentValue2,
		CurrencyExRate:        c.CurrencyExRate,
		ConnectedID:           c.ConnectedID,
	}
	switch {
	case c.Time != nil:
		tx.Time = *c.Time
	case !c.Date.IsZero():
		tx.Time = c.Date.Time()
	default:
		return Transaction{}, errors.New("missing time or date")
	}
	return tx, nil
}

type declareCmd struct {
	Command string `json:"command"`
	Security
}

type splitCmd struct {
	Command  string `json:"command"`
	Security string `json:"security"`
	SplitEvent
}

type rateCmd struct {
	Command string    `json:"command"`
	Date    date.Date `json:"date"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	Rate    float64   `json:"rate"`
}

// DecodeLedger decodes a stream of JSONL records, one command per line.
//
// Every malformed line is reported, the returned error joins them all.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	ledger := NewLedger()
	scanner := bufio.NewScanner(r)
	var errs []error
	line := 0
	for scanner.Scan() {
		line++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}
		if err := decodeLine(ledger, lineBytes); err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from input: %w", err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return ledger, nil
}

func decodeLine(ledger *Ledger, lineBytes []byte) error {
	var identifier struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(lineBytes, &identifier); err != nil {
		return fmt.Errorf("could not identify command in %q: %w", string(lineBytes), err)
	}

	switch identifier.Command {
	case cmdDeclare:
		var cmd declareCmd
		if err := json.Unmarshal(lineBytes, &cmd); err != nil {
			return err
		}
		if cmd.ID == "" || cmd.Currency == "" {
			return errors.New("declare requires an id and a currency")
		}
		ledger.Declare(cmd.Security)
	case cmdSplit:
		var cmd splitCmd
		if err := json.Unmarshal(lineBytes, &cmd); err != nil {
			return err
		}
		if !cmd.From.IsPositive() || !cmd.To.IsPositive() {
			return fmt.Errorf("invalid split %s:%s", cmd.From, cmd.To)
		}
		ledger.AddSplit(cmd.Security, cmd.SplitEvent)
	case cmdRate:
		var cmd rateCmd
		if err := json.Unmarshal(lineBytes, &cmd); err != nil {
			return err
		}
		if cmd.Rate <= 0 {
			return fmt.Errorf("invalid rate %v for %s%s", cmd.Rate, cmd.From, cmd.To)
		}
		ledger.AddRate(cmd.Date, cmd.From, cmd.To, cmd.Rate)
	default:
		var cmd txCmd
		if err := json.Unmarshal(lineBytes, &cmd); err != nil {
			return err
		}
		tx, err := cmd.transaction()
		if err != nil {
			return fmt.Errorf("invalid %s transaction %d: %w", cmd.Command, cmd.ID, err)
		}
		ledger.Append(tx)
	}
	return nil
}

// DecodeTransaction decodes a single transaction record.
func DecodeTransaction(data []byte) (Transaction, error) {
	var cmd txCmd
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Transaction{}, err
	}
	return cmd.transaction()
}

// EncodeLedger writes the ledger as JSONL: declarations, splits, rates then
// transactions in chronological order.
func EncodeLedger(w io.Writer, l *Ledger) error {
	enc := json.NewEncoder(w)
	for sec := range l.Securities() {
		var o jsonObjectWriter
		o.Append("command", cmdDeclare)
		o.Append("id", sec.ID)
		o.Append("currency", sec.Currency)
		o.Optional("assetClass", sec.AssetClass)
		o.Optional("margin", sec.IsMarginInstrument)
		o.Optional("valuePerPoint", sec.ValuePerPoint)
		if err := enc.Encode(&o); err != nil {
			return err
		}
	}
	for _, id := range slices.Sorted(maps.Keys(l.splits)) {
		events := slices.SortedFunc(slices.Values(l.splits[id]), func(a, b SplitEvent) int { return a.Date.Compare(b.Date) })
		for _, s := range events {
			if err := enc.Encode(splitCmd{Command: cmdSplit, Security: id, SplitEvent: s}); err != nil {
				return err
			}
		}
	}
	pairs := slices.SortedFunc(maps.Keys(l.rates), func(a, b pair) int { return cmp.Compare(a.String(), b.String()) })
	for _, p := range pairs {
		for day, rate := range l.rates[p].Values() {
			if err := enc.Encode(rateCmd{Command: cmdRate, Date: day, From: p.from, To: p.to, Rate: rate}); err != nil {
				return err
			}
		}
	}
	for _, tx := range l.transactions {
		if err := enc.Encode(encodeTransaction(tx)); err != nil {
			return fmt.Errorf("encoding transaction %d: %w", tx.ID, err)
		}
	}
	return nil
}

// encodeTransaction writes tx with its command first and without zero fields.
func encodeTransaction(tx Transaction) *jsonObjectWriter {
	var w jsonObjectWriter
	w.Append("command", tx.Kind)
	w.Append("id", tx.ID)
	w.Append("security", tx.SecurityID)
	w.Append("time", tx.Time)
	w.Optional("exDate", tx.ExDate)
	w.Append("units", tx.Units)
	w.Append("quotation", tx.Quotation)
	w.Optional("taxCost", tx.TaxCost)
	w.Optional("transactionCost", tx.TransactionCost)
	w.Optional("cashAmount", tx.CashAmount)
	w.Optional("assetInvestmentValue1", tx.AssetInvestmentValue1)
	w.Optional("assetInvestmentValue2", tx.AssetInvestmentValue2)
	w.Optional("currencyExRate", tx.CurrencyExRate)
	w.Optional("connectedId", tx.ConnectedID)
	return &w
}
