package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/positions/date"
	"github.com/etnz/positions/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// valueCmd holds the flags for the 'value' subcommand.
type valueCmd struct {
	security string
	price    string
	on       string
	json     bool
	query    string
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "mark an open position to a price" }
func (*valueCmd) Usage() string {
	return `poscalc value -s <security> -p <price> [-d <date>] [-json] [-q <jsonpath>]

  Values the position held on a date at a current price, without changing it.
`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.security, "s", "", "Security id")
	f.StringVar(&c.price, "p", "", "Current price of one unit")
	f.StringVar(&c.on, "d", date.Today().String(), "Valuation date")
	f.BoolVar(&c.json, "json", false, "Print JSON instead of markdown")
	f.StringVar(&c.query, "q", "", "JSONPath query applied to the JSON output")
}

func (c *valueCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	price, err := decimal.NewFromString(c.price)
	if err != nil || price.IsNegative() {
		fmt.Fprintf(os.Stderr, "invalid price %q\n", c.price)
		return subcommands.ExitUsageError
	}
	on, err := date.Parse(c.on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	e, err := loadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading: %v\n", err)
		return subcommands.ExitFailure
	}
	sec, status := e.security(c.security)
	if status != subcommands.ExitSuccess {
		return status
	}

	svc := e.service()
	calc, err := svc.Calculate(sec, e.ledger.History(sec.ID), &on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error calculating: %v\n", err)
		return subcommands.ExitFailure
	}
	v, err := svc.MarkToMarket(calc, price, on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error valuing: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.json || c.query != "" {
		if err := printJSON(v, c.query); err != nil {
			fmt.Fprintf(os.Stderr, "Error printing: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.ValuationMarkdown(v))
	return subcommands.ExitSuccess
}
