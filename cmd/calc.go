package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/positions"
	"github.com/etnz/positions/date"
	"github.com/etnz/positions/renderer"
	"github.com/google/subcommands"
)

// calcCmd holds the flags for the 'calc' subcommand.
type calcCmd struct {
	security string
	until    string
	snapshot string
	json     bool
	query    string
}

func (*calcCmd) Name() string     { return "calc" }
func (*calcCmd) Synopsis() string { return "calculate a position from its transactions" }
func (*calcCmd) Usage() string {
	return `poscalc calc -s <security> [-d <date>] [-o <file>] [-json] [-q <jsonpath>]

  Replays the transactions of a security and displays its position and the
  realized gain of each transaction.
`
}

func (c *calcCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.security, "s", "", "Security id")
	f.StringVar(&c.until, "d", "", "Valuation date, transactions after it are ignored. Defaults to all transactions.")
	f.StringVar(&c.snapshot, "o", "", "Write the position snapshot (msgpack) to this file")
	f.BoolVar(&c.json, "json", false, "Print JSON instead of markdown")
	f.StringVar(&c.query, "q", "", "JSONPath query applied to the JSON output")
}

func (c *calcCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var until *date.Date
	if c.until != "" {
		d, err := date.Parse(c.until)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
			return subcommands.ExitUsageError
		}
		until = &d
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

	calc, err := e.service().Calculate(sec, e.ledger.History(sec.ID), until)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error calculating: %v\n", err)
		return subcommands.ExitFailure
	}
	snap := calc.Snapshot()

	if c.snapshot != "" {
		if err := writeSnapshot(c.snapshot, snap); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing snapshot: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	if c.json || c.query != "" {
		out := struct {
			Position positions.Snapshot `json:"position"`
			Results  []positions.Result `json:"results"`
		}{snap, calc.Results}
		if err := printJSON(out, c.query); err != nil {
			fmt.Fprintf(os.Stderr, "Error printing: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.PositionMarkdown(sec, snap) + "\n" + renderer.ResultsMarkdown(calc.Results))
	return subcommands.ExitSuccess
}

func writeSnapshot(path string, snap positions.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := positions.EncodeSnapshot(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
