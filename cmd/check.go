package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/positions"
	"github.com/etnz/positions/renderer"
	"github.com/google/subcommands"
)

// checkCmd holds the flags for the 'check' subcommand.
type checkCmd struct {
	op    string
	tx    string
	write bool
	json  bool
}

func (*checkCmd) Name() string     { return "check" }
func (*checkCmd) Synopsis() string { return "check a change to the ledger against the units held" }
func (*checkCmd) Usage() string {
	return `poscalc check -op <add|update|delete> -tx '<json transaction>' [-w] [-json]

  Checks that adding, updating or deleting a transaction keeps the history of
  its security consistent. With -w the change is committed to the ledger.

  Example:
    poscalc check -op add -tx '{"command":"reduce","id":12,"security":"ACME","date":"2024-03-01","units":-10,"quotation":12.5}'
`
}

func (c *checkCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.op, "op", "add", "Change operation: add, update or delete")
	f.StringVar(&c.tx, "tx", "", "Transaction, as a ledger JSON record")
	f.BoolVar(&c.write, "w", false, "Commit the change to the ledger when it is valid")
	f.BoolVar(&c.json, "json", false, "Print the violations as JSON")
}

func parseOp(s string) (positions.Op, error) {
	for _, op := range []positions.Op{positions.OpAdd, positions.OpUpdate, positions.OpDelete} {
		if op.String() == s {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

func (c *checkCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	op, err := parseOp(c.op)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	if c.tx == "" {
		fmt.Fprintln(os.Stderr, "a transaction is required (-tx)")
		return subcommands.ExitUsageError
	}
	tx, err := positions.DecodeTransaction([]byte(c.tx))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decoding transaction: %v\n", err)
		return subcommands.ExitUsageError
	}

	e, err := loadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading: %v\n", err)
		return subcommands.ExitFailure
	}
	ch := positions.Change{Op: op, Transaction: tx}

	if c.write {
		err = e.ledger.Commit(ch)
	} else {
		err = e.ledger.Check(ch)
	}
	violations := positions.Violations(err)
	var integrity *positions.IntegrityError
	if err != nil && !errors.As(err, &integrity) {
		fmt.Fprintf(os.Stderr, "Error checking: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.json {
		if err := printJSON(violations, ""); err != nil {
			fmt.Fprintf(os.Stderr, "Error printing: %v\n", err)
			return subcommands.ExitFailure
		}
	} else {
		printMarkdown(renderer.ViolationsMarkdown(ch, violations))
	}
	if len(violations) > 0 {
		return subcommands.ExitFailure
	}

	if c.write {
		if err := positions.SaveLedger(*ledgerFile, e.ledger); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving ledger: %v\n", err)
			return subcommands.ExitFailure
		}
		e.log.Info().Str("op", op.String()).Int64("transaction", tx.ID).Msg("change committed")
	}
	return subcommands.ExitSuccess
}
