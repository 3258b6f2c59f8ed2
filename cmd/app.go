// Package cmd implements the poscalc CLI application.
package cmd

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/PaesslerAG/jsonpath"
	"github.com/charmbracelet/glamour"
	"github.com/etnz/positions"
	"github.com/etnz/positions/config"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&calcCmd{}, "positions")
	c.Register(&valueCmd{}, "positions")
	c.Register(&checkCmd{}, "ledger")
	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", config.DefaultFile, "Path to the configuration file (TOML format)")
var ledgerFile = flag.String("ledger", "ledger.jsonl", "Path to the ledger file (JSONL format)")

// env is what every subcommand needs: the configuration, a logger and the ledger.
type env struct {
	cfg    *config.Config
	log    zerolog.Logger
	ledger *positions.Ledger
}

// loadEnv loads the configuration and the ledger.
func loadEnv() (*env, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, err
	}
	log := config.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	ledger, err := positions.LoadLedger(*ledgerFile)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("ledger", *ledgerFile).Msg("ledger loaded")
	return &env{cfg: cfg, log: log, ledger: ledger}, nil
}

// service returns a calculation service reading rates and splits from the ledger.
func (e *env) service() *positions.Service {
	return positions.NewService(e.ledger, e.ledger, e.cfg.ServiceOptions(e.log)...)
}

// security returns the declared security id, or the usage error to report.
func (e *env) security(id string) (positions.Security, subcommands.ExitStatus) {
	if id == "" {
		fmt.Fprintln(os.Stderr, "a security is required (-s)")
		return positions.Security{}, subcommands.ExitUsageError
	}
	sec, ok := e.ledger.Security(id)
	if !ok {
		fmt.Fprintf(os.Stderr, "security %q is not declared in %s\n", id, *ledgerFile)
		return positions.Security{}, subcommands.ExitFailure
	}
	return sec, subcommands.ExitSuccess
}

// printMarkdown renders md for the terminal, or prints it raw when it cannot.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// printJSON prints v as indented JSON, or the result of the JSONPath query on it.
func printJSON(v any, query string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var out any = json.RawMessage(data)
	if query != "" {
		if out, err = queryJSON(data, query); err != nil {
			return err
		}
	}
	data, err = json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// queryJSON evaluates a JSONPath query on a JSON document.
func queryJSON(data []byte, query string) (any, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	res, err := jsonpath.Get(query, doc)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", query, err)
	}
	return res, nil
}
