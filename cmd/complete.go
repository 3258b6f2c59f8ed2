package cmd

import (
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Complete handles shell completion requests for the command named name.
// It returns when the process was not invoked for completion.
func Complete(name string) {
	securities := complete.PredictFunc(func(prefix string) []string { return declaredSecurities() })
	format := map[string]complete.Predictor{
		"json": predict.Nothing,
		"q":    predict.Something,
	}
	with := func(flags map[string]complete.Predictor) map[string]complete.Predictor {
		for k, v := range format {
			flags[k] = v
		}
		return flags
	}

	cmd := &complete.Command{
		Flags: map[string]complete.Predictor{
			"config": predict.Files("*.toml"),
			"ledger": predict.Files("*.jsonl"),
		},
		Sub: map[string]*complete.Command{
			"calc": {Flags: with(map[string]complete.Predictor{
				"s": securities,
				"d": predict.Something,
				"o": predict.Files("*"),
			})},
			"value": {Flags: with(map[string]complete.Predictor{
				"s": securities,
				"p": predict.Something,
				"d": predict.Something,
			})},
			"topic": {Args: predict.Set{"ledger", "margin", "config", "*"}},
			"check": {Flags: map[string]complete.Predictor{
				"op":   predict.Set{"add", "update", "delete"},
				"tx":   predict.Something,
				"w":    predict.Nothing,
				"json": predict.Nothing,
			}},
		},
	}
	cmd.Complete(name)
}

// declaredSecurities lists the securities of the default ledger, if it can be read.
func declaredSecurities() []string {
	e, err := loadEnv()
	if err != nil {
		return nil
	}
	var ids []string
	for sec := range e.ledger.Securities() {
		ids = append(ids, sec.ID)
	}
	return ids
}
