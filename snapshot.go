package positions

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is the rounded terminal state of a Calculation.
type Snapshot struct {
	SecurityID                 string          `json:"security" msgpack:"security"`
	RunID                      string          `json:"run" msgpack:"run"`
	Units                      decimal.Decimal `json:"units" msgpack:"units"`
	AdjustedCostBase           Money           `json:"adjustedCostBase" msgpack:"acb"`
	AdjustedCostBaseMC         Money           `json:"adjustedCostBaseMC" msgpack:"acbMC"`
	GainLoss                   Money           `json:"gainLoss" msgpack:"gainLoss"`
	GainLossMC                 Money           `json:"gainLossMC" msgpack:"gainLossMC"`
	CurrencyGainLossMC         Money           `json:"currencyGainLossMC" msgpack:"currencyGainLossMC"`
	OpenUnitsTimeValuePerPoint decimal.Decimal `json:"openUnitsTimeValuePerPoint,omitzero" msgpack:"exposure,omitempty"`
	OpenLots                   []LotSnapshot   `json:"openLots,omitempty" msgpack:"lots,omitempty"`
}

// LotSnapshot is an open margin lot in a Snapshot.
type LotSnapshot struct {
	OpenID              int64           `json:"openId" msgpack:"id"`
	Time                time.Time       `json:"time" msgpack:"time"`
	Quotation           decimal.Decimal `json:"quotation" msgpack:"quotation"`
	Units               decimal.Decimal `json:"units" msgpack:"units"`
	ExpenseIncome       Money           `json:"expenseIncome" msgpack:"expense"`
	SplitFactorFromOpen decimal.Decimal `json:"splitFactorFromOpen" msgpack:"split"`
}

// Snapshot returns the current state of c with monetary amounts rounded to their currency.
func (c *Calculation) Snapshot() Snapshot {
	svc, s := c.svc, c.Summary
	cur, main := c.Security.Currency, svc.mainCurrencyFor(c.Security)
	snap := Snapshot{
		SecurityID:                 c.Security.ID,
		RunID:                      c.RunID,
		Units:                      s.Units,
		AdjustedCostBase:           svc.money(s.AdjustedCostBase, cur),
		AdjustedCostBaseMC:         svc.money(s.AdjustedCostBaseMC, main),
		GainLoss:                   svc.money(s.GainLossSecurity, cur),
		GainLossMC:                 svc.money(s.GainLossMC, main),
		CurrencyGainLossMC:         svc.money(s.CurrencyGainLossMC, main),
		OpenUnitsTimeValuePerPoint: s.OpenUnitsTimeValuePerPoint,
	}
	for _, lot := range s.Lots() {
		snap.OpenLots = append(snap.OpenLots, LotSnapshot{
			OpenID:              lot.Open.ID,
			Time:                lot.Open.Time,
			Quotation:           lot.Open.Quotation,
			Units:               lot.OpenUnits,
			ExpenseIncome:       svc.money(lot.ExpenseIncome, cur),
			SplitFactorFromOpen: lot.SplitFactorFromOpen,
		})
	}
	return snap
}

// EncodeSnapshot writes snap in msgpack.
func EncodeSnapshot(w io.Writer, snap Snapshot) error {
	if err := msgpack.NewEncoder(w).Encode(&snap); err != nil {
		return fmt.Errorf("encoding snapshot of %s: %w", snap.SecurityID, err)
	}
	return nil
}

// DecodeSnapshot reads a snapshot written by EncodeSnapshot.
func DecodeSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, nil
}
