// Package renderer formats calculation outputs as markdown.
package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/etnz/positions"
)

// PositionMarkdown renders the state of a position and its open margin lots.
func PositionMarkdown(sec positions.Security, snap positions.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Position %s\n\n", sec.ID)
	fmt.Fprintln(&b, "| Figure | Value |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Units | %s |\n", snap.Units)
	fmt.Fprintf(&b, "| Adjusted Cost Base | %s |\n", snap.AdjustedCostBase)
	fmt.Fprintf(&b, "| Adjusted Cost Base (MC) | %s |\n", snap.AdjustedCostBaseMC)
	fmt.Fprintf(&b, "| Realized Gain | %s |\n", signed(snap.GainLoss))
	fmt.Fprintf(&b, "| Realized Gain (MC) | %s |\n", signed(snap.GainLossMC))
	fmt.Fprintf(&b, "| Currency Gain (MC) | %s |\n", signed(snap.CurrencyGainLossMC))

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "\n## Open Lots\n\n")
		fmt.Fprintln(w, "| Open | Date | Quotation | Units | Expense |")
		fmt.Fprintln(w, "|---:|:---|---:|---:|---:|")
		for _, lot := range snap.OpenLots {
			fmt.Fprintf(w, "| %d | %s | %s | %s | %s |\n",
				lot.OpenID,
				lot.Time.Format("2006-01-02"),
				lot.Quotation,
				lot.Units,
				lot.ExpenseIncome,
			)
		}
		return len(snap.OpenLots) > 0
	})
	return b.String()
}

// ResultsMarkdown renders the figures of each applied transaction.
// Derived transactions show the id of their principal in parentheses.
func ResultsMarkdown(results []positions.Result) string {
	var b strings.Builder

	fmt.Fprint(&b, "## Transactions\n\n")
	fmt.Fprintln(&b, "| Date | Id | Kind | Units | Gain | Gain (MC) | Currency (MC) | % |")
	fmt.Fprintln(&b, "|:---|---:|:---|---:|---:|---:|---:|---:|")
	for _, r := range results {
		id := fmt.Sprint(r.TransactionID)
		if r.Ephemeral {
			id = fmt.Sprintf("(%d)", r.ConnectedID)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			r.Time.Format("2006-01-02"),
			id,
			r.Kind,
			r.Units,
			signed(r.GainLoss),
			signed(r.GainLossMC),
			signed(r.CurrencyGainLossMC),
			pct(r.GainLossPercentage),
		)
	}
	return b.String()
}

// ValuationMarkdown renders a mark-to-market.
func ValuationMarkdown(v positions.Valuation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Valuation of %s on %s\n\n", v.SecurityID, v.Day)
	fmt.Fprintln(&b, "| Figure | Value |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Price | %s |\n", v.Price)
	fmt.Fprintf(&b, "| Units | %s |\n", v.Units)
	fmt.Fprintf(&b, "| Value | %s |\n", v.Value)
	fmt.Fprintf(&b, "| Value (MC) | %s |\n", v.ValueMC)
	fmt.Fprintf(&b, "| Unrealized Gain | %s |\n", signed(v.UnrealizedGainLoss))
	fmt.Fprintf(&b, "| Unrealized Gain (MC) | %s |\n", signed(v.UnrealizedGainLossMC))
	fmt.Fprintf(&b, "| Currency Gain (MC) | %s |\n", signed(v.UnrealizedCurrencyGainLossMC))
	fmt.Fprintf(&b, "| Performance | %s |\n", pct(v.Percentage))

	ConditionalBlock(&b, func(w io.Writer) bool {
		fmt.Fprint(w, "\n## Lots\n\n")
		fmt.Fprintln(w, "| Open | Units | Gain | Gain (MC) | % |")
		fmt.Fprintln(w, "|---:|---:|---:|---:|---:|")
		for _, lot := range v.Lots {
			fmt.Fprintf(w, "| %d | %s | %s | %s | %s |\n", lot.OpenID, lot.Units, signed(lot.GainLoss), signed(lot.GainLossMC), pct(lot.Percentage))
		}
		return len(v.Lots) > 0
	})
	return b.String()
}

// ViolationsMarkdown renders the outcome of an integrity check.
func ViolationsMarkdown(ch positions.Change, violations []positions.Violation) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Check %s of transaction %d\n\n", ch.Op, ch.Transaction.ID)
	if len(violations) == 0 {
		fmt.Fprintln(&b, "No violation.")
		return b.String()
	}
	fmt.Fprintln(&b, "| Transaction | Date | Field | Violation | Held | Required |")
	fmt.Fprintln(&b, "|---:|:---|:---|:---|---:|---:|")
	for _, v := range violations {
		fmt.Fprintf(&b, "| %d | %s | %s | %v | %s | %s |\n",
			v.TransactionID, v.Time.Format("2006-01-02"), v.Field, v.Code, v.Held, v.Required)
	}
	return b.String()
}
