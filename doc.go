// Package positions computes the position of a security from its ledger
// transactions: units held, adjusted cost base, and realized gain or loss in
// the security currency and in a main reporting currency.
//
// The core functionalities include:
//   - Calculation: a Service replays the chronological transactions of one
//     security, adjusting units for splits, and attaches a Result to each.
//     Ordinary instruments use a proportional average cost. Margin
//     instruments track one lot per opening transaction, closed partially or
//     fully by the transactions connected to it.
//   - Valuation: MarkToMarket values an open position at a price through
//     hypothetical transactions that leave units and lots unchanged.
//   - Integrity: CheckGeneralUnits and CheckMarginUnits replay a history with
//     a candidate change and report every violation before it is committed.
//   - Persistence: a Ledger holds securities, transactions, splits and
//     exchange rates, and encodes to JSONL. Snapshots encode to msgpack.
//
// This package serves as the foundational logic for the `poscalc`
// command-line tool.
package positions
