package positions

import "slices"

// SortTransactions sorts txs chronologically in place.
//
// Equal times keep their input order. Then, on the same calendar day, an
// adjacent dividend followed by an accumulate is swapped so the purchase comes
// first, and an adjacent reduce followed by a dividend is swapped so the
// dividend is evaluated against the holdings before the sale. Only adjacent
// pairs are considered, in a single pass.
func SortTransactions(txs []Transaction) {
	slices.SortStableFunc(txs, func(a, b Transaction) int { return a.Time.Compare(b.Time) })
	for i := 0; i+1 < len(txs); i++ {
		a, b := txs[i], txs[i+1]
		if a.Day() != b.Day() {
			continue
		}
		if (a.Kind == KindDividend && b.Kind == KindAccumulate) || (a.Kind == KindReduce && b.Kind == KindDividend) {
			txs[i], txs[i+1] = b, a
			i++ // the swapped pair is settled
		}
	}
}
