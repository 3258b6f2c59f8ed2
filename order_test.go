package positions

import (
	"testing"
	"time"
)

func TestSortTransactions(t *testing.T) {
	at := func(day string, hour int) time.Time { return on(day).Add(time.Duration(hour-12) * time.Hour) }
	tx := func(id int64, kind Kind, tm time.Time) Transaction {
		return Transaction{ID: id, Kind: kind, Time: tm}
	}

	testCases := []struct {
		name string
		in   []Transaction
		want []int64
	}{
		{
			name: "chronological",
			in:   []Transaction{tx(2, KindReduce, at("2025-02-01", 9)), tx(1, KindAccumulate, at("2025-01-01", 9))},
			want: []int64{1, 2},
		},
		{
			name: "same time keeps input order",
			in:   []Transaction{tx(1, KindAccumulate, at("2025-01-01", 9)), tx(2, KindAccumulate, at("2025-01-01", 9))},
			want: []int64{1, 2},
		},
		{
			name: "dividend before accumulate is swapped",
			in:   []Transaction{tx(1, KindDividend, at("2025-01-01", 9)), tx(2, KindAccumulate, at("2025-01-01", 10))},
			want: []int64{2, 1},
		},
		{
			name: "reduce before dividend is swapped",
			in:   []Transaction{tx(1, KindReduce, at("2025-01-01", 9)), tx(2, KindDividend, at("2025-01-01", 10))},
			want: []int64{2, 1},
		},
		{
			name: "different days are not swapped",
			in:   []Transaction{tx(1, KindDividend, at("2025-01-01", 9)), tx(2, KindAccumulate, at("2025-01-02", 9))},
			want: []int64{1, 2},
		},
		{
			name: "accumulate before dividend stays",
			in:   []Transaction{tx(1, KindAccumulate, at("2025-01-01", 9)), tx(2, KindDividend, at("2025-01-01", 10))},
			want: []int64{1, 2},
		},
		{
			// Only the first matching pair is swapped, the rule does not generalize.
			name: "three on the same day",
			in: []Transaction{
				tx(1, KindReduce, at("2025-01-01", 9)),
				tx(2, KindDividend, at("2025-01-01", 10)),
				tx(3, KindAccumulate, at("2025-01-01", 11)),
			},
			want: []int64{2, 1, 3},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			SortTransactions(tc.in)
			for i, id := range tc.want {
				if tc.in[i].ID != id {
					t.Fatalf("SortTransactions() order = %v, want %v", ids(tc.in), tc.want)
				}
			}
		})
	}
}

func ids(txs []Transaction) []int64 {
	var res []int64
	for _, tx := range txs {
		res = append(res, tx.ID)
	}
	return res
}
