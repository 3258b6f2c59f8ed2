package date

import (
	"iter"
	"slices"
)

// History is a series of values keyed by day, such as the exchange rates of
// a currency pair. Days are unique and kept in ascending order.
type History[T any] struct {
	days   []Date
	values []T
}

// Append records q on day. A value already recorded on that day is replaced.
func (h *History[T]) Append(day Date, q T) *History[T] {
	i, found := slices.BinarySearchFunc(h.days, day, Date.Compare)
	if found {
		h.values[i] = q
		return h
	}
	h.days = slices.Insert(h.days, i, day)
	h.values = slices.Insert(h.values, i, q)
	return h
}

// Values iterates over the recorded days in ascending order.
func (h *History[T]) Values() iter.Seq2[Date, T] {
	return func(yield func(Date, T) bool) {
		for i, day := range h.days {
			if !yield(day, h.values[i]) {
				return
			}
		}
	}
}

// ValueAsOf returns the value recorded on day or, failing that, the last one
// before it. It reports false when nothing was recorded up to day.
func (h *History[T]) ValueAsOf(day Date) (T, bool) {
	i, found := slices.BinarySearchFunc(h.days, day, Date.Compare)
	if found {
		return h.values[i], true
	}
	if i == 0 {
		var zero T
		return zero, false
	}
	return h.values[i-1], true
}
