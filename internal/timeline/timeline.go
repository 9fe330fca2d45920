// Package timeline keeps the ordered set of dates for which a snapshot has
// been stored.
package timeline

import "sort"

// Index is a strictly ascending, duplicate-free list of ISO dates. ISO
// dates sort lexically in calendar order. Index is not safe for concurrent
// use; the store guards it.
type Index struct {
	dates []string
}

// New creates an empty Index.
func New() *Index {
	return &Index{}
}

// Insert adds date at its sorted position. It reports false when the date
// was already present, in which case the index is unchanged.
func (x *Index) Insert(date string) bool {
	i := sort.SearchStrings(x.dates, date)
	if i < len(x.dates) && x.dates[i] == date {
		return false
	}
	x.dates = append(x.dates, "")
	copy(x.dates[i+1:], x.dates[i:])
	x.dates[i] = date
	return true
}

// IndexOf returns the position of date, or -1.
func (x *Index) IndexOf(date string) int {
	i := sort.SearchStrings(x.dates, date)
	if i < len(x.dates) && x.dates[i] == date {
		return i
	}
	return -1
}

// At returns the date at position i.
func (x *Index) At(i int) string {
	return x.dates[i]
}

// Latest returns the most recent date, or false when empty.
func (x *Index) Latest() (string, bool) {
	if len(x.dates) == 0 {
		return "", false
	}
	return x.dates[len(x.dates)-1], true
}

// Dates returns a copy of the indexed dates in ascending order.
func (x *Index) Dates() []string {
	out := make([]string, len(x.dates))
	copy(out, x.dates)
	return out
}

// Len returns the number of indexed dates.
func (x *Index) Len() int {
	return len(x.dates)
}
