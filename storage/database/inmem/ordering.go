package inmemdb

import (
	"sort"

	"github.com/trezcool/shule/core"
)

// compareFunc returns <0, 0 or >0 when row i sorts before, with or after row j on one field.
type compareFunc func(i, j int) int

// sortRows stable-sorts n rows by the known fields of ordering, or by fallback when none is known.
// Ties are broken by id when fields knows it.
func sortRows(n int, swap func(i, j int), ordering []core.DBOrdering, fields map[string]compareFunc, fallback ...core.DBOrdering) {
	active := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if _, ok := fields[ord.Field]; ok {
			active = append(active, ord)
		}
	}
	if len(active) == 0 {
		active = append(active, fallback...)
	}
	if _, ok := fields["id"]; ok {
		active = append(active, core.DBOrdering{Field: "id", Ascending: true})
	}
	sort.Stable(rowSorter{n: n, swap: swap, ordering: active, fields: fields})
}

type rowSorter struct {
	n        int
	swap     func(i, j int)
	ordering []core.DBOrdering
	fields   map[string]compareFunc
}

func (s rowSorter) Len() int      { return s.n }
func (s rowSorter) Swap(i, j int) { s.swap(i, j) }
func (s rowSorter) Less(i, j int) bool {
	for _, ord := range s.ordering {
		c := s.fields[ord.Field](i, j)
		if c == 0 {
			continue
		}
		if ord.Ascending {
			return c < 0
		}
		return c > 0
	}
	return false
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
