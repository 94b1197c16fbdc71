package schema

import (
	"slices"
	"sort"
)

// Order is a topological order over the tables of a Catalog.
type Order struct {
	insertion []string
	index     map[string]int
}

// Sort orders the catalog's tables so that every table follows the tables
// it references. Ties are broken by discovery order. Self references and
// references to tables outside the catalog do not constrain the order. A
// cycle between distinct tables returns an *Error wrapping
// ErrCyclicDependency.
func Sort(c *Catalog) (*Order, error) {
	pos := make(map[string]int, len(c.Tables))
	for i, t := range c.Tables {
		if _, dup := pos[t]; !dup {
			pos[t] = i
		}
	}

	inDegree := make([]int, len(c.Tables))
	children := make([][]int, len(c.Tables))
	seen := make(map[[2]int]bool)
	for _, fk := range c.ForeignKeys {
		child, ok := pos[fk.Table]
		if !ok {
			continue
		}
		parent, ok := pos[fk.RefTable]
		if !ok || parent == child {
			continue
		}
		edge := [2]int{child, parent}
		if seen[edge] {
			continue
		}
		seen[edge] = true
		inDegree[child]++
		children[parent] = append(children[parent], child)
	}

	// ready holds discovery indices in ascending order.
	var ready []int
	for i, t := range c.Tables {
		if pos[t] == i && inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, len(pos))
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		order = append(order, c.Tables[i])
		for _, child := range children[i] {
			inDegree[child]--
			if inDegree[child] == 0 {
				ready = insertSorted(ready, child)
			}
		}
	}

	if len(order) != len(pos) {
		var stuck []string
		for i, t := range c.Tables {
			if pos[t] == i && inDegree[i] > 0 {
				stuck = append(stuck, t)
			}
		}
		return nil, &Error{Op: "sort", Tables: stuck, Err: ErrCyclicDependency}
	}
	return newOrder(order), nil
}

func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	return slices.Insert(s, i, v)
}

func newOrder(insertion []string) *Order {
	index := make(map[string]int, len(insertion))
	for i, t := range insertion {
		index[t] = i
	}
	return &Order{insertion: insertion, index: index}
}

// Insertion returns the full insertion order, parents first.
func (o *Order) Insertion() []string {
	return slices.Clone(o.insertion)
}

// Cleanup returns the exact reverse of Insertion, children first.
func (o *Order) Cleanup() []string {
	out := slices.Clone(o.insertion)
	slices.Reverse(out)
	return out
}

// InsertionOf filters the insertion order down to tables.
func (o *Order) InsertionOf(tables []string) ([]string, error) {
	want, err := o.lookup(tables)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(want))
	for _, t := range o.insertion {
		if want[t] {
			out = append(out, t)
		}
	}
	return out, nil
}

// CleanupOf filters the cleanup order down to tables.
func (o *Order) CleanupOf(tables []string) ([]string, error) {
	out, err := o.InsertionOf(tables)
	if err != nil {
		return nil, err
	}
	slices.Reverse(out)
	return out, nil
}

// Contains reports whether table is part of the order.
func (o *Order) Contains(table string) bool {
	_, ok := o.index[table]
	return ok
}

func (o *Order) lookup(tables []string) (map[string]bool, error) {
	want := make(map[string]bool, len(tables))
	var unknown []string
	for _, t := range tables {
		if _, ok := o.index[t]; !ok {
			if !slices.Contains(unknown, t) {
				unknown = append(unknown, t)
			}
			continue
		}
		want[t] = true
	}
	if len(unknown) > 0 {
		return nil, &Error{Op: "order", Tables: unknown, Err: ErrUnknownTable}
	}
	return want, nil
}
