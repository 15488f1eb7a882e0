package index

import (
	"fmt"

	"github.com/wbrown/janus-reasoner/datalog"
)

// Copy inserts every row of src into dst and returns how many were new
func Copy(dst Index, src Reader) (int, error) {
	added := 0
	for _, relation := range src.Relations() {
		for _, row := range src.View(relation) {
			ok, err := dst.Insert(relation, row)
			if err != nil {
				return added, fmt.Errorf("copying %s: %w", relation, err)
			}
			if ok {
				added++
			}
		}
	}
	return added, nil
}

// Equal reports whether a and b hold exactly the same facts
func Equal(a, b Reader) bool {
	ra, rb := a.Relations(), b.Relations()
	if len(ra) != len(rb) {
		return false
	}
	for i, relation := range ra {
		if rb[i] != relation || a.Len(relation) != b.Len(relation) {
			return false
		}
		for _, row := range a.View(relation) {
			if !b.Contains(relation, row) {
				return false
			}
		}
	}
	return true
}

// Total returns the number of rows across all relations
func Total(r Reader) int {
	n := 0
	for _, relation := range r.Relations() {
		n += r.Len(relation)
	}
	return n
}

// Dump returns every fact in r, sorted by relation then row
func Dump(r Reader) []datalog.Fact {
	var facts []datalog.Fact
	for _, relation := range r.Relations() {
		rows := append([]datalog.Row(nil), r.View(relation)...)
		datalog.SortRows(rows)
		for _, row := range rows {
			facts = append(facts, datalog.Fact{Relation: relation, Row: row})
		}
	}
	return facts
}
