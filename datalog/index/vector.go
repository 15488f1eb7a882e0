package index

import (
	"github.com/wbrown/janus-reasoner/datalog"
)

// VecIndex keeps each relation as a plain slice. Duplicate suppression is
// a linear scan, which is the cheapest option for small relations.
type VecIndex struct {
	schema
	rows map[string][]datalog.Row
}

// NewVecIndex creates an empty vector index
func NewVecIndex(opts Options) *VecIndex {
	return &VecIndex{
		schema: newSchema(opts.Capacity),
		rows:   make(map[string][]datalog.Row),
	}
}

// Insert appends row unless an equal row is already present
func (v *VecIndex) Insert(relation string, row datalog.Row) (bool, error) {
	row, err := v.prepare(relation, row)
	if err != nil {
		return false, err
	}

	rows := v.rows[relation]
	for _, existing := range rows {
		if existing.Equal(row) {
			return false, nil
		}
	}
	if err := v.admit(relation, row, len(rows)); err != nil {
		return false, err
	}

	v.rows[relation] = append(rows, row)
	return true, nil
}

// Contains reports whether the relation holds row
func (v *VecIndex) Contains(relation string, row datalog.Row) bool {
	row, ok := lookupRow(row)
	if !ok {
		return false
	}
	for _, existing := range v.rows[relation] {
		if existing.Equal(row) {
			return true
		}
	}
	return false
}

// View returns a copy of the rows in insertion order
func (v *VecIndex) View(relation string) []datalog.Row {
	return append([]datalog.Row(nil), v.rows[relation]...)
}

// ViewWithBinding scans the relation for rows matching pattern
func (v *VecIndex) ViewWithBinding(relation string, pattern datalog.Pattern) []datalog.Row {
	if len(pattern) != v.arityOf(relation) {
		return nil
	}
	pattern, ok := lookupPattern(pattern)
	if !ok {
		return nil
	}
	if pattern.IsFree() {
		return v.View(relation)
	}
	return filterRows(v.rows[relation], pattern)
}

// Len returns the number of rows in the relation
func (v *VecIndex) Len(relation string) int {
	return len(v.rows[relation])
}

// Relations returns the non-empty relation names
func (v *VecIndex) Relations() []string {
	return v.names()
}
