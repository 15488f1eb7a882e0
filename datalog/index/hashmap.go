package index

import (
	"github.com/wbrown/janus-reasoner/datalog"
)

// HashMapIndex is the baseline backend: a hash set of row keys per
// relation plus an insertion-ordered row slice. Pattern lookups scan
// unless every position is bound.
type HashMapIndex struct {
	schema
	relations map[string]*hashRelation
}

type hashRelation struct {
	rows []datalog.Row
	keys map[string]datalog.RowID
}

// NewHashMapIndex creates an empty hash-map index
func NewHashMapIndex(opts Options) *HashMapIndex {
	return &HashMapIndex{
		schema:    newSchema(opts.Capacity),
		relations: make(map[string]*hashRelation),
	}
}

// Insert adds row if absent
func (h *HashMapIndex) Insert(relation string, row datalog.Row) (bool, error) {
	row, err := h.prepare(relation, row)
	if err != nil {
		return false, err
	}

	rel := h.relations[relation]
	if rel == nil {
		rel = &hashRelation{keys: make(map[string]datalog.RowID)}
		h.relations[relation] = rel
	}

	key := row.Key()
	if _, ok := rel.keys[key]; ok {
		return false, nil
	}
	if err := h.admit(relation, row, len(rel.rows)); err != nil {
		return false, err
	}

	rel.keys[key] = datalog.RowID(len(rel.rows))
	rel.rows = append(rel.rows, row)
	return true, nil
}

// Contains reports whether the relation holds row
func (h *HashMapIndex) Contains(relation string, row datalog.Row) bool {
	rel := h.relations[relation]
	if rel == nil {
		return false
	}
	row, ok := lookupRow(row)
	if !ok {
		return false
	}
	_, found := rel.keys[row.Key()]
	return found
}

// View returns a copy of the rows in insertion order
func (h *HashMapIndex) View(relation string) []datalog.Row {
	rel := h.relations[relation]
	if rel == nil {
		return nil
	}
	return append([]datalog.Row(nil), rel.rows...)
}

// ViewWithBinding scans the relation for rows matching pattern
func (h *HashMapIndex) ViewWithBinding(relation string, pattern datalog.Pattern) []datalog.Row {
	rel := h.relations[relation]
	if rel == nil || len(pattern) != h.arityOf(relation) {
		return nil
	}
	pattern, ok := lookupPattern(pattern)
	if !ok {
		return nil
	}

	if len(pattern.Bound()) == len(pattern) {
		if id, found := rel.keys[datalog.Row(pattern).Key()]; found {
			return []datalog.Row{rel.rows[id]}
		}
		return nil
	}
	if pattern.IsFree() {
		return h.View(relation)
	}
	return filterRows(rel.rows, pattern)
}

// Len returns the number of rows in the relation
func (h *HashMapIndex) Len(relation string) int {
	if rel := h.relations[relation]; rel != nil {
		return len(rel.rows)
	}
	return 0
}

// Relations returns the non-empty relation names
func (h *HashMapIndex) Relations() []string {
	return h.names()
}
