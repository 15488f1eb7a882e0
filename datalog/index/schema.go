package index

import (
	"fmt"
	"sort"

	"github.com/wbrown/janus-reasoner/datalog"
)

// schema tracks relation arities and enforces capacity. Backends embed it
// and call admit before storing a row.
type schema struct {
	arity    map[string]int
	capacity int
}

func newSchema(capacity int) schema {
	return schema{
		arity:    make(map[string]int),
		capacity: capacity,
	}
}

// prepare normalizes row and checks it against the relation arity. The
// first row of a relation fixes its arity.
func (s *schema) prepare(relation string, row datalog.Row) (datalog.Row, error) {
	row, err := datalog.NormalizeRow(row)
	if err != nil {
		return nil, fmt.Errorf("relation %s: %w", relation, err)
	}
	if n, ok := s.arity[relation]; ok && n != len(row) {
		return nil, fmt.Errorf("%w: relation %s has arity %d, row %s has %d",
			datalog.ErrArityMismatch, relation, n, row, len(row))
	}
	return row, nil
}

// admit checks capacity for a row known to be new and records the arity
func (s *schema) admit(relation string, row datalog.Row, size int) error {
	if s.capacity > 0 && size >= s.capacity {
		return fmt.Errorf("%w: relation %s reached capacity %d", ErrIndexFull, relation, s.capacity)
	}
	s.arity[relation] = len(row)
	return nil
}

// arityOf returns the arity of relation, or -1 if it holds no rows
func (s *schema) arityOf(relation string) int {
	if n, ok := s.arity[relation]; ok {
		return n
	}
	return -1
}

// names returns the known relation names, sorted
func (s *schema) names() []string {
	names := make([]string, 0, len(s.arity))
	for name := range s.arity {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookupRow normalizes a row for a read; ok is false if it cannot match
func lookupRow(row datalog.Row) (datalog.Row, bool) {
	row, err := datalog.NormalizeRow(row)
	return row, err == nil
}

// lookupPattern normalizes pattern constants for a read
func lookupPattern(p datalog.Pattern) (datalog.Pattern, bool) {
	var out datalog.Pattern
	for i, v := range p {
		if v == nil {
			continue
		}
		nv, err := datalog.NormalizeValue(v)
		if err != nil {
			return nil, false
		}
		if out == nil && nv != v {
			out = make(datalog.Pattern, len(p))
			copy(out, p)
		}
		if out != nil {
			out[i] = nv
		}
	}
	if out == nil {
		return p, true
	}
	return out, true
}

// filterRows returns the rows matching pattern
func filterRows(rows []datalog.Row, pattern datalog.Pattern) []datalog.Row {
	var out []datalog.Row
	for _, row := range rows {
		if pattern.Matches(row) {
			out = append(out, row)
		}
	}
	return out
}
