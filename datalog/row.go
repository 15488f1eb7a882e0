package datalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Row is an ordered list of constants stored in a relation
type Row []Value

// RowID identifies a row inside one index backend. It is assigned by the
// backend and only meaningful to it.
type RowID uint32

// ErrArityMismatch is returned when a row or atom disagrees with the
// arity already established for its relation
var ErrArityMismatch = errors.New("arity mismatch")

// NewRow builds a normalized row from Go values
func NewRow(values ...interface{}) (Row, error) {
	row := make(Row, len(values))
	for i, v := range values {
		nv, err := NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		row[i] = nv
	}
	return row, nil
}

// NormalizeRow returns row with every value in canonical form. The input
// is returned as-is when it is already canonical.
func NormalizeRow(row Row) (Row, error) {
	var out Row
	for i, v := range row {
		nv, err := NormalizeValue(v)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
		if out == nil && nv != v {
			out = make(Row, len(row))
			copy(out, row[:i])
		}
		if out != nil {
			out[i] = nv
		}
	}
	if out == nil {
		return row, nil
	}
	return out, nil
}

// Key returns the binary key of the row. Keys are equal iff rows are
// equal, sort in CompareRows order, and the key of a row prefix is a
// byte prefix of the row key.
func (r Row) Key() string {
	return string(r.AppendKey(make([]byte, 0, 16*len(r))))
}

// AppendKey appends the row key to buf
func (r Row) AppendKey(buf []byte) []byte {
	for _, v := range r {
		buf = AppendValue(buf, v)
	}
	return buf
}

// RowFromKey decodes a key produced by Row.Key
func RowFromKey(key []byte) (Row, error) {
	var row Row
	for len(key) > 0 {
		v, rest, err := DecodeValue(key)
		if err != nil {
			return nil, fmt.Errorf("failed to decode row key: %w", err)
		}
		row = append(row, v)
		key = rest
	}
	return row, nil
}

// Equal reports whether two rows hold the same values
func (r Row) Equal(other Row) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if !ValuesEqual(r[i], other[i]) {
			return false
		}
	}
	return true
}

// Clone returns a copy of the row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// String returns a string representation of the row
func (r Row) String() string {
	parts := make([]string, len(r))
	for i, v := range r {
		parts[i] = FormatValue(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// CompareRows orders rows column by column with CompareValues; shorter
// rows sort first on a common prefix
func CompareRows(a, b Row) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := CompareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareInt64s(int64(len(a)), int64(len(b)))
}

// SortRows sorts rows in place into CompareRows order
func SortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		return CompareRows(rows[i], rows[j]) < 0
	})
}

// Pattern fixes some positions of a row to constants. A nil entry leaves
// the position free.
type Pattern []Value

// NewPattern builds a pattern; nil arguments are free positions
func NewPattern(values ...interface{}) Pattern {
	p := make(Pattern, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		nv, err := NormalizeValue(v)
		if err != nil {
			panic(err)
		}
		p[i] = nv
	}
	return p
}

// Bound returns the positions fixed by the pattern
func (p Pattern) Bound() []int {
	var cols []int
	for i, v := range p {
		if v != nil {
			cols = append(cols, i)
		}
	}
	return cols
}

// IsFree reports whether no position is fixed
func (p Pattern) IsFree() bool {
	for _, v := range p {
		if v != nil {
			return false
		}
	}
	return true
}

// Matches reports whether row agrees with every fixed position
func (p Pattern) Matches(row Row) bool {
	if len(p) != len(row) {
		return false
	}
	for i, v := range p {
		if v != nil && !ValuesEqual(v, row[i]) {
			return false
		}
	}
	return true
}

// String returns a string representation of the pattern
func (p Pattern) String() string {
	return Row(p).String()
}
