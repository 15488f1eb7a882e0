package index

import (
	"github.com/wbrown/janus-reasoner/datalog"
)

// ordering is a column permutation used to build a sorted key. Keyed
// backends keep one ordering per rotation of the columns, the way a triple
// store keeps EAV, AVE and VEA indexes, so that any single bound column is
// the leading column of some ordering.
type ordering []int

// rotations returns the arity rotations of [0, arity). A nullary relation
// gets one empty ordering.
func rotations(arity int) []ordering {
	if arity == 0 {
		return []ordering{{}}
	}
	out := make([]ordering, arity)
	for r := 0; r < arity; r++ {
		o := make(ordering, arity)
		for i := 0; i < arity; i++ {
			o[i] = (r + i) % arity
		}
		out[r] = o
	}
	return out
}

// key encodes row in this ordering
func (o ordering) key(row datalog.Row) string {
	return string(o.appendKey(make([]byte, 0, 16*len(row)), row))
}

func (o ordering) appendKey(buf []byte, row datalog.Row) []byte {
	for _, col := range o {
		buf = datalog.AppendValue(buf, row[col])
	}
	return buf
}

// prefix encodes the first n columns of the ordering taken from pattern
func (o ordering) prefix(p datalog.Pattern, n int) string {
	buf := make([]byte, 0, 16*n)
	for _, col := range o[:n] {
		buf = datalog.AppendValue(buf, p[col])
	}
	return string(buf)
}

// decode rebuilds a row from a key written by appendKey
func (o ordering) decode(key []byte) (datalog.Row, error) {
	row := make(datalog.Row, len(o))
	for _, col := range o {
		v, rest, err := datalog.DecodeValue(key)
		if err != nil {
			return nil, err
		}
		row[col] = v
		key = rest
	}
	return row, nil
}

// bestRotation picks the rotation whose leading run of bound columns is
// longest and returns it with the run length. A free pattern yields
// rotation 0 with length 0.
func bestRotation(p datalog.Pattern) (rot, n int) {
	arity := len(p)
	for r := 0; r < arity; r++ {
		run := 0
		for run < arity && p[(r+run)%arity] != nil {
			run++
		}
		if run > n {
			rot, n = r, run
		}
	}
	return rot, n
}

// leadingPrefix encodes the first n columns of p in natural column order
func leadingPrefix(p datalog.Pattern, n int) string {
	buf := make([]byte, 0, 16*n)
	for _, v := range p[:n] {
		buf = datalog.AppendValue(buf, v)
	}
	return string(buf)
}
