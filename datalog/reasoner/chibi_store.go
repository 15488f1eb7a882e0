package reasoner

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/wbrown/janus-reasoner/datalog"
)

// symbols interns constants to dense ids starting at 1. Id 0 marks an
// unbound slot. Constants are keyed by their encoding, so int64(1) and
// float64(1) get different ids.
type symbols struct {
	ids    map[string]uint32
	values []datalog.Value
}

func newSymbols() *symbols {
	return &symbols{
		ids:    make(map[string]uint32),
		values: []datalog.Value{nil},
	}
}

func (s *symbols) intern(v datalog.Value) uint32 {
	key := string(datalog.AppendValue(nil, v))
	if id, ok := s.ids[key]; ok {
		return id
	}
	id := uint32(len(s.values))
	s.ids[key] = id
	s.values = append(s.values, v)
	return id
}

func (s *symbols) lookup(v datalog.Value) (uint32, bool) {
	id, ok := s.ids[string(datalog.AppendValue(nil, v))]
	return id, ok
}

func (s *symbols) value(id uint32) datalog.Value {
	return s.values[id]
}

// chibiRelation stores rows as a flat id array with an arity stride.
// Each column keeps a hash index from id to the ascending row numbers
// holding it.
type chibiRelation struct {
	arity   int
	n       int
	data    []uint32
	keys    map[string]struct{}
	columns []map[uint32][]int
}

func newChibiRelation(arity int) *chibiRelation {
	r := &chibiRelation{
		arity:   arity,
		keys:    make(map[string]struct{}),
		columns: make([]map[uint32][]int, arity),
	}
	for i := range r.columns {
		r.columns[i] = make(map[uint32][]int)
	}
	return r
}

// packKey packs a tuple into a string usable as a map key
func packKey(tuple []uint32) string {
	buf := make([]byte, 0, 4*len(tuple))
	for _, id := range tuple {
		buf = binary.LittleEndian.AppendUint32(buf, id)
	}
	return string(buf)
}

func (r *chibiRelation) row(i int) []uint32 {
	return r.data[i*r.arity : (i+1)*r.arity : (i+1)*r.arity]
}

func (r *chibiRelation) has(tuple []uint32) bool {
	_, ok := r.keys[packKey(tuple)]
	return ok
}

func (r *chibiRelation) insert(tuple []uint32) bool {
	key := packKey(tuple)
	if _, ok := r.keys[key]; ok {
		return false
	}
	r.keys[key] = struct{}{}
	for c, id := range tuple {
		r.columns[c][id] = append(r.columns[c][id], r.n)
	}
	r.data = append(r.data, tuple...)
	r.n++
	return true
}

// scan calls fn for every row numbered in [lo, hi) that agrees with the
// non-zero ids of pattern. It walks the shortest posting list among the
// bound columns.
func (r *chibiRelation) scan(pattern []uint32, lo, hi int, fn func([]uint32)) {
	var postings []int
	indexed := false
	for c, id := range pattern {
		if id == 0 {
			continue
		}
		list := r.columns[c][id]
		if len(list) == 0 {
			return
		}
		if !indexed || len(list) < len(postings) {
			postings, indexed = list, true
		}
	}

	matches := func(row []uint32) bool {
		for c, id := range pattern {
			if id != 0 && row[c] != id {
				return false
			}
		}
		return true
	}

	if !indexed {
		for i := lo; i < hi; i++ {
			fn(r.row(i))
		}
		return
	}
	start := sort.SearchInts(postings, lo)
	for _, i := range postings[start:] {
		if i >= hi {
			return
		}
		if row := r.row(i); matches(row) {
			fn(row)
		}
	}
}

func (r *chibiRelation) clone() *chibiRelation {
	c := &chibiRelation{
		arity:   r.arity,
		n:       r.n,
		data:    append([]uint32(nil), r.data...),
		keys:    make(map[string]struct{}, len(r.keys)),
		columns: make([]map[uint32][]int, r.arity),
	}
	for k := range r.keys {
		c.keys[k] = struct{}{}
	}
	for i, col := range r.columns {
		c.columns[i] = make(map[uint32][]int, len(col))
		for id, rows := range col {
			c.columns[i][id] = append([]int(nil), rows...)
		}
	}
	return c
}

// chibiStore is the relation set of a ChibiDatalog. It satisfies
// index.Reader by decoding ids back to values.
type chibiStore struct {
	syms      *symbols
	relations map[string]*chibiRelation
}

func newChibiStore(syms *symbols) *chibiStore {
	return &chibiStore{syms: syms, relations: make(map[string]*chibiRelation)}
}

func (s *chibiStore) clone() *chibiStore {
	c := newChibiStore(s.syms)
	for name, rel := range s.relations {
		c.relations[name] = rel.clone()
	}
	return c
}

// relation returns the named relation, creating it with arity when
// absent
func (s *chibiStore) relation(name string, arity int) (*chibiRelation, error) {
	rel, ok := s.relations[name]
	if !ok {
		rel = newChibiRelation(arity)
		s.relations[name] = rel
		return rel, nil
	}
	if rel.arity != arity {
		return nil, fmt.Errorf("%w: relation %s has arity %d, got %d",
			datalog.ErrArityMismatch, name, rel.arity, arity)
	}
	return rel, nil
}

// insertRow interns row and inserts it
func (s *chibiStore) insertRow(name string, row datalog.Row) (bool, error) {
	rel, err := s.relation(name, len(row))
	if err != nil {
		return false, err
	}
	tuple := make([]uint32, len(row))
	for i, v := range row {
		tuple[i] = s.syms.intern(v)
	}
	return rel.insert(tuple), nil
}

// encode maps pattern values to ids, with nil becoming 0. It reports
// false when a bound value was never interned.
func (s *chibiStore) encode(values []datalog.Value) ([]uint32, bool) {
	ids := make([]uint32, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		id, ok := s.syms.lookup(v)
		if !ok {
			return nil, false
		}
		ids[i] = id
	}
	return ids, true
}

func (s *chibiStore) decode(tuple []uint32) datalog.Row {
	row := make(datalog.Row, len(tuple))
	for i, id := range tuple {
		row[i] = s.syms.value(id)
	}
	return row
}

func (s *chibiStore) total() int {
	n := 0
	for _, rel := range s.relations {
		n += rel.n
	}
	return n
}

func (s *chibiStore) Contains(relation string, row datalog.Row) bool {
	rel, ok := s.relations[relation]
	if !ok || rel.arity != len(row) {
		return false
	}
	for _, v := range row {
		if v == nil {
			return false
		}
	}
	tuple, ok := s.encode(row)
	return ok && rel.has(tuple)
}

func (s *chibiStore) View(relation string) []datalog.Row {
	rel, ok := s.relations[relation]
	if !ok {
		return nil
	}
	rows := make([]datalog.Row, 0, rel.n)
	for i := 0; i < rel.n; i++ {
		rows = append(rows, s.decode(rel.row(i)))
	}
	return rows
}

func (s *chibiStore) ViewWithBinding(relation string, pattern datalog.Pattern) []datalog.Row {
	rel, ok := s.relations[relation]
	if !ok || rel.arity != len(pattern) {
		return nil
	}
	ids, ok := s.encode(pattern)
	if !ok {
		return nil
	}
	var rows []datalog.Row
	rel.scan(ids, 0, rel.n, func(tuple []uint32) {
		rows = append(rows, s.decode(tuple))
	})
	return rows
}

func (s *chibiStore) Len(relation string) int {
	if rel, ok := s.relations[relation]; ok {
		return rel.n
	}
	return 0
}

func (s *chibiStore) Relations() []string {
	names := make([]string, 0, len(s.relations))
	for name, rel := range s.relations {
		if rel.n > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
