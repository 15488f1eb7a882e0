package index

import (
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	iradix "github.com/hashicorp/go-immutable-radix/v2"
	"github.com/wbrown/janus-reasoner/datalog"
)

// ImmutableVectorIndex stores every relation in persistent radix trees.
// Each Insert commits a new version; readers holding a Snapshot keep
// seeing the version they took, so evaluation can read a frozen store
// while writers move on. Writers are serialized by a mutex.
//
// Row keys are laid out as relation prefix, section byte, payload.
// Section 0 is the insertion-order vector keyed by a big-endian sequence
// number. Section 1+r is column rotation r keyed by the rotated row key.
type ImmutableVectorIndex struct {
	capacity int
	mu       sync.Mutex
	state    atomic.Pointer[immutableState]
}

type relMeta struct {
	arity int
	size  int
}

type immutableState struct {
	rows *iradix.Tree[datalog.Row]
	meta *iradix.Tree[relMeta]
}

const sectionVector byte = 0

// NewImmutableVectorIndex creates an empty immutable index
func NewImmutableVectorIndex(opts Options) *ImmutableVectorIndex {
	idx := &ImmutableVectorIndex{capacity: opts.Capacity}
	idx.state.Store(&immutableState{
		rows: iradix.New[datalog.Row](),
		meta: iradix.New[relMeta](),
	})
	return idx
}

func relationPrefix(relation string) []byte {
	return datalog.AppendValue(nil, relation)
}

func sectionKey(relation string, section byte, payload string) []byte {
	buf := relationPrefix(relation)
	buf = append(buf, section)
	return append(buf, payload...)
}

// Insert commits a new version containing row if absent
func (m *ImmutableVectorIndex) Insert(relation string, row datalog.Row) (bool, error) {
	row, err := datalog.NormalizeRow(row)
	if err != nil {
		return false, fmt.Errorf("relation %s: %w", relation, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.state.Load()
	meta, known := st.meta.Get([]byte(relation))
	if known && meta.arity != len(row) {
		return false, fmt.Errorf("%w: relation %s has arity %d, row %s has %d",
			datalog.ErrArityMismatch, relation, meta.arity, row, len(row))
	}

	orderings := rotations(len(row))
	if _, found := st.rows.Get(sectionKey(relation, 1, orderings[0].key(row))); found {
		return false, nil
	}
	if m.capacity > 0 && meta.size >= m.capacity {
		return false, fmt.Errorf("%w: relation %s reached capacity %d", ErrIndexFull, relation, m.capacity)
	}

	var seq [4]byte
	binary.BigEndian.PutUint32(seq[:], uint32(meta.size))

	txn := st.rows.Txn()
	txn.Insert(sectionKey(relation, sectionVector, string(seq[:])), row)
	for r, o := range orderings {
		txn.Insert(sectionKey(relation, byte(1+r), o.key(row)), row)
	}
	metaTxn := st.meta.Txn()
	metaTxn.Insert([]byte(relation), relMeta{arity: len(row), size: meta.size + 1})

	m.state.Store(&immutableState{rows: txn.Commit(), meta: metaTxn.Commit()})
	return true, nil
}

// Snapshot returns a read-only view of the current version
func (m *ImmutableVectorIndex) Snapshot() Reader {
	return &ImmutableSnapshot{state: m.state.Load()}
}

// Contains reports whether the current version holds row
func (m *ImmutableVectorIndex) Contains(relation string, row datalog.Row) bool {
	return m.state.Load().contains(relation, row)
}

// View returns the rows in insertion order
func (m *ImmutableVectorIndex) View(relation string) []datalog.Row {
	return m.state.Load().view(relation)
}

// ViewWithBinding walks the rotation tree sharing the bound prefix
func (m *ImmutableVectorIndex) ViewWithBinding(relation string, pattern datalog.Pattern) []datalog.Row {
	return m.state.Load().viewWithBinding(relation, pattern)
}

// Len returns the number of rows in the relation
func (m *ImmutableVectorIndex) Len(relation string) int {
	return m.state.Load().len(relation)
}

// Relations returns the non-empty relation names
func (m *ImmutableVectorIndex) Relations() []string {
	return m.state.Load().relations()
}

// ImmutableSnapshot is a frozen version of an ImmutableVectorIndex
type ImmutableSnapshot struct {
	state *immutableState
}

func (s *ImmutableSnapshot) Contains(relation string, row datalog.Row) bool {
	return s.state.contains(relation, row)
}

func (s *ImmutableSnapshot) View(relation string) []datalog.Row {
	return s.state.view(relation)
}

func (s *ImmutableSnapshot) ViewWithBinding(relation string, pattern datalog.Pattern) []datalog.Row {
	return s.state.viewWithBinding(relation, pattern)
}

func (s *ImmutableSnapshot) Len(relation string) int {
	return s.state.len(relation)
}

func (s *ImmutableSnapshot) Relations() []string {
	return s.state.relations()
}

func (st *immutableState) contains(relation string, row datalog.Row) bool {
	row, ok := lookupRow(row)
	if !ok {
		return false
	}
	meta, known := st.meta.Get([]byte(relation))
	if !known || meta.arity != len(row) {
		return false
	}
	_, found := st.rows.Get(sectionKey(relation, 1, rotations(len(row))[0].key(row)))
	return found
}

func (st *immutableState) view(relation string) []datalog.Row {
	meta, known := st.meta.Get([]byte(relation))
	if !known {
		return nil
	}
	rows := make([]datalog.Row, 0, meta.size)
	st.rows.Root().WalkPrefix(sectionKey(relation, sectionVector, ""), func(_ []byte, row datalog.Row) bool {
		rows = append(rows, row)
		return false
	})
	return rows
}

func (st *immutableState) viewWithBinding(relation string, pattern datalog.Pattern) []datalog.Row {
	meta, known := st.meta.Get([]byte(relation))
	if !known || len(pattern) != meta.arity {
		return nil
	}
	pattern, ok := lookupPattern(pattern)
	if !ok {
		return nil
	}

	rot, n := bestRotation(pattern)
	if n == 0 {
		return st.view(relation)
	}

	prefix := rotations(meta.arity)[rot].prefix(pattern, n)
	residual := n < len(pattern.Bound())

	var rows []datalog.Row
	st.rows.Root().WalkPrefix(sectionKey(relation, byte(1+rot), prefix), func(_ []byte, row datalog.Row) bool {
		if !residual || pattern.Matches(row) {
			rows = append(rows, row)
		}
		return false
	})
	return rows
}

func (st *immutableState) len(relation string) int {
	meta, _ := st.meta.Get([]byte(relation))
	return meta.size
}

func (st *immutableState) relations() []string {
	var names []string
	st.meta.Root().Walk(func(k []byte, _ relMeta) bool {
		names = append(names, string(k))
		return false
	})
	return names
}
