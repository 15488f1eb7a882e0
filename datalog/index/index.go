// Package index defines the fact-store contract the evaluator runs against
// and its interchangeable backends.
//
// Every backend stores rows per relation name with set semantics and
// answers pattern-bound lookups. Backends differ only in cost:
//
//	hashmap          O(1) insert, scan lookups
//	btree            O(log n) insert, prefix range lookups over column rotations
//	vector           O(n) insert, scan lookups
//	indexed-hashmap  O(1) insert, posting-list lookups on any bound column
//	spine            O(1) append with periodic compaction into sorted runs
//	immutable        persistent trees, readers keep a frozen snapshot
//	badger           in-memory badger keyspace with rotated key orderings
//
// Only the immutable backend tolerates readers concurrent with a writer.
// Callers must serialize Insert on every other backend.
package index

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wbrown/janus-reasoner/datalog"
)

// ErrIndexFull is returned when an insert would grow a relation past the
// configured capacity
var ErrIndexFull = errors.New("index full")

// ErrUnknownKind is returned by ParseKind for unrecognized backend names
var ErrUnknownKind = errors.New("unknown index kind")

// Reader is the read side of the storage contract
type Reader interface {
	// Contains reports whether the relation holds row
	Contains(relation string, row datalog.Row) bool

	// View returns every row of the relation. The order is deterministic
	// for a given backend and insertion sequence but carries no meaning.
	View(relation string) []datalog.Row

	// ViewWithBinding returns the rows agreeing with every bound position
	// of pattern. A pattern whose length is not the relation arity
	// matches nothing.
	ViewWithBinding(relation string, pattern datalog.Pattern) []datalog.Row

	// Len returns the number of rows in the relation
	Len(relation string) int

	// Relations returns the names of all non-empty relations, sorted
	Relations() []string
}

// Index is a Reader that can grow
type Index interface {
	Reader

	// Insert adds row if absent and reports whether it was added
	Insert(relation string, row datalog.Row) (bool, error)
}

// Factory creates empty indexes of one backend kind
type Factory func() (Index, error)

// Kind names an index backend
type Kind string

const (
	HashMap        Kind = "hashmap"
	BTree          Kind = "btree"
	Vector         Kind = "vector"
	IndexedHashMap Kind = "indexed-hashmap"
	Spine          Kind = "spine"
	Immutable      Kind = "immutable"
	Badger         Kind = "badger"
)

// Kinds returns every backend kind
func Kinds() []Kind {
	return []Kind{HashMap, BTree, Vector, IndexedHashMap, Spine, Immutable, Badger}
}

// ParseKind resolves a backend name. Underscores and case are ignored so
// that "IndexedHashMap" and "indexed_hashmap" both work.
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.ReplaceAll(s, "_", "-"))
	for _, k := range Kinds() {
		if string(k) == norm || strings.ReplaceAll(string(k), "-", "") == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Options tunes backend construction
type Options struct {
	// Capacity bounds the rows per relation. 0 means unbounded.
	Capacity int

	// SpineThreshold is the tail length that triggers a spine compaction
	SpineThreshold int

	// BTreeDegree is the google/btree node degree
	BTreeDegree int
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		Capacity:       0,
		SpineThreshold: 1024,
		BTreeDegree:    32,
	}
}

// New creates an empty index of the given kind
func New(kind Kind, opts Options) (Index, error) {
	switch kind {
	case HashMap:
		return NewHashMapIndex(opts), nil
	case BTree:
		return NewBTreeIndex(opts), nil
	case Vector:
		return NewVecIndex(opts), nil
	case IndexedHashMap:
		return NewIndexedHashMapIndex(opts), nil
	case Spine:
		return NewSpineIndex(opts), nil
	case Immutable:
		return NewImmutableVectorIndex(opts), nil
	case Badger:
		idx, err := NewBadgerIndex(opts)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// NewFactory returns a Factory for kind
func NewFactory(kind Kind, opts Options) Factory {
	return func() (Index, error) {
		return New(kind, opts)
	}
}

// Release closes idx if the backend holds resources beyond memory
func Release(idx Reader) error {
	if c, ok := idx.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
