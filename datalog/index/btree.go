package index

import (
	"strings"

	"github.com/google/btree"
	"github.com/wbrown/janus-reasoner/datalog"
)

// BTreeIndex keeps one google/btree per column rotation of each relation.
// A lookup picks the rotation whose leading columns are bound and walks
// the key range sharing that prefix, so any bound column gives a
// logarithmic seek. Iteration is in key order.
type BTreeIndex struct {
	schema
	degree    int
	relations map[string]*btreeRelation
}

type btreeItem struct {
	key string
	row datalog.Row
}

func lessItem(a, b btreeItem) bool {
	return a.key < b.key
}

type btreeRelation struct {
	orderings []ordering
	trees     []*btree.BTreeG[btreeItem]
}

// NewBTreeIndex creates an empty B-tree index
func NewBTreeIndex(opts Options) *BTreeIndex {
	degree := opts.BTreeDegree
	if degree < 2 {
		degree = DefaultOptions().BTreeDegree
	}
	return &BTreeIndex{
		schema:    newSchema(opts.Capacity),
		degree:    degree,
		relations: make(map[string]*btreeRelation),
	}
}

func (b *BTreeIndex) relation(name string, arity int) *btreeRelation {
	rel := b.relations[name]
	if rel != nil {
		return rel
	}
	rel = &btreeRelation{orderings: rotations(arity)}
	rel.trees = make([]*btree.BTreeG[btreeItem], len(rel.orderings))
	for i := range rel.trees {
		rel.trees[i] = btree.NewG[btreeItem](b.degree, lessItem)
	}
	b.relations[name] = rel
	return rel
}

// Insert adds row to every rotation tree if absent
func (b *BTreeIndex) Insert(relation string, row datalog.Row) (bool, error) {
	row, err := b.prepare(relation, row)
	if err != nil {
		return false, err
	}

	rel := b.relation(relation, len(row))
	primary := btreeItem{key: rel.orderings[0].key(row)}
	if rel.trees[0].Has(primary) {
		return false, nil
	}
	if err := b.admit(relation, row, rel.trees[0].Len()); err != nil {
		return false, err
	}

	primary.row = row
	rel.trees[0].ReplaceOrInsert(primary)
	for i := 1; i < len(rel.trees); i++ {
		rel.trees[i].ReplaceOrInsert(btreeItem{key: rel.orderings[i].key(row), row: row})
	}
	return true, nil
}

// Contains reports whether the relation holds row
func (b *BTreeIndex) Contains(relation string, row datalog.Row) bool {
	rel := b.relations[relation]
	if rel == nil {
		return false
	}
	row, ok := lookupRow(row)
	if !ok || len(row) != len(rel.orderings[0]) {
		return false
	}
	return rel.trees[0].Has(btreeItem{key: rel.orderings[0].key(row)})
}

// View returns the rows in key order
func (b *BTreeIndex) View(relation string) []datalog.Row {
	rel := b.relations[relation]
	if rel == nil {
		return nil
	}
	rows := make([]datalog.Row, 0, rel.trees[0].Len())
	rel.trees[0].Ascend(func(item btreeItem) bool {
		rows = append(rows, item.row)
		return true
	})
	return rows
}

// ViewWithBinding seeks the best rotation tree to the bound prefix and
// filters any remaining bound columns
func (b *BTreeIndex) ViewWithBinding(relation string, pattern datalog.Pattern) []datalog.Row {
	rel := b.relations[relation]
	if rel == nil || len(pattern) != b.arityOf(relation) {
		return nil
	}
	pattern, ok := lookupPattern(pattern)
	if !ok {
		return nil
	}

	rot, n := bestRotation(pattern)
	if n == 0 {
		return b.View(relation)
	}

	prefix := rel.orderings[rot].prefix(pattern, n)
	residual := n < len(pattern.Bound())

	var rows []datalog.Row
	rel.trees[rot].AscendGreaterOrEqual(btreeItem{key: prefix}, func(item btreeItem) bool {
		if !strings.HasPrefix(item.key, prefix) {
			return false
		}
		if !residual || pattern.Matches(item.row) {
			rows = append(rows, item.row)
		}
		return true
	})
	return rows
}

// Len returns the number of rows in the relation
func (b *BTreeIndex) Len(relation string) int {
	if rel := b.relations[relation]; rel != nil {
		return rel.trees[0].Len()
	}
	return 0
}

// Relations returns the non-empty relation names
func (b *BTreeIndex) Relations() []string {
	return b.names()
}
