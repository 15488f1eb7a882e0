package index

import (
	"github.com/cespare/xxhash/v2"
	"github.com/wbrown/janus-reasoner/datalog"
)

// IndexedHashMapIndex extends the hash map with a posting list per
// column value. Rows are identified by an xxhash fingerprint of their key
// and collisions are resolved by comparing rows. A bound lookup starts
// from the shortest posting list among the bound columns.
type IndexedHashMapIndex struct {
	schema
	relations map[string]*indexedRelation
}

type indexedRelation struct {
	rows     []datalog.Row
	byHash   map[uint64][]datalog.RowID
	postings []map[uint64][]datalog.RowID
}

// NewIndexedHashMapIndex creates an empty indexed hash-map index
func NewIndexedHashMapIndex(opts Options) *IndexedHashMapIndex {
	return &IndexedHashMapIndex{
		schema:    newSchema(opts.Capacity),
		relations: make(map[string]*indexedRelation),
	}
}

func hashRow(row datalog.Row) uint64 {
	return xxhash.Sum64(row.AppendKey(make([]byte, 0, 16*len(row))))
}

func hashValue(v datalog.Value) uint64 {
	return xxhash.Sum64(datalog.AppendValue(make([]byte, 0, 16), v))
}

func (rel *indexedRelation) find(h uint64, row datalog.Row) (datalog.RowID, bool) {
	for _, id := range rel.byHash[h] {
		if rel.rows[id].Equal(row) {
			return id, true
		}
	}
	return 0, false
}

// Insert adds row and its column postings if absent
func (x *IndexedHashMapIndex) Insert(relation string, row datalog.Row) (bool, error) {
	row, err := x.prepare(relation, row)
	if err != nil {
		return false, err
	}

	rel := x.relations[relation]
	if rel == nil {
		rel = &indexedRelation{
			byHash:   make(map[uint64][]datalog.RowID),
			postings: make([]map[uint64][]datalog.RowID, len(row)),
		}
		for i := range rel.postings {
			rel.postings[i] = make(map[uint64][]datalog.RowID)
		}
		x.relations[relation] = rel
	}

	h := hashRow(row)
	if _, found := rel.find(h, row); found {
		return false, nil
	}
	if err := x.admit(relation, row, len(rel.rows)); err != nil {
		return false, err
	}

	id := datalog.RowID(len(rel.rows))
	rel.rows = append(rel.rows, row)
	rel.byHash[h] = append(rel.byHash[h], id)
	for col, v := range row {
		vh := hashValue(v)
		rel.postings[col][vh] = append(rel.postings[col][vh], id)
	}
	return true, nil
}

// Contains reports whether the relation holds row
func (x *IndexedHashMapIndex) Contains(relation string, row datalog.Row) bool {
	rel := x.relations[relation]
	if rel == nil {
		return false
	}
	row, ok := lookupRow(row)
	if !ok {
		return false
	}
	_, found := rel.find(hashRow(row), row)
	return found
}

// View returns a copy of the rows in insertion order
func (x *IndexedHashMapIndex) View(relation string) []datalog.Row {
	rel := x.relations[relation]
	if rel == nil {
		return nil
	}
	return append([]datalog.Row(nil), rel.rows...)
}

// ViewWithBinding resolves bound columns through the posting lists. Rows
// come back in insertion order.
func (x *IndexedHashMapIndex) ViewWithBinding(relation string, pattern datalog.Pattern) []datalog.Row {
	rel := x.relations[relation]
	if rel == nil || len(pattern) != x.arityOf(relation) {
		return nil
	}
	pattern, ok := lookupPattern(pattern)
	if !ok {
		return nil
	}

	bound := pattern.Bound()
	if len(bound) == 0 {
		return x.View(relation)
	}
	if len(bound) == len(pattern) {
		row := datalog.Row(pattern)
		if id, found := rel.find(hashRow(row), row); found {
			return []datalog.Row{rel.rows[id]}
		}
		return nil
	}

	var shortest []datalog.RowID
	for i, col := range bound {
		ids := rel.postings[col][hashValue(pattern[col])]
		if len(ids) == 0 {
			return nil
		}
		if i == 0 || len(ids) < len(shortest) {
			shortest = ids
		}
	}

	var rows []datalog.Row
	for _, id := range shortest {
		if row := rel.rows[id]; pattern.Matches(row) {
			rows = append(rows, row)
		}
	}
	return rows
}

// Len returns the number of rows in the relation
func (x *IndexedHashMapIndex) Len(relation string) int {
	if rel := x.relations[relation]; rel != nil {
		return len(rel.rows)
	}
	return 0
}

// Relations returns the non-empty relation names
func (x *IndexedHashMapIndex) Relations() []string {
	return x.names()
}
