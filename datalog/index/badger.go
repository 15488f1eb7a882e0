package index

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/wbrown/janus-reasoner/datalog"
)

// BadgerIndex stores rows as keys in an in-memory badger database. Every
// row is written once per column rotation, under the relation prefix and
// a rotation byte, with an empty value; rows are decoded back from keys.
// Reads that fail inside badger panic, since the Reader contract has no
// error path and an in-memory store only fails on corruption.
type BadgerIndex struct {
	schema
	db     *badger.DB
	counts map[string]int
}

// NewBadgerIndex opens an in-memory badger database
func NewBadgerIndex(opts Options) (*BadgerIndex, error) {
	bopts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(nil)
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerIndex{
		schema: newSchema(opts.Capacity),
		db:     db,
		counts: make(map[string]int),
	}, nil
}

// Close releases the database
func (b *BadgerIndex) Close() error {
	return b.db.Close()
}

func rotationPrefix(relation string, rot int) []byte {
	buf := relationPrefix(relation)
	return append(buf, byte(rot))
}

// Insert writes all rotations of row in one transaction if absent
func (b *BadgerIndex) Insert(relation string, row datalog.Row) (bool, error) {
	row, err := b.prepare(relation, row)
	if err != nil {
		return false, err
	}

	orderings := rotations(len(row))
	primary := orderings[0].appendKey(rotationPrefix(relation, 0), row)

	added := false
	err = b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(primary)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := b.admit(relation, row, b.counts[relation]); err != nil {
			return err
		}
		for r, o := range orderings {
			if err := txn.Set(o.appendKey(rotationPrefix(relation, r), row), nil); err != nil {
				return err
			}
		}
		added = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("badger insert into %s: %w", relation, err)
	}
	if added {
		b.counts[relation]++
	}
	return added, nil
}

// Contains reports whether the relation holds row
func (b *BadgerIndex) Contains(relation string, row datalog.Row) bool {
	row, ok := lookupRow(row)
	if !ok || len(row) != b.arityOf(relation) {
		return false
	}
	key := rotations(len(row))[0].appendKey(rotationPrefix(relation, 0), row)

	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	if err != nil {
		panic(fmt.Sprintf("badger read from %s: %v", relation, err))
	}
	return found
}

// scan decodes every row under prefix using rotation o. The first skip
// bytes of each key are the relation and rotation header.
func (b *BadgerIndex) scan(relation string, prefix []byte, skip int, o ordering, pattern datalog.Pattern) []datalog.Row {
	var rows []datalog.Row
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			row, err := o.decode(key[skip:])
			if err != nil {
				return err
			}
			if pattern == nil || pattern.Matches(row) {
				rows = append(rows, row)
			}
		}
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("badger scan of %s: %v", relation, err))
	}
	return rows
}

// View returns the rows in key order
func (b *BadgerIndex) View(relation string) []datalog.Row {
	arity := b.arityOf(relation)
	if arity < 0 {
		return nil
	}
	header := rotationPrefix(relation, 0)
	return b.scan(relation, header, len(header), rotations(arity)[0], nil)
}

// ViewWithBinding iterates the rotation sharing the longest bound prefix
func (b *BadgerIndex) ViewWithBinding(relation string, pattern datalog.Pattern) []datalog.Row {
	arity := b.arityOf(relation)
	if arity < 0 || len(pattern) != arity {
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
	o := rotations(arity)[rot]
	header := rotationPrefix(relation, rot)
	prefix := append(header[:len(header):len(header)], o.prefix(pattern, n)...)

	var residual datalog.Pattern
	if n < len(pattern.Bound()) {
		residual = pattern
	}
	return b.scan(relation, prefix, len(header), o, residual)
}

// Len returns the number of rows in the relation
func (b *BadgerIndex) Len(relation string) int {
	return b.counts[relation]
}

// Relations returns the non-empty relation names
func (b *BadgerIndex) Relations() []string {
	return b.names()
}
