package index

import (
	"sort"
	"strings"

	"github.com/wbrown/janus-reasoner/datalog"
)

// SpineIndex is a log-structured backend. New rows land in an unsorted
// tail guarded by a key set. When the tail reaches the threshold it is
// sorted into a run and pushed onto the spine, and neighbouring runs are
// merged while the older run is no more than twice the size of the newer
// one. That keeps O(log n) runs, each searchable by binary search.
type SpineIndex struct {
	schema
	threshold int
	relations map[string]*spineRelation
}

type spineEntry struct {
	key string
	row datalog.Row
}

type spineRelation struct {
	runs     [][]spineEntry
	tail     []spineEntry
	tailKeys map[string]struct{}
	size     int
}

// NewSpineIndex creates an empty spine index
func NewSpineIndex(opts Options) *SpineIndex {
	threshold := opts.SpineThreshold
	if threshold <= 0 {
		threshold = DefaultOptions().SpineThreshold
	}
	return &SpineIndex{
		schema:    newSchema(opts.Capacity),
		threshold: threshold,
		relations: make(map[string]*spineRelation),
	}
}

func searchRun(run []spineEntry, key string) int {
	return sort.Search(len(run), func(i int) bool { return run[i].key >= key })
}

func (rel *spineRelation) has(key string) bool {
	if _, ok := rel.tailKeys[key]; ok {
		return true
	}
	for _, run := range rel.runs {
		if i := searchRun(run, key); i < len(run) && run[i].key == key {
			return true
		}
	}
	return false
}

// seal sorts the tail into a run and restores the size invariant
func (rel *spineRelation) seal() {
	if len(rel.tail) == 0 {
		return
	}
	run := rel.tail
	sort.Slice(run, func(i, j int) bool { return run[i].key < run[j].key })
	rel.runs = append(rel.runs, run)
	rel.tail = nil
	rel.tailKeys = make(map[string]struct{})

	for n := len(rel.runs); n >= 2 && len(rel.runs[n-2]) <= 2*len(rel.runs[n-1]); n = len(rel.runs) {
		rel.runs[n-2] = mergeRuns(rel.runs[n-2], rel.runs[n-1])
		rel.runs = rel.runs[:n-1]
	}
}

func mergeRuns(a, b []spineEntry) []spineEntry {
	out := make([]spineEntry, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].key <= b[j].key {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

// Insert adds row to the tail if absent, sealing the tail when full
func (s *SpineIndex) Insert(relation string, row datalog.Row) (bool, error) {
	row, err := s.prepare(relation, row)
	if err != nil {
		return false, err
	}

	rel := s.relations[relation]
	if rel == nil {
		rel = &spineRelation{tailKeys: make(map[string]struct{})}
		s.relations[relation] = rel
	}

	key := row.Key()
	if rel.has(key) {
		return false, nil
	}
	if err := s.admit(relation, row, rel.size); err != nil {
		return false, err
	}

	rel.tail = append(rel.tail, spineEntry{key: key, row: row})
	rel.tailKeys[key] = struct{}{}
	rel.size++
	if len(rel.tail) >= s.threshold {
		rel.seal()
	}
	return true, nil
}

// Compact seals every tail and merges each relation into a single run
func (s *SpineIndex) Compact() {
	for _, rel := range s.relations {
		rel.seal()
		for len(rel.runs) > 1 {
			n := len(rel.runs)
			rel.runs[n-2] = mergeRuns(rel.runs[n-2], rel.runs[n-1])
			rel.runs = rel.runs[:n-1]
		}
	}
}

// Runs returns the number of sealed runs for relation
func (s *SpineIndex) Runs(relation string) int {
	if rel := s.relations[relation]; rel != nil {
		return len(rel.runs)
	}
	return 0
}

// Contains reports whether the relation holds row
func (s *SpineIndex) Contains(relation string, row datalog.Row) bool {
	rel := s.relations[relation]
	if rel == nil {
		return false
	}
	row, ok := lookupRow(row)
	if !ok {
		return false
	}
	return rel.has(row.Key())
}

// View returns the sealed runs oldest first, followed by the tail
func (s *SpineIndex) View(relation string) []datalog.Row {
	rel := s.relations[relation]
	if rel == nil {
		return nil
	}
	rows := make([]datalog.Row, 0, rel.size)
	for _, run := range rel.runs {
		for _, e := range run {
			rows = append(rows, e.row)
		}
	}
	for _, e := range rel.tail {
		rows = append(rows, e.row)
	}
	return rows
}

// ViewWithBinding binary-searches each run when the first column is
// bound and filters otherwise
func (s *SpineIndex) ViewWithBinding(relation string, pattern datalog.Pattern) []datalog.Row {
	rel := s.relations[relation]
	if rel == nil || len(pattern) != s.arityOf(relation) {
		return nil
	}
	pattern, ok := lookupPattern(pattern)
	if !ok {
		return nil
	}
	if pattern.IsFree() {
		return s.View(relation)
	}

	n := 0
	for n < len(pattern) && pattern[n] != nil {
		n++
	}
	if n == 0 {
		return filterRows(s.View(relation), pattern)
	}

	prefix := leadingPrefix(pattern, n)
	var rows []datalog.Row
	for _, run := range rel.runs {
		for i := searchRun(run, prefix); i < len(run) && strings.HasPrefix(run[i].key, prefix); i++ {
			if pattern.Matches(run[i].row) {
				rows = append(rows, run[i].row)
			}
		}
	}
	for _, e := range rel.tail {
		if pattern.Matches(e.row) {
			rows = append(rows, e.row)
		}
	}
	return rows
}

// Len returns the number of rows in the relation
func (s *SpineIndex) Len(relation string) int {
	if rel := s.relations[relation]; rel != nil {
		return rel.size
	}
	return 0
}

// Relations returns the non-empty relation names
func (s *SpineIndex) Relations() []string {
	return s.names()
}
