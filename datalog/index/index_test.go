package index

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/janus-reasoner/datalog"
)

func newIndex(t testing.TB, kind Kind, opts Options) Index {
	t.Helper()
	idx, err := New(kind, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Release(idx) })
	return idx
}

func row(values ...interface{}) datalog.Row {
	r, err := datalog.NewRow(values...)
	if err != nil {
		panic(err)
	}
	return r
}

func sorted(rows []datalog.Row) []datalog.Row {
	out := append([]datalog.Row(nil), rows...)
	datalog.SortRows(out)
	return out
}

func firstColumn(rows []datalog.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r[0].(string)
	}
	return out
}

var rowCmp = cmp.Comparer(func(a, b datalog.Row) bool { return a.Equal(b) })

func TestIndexContract(t *testing.T) {
	for _, kind := range Kinds() {
		kind := kind
		t.Run(string(kind), func(t *testing.T) {
			idx := newIndex(t, kind, DefaultOptions())

			added, err := idx.Insert("T", row("a", "parentOf", "b"))
			require.NoError(t, err)
			assert.True(t, added)

			added, err = idx.Insert("T", row("a", "parentOf", "b"))
			require.NoError(t, err)
			assert.False(t, added, "duplicate insert must not grow the relation")

			_, err = idx.Insert("T", row("b", "parentOf", "c"))
			require.NoError(t, err)
			_, err = idx.Insert("T", row("a", "type", "Person"))
			require.NoError(t, err)
			_, err = idx.Insert("age", row("a", 42))
			require.NoError(t, err)

			assert.Equal(t, 3, idx.Len("T"))
			assert.Equal(t, 1, idx.Len("age"))
			assert.Equal(t, 0, idx.Len("missing"))
			assert.Equal(t, []string{"T", "age"}, idx.Relations())

			assert.True(t, idx.Contains("T", row("b", "parentOf", "c")))
			assert.False(t, idx.Contains("T", row("c", "parentOf", "b")))
			assert.False(t, idx.Contains("missing", row("a")))
			assert.True(t, idx.Contains("age", datalog.Row{"a", 42}), "plain int must normalize on lookup")

			all := sorted(idx.View("T"))
			want := []datalog.Row{
				row("a", "parentOf", "b"),
				row("a", "type", "Person"),
				row("b", "parentOf", "c"),
			}
			if diff := cmp.Diff(want, all, rowCmp); diff != "" {
				t.Errorf("View mismatch (-want +got):\n%s", diff)
			}
			assert.Empty(t, idx.View("missing"))

			got := sorted(idx.ViewWithBinding("T", datalog.NewPattern("a", nil, nil)))
			want = []datalog.Row{row("a", "parentOf", "b"), row("a", "type", "Person")}
			if diff := cmp.Diff(want, got, rowCmp); diff != "" {
				t.Errorf("first column binding (-want +got):\n%s", diff)
			}

			got = sorted(idx.ViewWithBinding("T", datalog.NewPattern(nil, "parentOf", nil)))
			want = []datalog.Row{row("a", "parentOf", "b"), row("b", "parentOf", "c")}
			if diff := cmp.Diff(want, got, rowCmp); diff != "" {
				t.Errorf("middle column binding (-want +got):\n%s", diff)
			}

			got = idx.ViewWithBinding("T", datalog.NewPattern(nil, nil, "c"))
			if diff := cmp.Diff([]datalog.Row{row("b", "parentOf", "c")}, got, rowCmp); diff != "" {
				t.Errorf("last column binding (-want +got):\n%s", diff)
			}

			got = idx.ViewWithBinding("T", datalog.NewPattern("a", nil, "Person"))
			if diff := cmp.Diff([]datalog.Row{row("a", "type", "Person")}, got, rowCmp); diff != "" {
				t.Errorf("split binding (-want +got):\n%s", diff)
			}

			got = idx.ViewWithBinding("T", datalog.NewPattern("a", "parentOf", "b"))
			assert.Len(t, got, 1)
			assert.Empty(t, idx.ViewWithBinding("T", datalog.NewPattern("z", "parentOf", "b")))
			assert.Len(t, idx.ViewWithBinding("T", datalog.NewPattern(nil, nil, nil)), 3)

			assert.Empty(t, idx.ViewWithBinding("T", datalog.NewPattern("a", nil)),
				"pattern with the wrong arity matches nothing")
			assert.Empty(t, idx.ViewWithBinding("missing", datalog.NewPattern(nil)))
		})
	}
}

func TestIndexArityMismatch(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			idx := newIndex(t, kind, DefaultOptions())
			_, err := idx.Insert("R", row("a", "b"))
			require.NoError(t, err)

			_, err = idx.Insert("R", row("a"))
			assert.True(t, errors.Is(err, datalog.ErrArityMismatch), "got %v", err)
			assert.Equal(t, 1, idx.Len("R"))
			assert.False(t, idx.Contains("R", row("a")))
		})
	}
}

func TestIndexCapacity(t *testing.T) {
	opts := DefaultOptions()
	opts.Capacity = 2

	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			idx := newIndex(t, kind, opts)
			for i := 0; i < 2; i++ {
				_, err := idx.Insert("R", row(i))
				require.NoError(t, err)
			}

			added, err := idx.Insert("R", row(0))
			require.NoError(t, err, "re-inserting an existing row never exceeds capacity")
			assert.False(t, added)

			_, err = idx.Insert("R", row(2))
			assert.True(t, errors.Is(err, ErrIndexFull), "got %v", err)
			assert.Equal(t, 2, idx.Len("R"))

			_, err = idx.Insert("S", row(0))
			assert.NoError(t, err, "capacity is per relation")
		})
	}
}

func TestIndexUnsupportedValue(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			idx := newIndex(t, kind, DefaultOptions())
			_, err := idx.Insert("R", datalog.Row{struct{}{}})
			assert.True(t, errors.Is(err, datalog.ErrUnsupportedValue), "got %v", err)
			assert.Empty(t, idx.Relations())
		})
	}
}

func TestIndexNullaryRelation(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			idx := newIndex(t, kind, DefaultOptions())
			added, err := idx.Insert("done", datalog.Row{})
			require.NoError(t, err)
			assert.True(t, added)

			added, err = idx.Insert("done", datalog.Row{})
			require.NoError(t, err)
			assert.False(t, added)

			assert.Equal(t, 1, idx.Len("done"))
			assert.True(t, idx.Contains("done", datalog.Row{}))
			assert.Len(t, idx.ViewWithBinding("done", datalog.Pattern{}), 1)
		})
	}
}

func TestIndexMixedValueTypes(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			idx := newIndex(t, kind, DefaultOptions())
			values := []interface{}{
				"x", int64(1), 1.0, true, false, datalog.NewKeyword(":k"), "", "with\x00nul", int64(-7),
			}
			for _, v := range values {
				_, err := idx.Insert("V", row(v, v))
				require.NoError(t, err)
			}
			assert.Equal(t, len(values), idx.Len("V"), "int64(1) and 1.0 are distinct")

			for _, v := range values {
				got := idx.ViewWithBinding("V", datalog.NewPattern(v, nil))
				require.Len(t, got, 1, "lookup of %v", v)
				assert.True(t, datalog.ValuesEqual(v, got[0][1]))
			}

			added, err := idx.Insert("Z", datalog.Row{0.0})
			require.NoError(t, err)
			assert.True(t, added)
			added, err = idx.Insert("Z", datalog.Row{math.Copysign(0, -1)})
			require.NoError(t, err)
			assert.False(t, added, "negative zero equals zero")
			assert.True(t, idx.Contains("Z", datalog.Row{math.Copysign(0, -1)}))
			assert.Equal(t, 1, idx.Len("Z"))

			_, err = idx.Insert("N", datalog.Row{math.NaN()})
			assert.ErrorIs(t, err, datalog.ErrUnsupportedValue)
			assert.False(t, idx.Contains("N", datalog.Row{math.NaN()}))
			assert.Equal(t, 0, idx.Len("N"))
		})
	}
}

func TestViewIsolatedFromCaller(t *testing.T) {
	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			idx := newIndex(t, kind, DefaultOptions())
			for _, s := range []string{"c", "b", "a"} {
				_, err := idx.Insert("P", row(s, "x"))
				require.NoError(t, err)
			}

			datalog.SortRows(idx.View("P"))
			datalog.SortRows(idx.ViewWithBinding("P", datalog.NewPattern(nil, nil)))

			got := idx.ViewWithBinding("P", datalog.NewPattern("c", "x"))
			require.Len(t, got, 1)
			assert.True(t, got[0].Equal(row("c", "x")))
			assert.Len(t, idx.ViewWithBinding("P", datalog.NewPattern("c", nil)), 1)

			added, err := idx.Insert("P", row("c", "x"))
			require.NoError(t, err)
			assert.False(t, added)
			assert.Equal(t, 3, idx.Len("P"))
			assert.ElementsMatch(t, []string{"a", "b", "c"}, firstColumn(idx.View("P")))
		})
	}
}

func TestBackendEquivalence(t *testing.T) {
	var indexes []Index
	for _, kind := range Kinds() {
		opts := DefaultOptions()
		opts.SpineThreshold = 4
		indexes = append(indexes, newIndex(t, kind, opts))
	}

	for i := 0; i < 200; i++ {
		r := row(fmt.Sprintf("n%d", i%17), i%5, i%3 == 0)
		for _, idx := range indexes {
			_, err := idx.Insert("E", r)
			require.NoError(t, err)
		}
	}
	for _, idx := range indexes {
		for _, f := range []float64{0.0, math.Copysign(0, -1), 1.5, -1.5} {
			_, err := idx.Insert("F", datalog.Row{f})
			require.NoError(t, err)
		}
		_, err := idx.Insert("F", datalog.Row{math.NaN()})
		require.ErrorIs(t, err, datalog.ErrUnsupportedValue)
		assert.Equal(t, 3, idx.Len("F"))
	}

	reference := indexes[0]
	for i, idx := range indexes[1:] {
		kind := Kinds()[i+1]
		assert.True(t, Equal(reference, idx), "%s differs from %s", kind, Kinds()[0])
		if diff := cmp.Diff(Dump(reference), Dump(idx), cmp.Comparer(func(a, b datalog.Fact) bool {
			return a.Relation == b.Relation && a.Row.Equal(b.Row)
		})); diff != "" {
			t.Errorf("%s dump mismatch (-want +got):\n%s", kind, diff)
		}

		for _, p := range []datalog.Pattern{
			datalog.NewPattern("n3", nil, nil),
			datalog.NewPattern(nil, int64(2), nil),
			datalog.NewPattern(nil, nil, true),
			datalog.NewPattern("n4", nil, false),
		} {
			want := sorted(reference.ViewWithBinding("E", p))
			got := sorted(idx.ViewWithBinding("E", p))
			if diff := cmp.Diff(want, got, rowCmp); diff != "" {
				t.Errorf("%s pattern %s (-want +got):\n%s", kind, p, diff)
			}
		}
	}
}

func TestSpineCompaction(t *testing.T) {
	opts := DefaultOptions()
	opts.SpineThreshold = 8
	s := NewSpineIndex(opts)

	for i := 0; i < 100; i++ {
		_, err := s.Insert("R", row(i%10, i))
		require.NoError(t, err)
	}
	assert.Equal(t, 100, s.Len("R"))
	assert.Greater(t, s.Runs("R"), 1)
	assert.LessOrEqual(t, s.Runs("R"), 7, "runs stay logarithmic")

	before := sorted(s.ViewWithBinding("R", datalog.NewPattern(int64(3), nil)))
	assert.Len(t, before, 10)

	s.Compact()
	assert.Equal(t, 1, s.Runs("R"))
	assert.Equal(t, 100, s.Len("R"))

	after := sorted(s.ViewWithBinding("R", datalog.NewPattern(int64(3), nil)))
	if diff := cmp.Diff(before, after, rowCmp); diff != "" {
		t.Errorf("compaction changed lookups (-before +after):\n%s", diff)
	}
	for i := 0; i < 100; i++ {
		assert.True(t, s.Contains("R", row(i%10, i)))
	}
}

func TestImmutableSnapshotIsolation(t *testing.T) {
	idx := NewImmutableVectorIndex(DefaultOptions())
	_, err := idx.Insert("R", row("a"))
	require.NoError(t, err)

	snap := idx.Snapshot()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if _, err := idx.Insert("R", row(fmt.Sprintf("w%d", i))); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	for i := 0; i < 500; i++ {
		assert.Equal(t, 1, snap.Len("R"))
		assert.Len(t, snap.View("R"), 1)
	}
	wg.Wait()

	assert.Equal(t, 501, idx.Len("R"))
	assert.Equal(t, 1, snap.Len("R"))
	assert.False(t, snap.Contains("R", row("w0")))
	assert.True(t, idx.Contains("R", row("w0")))
	assert.Equal(t, "a", idx.View("R")[0][0], "view is in insertion order")
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"hashmap", HashMap},
		{"BTree", BTree},
		{"indexed_hashmap", IndexedHashMap},
		{"IndexedHashMap", IndexedHashMap},
		{"immutable", Immutable},
		{"badger", Badger},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseKind("rocksdb")
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestCopy(t *testing.T) {
	src := NewHashMapIndex(DefaultOptions())
	for i := 0; i < 5; i++ {
		_, err := src.Insert("R", row(i))
		require.NoError(t, err)
	}
	dst := NewBTreeIndex(DefaultOptions())
	_, err := dst.Insert("R", row(0))
	require.NoError(t, err)

	n, err := Copy(dst, src)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.True(t, Equal(src, dst))
	assert.Equal(t, 5, Total(dst))
}

func BenchmarkInsert(b *testing.B) {
	for _, kind := range Kinds() {
		b.Run(string(kind), func(b *testing.B) {
			idx := newIndex(b, kind, DefaultOptions())
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = idx.Insert("R", datalog.Row{int64(i % 1000), int64(i)})
			}
		})
	}
}

func BenchmarkViewWithBinding(b *testing.B) {
	for _, kind := range Kinds() {
		b.Run(string(kind), func(b *testing.B) {
			idx := newIndex(b, kind, DefaultOptions())
			for i := 0; i < 10000; i++ {
				_, _ = idx.Insert("R", datalog.Row{int64(i % 100), int64(i)})
			}
			p := datalog.Pattern{int64(42), nil}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = idx.ViewWithBinding("R", p)
			}
		})
	}
}
