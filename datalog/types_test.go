package datalog

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueTypes(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected ValueType
	}{
		{"string", "Alice", TypeString},
		{"int", 42, TypeInt},
		{"int64", int64(42), TypeInt},
		{"float", 3.14, TypeFloat},
		{"float32", float32(1.5), TypeFloat},
		{"bool", true, TypeBool},
		{"keyword", NewKeyword(":parentOf"), TypeKeyword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NormalizeValue(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, Type(v))

			decoded, rest, err := DecodeValue(AppendValue(nil, v))
			require.NoError(t, err)
			assert.Empty(t, rest)
			assert.True(t, ValuesEqual(v, decoded), "decoded %v != %v", decoded, v)
		})
	}
}

func TestNormalizeValueRejectsUnsupported(t *testing.T) {
	_, err := NormalizeValue([]byte("raw"))
	assert.ErrorIs(t, err, ErrUnsupportedValue)

	_, err = NewRow("a", struct{}{})
	assert.ErrorIs(t, err, ErrUnsupportedValue)

	_, err = NormalizeValue(math.NaN())
	assert.ErrorIs(t, err, ErrUnsupportedValue)
	_, err = NormalizeValue(float32(math.NaN()))
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestNormalizeValueNegativeZero(t *testing.T) {
	v, err := NormalizeValue(math.Copysign(0, -1))
	require.NoError(t, err)
	assert.False(t, math.Signbit(v.(float64)))
	assert.Equal(t, AppendValue(nil, 0.0), AppendValue(nil, v))
}

func TestKeyOrderMatchesCompareValues(t *testing.T) {
	values := []Value{
		"", "a", "a\x00", "a\x01", "ab", "b",
		int64(math.MinInt64), int64(-1), int64(0), int64(1), int64(math.MaxInt64),
		-2.5, -0.5, 0.0, 0.5, 1e9,
		false, true,
		NewKeyword(":a"), NewKeyword(":b"),
	}

	byKey := make([]Value, len(values))
	copy(byKey, values)
	sort.Slice(byKey, func(i, j int) bool {
		return string(AppendValue(nil, byKey[i])) < string(AppendValue(nil, byKey[j]))
	})

	byCompare := make([]Value, len(values))
	copy(byCompare, values)
	sort.Slice(byCompare, func(i, j int) bool {
		return CompareValues(byCompare[i], byCompare[j]) < 0
	})

	for i := range byKey {
		if !ValuesEqual(byKey[i], byCompare[i]) {
			t.Fatalf("position %d: key order has %v, compare order has %v", i, byKey[i], byCompare[i])
		}
	}
}

func TestRowKeyPrefix(t *testing.T) {
	row := Row{"a", "parentOf", "b"}
	prefix := Row{"a", "parentOf"}

	assert.Equal(t, prefix.Key(), row.Key()[:len(prefix.Key())])
	assert.NotEqual(t, Row{"ab", "c"}.Key(), Row{"a", "bc"}.Key())

	decoded, err := RowFromKey([]byte(row.Key()))
	require.NoError(t, err)
	assert.True(t, row.Equal(decoded))
}

func TestValuesEqualDistinguishesTypes(t *testing.T) {
	assert.True(t, ValuesEqual("x", "x"))
	assert.True(t, ValuesEqual(NewKeyword(":x"), InternKeyword(":x")))
	assert.False(t, ValuesEqual(int64(1), 1.0))
	assert.False(t, ValuesEqual("x", NewKeyword("x")))
}

func TestPatternMatches(t *testing.T) {
	row := Row{"a", "parentOf", "b"}

	assert.True(t, NewPattern(nil, nil, nil).Matches(row))
	assert.True(t, NewPattern("a", nil, "b").Matches(row))
	assert.False(t, NewPattern("b", nil, nil).Matches(row))
	assert.False(t, NewPattern("a", nil).Matches(row), "arity differs")

	assert.Equal(t, []int{0, 2}, NewPattern("a", nil, "b").Bound())
	assert.True(t, NewPattern(nil, nil).IsFree())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "parentOf", FormatValue("parentOf"))
	assert.Equal(t, `"hello world"`, FormatValue("hello world"))
	assert.Equal(t, `"42"`, FormatValue("42"))
	assert.Equal(t, `"?x"`, FormatValue("?x"))
	assert.Equal(t, ":rdf/type", FormatValue(NewKeyword(":rdf/type")))
	assert.Equal(t, "42", FormatValue(int64(42)))
	assert.Equal(t, "2.0", FormatValue(2.0))
}

func TestAtomHelpers(t *testing.T) {
	atom := NewAtom("T", Var("x"), Const("parentOf"), Var("y"), Var("x"))

	assert.Equal(t, 4, atom.Arity())
	assert.False(t, atom.IsGround())
	assert.Equal(t, []Variable{{Name: "x"}, {Name: "y"}}, atom.Variables())
	assert.Equal(t, "(T ?x parentOf ?y ?x)", atom.String())

	ground := NewAtom("T", Const("a"), Const("parentOf"), Const(7))
	row, ok := ground.Row()
	require.True(t, ok)
	assert.Equal(t, Row{"a", "parentOf", int64(7)}, row)
}
