package datalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ancestorRules() []Rule {
	return []Rule{
		NewRule(
			NewAtom("T", Var("x"), Const("ancestorOf"), Var("y")),
			NewAtom("T", Var("x"), Const("parentOf"), Var("y")),
		),
		NewRule(
			NewAtom("T", Var("x"), Const("ancestorOf"), Var("z")),
			NewAtom("T", Var("x"), Const("parentOf"), Var("y")),
			NewAtom("T", Var("y"), Const("ancestorOf"), Var("z")),
		),
	}
}

func TestNewProgram(t *testing.T) {
	p, err := NewProgram(ancestorRules()...)
	require.NoError(t, err)
	assert.Len(t, p.Rules, 2)
	assert.Empty(t, p.Facts)
	assert.Equal(t, []string{"T"}, p.Relations())
}

func TestUnsafeRuleRejected(t *testing.T) {
	// R(x, y) :- S(x) leaves y unbound
	unsafe := NewRule(
		NewAtom("R", Var("x"), Var("y")),
		NewAtom("S", Var("x")),
	)

	err := unsafe.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsafeRule))
	assert.Contains(t, err.Error(), "?y")

	_, err = NewProgram(append(ancestorRules(), unsafe)...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsafeRule))
}

func TestNewProgramReportsEveryProblem(t *testing.T) {
	_, err := NewProgram(
		NewRule(NewAtom("R", Var("x"), Var("y")), NewAtom("S", Var("x"))),
		NewRule(NewAtom("Q", Var("z"))),
		NewRule(NewAtom("P", Var("x")), NewAtom("S", Var("x"), Var("x"))),
	)
	require.Error(t, err)

	msg := err.Error()
	assert.Equal(t, 2, strings.Count(msg, ErrUnsafeRule.Error()), msg)
	assert.True(t, errors.Is(err, ErrArityMismatch), msg)
}

func TestBodylessGroundRuleBecomesFact(t *testing.T) {
	p, err := NewProgram(
		NewRule(NewAtom("T", Const("a"), Const("parentOf"), Const("b"))),
	)
	require.NoError(t, err)
	assert.Empty(t, p.Rules)
	require.Len(t, p.Facts, 1)
	assert.Equal(t, Fact{Relation: "T", Row: Row{"a", "parentOf", "b"}}, p.Facts[0])
}

func TestProgramArity(t *testing.T) {
	rules := append(ancestorRules(),
		NewRule(NewAtom("age", Const("a"), Const(int64(3)))),
		NewRule(NewAtom("R", Var("x")), NewAtom("S", Var("x"), Var("x"))),
	)
	p, err := NewProgram(rules...)
	require.NoError(t, err)

	for relation, want := range map[string]int{"T": 3, "age": 2, "R": 1, "S": 2} {
		n, ok := p.Arity(relation)
		assert.True(t, ok, relation)
		assert.Equal(t, want, n, relation)
	}
	_, ok := p.Arity("missing")
	assert.False(t, ok)

	var nilProgram *Program
	_, ok = nilProgram.Arity("T")
	assert.False(t, ok)
}

func TestEmptyProgram(t *testing.T) {
	p, err := NewProgram()
	require.NoError(t, err)
	assert.True(t, p.IsEmpty())
	assert.NoError(t, p.Validate())
}

func TestProgramString(t *testing.T) {
	p := MustProgram(ancestorRules()...)
	expected := "[(T ?x ancestorOf ?y) (T ?x parentOf ?y)]\n" +
		"[(T ?x ancestorOf ?z) (T ?x parentOf ?y) (T ?y ancestorOf ?z)]"
	assert.Equal(t, expected, p.String())
}
