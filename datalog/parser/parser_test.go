package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/janus-reasoner/datalog"
)

const ancestorProgram = `
; transitive closure over parent edges
[(T ?x ancestorOf ?y) (T ?x parentOf ?y)]
[(T ?x ancestorOf ?z) (T ?x ancestorOf ?y) (T ?y ancestorOf ?z)]
`

func TestParseProgram(t *testing.T) {
	program, err := ParseProgram(ancestorProgram)
	require.NoError(t, err)
	require.Len(t, program.Rules, 2)
	assert.Empty(t, program.Facts)

	r := program.Rules[1]
	assert.Equal(t, "T", r.Head.Relation)
	assert.Equal(t, datalog.Var("x"), r.Head.Terms[0])
	assert.Equal(t, datalog.Const("ancestorOf"), r.Head.Terms[1])
	assert.Len(t, r.Body, 2)
	assert.Equal(t, []string{"T"}, program.Relations())
}

func TestParseProgramFacts(t *testing.T) {
	program, err := ParseProgram(`
		[(T alice parentOf bob)]
		[(age alice 42)]
		[(score alice 9.5 true :grade/a "quoted name")]
		[(label <http://example.org/alice> "Alice")]
	`)
	require.NoError(t, err)
	require.Len(t, program.Facts, 4)
	assert.Empty(t, program.Rules)

	assert.Equal(t, datalog.Row{"alice", "parentOf", "bob"}, program.Facts[0].Row)
	assert.Equal(t, datalog.Row{"alice", int64(42)}, program.Facts[1].Row)

	score := program.Facts[2].Row
	assert.Equal(t, 9.5, score[1])
	assert.Equal(t, true, score[2])
	assert.True(t, datalog.ValuesEqual(datalog.NewKeyword(":grade/a"), score[3]))
	assert.Equal(t, "quoted name", score[4])

	assert.Equal(t, "<http://example.org/alice>", program.Facts[3].Row[0])
}

func TestParseProgramRoundTrip(t *testing.T) {
	src := `[(T alice parentOf bob)]
[(p 1 2.5 false :k "two words")]
[(T ?x ancestorOf ?y) (T ?x parentOf ?y)]
[(T ?x ancestorOf ?z) (T ?x ancestorOf ?y) (T ?y ancestorOf ?z)]`

	program, err := ParseProgram(src)
	require.NoError(t, err)
	assert.Equal(t, src, program.String())

	again, err := ParseProgram(program.String())
	require.NoError(t, err)
	assert.Equal(t, program.String(), again.String())
}

func TestParseAnonymousVariables(t *testing.T) {
	rule, err := ParseRule(`[(hasParent ?x) (T ?x parentOf _) (T _ knows ?x)]`)
	require.NoError(t, err)

	first := rule.Body[0].Terms[2].(datalog.Variable)
	second := rule.Body[1].Terms[0].(datalog.Variable)
	assert.NotEqual(t, first.Name, second.Name, "each _ is a distinct variable")
	assert.NoError(t, rule.Validate())

	_, err = ParseRule(`[(p _) (q ?x)]`)
	assert.Error(t, err, "_ is not allowed in a head")
}

func TestParseUnsafeRule(t *testing.T) {
	_, err := ParseProgram(`[(R ?x ?y) (S ?x)]`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, datalog.ErrUnsafeRule), "got %v", err)
	assert.Contains(t, err.Error(), "?y")
}

func TestParseNonGroundFact(t *testing.T) {
	_, err := ParseProgram(`[(R ?x)]`)
	assert.True(t, errors.Is(err, datalog.ErrUnsafeRule), "got %v", err)
}

func TestParseAtom(t *testing.T) {
	atom, err := ParseAtom(`(T ?x rdf:type Person)`)
	require.NoError(t, err)
	assert.Equal(t, 3, atom.Arity())
	assert.Equal(t, datalog.Const("rdf:type"), atom.Terms[1])
	assert.Equal(t, "(T ?x rdf:type Person)", atom.String())

	_, err = ParseAtom(`(T _ a b)`)
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not a vector", `(T a b c)`, "rule must be a vector at 1:1"},
		{"empty rule", `[]`, "empty rule"},
		{"head not a list", `[T]`, "atom must be a list"},
		{"empty atom", `[()]`, "empty atom"},
		{"variable relation", `[(?r a)]`, "cannot be a variable"},
		{"numeric relation", `[(1 a)]`, "must be a symbol"},
		{"nested list term", `[(p (q)) (r)]`, "unsupported term at 1:5"},
		{"nil term", `[(p nil)]`, "unsupported term"},
		{"bare question mark", `[(p ?) (q ?x)]`, "variable without a name"},
		{"unterminated", `[(p a)`, "EDN parse error"},
		{"line numbers", "[(p a)]\n[(p\n  (x))]", "at 3:3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProgram(tt.input)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ParseProgram(%q) error = %v, want containing %q", tt.input, err, tt.want)
			}
		})
	}
}

func TestParseArityConflict(t *testing.T) {
	_, err := ParseProgram(`[(p a b)] [(p a)]`)
	assert.True(t, errors.Is(err, datalog.ErrArityMismatch), "got %v", err)
}
