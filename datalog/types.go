package datalog

import (
	"strings"
)

// Keyword represents a keyword constant such as :parentOf or :rdf/type
// Keywords are compared by their string form and interned on parse
type Keyword struct {
	value string // The keyword string including the leading colon
}

// NewKeyword creates a keyword
func NewKeyword(s string) Keyword {
	return Keyword{value: s}
}

// String returns the keyword string
func (k Keyword) String() string {
	return k.value
}

// Compare compares two keywords
func (k Keyword) Compare(other Keyword) int {
	return strings.Compare(k.value, other.value)
}

// Term is either a Variable or a Constant occurring in an atom
type Term interface {
	IsVariable() bool
	String() string
}

// Variable is a named logic variable. The name is stored without the
// leading '?' used by the program syntax.
type Variable struct {
	Name string
}

func (v Variable) IsVariable() bool { return true }
func (v Variable) String() string   { return "?" + v.Name }

// Constant wraps a Value occurring in an atom
type Constant struct {
	Value Value
}

func (c Constant) IsVariable() bool { return false }
func (c Constant) String() string   { return FormatValue(c.Value) }

// Var is shorthand for Variable{Name: name}
func Var(name string) Variable {
	return Variable{Name: strings.TrimPrefix(name, "?")}
}

// Const wraps v as a Constant, normalizing Go integer and float widths.
// It panics on value types the engine cannot store.
func Const(v interface{}) Constant {
	nv, err := NormalizeValue(v)
	if err != nil {
		panic(err)
	}
	return Constant{Value: nv}
}

// Atom is a relation name applied to an ordered list of terms
type Atom struct {
	Relation string
	Terms    []Term
}

// NewAtom creates an atom
func NewAtom(relation string, terms ...Term) Atom {
	return Atom{Relation: relation, Terms: terms}
}

// Arity returns the number of terms
func (a Atom) Arity() int {
	return len(a.Terms)
}

// IsGround reports whether the atom contains no variables
func (a Atom) IsGround() bool {
	for _, t := range a.Terms {
		if t.IsVariable() {
			return false
		}
	}
	return true
}

// Variables returns the distinct variables of the atom in order of first occurrence
func (a Atom) Variables() []Variable {
	var vars []Variable
	seen := make(map[string]bool, len(a.Terms))
	for _, t := range a.Terms {
		if v, ok := t.(Variable); ok && !seen[v.Name] {
			seen[v.Name] = true
			vars = append(vars, v)
		}
	}
	return vars
}

// Row converts a ground atom to a row. The boolean is false if the atom
// still contains variables.
func (a Atom) Row() (Row, bool) {
	row := make(Row, len(a.Terms))
	for i, t := range a.Terms {
		c, ok := t.(Constant)
		if !ok {
			return nil, false
		}
		row[i] = c.Value
	}
	return row, true
}

// String renders the atom in program syntax: (T ?x :parentOf ?y)
func (a Atom) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(a.Relation)
	for _, t := range a.Terms {
		sb.WriteByte(' ')
		sb.WriteString(t.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// Fact is a row belonging to a named relation
type Fact struct {
	Relation string
	Row      Row
}

// String returns a string representation of the fact
func (f Fact) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	sb.WriteString(f.Relation)
	for _, v := range f.Row {
		sb.WriteByte(' ')
		sb.WriteString(FormatValue(v))
	}
	sb.WriteByte(')')
	return sb.String()
}
