package datalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ErrUnsafeRule is returned for rules whose head uses a variable that no
// body atom binds
var ErrUnsafeRule = errors.New("unsafe rule")

// Rule derives its head whenever all body atoms hold under one consistent
// variable binding
type Rule struct {
	Head Atom
	Body []Atom
}

// NewRule creates a rule
func NewRule(head Atom, body ...Atom) Rule {
	return Rule{Head: head, Body: body}
}

// IsFact reports whether the rule is a bodyless ground atom
func (r Rule) IsFact() bool {
	return len(r.Body) == 0 && r.Head.IsGround()
}

// Validate checks range restriction: every head variable must occur in at
// least one body atom. Facts are valid rules.
func (r Rule) Validate() error {
	bound := make(map[string]bool)
	for _, atom := range r.Body {
		for _, v := range atom.Variables() {
			bound[v.Name] = true
		}
	}

	var unbound []string
	for _, v := range r.Head.Variables() {
		if !bound[v.Name] {
			unbound = append(unbound, v.String())
		}
	}
	if len(unbound) > 0 {
		return fmt.Errorf("%w %s: head variable(s) %s not bound by the body",
			ErrUnsafeRule, r, strings.Join(unbound, ", "))
	}
	return nil
}

// String renders the rule in program syntax: [(head) (body) ...]
func (r Rule) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	sb.WriteString(r.Head.String())
	for _, atom := range r.Body {
		sb.WriteByte(' ')
		sb.WriteString(atom.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// Program is a validated set of rules plus the ground facts stated
// alongside them. A Program must not be modified once evaluation starts.
type Program struct {
	Rules []Rule
	Facts []Fact
}

// NewProgram validates rules and builds a program. Bodyless ground rules
// become facts. All problems are reported together.
func NewProgram(rules ...Rule) (*Program, error) {
	var result *multierror.Error
	p := &Program{}

	arities := make(map[string]int)
	checkArity := func(a Atom) {
		if n, ok := arities[a.Relation]; ok && n != a.Arity() {
			result = multierror.Append(result, fmt.Errorf("%w: %s used with arity %d and %d",
				ErrArityMismatch, a.Relation, n, a.Arity()))
			return
		}
		arities[a.Relation] = a.Arity()
	}

	for _, r := range rules {
		checkArity(r.Head)
		for _, atom := range r.Body {
			checkArity(atom)
		}
		if err := r.Validate(); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if r.IsFact() {
			row, _ := r.Head.Row()
			p.Facts = append(p.Facts, Fact{Relation: r.Head.Relation, Row: row})
			continue
		}
		p.Rules = append(p.Rules, r)
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return p, nil
}

// MustProgram is like NewProgram but panics on invalid rules
func MustProgram(rules ...Rule) *Program {
	p, err := NewProgram(rules...)
	if err != nil {
		panic(err)
	}
	return p
}

// Validate re-checks every rule of the program
func (p *Program) Validate() error {
	var result *multierror.Error
	for _, r := range p.Rules {
		if err := r.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// IsEmpty reports whether the program has neither rules nor facts
func (p *Program) IsEmpty() bool {
	return p == nil || (len(p.Rules) == 0 && len(p.Facts) == 0)
}

// Relations returns the relation names the program derives into
func (p *Program) Relations() []string {
	var names []string
	seen := make(map[string]bool)
	for _, r := range p.Rules {
		if !seen[r.Head.Relation] {
			seen[r.Head.Relation] = true
			names = append(names, r.Head.Relation)
		}
	}
	return names
}

// Arity returns the arity relation is used with by the program's rules
// and facts
func (p *Program) Arity(relation string) (int, bool) {
	if p == nil {
		return 0, false
	}
	for _, f := range p.Facts {
		if f.Relation == relation {
			return len(f.Row), true
		}
	}
	for _, r := range p.Rules {
		if r.Head.Relation == relation {
			return r.Head.Arity(), true
		}
		for _, atom := range r.Body {
			if atom.Relation == relation {
				return atom.Arity(), true
			}
		}
	}
	return 0, false
}

// String renders the program one clause per line
func (p *Program) String() string {
	var lines []string
	for _, f := range p.Facts {
		lines = append(lines, "["+f.String()+"]")
	}
	for _, r := range p.Rules {
		lines = append(lines, r.String())
	}
	return strings.Join(lines, "\n")
}
