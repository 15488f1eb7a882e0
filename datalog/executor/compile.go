package executor

import (
	"fmt"

	"github.com/wbrown/janus-reasoner/datalog"
)

// slotTerm is a compiled term: a variable slot, or a constant when slot
// is negative
type slotTerm struct {
	slot  int
	value datalog.Value
}

type compiledAtom struct {
	relation string
	terms    []slotTerm
}

// compiledRule is a rule with variables replaced by binding slots and a
// join order precomputed for every choice of delta position
type compiledRule struct {
	text  string
	head  compiledAtom
	body  []compiledAtom
	slots int
	plans [][]int
}

func compileRule(rule datalog.Rule) (*compiledRule, error) {
	if len(rule.Body) == 0 {
		return nil, fmt.Errorf("%w %s: rule has no body", datalog.ErrUnsafeRule, rule)
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	slots := make(map[string]int)
	compile := func(atom datalog.Atom) compiledAtom {
		ca := compiledAtom{relation: atom.Relation, terms: make([]slotTerm, len(atom.Terms))}
		for i, t := range atom.Terms {
			switch term := t.(type) {
			case datalog.Variable:
				slot, ok := slots[term.Name]
				if !ok {
					slot = len(slots)
					slots[term.Name] = slot
				}
				ca.terms[i] = slotTerm{slot: slot}
			case datalog.Constant:
				ca.terms[i] = slotTerm{slot: -1, value: term.Value}
			}
		}
		return ca
	}

	cr := &compiledRule{text: rule.String()}
	for _, atom := range rule.Body {
		cr.body = append(cr.body, compile(atom))
	}
	cr.head = compile(rule.Head)
	cr.slots = len(slots)

	cr.plans = make([][]int, len(cr.body))
	for pos := range cr.body {
		cr.plans[pos] = cr.joinOrder(pos)
	}
	return cr, nil
}

// joinOrder starts from the delta atom and greedily picks the atom with
// the most positions fixed by constants or already bound slots. Ties keep
// body order.
func (cr *compiledRule) joinOrder(first int) []int {
	bound := make([]bool, cr.slots)
	used := make([]bool, len(cr.body))
	order := make([]int, 0, len(cr.body))

	take := func(i int) {
		used[i] = true
		order = append(order, i)
		for _, t := range cr.body[i].terms {
			if t.slot >= 0 {
				bound[t.slot] = true
			}
		}
	}
	take(first)

	for len(order) < len(cr.body) {
		best, bestScore := -1, -1
		for i, atom := range cr.body {
			if used[i] {
				continue
			}
			score := 0
			for _, t := range atom.terms {
				if t.slot < 0 || bound[t.slot] {
					score++
				}
			}
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		take(best)
	}
	return order
}

// pattern builds the lookup pattern for atom under binding
func (a compiledAtom) pattern(binding []datalog.Value) datalog.Pattern {
	p := make(datalog.Pattern, len(a.terms))
	for i, t := range a.terms {
		if t.slot < 0 {
			p[i] = t.value
		} else {
			p[i] = binding[t.slot]
		}
	}
	return p
}

// extend binds the free slots of atom from row. It returns nil when a
// variable repeated inside the atom would take two different values.
func (a compiledAtom) extend(binding []datalog.Value, row datalog.Row) []datalog.Value {
	var next []datalog.Value
	for i, t := range a.terms {
		if t.slot < 0 || binding[t.slot] != nil {
			continue
		}
		if next == nil {
			next = make([]datalog.Value, len(binding))
			copy(next, binding)
		}
		if prev := next[t.slot]; prev != nil {
			if !datalog.ValuesEqual(prev, row[i]) {
				return nil
			}
			continue
		}
		next[t.slot] = row[i]
	}
	if next == nil {
		return binding
	}
	return next
}

// instantiate builds the head row for a complete binding
func (a compiledAtom) instantiate(binding []datalog.Value) datalog.Row {
	row := make(datalog.Row, len(a.terms))
	for i, t := range a.terms {
		if t.slot < 0 {
			row[i] = t.value
		} else {
			row[i] = binding[t.slot]
		}
	}
	return row
}
