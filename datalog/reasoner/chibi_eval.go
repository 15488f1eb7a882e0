package reasoner

import (
	"fmt"

	"github.com/wbrown/janus-reasoner/datalog"
	"github.com/wbrown/janus-reasoner/datalog/executor"
)

// span is a range of row numbers [lo, hi) in one relation
type span struct {
	lo, hi int
}

// chibiTerm is a variable slot, or an interned constant when slot is
// negative
type chibiTerm struct {
	slot int
	id   uint32
}

type chibiAtom struct {
	relation string
	terms    []chibiTerm
}

type chibiRule struct {
	text  string
	head  chibiAtom
	body  []chibiAtom
	slots int
}

func compileChibiRule(rule datalog.Rule, syms *symbols) (*chibiRule, error) {
	if len(rule.Body) == 0 {
		return nil, fmt.Errorf("%w %s: rule has no body", datalog.ErrUnsafeRule, rule)
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	slots := make(map[string]int)
	compile := func(atom datalog.Atom) chibiAtom {
		ca := chibiAtom{relation: atom.Relation, terms: make([]chibiTerm, len(atom.Terms))}
		for i, t := range atom.Terms {
			switch term := t.(type) {
			case datalog.Variable:
				slot, ok := slots[term.Name]
				if !ok {
					slot = len(slots)
					slots[term.Name] = slot
				}
				ca.terms[i] = chibiTerm{slot: slot}
			case datalog.Constant:
				ca.terms[i] = chibiTerm{slot: -1, id: syms.intern(term.Value)}
			}
		}
		return ca
	}

	cr := &chibiRule{text: rule.String()}
	for _, atom := range rule.Body {
		cr.body = append(cr.body, compile(atom))
	}
	cr.head = compile(rule.Head)
	cr.slots = len(slots)
	return cr, nil
}

// fixpoint runs rounds until one derives nothing. delta gives the rows
// of each relation that are new for the first round.
func (c *ChibiDatalog) fixpoint(rules []*chibiRule, store *chibiStore, delta map[string]span, stats executor.Stats) (executor.Stats, error) {
	for round := 1; ; round++ {
		deltaSize := 0
		for _, s := range delta {
			deltaSize += s.hi - s.lo
		}
		if deltaSize == 0 || len(rules) == 0 {
			return stats, nil
		}

		mark := make(map[string]int, len(store.relations))
		for name, rel := range store.relations {
			mark[name] = rel.n
		}

		rs, err := c.ctx.Round(round, deltaSize, func() (executor.RoundStats, error) {
			return c.round(round, rules, store, delta)
		})
		stats.Candidates += rs.Candidates
		stats.Derived += rs.Derived
		stats.RuleFirings += rs.Firings
		if err != nil {
			return stats, err
		}
		if rs.Derived == 0 {
			return stats, nil
		}
		stats.Rounds++
		if c.maxRounds > 0 && stats.Rounds > c.maxRounds {
			return stats, fmt.Errorf("%w: limit %d", executor.ErrMaxRounds, c.maxRounds)
		}

		delta = make(map[string]span, len(store.relations))
		for name, rel := range store.relations {
			if rel.n > mark[name] {
				delta[name] = span{mark[name], rel.n}
			}
		}
	}
}

type chibiCandidate struct {
	rule  *chibiRule
	tuple []uint32
}

// round fires every rule once per body position with delta rows, then
// inserts the candidates in rule order
func (c *ChibiDatalog) round(round int, rules []*chibiRule, store *chibiStore, delta map[string]span) (executor.RoundStats, error) {
	var rs executor.RoundStats
	var candidates []chibiCandidate

	for _, r := range rules {
		for pos, atom := range r.body {
			d, ok := delta[atom.relation]
			if !ok || d.hi <= d.lo {
				continue
			}
			rs.Firings++
			n := 0
			r.fire(pos, d, store, func(tuple []uint32) {
				candidates = append(candidates, chibiCandidate{rule: r, tuple: tuple})
				n++
			})
			c.ctx.RuleFired(r.text, pos, round, n)
		}
	}

	for _, cand := range candidates {
		rs.Candidates++
		rel, err := store.relation(cand.rule.head.relation, len(cand.tuple))
		if err != nil {
			return rs, fmt.Errorf("rule %s: %w", cand.rule.text, err)
		}
		if rel.insert(cand.tuple) {
			rs.Derived++
		}
	}
	return rs, nil
}

// fire joins the body with position pos restricted to delta rows d and
// the other positions over every row present when the round started.
func (r *chibiRule) fire(pos int, d span, store *chibiStore, emit func([]uint32)) {
	order := make([]int, 0, len(r.body))
	order = append(order, pos)
	for i := range r.body {
		if i != pos {
			order = append(order, i)
		}
	}

	limits := make([]int, len(r.body))
	for i, atom := range r.body {
		rel, ok := store.relations[atom.relation]
		if !ok || rel.arity != len(atom.terms) {
			return
		}
		limits[i] = rel.n
	}

	frontier := [][]uint32{make([]uint32, r.slots)}
	pattern := make([]uint32, 0, 8)
	for _, i := range order {
		atom := r.body[i]
		rel := store.relations[atom.relation]
		lo, hi := 0, limits[i]
		if i == pos {
			lo, hi = d.lo, d.hi
		}

		var next [][]uint32
		for _, binding := range frontier {
			pattern = pattern[:0]
			for _, t := range atom.terms {
				if t.slot < 0 {
					pattern = append(pattern, t.id)
				} else {
					pattern = append(pattern, binding[t.slot])
				}
			}
			rel.scan(pattern, lo, hi, func(tuple []uint32) {
				if extended := atom.extend(binding, tuple); extended != nil {
					next = append(next, extended)
				}
			})
		}
		if len(next) == 0 {
			return
		}
		frontier = next
	}

	for _, binding := range frontier {
		tuple := make([]uint32, len(r.head.terms))
		for i, t := range r.head.terms {
			if t.slot < 0 {
				tuple[i] = t.id
			} else {
				tuple[i] = binding[t.slot]
			}
		}
		emit(tuple)
	}
}

// extend binds the free slots of atom from tuple, returning nil when a
// variable repeated in the atom meets two different ids
func (a chibiAtom) extend(binding, tuple []uint32) []uint32 {
	var next []uint32
	for i, t := range a.terms {
		if t.slot < 0 || binding[t.slot] != 0 {
			continue
		}
		if next == nil {
			next = append([]uint32(nil), binding...)
		}
		if prev := next[t.slot]; prev != 0 {
			if prev != tuple[i] {
				return nil
			}
			continue
		}
		next[t.slot] = tuple[i]
	}
	if next == nil {
		return binding
	}
	return next
}
